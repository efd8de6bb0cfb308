package storage

import (
	"context"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// BucketStats summarises the objects under a prefix.
type BucketStats struct {
	TotalObjects int64
	TotalSize    int64
	LastModified time.Time
	ByExtension  map[string]int64
}

// MinioClient wraps a MinIO client bound to one bucket for inspection tasks.
type MinioClient struct {
	client     *minio.Client
	bucketName string
}

// NewMinioClient creates a new MinioClient.
func NewMinioClient(endpoint, accessKey, secretKey, bucketName string, useSSL bool) (*MinioClient, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create MinIO client: %w", err)
	}
	return &MinioClient{client: client, bucketName: bucketName}, nil
}

// Stats walks every object under prefix.
func (m *MinioClient) Stats(ctx context.Context, prefix string) (*BucketStats, []minio.ObjectInfo, error) {
	exists, err := m.client.BucketExists(ctx, m.bucketName)
	if err != nil {
		return nil, nil, fmt.Errorf("check bucket: %w", err)
	}
	if !exists {
		return nil, nil, fmt.Errorf("bucket %s does not exist", m.bucketName)
	}

	stats := &BucketStats{ByExtension: make(map[string]int64)}
	var objects []minio.ObjectInfo
	for object := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if object.Err != nil {
			return nil, nil, fmt.Errorf("list objects: %w", object.Err)
		}
		stats.TotalObjects++
		stats.TotalSize += object.Size
		if object.LastModified.After(stats.LastModified) {
			stats.LastModified = object.LastModified
		}
		stats.ByExtension[extension(object.Key)]++
		objects = append(objects, object)
	}
	return stats, objects, nil
}

// PrintStats writes a report for prefix to w.
func (m *MinioClient) PrintStats(ctx context.Context, w io.Writer, prefix string, listObjects bool) error {
	stats, objects, err := m.Stats(ctx, prefix)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "bucket:        %s\n", m.bucketName)
	fmt.Fprintf(w, "prefix:        %q\n", prefix)
	fmt.Fprintf(w, "objects:       %d\n", stats.TotalObjects)
	fmt.Fprintf(w, "total size:    %s\n", formatSize(stats.TotalSize))
	if !stats.LastModified.IsZero() {
		fmt.Fprintf(w, "last modified: %s\n", stats.LastModified.Format(time.RFC3339))
	}

	exts := make([]string, 0, len(stats.ByExtension))
	for ext := range stats.ByExtension {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		fmt.Fprintf(w, "  %-8s %d\n", ext, stats.ByExtension[ext])
	}

	if listObjects {
		fmt.Fprintln(w)
		for _, obj := range objects {
			fmt.Fprintf(w, "%s  %s  %s\n", obj.LastModified.Format("2006-01-02 15:04:05"), formatSize(obj.Size), obj.Key)
		}
	}
	return nil
}

// DeletePrefix removes every object under prefix and returns how many went.
func (m *MinioClient) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	if strings.Trim(prefix, "/") == "" {
		return 0, fmt.Errorf("refusing to delete the whole bucket")
	}

	listed := 0
	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for object := range m.client.ListObjects(ctx, m.bucketName, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
			if object.Err != nil {
				return
			}
			listed++
			objectsCh <- object
		}
	}()

	failed := 0
	var firstErr error
	// The error channel closes only after objectsCh is drained.
	for rerr := range m.client.RemoveObjects(ctx, m.bucketName, objectsCh, minio.RemoveObjectsOptions{}) {
		failed++
		if firstErr == nil {
			firstErr = fmt.Errorf("remove %s: %w", rerr.ObjectName, rerr.Err)
		}
	}
	return listed - failed, firstErr
}

// formatSize renders a byte count with a binary unit.
func formatSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func extension(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ext == "" {
		return "(none)"
	}
	return ext
}
