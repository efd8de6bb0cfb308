package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"

	"LiveFM/logger"

	"github.com/minio/minio-go/v7"
)

// DefaultArchivePrefix is where artifacts live inside the bucket.
const DefaultArchivePrefix = "artifacts"

// ArtifactArchive keeps a copy of every acquired artifact in MinIO so that
// a fresh media directory can be refilled without hitting the provider.
type ArtifactArchive struct {
	client *minio.Client
	bucket string
	prefix string
}

// NewArtifactArchive creates an archive in bucket under prefix.
func NewArtifactArchive(client *minio.Client, bucket, prefix string) *ArtifactArchive {
	if prefix == "" {
		prefix = DefaultArchivePrefix
	}
	return &ArtifactArchive{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// objectDir is the per-id folder; content ids are escaped so ids containing
// slashes or URLs stay one path segment, and suffixed with a digest of the
// raw id because escaping is lossy.
func (a *ArtifactArchive) objectDir(contentID string) string {
	return path.Join(a.prefix, escapeSegment(contentID)+"-"+idHash(contentID)) + "/"
}

func idHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:4])
}

func escapeSegment(s string) string {
	r := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "?", "_", "#", "_", "%", "_")
	s = r.Replace(s)
	if s == "" || s == "." || s == ".." {
		return "_"
	}
	return s
}

// Fetch downloads the archived artifact for contentID into dir.
func (a *ArtifactArchive) Fetch(ctx context.Context, contentID, dir string) (string, bool, error) {
	// Cancelling stops the lister goroutine once the first object is seen.
	listCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var found *minio.ObjectInfo
	for obj := range a.client.ListObjects(listCtx, a.bucket, minio.ListObjectsOptions{Prefix: a.objectDir(contentID)}) {
		if obj.Err != nil {
			return "", false, obj.Err
		}
		o := obj
		found = &o
		break
	}
	if found == nil {
		return "", false, nil
	}

	dest := filepath.Join(dir, path.Base(found.Key))
	if err := a.client.FGetObject(ctx, a.bucket, found.Key, dest, minio.GetObjectOptions{}); err != nil {
		os.Remove(dest)
		return "", false, fmt.Errorf("download %s: %w", found.Key, err)
	}
	return dest, true, nil
}

// Store uploads the artifact at localPath.
func (a *ArtifactArchive) Store(ctx context.Context, contentID, localPath string) error {
	key := a.objectDir(contentID) + filepath.Base(localPath)
	contentType := mime.TypeByExtension(filepath.Ext(localPath))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := a.client.FPutObject(ctx, a.bucket, key, localPath, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	logger.Debug("artifact archived",
		logger.String("contentId", contentID),
		logger.String("object", key),
		logger.Int64("bytes", info.Size))
	return nil
}
