package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"LiveFM/logger"
)

// DefaultMinArtifactBytes is the smallest artifact accepted as a real song.
const DefaultMinArtifactBytes = 1024

// call is one in-flight acquisition other callers can wait on.
type call struct {
	done chan struct{}
	path string
	err  error
}

// Pipeline resolves content ids into local audio artifacts.
type Pipeline struct {
	cache    *ContentCache
	source   Source
	archive  Archive
	mediaDir string
	minBytes int64

	mu       sync.Mutex
	inflight map[string]*call
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithArchive adds an object-store tier consulted before the Source.
func WithArchive(a Archive) PipelineOption {
	return func(p *Pipeline) { p.archive = a }
}

// WithMinArtifactBytes overrides the truncation threshold.
func WithMinArtifactBytes(n int64) PipelineOption {
	return func(p *Pipeline) {
		if n > 0 {
			p.minBytes = n
		}
	}
}

// NewPipeline creates a pipeline storing artifacts under mediaDir.
func NewPipeline(cache *ContentCache, source Source, mediaDir string, opts ...PipelineOption) (*Pipeline, error) {
	abs, err := filepath.Abs(mediaDir)
	if err != nil {
		return nil, fmt.Errorf("resolve media dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("create media dir %s: %w", abs, err)
	}

	p := &Pipeline{
		cache:    cache,
		source:   source,
		mediaDir: abs,
		minBytes: DefaultMinArtifactBytes,
		inflight: make(map[string]*call),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// MediaDir is the absolute directory artifacts are written to.
func (p *Pipeline) MediaDir() string { return p.mediaDir }

// Acquire returns a local artifact for contentID. A cached artifact that is
// still on disk is returned without touching the network. Concurrent calls
// for the same id share one download; distinct ids proceed in parallel.
func (p *Pipeline) Acquire(ctx context.Context, contentID, title string) (string, error) {
	if path, ok := p.cache.Lookup(contentID); ok {
		return path, nil
	}

	p.mu.Lock()
	// Re-check under the lock: a download may have just finished.
	if path, ok := p.cache.Lookup(contentID); ok {
		p.mu.Unlock()
		return path, nil
	}
	if c, ok := p.inflight[contentID]; ok {
		p.mu.Unlock()
		select {
		case <-c.done:
			return c.path, c.err
		case <-ctx.Done():
			return "", &AcquisitionError{ContentID: contentID, Reason: ReasonCanceled, Err: ctx.Err()}
		}
	}
	c := &call{done: make(chan struct{})}
	p.inflight[contentID] = c
	p.mu.Unlock()

	c.path, c.err = p.acquire(ctx, contentID, title)

	p.mu.Lock()
	delete(p.inflight, contentID)
	p.mu.Unlock()
	close(c.done)

	return c.path, c.err
}

func (p *Pipeline) acquire(ctx context.Context, contentID, title string) (string, error) {
	start := time.Now()

	if path, ok := p.fromArchive(ctx, contentID); ok {
		p.cache.Put(contentID, path)
		logger.Info("artifact restored from archive",
			logger.String("contentId", contentID),
			logger.String("path", path))
		return path, nil
	}

	streams, err := p.source.Streams(ctx, contentID)
	if err != nil {
		return "", p.fail(ctx, contentID, ReasonUnreachable, err)
	}
	best, ok := SelectBest(streams)
	if !ok {
		return "", p.fail(ctx, contentID, ReasonNoStream, nil)
	}

	dest := filepath.Join(p.mediaDir, FileName(contentID, title, best.Container))
	tmp := dest + ".part"
	if err := p.source.Download(ctx, contentID, best, tmp); err != nil {
		os.Remove(tmp)
		return "", p.fail(ctx, contentID, ReasonDownload, err)
	}

	info, err := os.Stat(tmp)
	if err != nil {
		return "", p.fail(ctx, contentID, ReasonDownload, err)
	}
	if info.Size() < p.minBytes {
		os.Remove(tmp)
		return "", p.fail(ctx, contentID, ReasonUndersized,
			fmt.Errorf("%d bytes is below the %d byte minimum", info.Size(), p.minBytes))
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", p.fail(ctx, contentID, ReasonDownload, err)
	}

	p.cache.Put(contentID, dest)
	p.archiveAsync(contentID, dest)

	logger.Info("artifact acquired",
		logger.String("contentId", contentID),
		logger.String("path", dest),
		logger.Int("bitrate", best.Bitrate),
		logger.Int64("bytes", info.Size()),
		logger.Duration("elapsed", time.Since(start)))
	return dest, nil
}

func (p *Pipeline) fail(ctx context.Context, contentID string, reason Reason, err error) error {
	if ctx.Err() != nil && (err == nil || errors.Is(err, ctx.Err())) {
		reason, err = ReasonCanceled, ctx.Err()
	}
	return &AcquisitionError{ContentID: contentID, Reason: reason, Err: err}
}

func (p *Pipeline) fromArchive(ctx context.Context, contentID string) (string, bool) {
	if p.archive == nil {
		return "", false
	}
	path, ok, err := p.archive.Fetch(ctx, contentID, p.mediaDir)
	if err != nil {
		logger.Warn("archive lookup failed",
			logger.String("contentId", contentID),
			logger.ErrorField(err))
		return "", false
	}
	if !ok {
		return "", false
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() < p.minBytes {
		os.Remove(path)
		return "", false
	}
	return path, true
}

func (p *Pipeline) archiveAsync(contentID, path string) {
	if p.archive == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := p.archive.Store(ctx, contentID, path); err != nil {
			logger.Warn("failed to archive artifact",
				logger.String("contentId", contentID),
				logger.ErrorField(err))
		}
	}()
}
