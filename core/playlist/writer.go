package playlist

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"LiveFM/logger"
	"LiveFM/model"
)

// FilesystemError reports a failed artifact write or swap.
type FilesystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FilesystemError) Error() string {
	return fmt.Sprintf("playlist %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *FilesystemError) Unwrap() error { return e.Err }

// Writer renders Prepared snapshots into the concat playlist at a fixed path.
type Writer struct {
	path    string
	silence string

	mu      sync.Mutex
	pending bool // last swap failed; retry next cycle
	written uint64
}

// NewWriter creates a writer for the artifact at path, always ending with the
// silence file. Both paths are made absolute.
func NewWriter(path, silence string) (*Writer, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	absSilence, err := filepath.Abs(silence)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
		return nil, &FilesystemError{Op: "mkdir", Path: filepath.Dir(absPath), Err: err}
	}
	return &Writer{path: absPath, silence: absSilence}, nil
}

// Path is the artifact location handed to the encoder.
func (w *Writer) Path() string { return w.path }

// SilencePath is the fallback entry.
func (w *Writer) SilencePath() string { return w.silence }

// Pending reports whether the previous swap failed.
func (w *Writer) Pending() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pending
}

// Generations counts successful swaps.
func (w *Writer) Generations() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.written
}

// quote renders a path in concat demuxer syntax.
func quote(path string) string {
	return "'" + strings.ReplaceAll(path, "'", `'\''`) + "'"
}

// Render returns the artifact body: one line per song, then the silence entry.
func Render(songs []model.PreparedSong, silence string) []byte {
	var buf bytes.Buffer
	for _, s := range songs {
		if s.Path == "" || s.Path == silence {
			continue
		}
		buf.WriteString("file " + quote(s.Path) + "\n")
	}
	buf.WriteString("file " + quote(silence) + "\n")
	return buf.Bytes()
}

// Regenerate writes songs to a fresh temp file and renames it over the
// artifact. On a failed rename the temp file is left in place and a
// *FilesystemError is returned; the next call retries.
func (w *Writer) Regenerate(songs []model.PreparedSong) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	dir := filepath.Dir(w.path)
	tmp, err := os.CreateTemp(dir, w.tempPattern())
	if err != nil {
		w.pending = true
		return &FilesystemError{Op: "create", Path: dir, Err: err}
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(Render(songs, w.silence)); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		w.pending = true
		return &FilesystemError{Op: "write", Path: tmpName, Err: err}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		w.pending = true
		return &FilesystemError{Op: "sync", Path: tmpName, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		w.pending = true
		return &FilesystemError{Op: "close", Path: tmpName, Err: err}
	}

	if err := os.Rename(tmpName, w.path); err != nil {
		w.pending = true
		logger.Warn("playlist swap failed, will retry",
			logger.String("path", w.path),
			logger.String("temp", tmpName),
			logger.ErrorField(err))
		return &FilesystemError{Op: "rename", Path: w.path, Err: err}
	}

	w.pending = false
	w.written++
	w.removeStaleTemps()

	logger.Debug("playlist regenerated",
		logger.String("path", w.path),
		logger.Int("songs", len(songs)))
	return nil
}

func (w *Writer) tempPattern() string {
	return "." + filepath.Base(w.path) + ".*.tmp"
}

func (w *Writer) removeStaleTemps() {
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(w.path), w.tempPattern()))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil && !os.IsNotExist(err) {
			logger.Debug("failed to remove stale playlist temp", logger.String("path", m), logger.ErrorField(err))
		}
	}
}
