package playlist

import (
	"context"
	"strings"

	"LiveFM/logger"

	"github.com/fsnotify/fsnotify"
)

// Watcher signals when files are removed from or renamed out of a directory.
type Watcher struct {
	fs      *fsnotify.Watcher
	changes chan struct{}
}

// NewWatcher starts watching dir.
func NewWatcher(dir string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, err
	}
	return &Watcher{fs: fw, changes: make(chan struct{}, 1)}, nil
}

// Changes fires at most once per burst of removals.
func (w *Watcher) Changes() <-chan struct{} { return w.changes }

// Run forwards fsnotify events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fs.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if strings.HasSuffix(event.Name, ".part") {
				continue
			}
			logger.Debug("media file removed", logger.String("path", event.Name))
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("media watcher error", logger.ErrorField(err))
		}
	}
}
