package ingest

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillz/pkg/ignore"
	"github.com/jingkaihe/skillz/pkg/logger"
)

// DefaultDebounce is how long the watcher waits for changes to settle.
const DefaultDebounce = 500 * time.Millisecond

// Watcher re-ingests a directory whenever files under it change.
type Watcher struct {
	root     string
	ignore   *ignore.FileIgnore
	opts     []Option
	debounce time.Duration
	watched  map[string]bool
}

// NewWatcher creates a watcher for root. A non-positive debounce uses DefaultDebounce.
func NewWatcher(root string, fi *ignore.FileIgnore, debounce time.Duration, opts ...Option) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		root:     root,
		ignore:   fi,
		opts:     opts,
		debounce: debounce,
		watched:  make(map[string]bool),
	}
}

// Run ingests root once, then again after every debounced burst of
// filesystem events, calling onIngest with each result. It blocks until ctx
// is cancelled.
func (w *Watcher) Run(ctx context.Context, onIngest func(*DirectoryIngestor)) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create file watcher")
	}
	defer fsw.Close()

	if err := w.ingest(ctx, fsw, onIngest); err != nil {
		return err
	}

	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if event.Op == fsnotify.Chmod {
				continue
			}
			logger.G(ctx).WithField("file", event.Name).WithField("operation", event.Op.String()).Debug("change detected")
			if timer != nil {
				timer.Stop()
			}
			timer = time.NewTimer(w.debounce)
			fire = timer.C
		case <-fire:
			fire = nil
			if err := w.ingest(ctx, fsw, onIngest); err != nil {
				logger.G(ctx).WithError(err).Error("failed to re-ingest directory")
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.G(ctx).WithError(err).Error("error watching files")
		}
	}
}

func (w *Watcher) ingest(ctx context.Context, fsw *fsnotify.Watcher, onIngest func(*DirectoryIngestor)) error {
	di, err := NewDirectoryIngestor(ctx, w.root, w.ignore, w.opts...)
	if err != nil {
		return err
	}

	dirs := append([]string{di.Path}, di.Folders...)
	current := make(map[string]bool, len(dirs))
	for _, dir := range dirs {
		if w.watched[dir] {
			current[dir] = true
			continue
		}
		if err := fsw.Add(dir); err != nil {
			logger.G(ctx).WithError(err).WithField("directory", dir).Warn("failed to watch directory")
			continue
		}
		current[dir] = true
		logger.G(ctx).WithField("directory", dir).Debug("watching directory")
	}
	for dir := range w.watched {
		if !current[dir] {
			_ = fsw.Remove(dir)
		}
	}
	w.watched = current

	onIngest(di)
	return nil
}
