package filemonitor

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

// UpdateFunc handles one filesystem event.
type UpdateFunc func(logrus.FieldLogger, fsnotify.Event)

// Watcher delivers the filesystem events of a set of paths to an update
// function.
type Watcher struct {
	notify       *fsnotify.Watcher
	pathsToWatch []string
	logger       logrus.FieldLogger
	onUpdateFn   UpdateFunc
}

// NewWatch sets up monitoring on a slice of paths and will execute the update function to process each event
func NewWatch(logger logrus.FieldLogger, pathsToWatch []string, onUpdateFn UpdateFunc) (*Watcher, error) {
	notify, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	for _, item := range pathsToWatch {
		// (non-recursive if a directory is added)
		if err := notify.Add(item); err != nil {
			notify.Close()
			return nil, err
		}
		logger.Debugf("monitoring path '%v'", item)
	}

	return &Watcher{
		notify:       notify,
		pathsToWatch: pathsToWatch,
		onUpdateFn:   onUpdateFn,
		logger:       logger,
	}, nil
}

// Run processes events in the background until ctx is done.
func (w *Watcher) Run(ctx context.Context) {
	go w.run(ctx)
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.notify.Close() // always returns nil for the error
			w.logger.Debug("terminating watcher")
			return
		case event, ok := <-w.notify.Events:
			if !ok {
				return
			}
			w.logger.Debugf("watcher got event: %v", event)
			if w.onUpdateFn != nil {
				w.onUpdateFn(w.logger, event)
			}
		case err, ok := <-w.notify.Errors:
			if !ok {
				return
			}
			w.logger.Warnf("watcher got error: %v", err)
		}
	}
}

// ManifestFilter passes on events that change YAML or JSON files and drops
// the rest (chmod events, editor swap files).
func ManifestFilter(next UpdateFunc) UpdateFunc {
	return func(logger logrus.FieldLogger, event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
			!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
			return
		}
		switch strings.ToLower(filepath.Ext(event.Name)) {
		case ".yaml", ".yml", ".json":
			next(logger, event)
		}
	}
}
