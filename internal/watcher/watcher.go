package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ImportFunc ingests one file from the watched directory.
type ImportFunc func(path string) error

// Watcher imports CSV exports dropped into a directory. Each file is
// imported once per modification; rewriting a file imports it again.
type Watcher struct {
	dir      string
	logger   *zap.Logger
	importFn ImportFunc
	watcher  *fsnotify.Watcher
	imported map[string]time.Time // modtime of the last import per path
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, logger *zap.Logger, importFn ImportFunc) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		dir:      dir,
		logger:   logger,
		importFn: importFn,
		watcher:  fw,
		imported: make(map[string]time.Time),
	}, nil
}

// Start imports the CSV files already present in the directory, then keeps
// watching for new ones until the context is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create watch directory: %w", err)
	}
	if err := w.watcher.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}

	w.importExisting()

	go w.watchLoop(ctx)

	w.logger.Info("watching for report files", zap.String("dir", w.dir))
	return nil
}

// Stop closes the underlying file watcher, which also ends the watch loop.
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) importExisting() {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		w.logger.Warn("failed to scan watch directory", zap.Error(err))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		w.importFile(filepath.Join(w.dir, entry.Name()))
	}
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Give the writer a moment to finish the file.
			time.Sleep(200 * time.Millisecond)
			w.importFile(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *Watcher) importFile(path string) {
	if !strings.EqualFold(filepath.Ext(path), ".csv") {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}
	if last, ok := w.imported[path]; ok && !info.ModTime().After(last) {
		return
	}
	w.imported[path] = info.ModTime()

	if err := w.importFn(path); err != nil {
		w.logger.Warn("failed to import watched file", zap.String("path", path), zap.Error(err))
		return
	}
	w.logger.Info("imported watched file", zap.String("path", path))
}
