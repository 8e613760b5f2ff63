package file

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/specforge/internal/logger"
)

// reloadOps are the file events that trigger a reload.
const reloadOps = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename

// Watcher reloads prompts and the document-type catalog when their files
// change, so a running server picks up edits without a restart.
type Watcher struct {
	fs        *fsnotify.Watcher
	prompts   *PromptStore
	templates *TemplateStore
}

// NewWatcher watches the prompt directory and the catalog file. Either
// store may be nil.
func NewWatcher(prompts *PromptStore, templates *TemplateStore) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{fs: fw, prompts: prompts, templates: templates}

	if prompts != nil {
		// Make sure the directory exists before watching it.
		if err := prompts.Err(); err != nil {
			logger.Warn("prompt directory unavailable: %v", err)
		} else if err := fw.Add(prompts.Dir()); err != nil {
			_ = fw.Close()
			return nil, fmt.Errorf("watch %s: %w", prompts.Dir(), err)
		}
	}
	if templates != nil && templates.Path() != "" {
		// Editors often replace files, so watch the directory, not the file.
		dir := filepath.Dir(templates.Path())
		if prompts == nil || dir != prompts.Dir() {
			if err := fw.Add(dir); err != nil {
				_ = fw.Close()
				return nil, fmt.Errorf("watch %s: %w", dir, err)
			}
		}
	}
	return w, nil
}

// Run handles events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if ev.Op&reloadOps == 0 {
				continue
			}
			w.handle(ev.Name)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			logger.Warn("config watcher: %v", err)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fs.Close()
}

func (w *Watcher) handle(path string) string {
	if w.templates != nil && w.templates.Path() != "" && filepath.Clean(path) == filepath.Clean(w.templates.Path()) {
		if err := w.templates.Reload(); err != nil {
			logger.Warn("keeping previous document types: %v", err)
			return ""
		}
		logger.Info("reloaded document types")
		return "templates"
	}
	if w.prompts != nil && filepath.Dir(path) == filepath.Clean(w.prompts.Dir()) && strings.HasSuffix(path, promptExt) {
		w.prompts.Reload()
		logger.Info("reloaded prompts after change to %s", filepath.Base(path))
		return "prompts"
	}
	return ""
}
