package safety

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"forge/internal/logging"
)

// PolicyWatcher reloads the policy file when it changes on disk, so
// operators can tighten capture rules without restarting the engine.
type PolicyWatcher struct {
	mu       sync.Mutex
	filter   *Filter
	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	debounce time.Duration
	pending  time.Time
}

// NewPolicyWatcher creates a watcher for the filter's policy file.
func NewPolicyWatcher(filter *Filter) (*PolicyWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &PolicyWatcher{
		filter:   filter,
		watcher:  watcher,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
		debounce: 500 * time.Millisecond,
	}, nil
}

// Start begins watching the policy file's directory. Non-blocking; the
// event loop runs in a goroutine until Stop or context cancellation.
func (w *PolicyWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	// Watch the directory, not the file: editors replace files on save and
	// a file watch dies with the old inode.
	dir := filepath.Dir(w.filter.PolicyPath())
	if err := w.watcher.Add(dir); err != nil {
		logging.SafetyWarn("policy watch failed for %s: %v", dir, err)
	} else {
		logging.Safety("watching policy directory: %s", dir)
	}

	go w.run(ctx)
	return nil
}

// Stop stops the watcher and waits for the event loop to exit.
func (w *PolicyWatcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	if err := w.watcher.Close(); err != nil {
		logging.SafetyWarn("error closing policy watcher: %v", err)
	}
}

func (w *PolicyWatcher) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.SafetyWarn("policy watcher error: %v", err)

		case <-ticker.C:
			w.reloadIfSettled()
		}
	}
}

func (w *PolicyWatcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != filepath.Clean(w.filter.PolicyPath()) {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
		return
	}

	w.mu.Lock()
	w.pending = time.Now()
	w.mu.Unlock()
}

func (w *PolicyWatcher) reloadIfSettled() {
	w.mu.Lock()
	if w.pending.IsZero() || time.Since(w.pending) < w.debounce {
		w.mu.Unlock()
		return
	}
	w.pending = time.Time{}
	w.mu.Unlock()

	if err := w.filter.ReloadPolicy(); err != nil {
		logging.SafetyWarn("policy reload failed: %v", err)
	}
}
