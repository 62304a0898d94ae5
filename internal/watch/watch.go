// Package watch delivers change notifications for the shell log file. A
// single change event releases every outstanding waiter, most recently
// registered first. A slow polling fallback covers hosts whose writes slip
// past the platform notifier.
package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"pkt.systems/pslog"
)

const defaultPollInterval = 500 * time.Millisecond

// Watcher subscribes to changes of one file.
type Watcher struct {
	path string
	fsw  *fsnotify.Watcher
	log  pslog.Logger

	mu      sync.Mutex
	waiters []chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

// New starts watching the given file. The parent directory is watched rather
// than the file itself so replace-style writes keep delivering events.
func New(path string, poll time.Duration, logger pslog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve watch path: %w", err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("init watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if poll <= 0 {
		poll = defaultPollInterval
	}

	w := &Watcher{
		path: abs,
		fsw:  fsw,
		log:  logger.With("component", "watch"),
		done: make(chan struct{}),
	}
	go w.loop(poll)
	return w, nil
}

// Next registers a waiter and returns a channel closed on the next change.
// Multiple waiters registered before a single change are all released by that
// change.
func (w *Watcher) Next() <-chan struct{} {
	ch := make(chan struct{})
	w.mu.Lock()
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()
	return ch
}

// Close cancels the subscription. Outstanding waiters are released so nothing
// blocks on a dead watcher.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
		w.release()
	})
	return err
}

func (w *Watcher) loop(poll time.Duration) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	lastSize := w.size()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != filepath.Base(w.path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			lastSize = w.size()
			w.release()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "err", err)
		case <-ticker.C:
			if size := w.size(); size != lastSize {
				lastSize = size
				w.release()
			}
		}
	}
}

func (w *Watcher) size() int64 {
	info, err := os.Stat(w.path)
	if err != nil {
		return -1
	}
	return info.Size()
}

// popWaiters takes all outstanding waiters, ordered most recently registered
// first.
func (w *Watcher) popWaiters() []chan struct{} {
	w.mu.Lock()
	defer w.mu.Unlock()
	ws := w.waiters
	w.waiters = nil
	for i, j := 0, len(ws)-1; i < j; i, j = i+1, j-1 {
		ws[i], ws[j] = ws[j], ws[i]
	}
	return ws
}

func (w *Watcher) release() {
	for _, ch := range w.popWaiters() {
		close(ch)
	}
}
