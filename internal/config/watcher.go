package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce merges bursts of file events (editors often write twice).
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a configuration file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself, so that
// editors replacing the file through a rename are still seen.
type Watcher struct {
	path     string
	debounce time.Duration
	w        *fsnotify.Watcher

	updates chan *Config
	errors  chan error
	done    chan struct{}
}

// NewWatcher starts watching path. Close releases it.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	if _, err := FormatOf(path); err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to resolve config path: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	cw := &Watcher{
		path:     abs,
		debounce: debounce,
		w:        w,
		updates:  make(chan *Config),
		errors:   make(chan error),
		done:     make(chan struct{}),
	}
	go cw.eventLoop()

	slog.Debug("config: watching", "path", abs)
	return cw, nil
}

// Updates delivers each successfully reloaded configuration.
func (cw *Watcher) Updates() <-chan *Config { return cw.updates }

// Errors delivers reload and watch failures.
func (cw *Watcher) Errors() <-chan error { return cw.errors }

// Close stops the watcher. Idempotent.
func (cw *Watcher) Close() error {
	select {
	case <-cw.done:
		return nil
	default:
		close(cw.done)
	}
	return cw.w.Close()
}

func (cw *Watcher) eventLoop() {
	defer func() {
		close(cw.updates)
		close(cw.errors)
	}()

	pending := false
	pendingTimer := time.NewTimer(cw.debounce)
	pendingTimer.Stop()

	for {
		select {
		case <-cw.done:
			return

		case ev, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != cw.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			pending = true
			if !pendingTimer.Stop() {
				select {
				case <-pendingTimer.C:
				default:
				}
			}
			pendingTimer.Reset(cw.debounce)

		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			cw.sendError(fmt.Errorf("config watcher: %w", err))

		case <-pendingTimer.C:
			if !pending {
				continue
			}
			pending = false

			cfg, err := Load(cw.path)
			if err != nil {
				cw.sendError(err)
				continue
			}
			select {
			case cw.updates <- cfg:
			case <-cw.done:
				return
			}
		}
	}
}

func (cw *Watcher) sendError(err error) {
	select {
	case cw.errors <- err:
	case <-cw.done:
	}
}
