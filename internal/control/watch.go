package control

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Dhhoyt/HueHue/pkg/framework/debug"
)

// Result reports one load of the control file.
type Result struct {
	Path    string
	Applied int
	Err     error
}

// Watcher reloads a control file whenever it is written or replaced.
type Watcher struct {
	path   string
	target Target
	log    *debug.Logger
	w      *fsnotify.Watcher

	results   chan Result
	done      chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// Watch loads path into target and keeps watching it. The directory is
// watched rather than the file so editors that save by rename are seen.
func Watch(path string, target Target, log *debug.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	if log == nil {
		log = debug.Default()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("control: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("control: watch %s: %w", filepath.Dir(abs), err)
	}

	cw := &Watcher{
		path:    abs,
		target:  target,
		log:     log.Named("control"),
		w:       w,
		results: make(chan Result, 16),
		done:    make(chan struct{}),
	}
	cw.reload()
	go cw.loop()
	return cw, nil
}

// Results delivers the outcome of every load. Results are dropped when
// nobody reads them.
func (cw *Watcher) Results() <-chan Result { return cw.results }

// Path returns the absolute path being watched.
func (cw *Watcher) Path() string { return cw.path }

func (cw *Watcher) loop() {
	defer close(cw.done)
	for {
		select {
		case ev, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != cw.path {
				continue
			}
			switch {
			case ev.Op&(fsnotify.Write|fsnotify.Create) != 0:
				cw.reload()
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				cw.log.Debug("%s went away, keeping current settings", cw.path)
			}
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			cw.log.Warn("watch error: %v", err)
		}
	}
}

func (cw *Watcher) reload() {
	n, err := LoadFile(cw.path, cw.target)
	if err != nil {
		cw.log.Warn("%v", err)
	} else {
		cw.log.Info("applied %d settings from %s", n, cw.path)
	}
	select {
	case cw.results <- Result{Path: cw.path, Applied: n, Err: err}:
	default:
	}
}

// Close stops watching. It is safe to call more than once.
func (cw *Watcher) Close() error {
	cw.closeOnce.Do(func() {
		cw.closeErr = cw.w.Close()
		<-cw.done
	})
	return cw.closeErr
}
