package movedata

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const (
	// debounce drops repeated events for the same file inside this window.
	debounce = 100 * time.Millisecond
	settle   = 150 * time.Millisecond
)

// Watcher reports changed character tables.
type Watcher struct {
	watcher *fsnotify.Watcher
	Events  chan string
	Errors  chan error
	closeCh chan struct{}
	once    sync.Once
}

// NewWatcher watches path, a file or a directory. Files are watched through
// their parent directory so editors that replace files still trigger events.
func NewWatcher(path string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := path
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		dir = filepath.Dir(path)
	}
	if err := w.Add(dir); err != nil {
		_ = w.Close()
		return nil, err
	}

	watcher := &Watcher{
		watcher: w,
		Events:  make(chan string, 16),
		Errors:  make(chan error, 1),
		closeCh: make(chan struct{}),
	}
	go watcher.run()
	return watcher, nil
}

// Close stops watching. Safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.closeCh)
		err = w.watcher.Close()
	})
	return err
}

func (w *Watcher) run() {
	defer close(w.Events)
	defer close(w.Errors)

	last := make(map[string]time.Time)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			if !isSpecFile(event.Name) {
				continue
			}
			now := time.Now()
			if t, ok := last[event.Name]; ok && now.Sub(t) < debounce {
				continue
			}
			last[event.Name] = now
			select {
			case w.Events <- event.Name:
			case <-w.closeCh:
				return
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			select {
			case w.Errors <- err:
			default:
			}
		case <-w.closeCh:
			return
		}
	}
}

// Reloader reloads the library whenever a watched table changes and hands the
// result to apply. A table that fails to load keeps the previous library.
type Reloader struct {
	path    string
	watcher *Watcher
	apply   func(*Library)
	logger  *zap.Logger
	done    chan struct{}
}

// NewReloader starts watching path.
func NewReloader(path string, apply func(*Library), logger *zap.Logger) (*Reloader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := NewWatcher(path)
	if err != nil {
		return nil, err
	}
	r := &Reloader{
		path:    path,
		watcher: w,
		apply:   apply,
		logger:  logger,
		done:    make(chan struct{}),
	}
	go r.loop()
	return r, nil
}

func (r *Reloader) loop() {
	defer close(r.done)

	// Editors write in several steps; reload once the file has settled.
	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case name, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			pending = name
			if timer == nil {
				timer = time.NewTimer(settle)
			} else {
				timer.Reset(settle)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			r.reload(pending)
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("character watcher error", zap.Error(err))
		}
	}
}

func (r *Reloader) reload(name string) {
	lib, err := Load(r.path)
	if err != nil {
		r.logger.Warn("character reload failed", zap.String("file", name), zap.Error(err))
		return
	}
	for _, w := range lib.Warnings() {
		r.logger.Warn("character table problem", zap.Error(w))
	}
	r.logger.Info("characters reloaded", zap.String("file", name), zap.Strings("names", lib.Names()))
	r.apply(lib)
}

// Close stops the reloader and waits for its goroutine.
func (r *Reloader) Close() error {
	err := r.watcher.Close()
	<-r.done
	return err
}
