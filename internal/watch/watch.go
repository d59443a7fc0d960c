// SPDX-License-Identifier: MIT
/*
Package watch re-runs work when pitch-track files change on disk.

Directories are watched rather than files, so editors that save by
writing a temporary file and renaming it over the original are still
seen. Bursts of events for one file are collapsed into a single
callback after a quiet period.
*/
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	applog "pitchmidi/internal/log"
)

// DefaultDebounce is the quiet period before a changed file is reported.
const DefaultDebounce = 200 * time.Millisecond

// Watcher reports changes to a fixed set of files.
type Watcher struct {
	fsw      *fsnotify.Watcher
	files    map[string]bool // Absolute paths being watched
	debounce time.Duration
}

// New starts watching the directories containing paths. Events for other
// files in those directories are ignored.
func New(paths []string, debounce time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	w := &Watcher{
		fsw:      fsw,
		files:    make(map[string]bool, len(paths)),
		debounce: debounce,
	}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			fsw.Close()
			return nil, err
		}
		w.files[abs] = true
		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := fsw.Add(dir); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	return w, nil
}

// Run delivers the absolute path of each changed file to fn until ctx is
// cancelled. fn is never called concurrently with itself.
func (w *Watcher) Run(ctx context.Context, fn func(path string)) error {
	defer w.fsw.Close()

	d := newDebouncer(ctx, w.debounce, len(w.files))
	defer d.stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case path := <-d.fire:
			fn(path)

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.files[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			applog.Debugf("watch: %s %s", ev.Op, ev.Name)
			d.schedule(filepath.Clean(ev.Name))

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			applog.Warnf("watch: %v", err)
		}
	}
}

// debouncer collapses bursts of schedule calls per path into one send on
// fire. Each schedule bumps the path's generation; a timer whose generation
// has been superseded sends nothing, even if it already fired.
type debouncer struct {
	ctx    context.Context
	delay  time.Duration
	fire   chan string
	mu     sync.Mutex
	gens   map[string]uint64
	timers map[string]*time.Timer
}

func newDebouncer(ctx context.Context, delay time.Duration, size int) *debouncer {
	return &debouncer{
		ctx:    ctx,
		delay:  delay,
		fire:   make(chan string, size),
		gens:   make(map[string]uint64),
		timers: make(map[string]*time.Timer),
	}
}

// schedule (re)starts the quiet period for path and returns its generation.
func (d *debouncer) schedule(path string) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if t, ok := d.timers[path]; ok {
		t.Stop()
	}
	d.gens[path]++
	gen := d.gens[path]
	d.timers[path] = time.AfterFunc(d.delay, func() { d.expire(path, gen) })
	return gen
}

// expire sends path if gen is still the latest pending generation.
func (d *debouncer) expire(path string, gen uint64) {
	d.mu.Lock()
	if d.gens[path] != gen || d.timers[path] == nil {
		d.mu.Unlock()
		return
	}
	delete(d.timers, path)
	d.mu.Unlock()

	select {
	case d.fire <- path:
	case <-d.ctx.Done():
	}
}

func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for path, t := range d.timers {
		t.Stop()
		delete(d.timers, path)
	}
}
