package store

import (
	"slices"
	"sync"
)

type watch struct {
	path string
	fn   func(Change)
}

// watchers fans changes out to subscribers. Callbacks run outside the lock.
type watchers struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]watch
}

func newWatchers() *watchers {
	return &watchers{subs: make(map[int]watch)}
}

func (w *watchers) add(path string, fn func(Change)) func() {
	w.mu.Lock()
	id := w.nextID
	w.nextID++
	w.subs[id] = watch{path: path, fn: fn}
	w.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			delete(w.subs, id)
			w.mu.Unlock()
		})
	}
}

func (w *watchers) notify(c Change) {
	w.mu.Lock()
	fns := make([]func(Change), 0, len(w.subs))
	for _, s := range w.subs {
		if covers(s.path, c.Path) {
			fns = append(fns, s.fn)
		}
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}

// paths returns every watched path once, sorted.
func (w *watchers) paths() []string {
	w.mu.Lock()
	seen := make(map[string]struct{}, len(w.subs))
	for _, s := range w.subs {
		seen[s.path] = struct{}{}
	}
	w.mu.Unlock()

	out := make([]string, 0, len(seen))
	for path := range seen {
		out = append(out, path)
	}
	slices.Sort(out)
	return out
}

func (w *watchers) clear() {
	w.mu.Lock()
	clear(w.subs)
	w.mu.Unlock()
}
