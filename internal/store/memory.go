package store

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store. Subscribers only see writes made through the same value.
type Memory struct {
	mu     sync.RWMutex
	docs   map[string][]byte
	subs   *watchers
	closed bool
}

func NewMemory() *Memory {
	return &Memory{
		docs: make(map[string][]byte),
		subs: newWatchers(),
	}
}

func (m *Memory) Get(_ context.Context, path string) ([]byte, error) {
	if !validPath(path) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrUnavailable
	}
	v, ok := m.docs[path]
	if !ok {
		return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
	}
	return cloneBytes(v), nil
}

func (m *Memory) List(_ context.Context, prefix string) (map[string][]byte, error) {
	if !validPath(prefix) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, prefix)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrUnavailable
	}
	out := make(map[string][]byte)
	for p, v := range m.docs {
		if isChild(prefix, p) {
			out[p] = cloneBytes(v)
		}
	}
	return out, nil
}

func (m *Memory) Set(ctx context.Context, path string, value []byte) error {
	return m.Update(ctx, []Write{{Path: path, Value: value}})
}

func (m *Memory) Update(_ context.Context, writes []Write) error {
	for _, w := range writes {
		if !validPath(w.Path) {
			return fmt.Errorf("%w: %q", ErrInvalidPath, w.Path)
		}
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrUnavailable
	}
	changes := make([]Change, 0, len(writes))
	for _, w := range writes {
		if w.Value == nil {
			delete(m.docs, w.Path)
			changes = append(changes, Change{Path: w.Path, Deleted: true})
			continue
		}
		v := cloneBytes(w.Value)
		m.docs[w.Path] = v
		changes = append(changes, Change{Path: w.Path, Value: cloneBytes(v)})
	}
	m.mu.Unlock()

	for _, c := range changes {
		m.subs.notify(c)
	}
	return nil
}

func (m *Memory) Subscribe(path string, fn func(Change)) (func(), error) {
	if !validPath(path) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	return m.subs.add(path, fn), nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	m.subs.clear()
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
