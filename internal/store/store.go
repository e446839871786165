// Package store is the shared document store both processes talk through.
// Paths are slash separated; values are JSON documents.
package store

import (
	"context"
	"errors"
	"strings"
)

var ErrNotFound = errors.New("document not found")
var ErrUnavailable = errors.New("store unavailable")
var ErrInvalidPath = errors.New("invalid path")

// Write is one entry of an Update. A nil Value deletes the path.
type Write struct {
	Path  string
	Value []byte
}

type Change struct {
	Path    string
	Value   []byte
	Deleted bool
	// Resync is set on changes replayed after the store lost its feed.
	// Writes below Path may have been missed; subtree readers should re-read.
	Resync bool
}

type Store interface {
	Get(ctx context.Context, path string) ([]byte, error)
	// List returns the direct children of prefix keyed by their full path.
	List(ctx context.Context, prefix string) (map[string][]byte, error)
	Set(ctx context.Context, path string, value []byte) error
	// Update applies writes atomically and in order.
	Update(ctx context.Context, writes []Write) error
	// Subscribe calls fn for every change to path or any path below it.
	// fn runs on the writer's goroutine and must not block.
	Subscribe(path string, fn func(Change)) (unsubscribe func(), err error)
	Close() error
}

func Join(parts ...string) string {
	return strings.Join(parts, "/")
}

func validPath(p string) bool {
	if p == "" || strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return false
	}
	return !strings.Contains(p, "//")
}

// covers reports whether a change at path is visible to a watch on watched.
func covers(watched, path string) bool {
	return path == watched || strings.HasPrefix(path, watched+"/")
}

// isChild reports whether path is a direct child of prefix.
func isChild(prefix, path string) bool {
	if !strings.HasPrefix(path, prefix+"/") {
		return false
	}
	return !strings.Contains(path[len(prefix)+1:], "/")
}
