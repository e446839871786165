package tournament

import (
	"bytes"
	"strings"
	"sync"

	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
)

// ownWrites remembers documents this tournament wrote below under so the
// store echoing them back is not taken for an external roster edit.
type ownWrites struct {
	under string
	mu    sync.Mutex
	m     map[string][]byte
}

func (o *ownWrites) expect(writes []store.Write) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.m == nil {
		o.m = make(map[string][]byte, len(writes))
	}
	for _, w := range writes {
		if strings.HasPrefix(w.Path, o.under+"/") {
			o.m[w.Path] = w.Value
		}
	}
}

// forget drops writes that never reached the store.
func (o *ownWrites) forget(writes []store.Write) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, w := range writes {
		delete(o.m, w.Path)
	}
}

// echo reports whether c carries exactly what this tournament last wrote to
// c.Path. A match is consumed.
func (o *ownWrites) echo(c store.Change) bool {
	if c.Resync {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	want, ok := o.m[c.Path]
	if !ok || c.Deleted != (want == nil) || !bytes.Equal(c.Value, want) {
		return false
	}
	delete(o.m, c.Path)
	return true
}
