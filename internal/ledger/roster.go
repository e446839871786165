// Package ledger projects participants and the winner history out of the store
// and turns roster changes back into ordered store writes.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

type Participant = types.Participant

// Roster is ordered by id.
type Roster []Participant

func (r Roster) Clone() Roster {
	out := make(Roster, len(r))
	copy(out, r)
	return out
}

func (r Roster) Active() Roster {
	out := Roster{}
	for _, p := range r {
		if !p.Eliminated {
			out = append(out, p)
		}
	}
	return out
}

func (r Roster) Find(id string) (Participant, int, bool) {
	for i, p := range r {
		if p.ID == id {
			return p, i, true
		}
	}
	return Participant{}, -1, false
}

func Sort(r Roster) {
	sort.Slice(r, func(i, j int) bool { return r[i].ID < r[j].ID })
}

func Load(ctx context.Context, st store.Store, tid string) (Roster, error) {
	docs, err := st.List(ctx, ParticipantsPath(tid))
	if err != nil {
		return nil, err
	}
	r := make(Roster, 0, len(docs))
	for path, raw := range docs {
		var p Participant
		if err := json.Unmarshal(raw, &p); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		if p.ID == "" {
			return nil, fmt.Errorf("decode %s: participant without id", path)
		}
		if p.Stars < 0 {
			p.Stars = 0
		}
		r = append(r, p)
	}
	Sort(r)
	return r, nil
}

// SaveWrites replaces the stored roster of tid with r.
func SaveWrites(tid string, existing map[string][]byte, r Roster) ([]store.Write, error) {
	keep := map[string]bool{}
	writes := make([]store.Write, 0, len(r)+len(existing))
	for _, p := range r {
		w, err := participantWrite(tid, p)
		if err != nil {
			return nil, err
		}
		keep[w.Path] = true
		writes = append(writes, w)
	}
	for path := range existing {
		if !keep[path] {
			writes = append(writes, store.Write{Path: path})
		}
	}
	return writes, nil
}

// Writes turns the difference between prev and next plus new winner entries
// into store writes. Anything that sets eliminated=true goes last so a reader
// in the middle of a non-atomic apply never sees an eliminated loser before
// the winner has been scored.
func Writes(tid string, prev, next Roster, entries []WinnerEntry) ([]store.Write, error) {
	var first, last []store.Write
	for _, p := range next {
		old, _, ok := prev.Find(p.ID)
		if ok && old == p {
			continue
		}
		w, err := participantWrite(tid, p)
		if err != nil {
			return nil, err
		}
		if p.Eliminated && (!ok || !old.Eliminated) {
			last = append(last, w)
			continue
		}
		first = append(first, w)
	}

	writes := make([]store.Write, 0, len(first)+len(entries)+len(last))
	writes = append(writes, first...)
	for _, e := range entries {
		w, err := winnerWrite(tid, e)
		if err != nil {
			return nil, err
		}
		writes = append(writes, w)
	}
	return append(writes, last...), nil
}

// ClearWrites deletes the roster and winner history of tid.
func ClearWrites(ctx context.Context, st store.Store, tid string) ([]store.Write, error) {
	var writes []store.Write
	for _, prefix := range []string{ParticipantsPath(tid), WinnersPath(tid)} {
		docs, err := st.List(ctx, prefix)
		if err != nil {
			return nil, err
		}
		for path := range docs {
			writes = append(writes, store.Write{Path: path})
		}
	}
	return writes, nil
}

func participantWrite(tid string, p Participant) (store.Write, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return store.Write{}, err
	}
	return store.Write{Path: ParticipantPath(tid, p.ID), Value: b}, nil
}
