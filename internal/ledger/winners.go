package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
)

// WinnerEntry is one line of the append-only winner history.
type WinnerEntry struct {
	Seq   int64     `json:"seq"`
	Name  string    `json:"name"`
	Word  string    `json:"word"`
	Stars int       `json:"stars"`
	At    time.Time `json:"at"`
}

type WinnerTotal struct {
	Name  string   `json:"name"`
	Stars int      `json:"stars"`
	Words []string `json:"words"`
}

func winnerWrite(tid string, e WinnerEntry) (store.Write, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return store.Write{}, err
	}
	// zero padded so lexical order is append order
	key := fmt.Sprintf("%020d", e.Seq)
	return store.Write{Path: store.Join(WinnersPath(tid), key), Value: b}, nil
}

func LoadWinners(ctx context.Context, st store.Store, tid string) ([]WinnerEntry, error) {
	docs, err := st.List(ctx, WinnersPath(tid))
	if err != nil {
		return nil, err
	}
	out := make([]WinnerEntry, 0, len(docs))
	for path, raw := range docs {
		var e WinnerEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// Aggregate folds the history into per-name totals, most stars first.
func Aggregate(entries []WinnerEntry) []WinnerTotal {
	idx := map[string]int{}
	var totals []WinnerTotal
	for _, e := range entries {
		i, ok := idx[e.Name]
		if !ok {
			i = len(totals)
			idx[e.Name] = i
			totals = append(totals, WinnerTotal{Name: e.Name, Words: []string{}})
		}
		totals[i].Stars += e.Stars
		if e.Word != "" {
			totals[i].Words = append(totals[i].Words, e.Word)
		}
	}
	sort.SliceStable(totals, func(i, j int) bool {
		if totals[i].Stars != totals[j].Stars {
			return totals[i].Stars > totals[j].Stars
		}
		return totals[i].Name < totals[j].Name
	})
	return totals
}
