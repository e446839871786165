package words

import (
	"errors"
	"fmt"
)

var ErrInsufficientWords = errors.New("insufficient words")
var ErrInvalidCount = errors.New("word count must be at least 1")

type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeRandom     Mode = "random"
)

func ParseMode(s string) (Mode, bool) {
	switch Mode(s) {
	case ModeSequential:
		return ModeSequential, true
	case ModeRandom:
		return ModeRandom, true
	default:
		return "", false
	}
}

// Rand is the subset of *math/rand.Rand the supply needs.
type Rand interface {
	Intn(n int) int
}

type List struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Words []string `json:"words"`
}

// Supply is a pool of words drawn without replacement from Original.
// Methods never alias the receiver's slices so a copied Supply is safe to keep.
type Supply struct {
	ListID    string
	Original  []string
	Remaining []string
}

// Select replaces both the original list and the working pool.
func Select(list List) Supply {
	return Supply{
		ListID:    list.ID,
		Original:  clone(list.Words),
		Remaining: clone(list.Words),
	}
}

// Draw takes count words. When the pool is short it is first refilled from
// Original, which can bring back words already used this tournament.
func (s Supply) Draw(count int, mode Mode, rnd Rand) (drawn []string, next Supply, replenished bool, err error) {
	if count < 1 {
		return nil, s, false, ErrInvalidCount
	}

	pool := s.Remaining
	if len(pool) < count {
		if len(s.Original) < count {
			return nil, s, false, fmt.Errorf("%w: need %d, list has %d", ErrInsufficientWords, count, len(s.Original))
		}
		pool = s.Original
		replenished = true
	}
	pool = clone(pool)

	drawn = make([]string, 0, count)
	switch mode {
	case ModeRandom:
		for i := 0; i < count; i++ {
			idx := rnd.Intn(len(pool))
			drawn = append(drawn, pool[idx])
			pool = append(pool[:idx], pool[idx+1:]...)
		}
	default:
		drawn = append(drawn, pool[:count]...)
		pool = pool[count:]
	}

	next = Supply{
		ListID:    s.ListID,
		Original:  s.Original,
		Remaining: clone(pool),
	}
	return drawn, next, replenished, nil
}

func clone(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
