package words

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns the queued indexes in order.
type scripted []int

func (s *scripted) Intn(n int) int {
	v := (*s)[0]
	*s = (*s)[1:]
	return v % n
}

func TestDraw_Sequential(t *testing.T) {
	s := Select(List{ID: "l1", Words: []string{"CAT", "DOG", "EMU"}})

	got, next, replenished, err := s.Draw(2, ModeSequential, nil)
	require.NoError(t, err)
	assert.False(t, replenished)
	assert.Equal(t, []string{"CAT", "DOG"}, got)
	assert.Equal(t, []string{"EMU"}, next.Remaining)
	assert.Equal(t, []string{"CAT", "DOG", "EMU"}, s.Remaining, "receiver must not change")
}

func TestDraw_RandomWithoutReplacement(t *testing.T) {
	s := Select(List{Words: []string{"A", "B", "C", "D"}})
	r := &scripted{2, 0}

	got, next, _, err := s.Draw(2, ModeRandom, r)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, got)
	assert.ElementsMatch(t, []string{"B", "D"}, next.Remaining)
}

func TestDraw_Replenishes(t *testing.T) {
	s := Select(List{Words: []string{"A", "B", "C"}})
	_, s, _, err := s.Draw(2, ModeSequential, nil)
	require.NoError(t, err)

	got, next, replenished, err := s.Draw(2, ModeSequential, nil)
	require.NoError(t, err)
	assert.True(t, replenished)
	assert.Equal(t, []string{"A", "B"}, got)
	assert.Len(t, next.Remaining, len(next.Original)-2)
}

func TestDraw_InsufficientWords(t *testing.T) {
	s := Select(List{Words: []string{"A", "B"}})
	_, next, _, err := s.Draw(3, ModeSequential, nil)
	require.ErrorIs(t, err, ErrInsufficientWords)
	assert.Equal(t, s, next)
}

func TestDraw_InvalidCount(t *testing.T) {
	_, _, _, err := Select(List{Words: []string{"A"}}).Draw(0, ModeSequential, nil)
	require.ErrorIs(t, err, ErrInvalidCount)
}

func TestDraw_RemainingIsSubMultisetOfOriginal(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	s := Select(List{Words: []string{"A", "A", "B", "C", "D"}})

	for i := 0; i < 50; i++ {
		var err error
		var got []string
		got, s, _, err = s.Draw(1+i%3, ModeRandom, rnd)
		require.NoError(t, err)
		require.Len(t, got, 1+i%3)

		counts := map[string]int{}
		for _, w := range s.Original {
			counts[w]++
		}
		for _, w := range s.Remaining {
			counts[w]--
			require.GreaterOrEqual(t, counts[w], 0, "remaining has %q more often than original", w)
		}
	}
}

func TestParseMode(t *testing.T) {
	m, ok := ParseMode("random")
	assert.True(t, ok)
	assert.Equal(t, ModeRandom, m)
	_, ok = ParseMode("shuffle")
	assert.False(t, ok)
}
