package engine

import "github.com/DoyleJ11/spelling-bee-backend/internal/ledger"

type OutcomeKind string

const (
	OutcomeFinalWinner OutcomeKind = "final_winner"
	OutcomeTie         OutcomeKind = "tie"
	OutcomeNoWinner    OutcomeKind = "no_winner"
)

type Outcome struct {
	Kind    OutcomeKind   `json:"kind"`
	Winners []Participant `json:"winners,omitempty"`
	// Fallback marks a sole active participant declared winner without the top score.
	Fallback bool `json:"fallback,omitempty"`
}

// Evaluate decides the tournament result. ok is false while two or more
// participants are still active.
func Evaluate(r ledger.Roster) (Outcome, bool) {
	active := r.Active()
	if len(active) >= 2 {
		return Outcome{}, false
	}

	maxStars := 0
	for _, p := range r {
		maxStars = max(maxStars, p.Stars)
	}
	var winners []Participant
	if maxStars > 0 {
		for _, p := range r {
			if p.Stars == maxStars {
				winners = append(winners, p)
			}
		}
	}

	switch {
	case len(winners) == 1:
		return Outcome{Kind: OutcomeFinalWinner, Winners: winners}, true
	case len(winners) > 1:
		return Outcome{Kind: OutcomeTie, Winners: winners}, true
	case len(active) == 1:
		// only reachable from an inconsistent ledger
		return Outcome{Kind: OutcomeFinalWinner, Winners: active.Clone(), Fallback: true}, true
	default:
		return Outcome{Kind: OutcomeNoWinner}, true
	}
}

// PickPair chooses two distinct active participants uniformly at random.
func PickPair(r ledger.Roster, rnd Rand) (Participant, Participant, bool) {
	active := r.Active()
	if len(active) < 2 {
		return Participant{}, Participant{}, false
	}
	i := rnd.Intn(len(active))
	j := rnd.Intn(len(active) - 1)
	if j >= i {
		j++
	}
	return active[i], active[j], true
}

func ContainsEvent(events []Event, eventType EventType) bool {
	for _, event := range events {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
