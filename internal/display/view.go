// Package display reconstructs what the audience screen shows from the
// broadcast actions alone. It never assumes it saw every action.
package display

import (
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

type Participant = types.Participant

// View is the local screen state. The zero value is the neutral screen.
type View struct {
	Type    types.ActionType
	Version int

	Active     []Participant
	CandidateA *Participant
	CandidateB *Participant

	A     *Participant
	B     *Participant
	Score types.DuelScore

	Words  []string
	Hidden bool

	Winner *Participant
	Loser  *Participant
	Final  *Participant
	Tie    []Participant
}

func Neutral() View { return View{Type: types.ActionReset} }

// Reduce folds a into v. Unknown types and undecodable payloads leave v as is.
func Reduce(v View, a types.Action) View {
	next, _ := Fold(v, a)
	return next
}

// Fold is Reduce that also reports whether a was applied.
func Fold(v View, a types.Action) (View, bool) {
	next, ok := reduce(v, a)
	if !ok {
		return v, false
	}
	next.Type = a.Type
	next.Version = a.Version
	return next, true
}

func reduce(v View, a types.Action) (View, bool) {
	switch a.Type {
	case types.ActionReset:
		return Neutral(), true

	case types.ActionShufflingParticipants:
		p, err := types.DecodePayload[types.ShufflingPayload](a)
		if err != nil {
			return v, false
		}
		return View{
			Active:     p.ActiveParticipants,
			CandidateA: &p.CandidateA,
			CandidateB: &p.CandidateB,
		}, true

	case types.ActionUpdateParticipants:
		p, err := types.DecodePayload[types.UpdateParticipantsPayload](a)
		if err != nil {
			return v, false
		}
		return View{Active: v.Active, A: &p.ParticipantA, B: &p.ParticipantB, Score: p.DuelScore}, true

	case types.ActionShowWord:
		p, err := types.DecodePayload[types.ShowWordPayload](a)
		if err != nil {
			return v, false
		}
		v.Words = p.Words
		v.Hidden = false
		return v, true

	case types.ActionHideWord:
		v.Words = nil
		v.Hidden = true
		return v, true

	case types.ActionRoundWinner:
		p, err := types.DecodePayload[types.RoundWinnerPayload](a)
		if err != nil {
			return v, false
		}
		v.Winner, v.Loser = p.Winner, p.Loser
		v.Words = p.Words
		v.Hidden = false
		return v, true

	case types.ActionFinalWinner:
		p, err := types.DecodePayload[types.FinalWinnerPayload](a)
		if err != nil {
			return v, false
		}
		return View{Final: &p.FinalWinner}, true

	case types.ActionTieAnnouncement:
		p, err := types.DecodePayload[types.TieAnnouncementPayload](a)
		if err != nil {
			return v, false
		}
		return View{Tie: p.TieWinners}, true

	case types.ActionNoWinner:
		return View{}, true
	}
	return v, false
}
