package tournament

import (
	"github.com/DoyleJ11/spelling-bee-backend/internal/engine"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

// actionFor maps an engine event to what the display should show. Events
// that change nothing on screen return ok=false.
func actionFor(e engine.Event) (types.Action, bool, error) {
	var (
		at      types.ActionType
		payload any
	)
	switch e.Type {
	case engine.EvtPaired:
		at = types.ActionUpdateParticipants
		payload = types.UpdateParticipantsPayload{
			ParticipantA: e.Duel.A,
			ParticipantB: e.Duel.B,
			DuelScore:    types.DuelScore{A: e.Duel.A.Stars, B: e.Duel.B.Stars},
		}
	case engine.EvtWordsRevealed:
		at = types.ActionShowWord
		payload = types.ShowWordPayload{Words: e.Words}
	case engine.EvtWordsHidden:
		at = types.ActionHideWord
	case engine.EvtRoundResolved:
		at = types.ActionRoundWinner
		payload = types.RoundWinnerPayload{Winner: e.Winner, Loser: e.Loser, Words: e.Words}
	case engine.EvtRoundCleared, engine.EvtReset, engine.EvtTieBreakerStarted:
		at = types.ActionReset
	case engine.EvtTournamentEnded:
		return outcomeAction(*e.Outcome)
	default:
		return types.Action{}, false, nil
	}

	a, err := types.NewAction(at, payload)
	if err != nil {
		return types.Action{}, false, err
	}
	return a, true, nil
}

func outcomeAction(o engine.Outcome) (types.Action, bool, error) {
	var (
		a   types.Action
		err error
	)
	switch o.Kind {
	case engine.OutcomeFinalWinner:
		a, err = types.NewAction(types.ActionFinalWinner, types.FinalWinnerPayload{FinalWinner: o.Winners[0]})
	case engine.OutcomeTie:
		a, err = types.NewAction(types.ActionTieAnnouncement, types.TieAnnouncementPayload{TieWinners: o.Winners})
	default:
		a, err = types.NewAction(types.ActionNoWinner, nil)
	}
	if err != nil {
		return types.Action{}, false, err
	}
	return a, true, nil
}

func shufflingAction(active []engine.Participant, a, b engine.Participant) (types.Action, error) {
	return types.NewAction(types.ActionShufflingParticipants, types.ShufflingPayload{
		ActiveParticipants: active,
		CandidateA:         a,
		CandidateB:         b,
	})
}
