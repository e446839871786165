package httpapi

import (
	"fmt"

	"github.com/DoyleJ11/spelling-bee-backend/internal/engine"
	"github.com/DoyleJ11/spelling-bee-backend/internal/words"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

// Operator commands handled outside the engine.
const (
	msgResetDisplay = "ResetDisplay"
	msgClear        = "Clear"
)

func toEngineCommand(m types.CommandMessage) (engine.Command, error) {
	switch engine.CommandType(m.Type) {
	case engine.CmdStartRound, engine.CmdDrawWord, engine.CmdReveal, engine.CmdHideWord,
		engine.CmdDeclareNoWinner, engine.CmdNextRound, engine.CmdStartTieBreaker, engine.CmdReset:
		return engine.Command{Type: engine.CommandType(m.Type)}, nil

	case engine.CmdDeclareWinner:
		if m.ParticipantID == "" {
			return engine.Command{}, fmt.Errorf("%w: participant_id is required", errBadRequest)
		}
		return engine.Command{Type: engine.CmdDeclareWinner, ParticipantID: m.ParticipantID, Word: m.Word}, nil

	case engine.CmdSelectWordList:
		if m.ListID == "" {
			return engine.Command{}, fmt.Errorf("%w: list_id is required", errBadRequest)
		}
		return engine.Command{Type: engine.CmdSelectWordList, ListID: m.ListID}, nil

	case engine.CmdSetMode:
		mode, ok := words.ParseMode(m.Mode)
		if !ok {
			return engine.Command{}, fmt.Errorf("%w: mode %q", engine.ErrInvalidSetting, m.Mode)
		}
		return engine.Command{Type: engine.CmdSetMode, Mode: mode}, nil

	case engine.CmdSetWordsPerRound:
		return engine.Command{Type: engine.CmdSetWordsPerRound, Count: m.Count}, nil

	case engine.CmdSetManualReveal:
		if m.Enabled == nil {
			return engine.Command{}, fmt.Errorf("%w: enabled is required", errBadRequest)
		}
		return engine.Command{Type: engine.CmdSetManualReveal, Enabled: *m.Enabled}, nil

	default:
		return engine.Command{}, fmt.Errorf("%w: %q", engine.ErrUnsupportedCommand, m.Type)
	}
}
