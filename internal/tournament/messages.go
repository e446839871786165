package tournament

import (
	"github.com/DoyleJ11/spelling-bee-backend/internal/engine"
	"github.com/DoyleJ11/spelling-bee-backend/internal/ledger"
)

type Msg interface{ isTournamentMsg() }

// FromOperator carries one operator command. Reply, when set, must have room for one Result.
type FromOperator struct {
	Cmd   engine.Command
	Reply chan Result
}

func (FromOperator) isTournamentMsg() {}

// ResetDisplay republishes RESET without touching the duel state.
type ResetDisplay struct{ Reply chan Result }

func (ResetDisplay) isTournamentMsg() {}

// Clear drops the roster and winner history and returns to idle.
type Clear struct{ Reply chan Result }

func (Clear) isTournamentMsg() {}

// ReplaceRoster overwrites the stored roster with Roster while idle.
type ReplaceRoster struct {
	Roster ledger.Roster
	Reply  chan Result
}

func (ReplaceRoster) isTournamentMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isTournamentMsg() {}

type Shutdown struct{}

func (Shutdown) isTournamentMsg() {}

type shuffleTick struct{ gen int }

func (shuffleTick) isTournamentMsg() {}

type shuffleDone struct{ gen int }

func (shuffleDone) isTournamentMsg() {}

type rosterChanged struct{}

func (rosterChanged) isTournamentMsg() {}

type Result struct {
	Notices []string
	Err     error
}

type View struct {
	ID           string          `json:"id"`
	Version      int             `json:"version"`
	Phase        engine.Phase    `json:"phase"`
	Participants ledger.Roster   `json:"participants"`
	Duel         *engine.Duel    `json:"duel,omitempty"`
	Words        []string        `json:"words,omitempty"`
	ListID       string          `json:"list_id,omitempty"`
	Remaining    int             `json:"remaining_words"`
	Settings     engine.Settings `json:"settings"`
	Outcome      *engine.Outcome `json:"outcome,omitempty"`
	ShuffleTasks int             `json:"shuffle_tasks"`
}
