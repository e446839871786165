package types

// Operator -> Controller (POST /tournaments/{id}/commands)
// StartRound: {}
// DrawWord: {}
// Reveal: {}
// HideWord: {}
//
// DeclareWinner:
//   participant_id: string
//   word: string // optional, defaults to the first drawn word
//
// DeclareNoWinner: {}
// NextRound: {}
// StartTieBreaker: {}
//
// SelectWordList:
//   list_id: string
//
// SetMode:
//   mode: "random" | "sequential"
//
// SetWordsPerRound:
//   count: number
//
// SetManualReveal:
//   enabled: boolean
//
// Reset: {} | ResetDisplay: {} | Clear: {}

// Controller -> Display (the current action slot, also streamed over /ws)
// Action:
//   type: ActionType
//   version: number
//   payload: one of the payload structs below, keyed by type

// CommandMessage is the JSON body of an operator command.
type CommandMessage struct {
	Type          string `json:"type"`
	ParticipantID string `json:"participant_id,omitempty"`
	Word          string `json:"word,omitempty"`
	ListID        string `json:"list_id,omitempty"`
	Mode          string `json:"mode,omitempty"`
	Count         int    `json:"count,omitempty"`
	Enabled       *bool  `json:"enabled,omitempty"`
}

// CommandResult is what the controller answers to a command.
type CommandResult struct {
	Notices []string `json:"notices,omitempty"`
	Error   string   `json:"error,omitempty"`
}
