package types

import (
	"encoding/json"
	"errors"
	"fmt"
)

type ActionType string

const (
	ActionReset                 ActionType = "RESET"
	ActionShufflingParticipants ActionType = "SHUFFLING_PARTICIPANTS"
	ActionUpdateParticipants    ActionType = "UPDATE_PARTICIPANTS"
	ActionShowWord              ActionType = "SHOW_WORD"
	ActionHideWord              ActionType = "HIDE_WORD"
	ActionRoundWinner           ActionType = "ROUND_WINNER"
	ActionFinalWinner           ActionType = "FINAL_WINNER"
	ActionTieAnnouncement       ActionType = "TIE_ANNOUNCEMENT"
	ActionNoWinner              ActionType = "NO_WINNER"
)

// ActionTypes lists the closed taxonomy in a stable order.
var ActionTypes = []ActionType{
	ActionReset,
	ActionShufflingParticipants,
	ActionUpdateParticipants,
	ActionShowWord,
	ActionHideWord,
	ActionRoundWinner,
	ActionFinalWinner,
	ActionTieAnnouncement,
	ActionNoWinner,
}

// Known reports whether t belongs to the taxonomy.
func (t ActionType) Known() bool {
	for _, k := range ActionTypes {
		if k == t {
			return true
		}
	}
	return false
}

type Participant struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Stars      int    `json:"stars"`
	Eliminated bool   `json:"eliminated"`
}

// Action is the single broadcast unit. Payload stays raw until the reader
// knows which struct to decode it into.
type Action struct {
	Type    ActionType      `json:"type"`
	Version int             `json:"version,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ShufflingPayload struct {
	ActiveParticipants []Participant `json:"activeParticipants"`
	CandidateA         Participant   `json:"candidateA"`
	CandidateB         Participant   `json:"candidateB"`
}

type DuelScore struct {
	A int `json:"a"`
	B int `json:"b"`
}

type UpdateParticipantsPayload struct {
	ParticipantA Participant `json:"participantA"`
	ParticipantB Participant `json:"participantB"`
	DuelScore    DuelScore   `json:"duelScore"`
}

type ShowWordPayload struct {
	Words []string `json:"words"`
}

type RoundWinnerPayload struct {
	Winner *Participant `json:"winner"`
	Loser  *Participant `json:"loser"`
	Words  []string     `json:"words"`
}

type FinalWinnerPayload struct {
	FinalWinner Participant `json:"finalWinner"`
}

type TieAnnouncementPayload struct {
	TieWinners []Participant `json:"tieWinners"`
}

var ErrEmptyActionType = errors.New("action type is empty")

// NewAction wraps payload into an Action. A nil payload produces an action with no payload.
func NewAction(t ActionType, payload any) (Action, error) {
	if t == "" {
		return Action{}, ErrEmptyActionType
	}
	a := Action{Type: t}
	if payload == nil {
		return a, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Action{}, fmt.Errorf("encode %s payload: %w", t, err)
	}
	a.Payload = b
	return a, nil
}

// Reset is the neutral action.
func Reset() Action { return Action{Type: ActionReset} }

func Encode(a Action) ([]byte, error) {
	if a.Type == "" {
		return nil, ErrEmptyActionType
	}
	return json.Marshal(a)
}

func Decode(b []byte) (Action, error) {
	if len(b) == 0 {
		return Action{}, errors.New("decode action: empty input")
	}
	var a Action
	if err := json.Unmarshal(b, &a); err != nil {
		return Action{}, fmt.Errorf("decode action: %w", err)
	}
	return a, nil
}

// DecodePayload decodes the payload of a into T. An action without payload yields the zero T.
func DecodePayload[T any](a Action) (T, error) {
	var out T
	if len(a.Payload) == 0 || string(a.Payload) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(a.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", a.Type, err)
	}
	return out, nil
}
