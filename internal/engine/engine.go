package engine

import (
	"errors"
	"fmt"
	"slices"

	"github.com/DoyleJ11/spelling-bee-backend/internal/ledger"
	"github.com/DoyleJ11/spelling-bee-backend/internal/words"
)

var ErrInvalidTransition = errors.New("invalid transition")
var ErrMissingParticipant = errors.New("participant not in current duel")
var ErrInvalidSetting = errors.New("invalid setting")
var ErrUnsupportedCommand = errors.New("unsupported command")

// ErrInsufficientWords is the words package error so callers only need engine.
var ErrInsufficientWords = words.ErrInsufficientWords

type Phase string

const (
	PhaseIdle          Phase = "idle"
	PhaseShuffling     Phase = "shuffling"
	PhasePaired        Phase = "paired"
	PhaseWordPreview   Phase = "word_preview"
	PhaseWordRevealed  Phase = "word_revealed"
	PhaseRoundFinished Phase = "round_finished"
)

type Participant = ledger.Participant

type Duel struct {
	A Participant `json:"a"`
	B Participant `json:"b"`
}

func (d Duel) Has(id string) bool { return d.A.ID == id || d.B.ID == id }

// Other returns the duel participant that is not id.
func (d Duel) Other(id string) Participant {
	if d.A.ID == id {
		return d.B
	}
	return d.A
}

type Settings struct {
	Mode          words.Mode `json:"mode"`
	WordsPerRound int        `json:"words_per_round"`
	ManualReveal  bool       `json:"manual_reveal"`
}

type State struct {
	Phase        Phase
	Participants ledger.Roster
	Duel         *Duel
	Words        []string
	Supply       words.Supply
	Settings     Settings
	Outcome      *Outcome
	// Winner, Loser are set between a resolved round and the next round.
	Winner *Participant
	Loser  *Participant
}

type CommandType string

const (
	CmdStartRound       CommandType = "StartRound"
	CmdCommitPairing    CommandType = "CommitPairing"
	CmdDrawWord         CommandType = "DrawWord"
	CmdReveal           CommandType = "Reveal"
	CmdHideWord         CommandType = "HideWord"
	CmdDeclareWinner    CommandType = "DeclareWinner"
	CmdDeclareNoWinner  CommandType = "DeclareNoWinner"
	CmdNextRound        CommandType = "NextRound"
	CmdStartTieBreaker  CommandType = "StartTieBreaker"
	CmdSelectWordList   CommandType = "SelectWordList"
	CmdSetMode          CommandType = "SetMode"
	CmdSetWordsPerRound CommandType = "SetWordsPerRound"
	CmdSetManualReveal  CommandType = "SetManualReveal"
	CmdReset            CommandType = "Reset"
	CmdLoadRoster       CommandType = "LoadRoster"
)

type Command struct {
	Type          CommandType
	ParticipantID string
	Word          string
	ListID        string
	List          *words.List // resolved from ListID before Apply
	Mode          words.Mode
	Count         int
	Enabled       bool
	Roster        ledger.Roster
}

type EventType string

const (
	EvtShuffleStarted    EventType = "ShuffleStarted"
	EvtPaired            EventType = "Paired"
	EvtPoolReplenished   EventType = "PoolReplenished"
	EvtWordsDrawn        EventType = "WordsDrawn"
	EvtWordsRevealed     EventType = "WordsRevealed"
	EvtWordsHidden       EventType = "WordsHidden"
	EvtStarAwarded       EventType = "StarAwarded"
	EvtEliminated        EventType = "Eliminated"
	EvtReactivated       EventType = "Reactivated"
	EvtRoundResolved     EventType = "RoundResolved"
	EvtRoundCleared      EventType = "RoundCleared"
	EvtTournamentEnded   EventType = "TournamentEnded"
	EvtTieBreakerStarted EventType = "TieBreakerStarted"
	EvtWordListSelected  EventType = "WordListSelected"
	EvtSettingsChanged   EventType = "SettingsChanged"
	EvtReset             EventType = "Reset"
	EvtRosterLoaded      EventType = "RosterLoaded"
)

type Event struct {
	Type          EventType
	ParticipantID string
	Words         []string
	Word          string
	Winner        *Participant
	Loser         *Participant
	Duel          *Duel
	Outcome       *Outcome
	IDs           []string
}

// Rand is the randomness source for pairing and random word draws.
type Rand interface {
	Intn(n int) int
}

func NewState() State {
	return State{
		Phase:        PhaseIdle,
		Participants: ledger.Roster{},
		Settings: Settings{
			Mode:          words.ModeSequential,
			WordsPerRound: 1,
		},
	}
}

// Apply validates cmd against s and returns the events it produced and the next
// state. On error s is returned unchanged.
func Apply(s State, cmd Command, rnd Rand) ([]Event, State, error) {
	switch cmd.Type {
	case CmdStartRound:
		return startRound(s)
	case CmdCommitPairing:
		return commitPairing(s, rnd)
	case CmdDrawWord:
		return drawWord(s, rnd)
	case CmdReveal:
		if s.Phase != PhaseWordPreview {
			return nil, s, wrongPhase(cmd.Type, s.Phase)
		}
		next := s
		next.Phase = PhaseWordRevealed
		return []Event{{Type: EvtWordsRevealed, Words: slices.Clone(s.Words)}}, next, nil
	case CmdHideWord:
		if s.Phase != PhaseWordRevealed {
			return nil, s, wrongPhase(cmd.Type, s.Phase)
		}
		next := s
		next.Phase = PhaseWordPreview
		return []Event{{Type: EvtWordsHidden}}, next, nil
	case CmdDeclareWinner:
		return declareWinner(s, cmd)
	case CmdDeclareNoWinner:
		if s.Phase != PhaseWordRevealed || s.Duel == nil {
			return nil, s, wrongPhase(cmd.Type, s.Phase)
		}
		next := s
		next.Phase = PhaseRoundFinished
		next.Winner, next.Loser = nil, nil
		return []Event{{Type: EvtRoundResolved, Words: slices.Clone(s.Words)}}, next, nil
	case CmdNextRound:
		return nextRound(s)
	case CmdStartTieBreaker:
		return startTieBreaker(s)
	case CmdSelectWordList:
		if s.Phase != PhaseIdle {
			return nil, s, fmt.Errorf("%w: word list can only change between rounds", ErrInvalidTransition)
		}
		if cmd.List == nil {
			return nil, s, fmt.Errorf("%w: no word list", ErrInvalidSetting)
		}
		next := s
		next.Supply = words.Select(*cmd.List)
		return []Event{{Type: EvtWordListSelected, IDs: []string{cmd.List.ID}}}, next, nil
	case CmdSetMode:
		if _, ok := words.ParseMode(string(cmd.Mode)); !ok {
			return nil, s, fmt.Errorf("%w: mode %q", ErrInvalidSetting, cmd.Mode)
		}
		next := s
		next.Settings.Mode = cmd.Mode
		return []Event{{Type: EvtSettingsChanged}}, next, nil
	case CmdSetWordsPerRound:
		if cmd.Count < 1 {
			return nil, s, fmt.Errorf("%w: words per round %d", ErrInvalidSetting, cmd.Count)
		}
		next := s
		next.Settings.WordsPerRound = cmd.Count
		return []Event{{Type: EvtSettingsChanged}}, next, nil
	case CmdSetManualReveal:
		next := s
		next.Settings.ManualReveal = cmd.Enabled
		return []Event{{Type: EvtSettingsChanged}}, next, nil
	case CmdReset:
		next := clearRound(s)
		next.Outcome = nil
		return []Event{{Type: EvtReset}}, next, nil
	case CmdLoadRoster:
		if s.Phase != PhaseIdle {
			return nil, s, wrongPhase(cmd.Type, s.Phase)
		}
		next := s
		next.Participants = cmd.Roster.Clone()
		ledger.Sort(next.Participants)
		return []Event{{Type: EvtRosterLoaded}}, next, nil
	default:
		return nil, s, ErrUnsupportedCommand
	}
}

func startRound(s State) ([]Event, State, error) {
	if s.Phase != PhaseIdle {
		return nil, s, wrongPhase(CmdStartRound, s.Phase)
	}
	if len(s.Participants.Active()) < 2 {
		out, _ := Evaluate(s.Participants)
		next := s
		next.Outcome = &out
		return []Event{{Type: EvtTournamentEnded, Outcome: &out}}, next, nil
	}

	next := s
	next.Phase = PhaseShuffling
	next.Outcome = nil
	return []Event{{Type: EvtShuffleStarted}}, next, nil
}

func commitPairing(s State, rnd Rand) ([]Event, State, error) {
	if s.Phase != PhaseShuffling {
		return nil, s, wrongPhase(CmdCommitPairing, s.Phase)
	}
	a, b, ok := PickPair(s.Participants, rnd)
	if !ok {
		return nil, s, fmt.Errorf("%w: fewer than 2 active participants", ErrInvalidTransition)
	}
	next := s
	next.Phase = PhasePaired
	next.Duel = &Duel{A: a, B: b}
	return []Event{{Type: EvtPaired, Duel: next.Duel}}, next, nil
}

func drawWord(s State, rnd Rand) ([]Event, State, error) {
	if s.Phase != PhasePaired || s.Duel == nil {
		return nil, s, wrongPhase(CmdDrawWord, s.Phase)
	}
	if len(s.Participants.Active()) < 2 {
		return nil, s, fmt.Errorf("%w: fewer than 2 active participants", ErrInvalidTransition)
	}

	drawn, supply, replenished, err := s.Supply.Draw(s.Settings.WordsPerRound, s.Settings.Mode, rnd)
	if err != nil {
		return nil, s, err
	}

	next := s
	next.Supply = supply
	next.Words = drawn

	var events []Event
	if replenished {
		events = append(events, Event{Type: EvtPoolReplenished})
	}
	events = append(events, Event{Type: EvtWordsDrawn, Words: slices.Clone(drawn)})
	if s.Settings.ManualReveal {
		next.Phase = PhaseWordPreview
		return append(events, Event{Type: EvtWordsHidden}), next, nil
	}
	next.Phase = PhaseWordRevealed
	return append(events, Event{Type: EvtWordsRevealed, Words: slices.Clone(drawn)}), next, nil
}

func declareWinner(s State, cmd Command) ([]Event, State, error) {
	if s.Phase != PhaseWordRevealed || s.Duel == nil {
		return nil, s, wrongPhase(cmd.Type, s.Phase)
	}
	if !s.Duel.Has(cmd.ParticipantID) {
		return nil, s, fmt.Errorf("%w: %q", ErrMissingParticipant, cmd.ParticipantID)
	}
	loserID := s.Duel.Other(cmd.ParticipantID).ID

	_, wi, ok := s.Participants.Find(cmd.ParticipantID)
	_, li, ok2 := s.Participants.Find(loserID)
	if !ok || !ok2 {
		return nil, s, fmt.Errorf("%w: duel participant left the roster", ErrMissingParticipant)
	}

	word := cmd.Word
	if word == "" && len(s.Words) > 0 {
		word = s.Words[0]
	}

	next := s
	next.Participants = s.Participants.Clone()
	next.Participants[wi].Stars++
	next.Participants[li].Eliminated = true
	winner := next.Participants[wi]
	loser := next.Participants[li]
	next.Winner, next.Loser = &winner, &loser
	next.Phase = PhaseRoundFinished

	return []Event{
		{Type: EvtStarAwarded, ParticipantID: winner.ID, Word: word},
		{Type: EvtEliminated, ParticipantID: loser.ID},
		{Type: EvtRoundResolved, Winner: &winner, Loser: &loser, Word: word, Words: slices.Clone(s.Words)},
	}, next, nil
}

func nextRound(s State) ([]Event, State, error) {
	if s.Phase != PhaseRoundFinished {
		return nil, s, wrongPhase(CmdNextRound, s.Phase)
	}
	next := clearRound(s)
	events := []Event{{Type: EvtRoundCleared}}
	if len(next.Participants.Active()) < 2 {
		out, _ := Evaluate(next.Participants)
		next.Outcome = &out
		events = append(events, Event{Type: EvtTournamentEnded, Outcome: &out})
	}
	return events, next, nil
}

// startTieBreaker narrows the field to the tied participants. Stars are kept.
func startTieBreaker(s State) ([]Event, State, error) {
	if s.Phase != PhaseIdle || s.Outcome == nil || s.Outcome.Kind != OutcomeTie {
		return nil, s, fmt.Errorf("%w: no tie to break", ErrInvalidTransition)
	}
	tied := map[string]bool{}
	for _, p := range s.Outcome.Winners {
		tied[p.ID] = true
	}

	next := s
	next.Participants = s.Participants.Clone()
	var events []Event
	ids := make([]string, 0, len(tied))
	for i, p := range next.Participants {
		switch {
		case tied[p.ID]:
			ids = append(ids, p.ID)
			if p.Eliminated {
				next.Participants[i].Eliminated = false
				events = append(events, Event{Type: EvtReactivated, ParticipantID: p.ID})
			}
		case !p.Eliminated:
			next.Participants[i].Eliminated = true
			events = append(events, Event{Type: EvtEliminated, ParticipantID: p.ID})
		}
	}
	next.Outcome = nil
	events = append(events, Event{Type: EvtTieBreakerStarted, IDs: ids})
	return events, next, nil
}

func clearRound(s State) State {
	next := s
	next.Phase = PhaseIdle
	next.Duel = nil
	next.Words = nil
	next.Winner, next.Loser = nil, nil
	return next
}

func wrongPhase(cmd CommandType, p Phase) error {
	return fmt.Errorf("%w: %s not allowed while %s", ErrInvalidTransition, cmd, p)
}
