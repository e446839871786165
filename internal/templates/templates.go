// Package templates holds the per-action message templates the display
// renders with. Text may contain {name}, {words}, {firstWord}, {stars} and
// {participants}; anything else passes through untouched.
package templates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/DoyleJ11/spelling-bee-backend/internal/ledger"
	"github.com/DoyleJ11/spelling-bee-backend/internal/store"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

type Align string

const (
	AlignLeft   Align = "left"
	AlignCenter Align = "center"
	AlignRight  Align = "right"
)

type Style struct {
	Foreground string `json:"foreground,omitempty"`
	Background string `json:"background,omitempty"`
	Bold       bool   `json:"bold,omitempty"`
	Align      Align  `json:"align,omitempty"`
}

type Template struct {
	Enabled bool   `json:"enabled"`
	Text    string `json:"text"`
	Style   Style  `json:"style"`
}

// Set maps an action type to its template. Missing types fall back to Defaults.
type Set map[types.ActionType]Template

func Defaults() Set {
	hot := Style{Foreground: "#f5c542", Bold: true, Align: AlignCenter}
	plain := Style{Align: AlignCenter}
	return Set{
		types.ActionReset:                 {Enabled: true, Text: "", Style: plain},
		types.ActionShufflingParticipants: {Enabled: true, Text: "Who's next?\n{participants}", Style: plain},
		types.ActionUpdateParticipants:    {Enabled: true, Text: "{name}", Style: hot},
		types.ActionShowWord:              {Enabled: true, Text: "{words}", Style: Style{Foreground: "#ffffff", Bold: true, Align: AlignCenter}},
		types.ActionHideWord:              {Enabled: true, Text: "Get ready...", Style: plain},
		types.ActionRoundWinner:           {Enabled: true, Text: "{name} spelled {firstWord}!\n{stars} stars", Style: hot},
		types.ActionFinalWinner:           {Enabled: true, Text: "Champion: {name}\n{stars} stars", Style: Style{Foreground: "#3fb950", Bold: true, Align: AlignCenter}},
		types.ActionTieAnnouncement:       {Enabled: true, Text: "It's a tie!\n{participants}", Style: hot},
		types.ActionNoWinner:              {Enabled: true, Text: "No winner this time", Style: plain},
	}
}

// For returns the template for t, falling back to the default.
func (s Set) For(t types.ActionType) Template {
	if tpl, ok := s[t]; ok {
		return tpl
	}
	return Defaults()[t]
}

// Merge overlays o on a copy of s.
func (s Set) Merge(o Set) Set {
	out := make(Set, len(s)+len(o))
	for k, v := range s {
		out[k] = v
	}
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Validate rejects templates for action types the display does not know.
func (s Set) Validate() error {
	var err error
	for t := range s {
		if !t.Known() {
			err = multierr.Append(err, fmt.Errorf("unknown action type %q", t))
		}
	}
	return err
}

// Fields are the placeholder values for one render.
type Fields struct {
	Name         string
	Words        []string
	Stars        int
	Participants []string
}

func (f Fields) firstWord() string {
	if len(f.Words) == 0 {
		return ""
	}
	return f.Words[0]
}

func (t Template) Render(f Fields) string {
	r := strings.NewReplacer(
		"{name}", f.Name,
		"{words}", strings.Join(f.Words, "  "),
		"{firstWord}", f.firstWord(),
		"{stars}", strconv.Itoa(f.Stars),
		"{participants}", strings.Join(f.Participants, ", "),
	)
	return r.Replace(t.Text)
}

// Load reads the stored overrides for a tournament merged over Defaults.
func Load(ctx context.Context, st store.Store, tid string) (Set, error) {
	raw, err := st.Get(ctx, ledger.TemplatesPath(tid))
	if errors.Is(err, store.ErrNotFound) {
		return Defaults(), nil
	}
	if err != nil {
		return nil, err
	}
	var stored Set
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decode templates: %w", err)
	}
	return Defaults().Merge(stored), nil
}

func Save(ctx context.Context, st store.Store, tid string, s Set) error {
	if err := s.Validate(); err != nil {
		return err
	}
	b, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return st.Set(ctx, ledger.TemplatesPath(tid), b)
}
