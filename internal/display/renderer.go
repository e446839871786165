package display

import (
	"context"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/templates"
	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

// Update is what a source hands the renderer: either a fresh attach, after
// which nothing about earlier history may be assumed, or an action.
type Update struct {
	Attach bool
	Action types.Action
}

type Rand interface {
	Intn(n int) int
}

type Options struct {
	Templates templates.Set
	Cues      CuePlayer
	Screen    Screen
	// HighlightInterval paces the local shuffle animation.
	HighlightInterval time.Duration
	Rand              Rand
}

// Renderer is driven from a single goroutine: Run, or direct calls in tests.
type Renderer struct {
	tpl      templates.Set
	cues     CuePlayer
	screen   Screen
	interval time.Duration
	rnd      Rand
	log      *zap.Logger

	view     View
	lastType types.ActionType
	playing  Cue
	// highlight is the index into view.Active, -1 when not shuffling.
	highlight int
}

func NewRenderer(opts Options, log *zap.Logger) *Renderer {
	if opts.Templates == nil {
		opts.Templates = templates.Defaults()
	}
	if opts.HighlightInterval <= 0 {
		opts.HighlightInterval = 120 * time.Millisecond
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Renderer{
		tpl:       opts.Templates,
		cues:      opts.Cues,
		screen:    opts.Screen,
		interval:  opts.HighlightInterval,
		rnd:       opts.Rand,
		log:       log.Named("display"),
		view:      Neutral(),
		highlight: -1,
	}
}

func (r *Renderer) View() View { return r.view }

// Attach drops everything known about earlier actions and shows the neutral
// screen. The next action always counts as a transition.
func (r *Renderer) Attach() {
	r.stopCue()
	r.view = Neutral()
	r.lastType = ""
	r.highlight = -1
	r.draw(r.tpl.For(types.ActionReset))
}

func (r *Renderer) Apply(a types.Action) {
	if !a.Type.Known() {
		r.log.Debug("ignoring unknown action", zap.String("type", string(a.Type)))
		return
	}
	next, ok := Fold(r.view, a)
	if !ok {
		r.log.Debug("ignoring undecodable action", zap.String("type", string(a.Type)))
		return
	}
	r.view = next

	transition := a.Type != r.lastType
	r.lastType = a.Type
	if a.Type == types.ActionShufflingParticipants {
		if transition || r.highlight >= len(r.view.Active) {
			r.highlight = r.pickHighlight()
		}
	} else {
		r.highlight = -1
	}

	tpl := r.tpl.For(a.Type)
	if transition {
		r.stopCue()
		if tpl.Enabled {
			r.playCue(CueFor(a.Type))
		}
	}
	if !tpl.Enabled {
		return
	}
	r.draw(tpl)
}

// Tick advances the shuffle highlight. It does nothing outside shuffling.
func (r *Renderer) Tick() {
	if r.highlight < 0 || r.view.Type != types.ActionShufflingParticipants {
		return
	}
	tpl := r.tpl.For(types.ActionShufflingParticipants)
	if !tpl.Enabled {
		return
	}
	r.highlight = r.pickHighlight()
	r.draw(tpl)
}

func (r *Renderer) Run(ctx context.Context, updates <-chan Update) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	defer r.stopCue()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case u, ok := <-updates:
			if !ok {
				return nil
			}
			if u.Attach {
				r.Attach()
				continue
			}
			r.Apply(u.Action)
		case <-ticker.C:
			r.Tick()
		}
	}
}

func (r *Renderer) pickHighlight() int {
	if len(r.view.Active) == 0 {
		return -1
	}
	return r.rnd.Intn(len(r.view.Active))
}

func (r *Renderer) playCue(c Cue) {
	if r.cues == nil || c == CueNone {
		return
	}
	r.cues.Play(c)
	r.playing = c
}

func (r *Renderer) stopCue() {
	if r.cues == nil || r.playing == CueNone {
		return
	}
	r.cues.Stop(r.playing)
	r.playing = CueNone
}

func (r *Renderer) draw(tpl templates.Template) {
	if r.screen == nil {
		return
	}
	f := Frame{
		Type:  r.view.Type,
		Text:  tpl.Render(fieldsFor(r.view)),
		Style: tpl.Style,
	}
	if r.highlight >= 0 && r.highlight < len(r.view.Active) {
		f.Highlight = r.view.Active[r.highlight].Name
	}
	r.screen.Show(f)
}

func fieldsFor(v View) templates.Fields {
	f := templates.Fields{Words: v.Words}
	switch v.Type {
	case types.ActionShufflingParticipants:
		f.Participants = names(v.Active)
	case types.ActionUpdateParticipants:
		if v.A != nil && v.B != nil {
			f.Name = v.A.Name + " vs " + v.B.Name
			f.Participants = []string{v.A.Name, v.B.Name}
		}
	case types.ActionRoundWinner:
		f.Name = "No one"
		if v.Winner != nil {
			f.Name = v.Winner.Name
			f.Stars = v.Winner.Stars
		}
	case types.ActionFinalWinner:
		if v.Final != nil {
			f.Name = v.Final.Name
			f.Stars = v.Final.Stars
		}
	case types.ActionTieAnnouncement:
		f.Participants = names(v.Tie)
		if len(v.Tie) > 0 {
			f.Stars = v.Tie[0].Stars
		}
	}
	return f
}

func names(ps []Participant) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Name)
	}
	return out
}
