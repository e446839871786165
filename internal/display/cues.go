package display

import (
	"io"

	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/pkg/types"
)

type Cue string

const (
	CueNone        Cue = ""
	CueSilence     Cue = "silence"
	CueDrumroll    Cue = "drumroll"
	CueVersus      Cue = "versus"
	CueReveal      Cue = "reveal"
	CueHush        Cue = "hush"
	CueApplause    Cue = "applause"
	CueFanfare     Cue = "fanfare"
	CueSuspense    Cue = "suspense"
	CueSadTrombone Cue = "sad_trombone"
)

var cues = map[types.ActionType]Cue{
	types.ActionReset:                 CueSilence,
	types.ActionShufflingParticipants: CueDrumroll,
	types.ActionUpdateParticipants:    CueVersus,
	types.ActionShowWord:              CueReveal,
	types.ActionHideWord:              CueHush,
	types.ActionRoundWinner:           CueApplause,
	types.ActionFinalWinner:           CueFanfare,
	types.ActionTieAnnouncement:       CueSuspense,
	types.ActionNoWinner:              CueSadTrombone,
}

func CueFor(t types.ActionType) Cue { return cues[t] }

type CuePlayer interface {
	Play(Cue)
	Stop(Cue)
}

// TerminalCues logs cues and can ring the terminal bell on Play.
type TerminalCues struct {
	Log  *zap.Logger
	Bell bool
	Out  io.Writer
}

func (c TerminalCues) Play(cue Cue) {
	c.Log.Info("cue play", zap.String("cue", string(cue)))
	if c.Bell && c.Out != nil && cue != CueSilence {
		_, _ = io.WriteString(c.Out, "\a")
	}
}

func (c TerminalCues) Stop(cue Cue) {
	c.Log.Debug("cue stop", zap.String("cue", string(cue)))
}
