package tournament

import (
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/spelling-bee-backend/internal/engine"
)

// startShuffle arms the shuffle animation. At most one task is ever live.
func (t *Tournament) startShuffle() {
	t.stopShuffle()
	t.shuffleGen++
	task := &shuffleTask{
		gen:  t.shuffleGen,
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	t.shuffle = task
	t.liveShuffles.Add(1)
	go t.runShuffle(task)

	t.publishCandidates()
}

// stopShuffle cancels the live task and waits for its goroutine to exit, so
// nothing can write a stale pairing afterwards. Ticks already queued in the
// inbox carry the old generation and get dropped.
func (t *Tournament) stopShuffle() {
	if t.shuffle == nil {
		return
	}
	close(t.shuffle.stop)
	<-t.shuffle.done
	t.shuffle = nil
	t.shuffleGen++
}

func (t *Tournament) runShuffle(task *shuffleTask) {
	defer close(task.done)
	defer t.liveShuffles.Add(-1)

	ticker := time.NewTicker(t.opts.ShuffleInterval)
	defer ticker.Stop()
	timer := time.NewTimer(t.opts.ShuffleDuration)
	defer timer.Stop()

	for {
		select {
		case <-task.stop:
			return
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			if !t.sendFromTask(task, shuffleTick{gen: task.gen}) {
				return
			}
		case <-timer.C:
			t.sendFromTask(task, shuffleDone{gen: task.gen})
			return
		}
	}
}

func (t *Tournament) sendFromTask(task *shuffleTask, m Msg) bool {
	select {
	case t.inbox <- m:
		return true
	case <-task.stop:
		return false
	case <-t.ctx.Done():
		return false
	}
}

func (t *Tournament) stale(gen int) bool {
	return gen != t.shuffleGen || t.state.Phase != engine.PhaseShuffling
}

func (t *Tournament) onShuffleTick(gen int) {
	if t.stale(gen) {
		t.log.Debug("dropping stale shuffle tick", zap.Int("gen", gen))
		return
	}
	t.publishCandidates()
}

func (t *Tournament) onShuffleDone(gen int) {
	if t.stale(gen) {
		t.log.Debug("dropping stale shuffle end", zap.Int("gen", gen))
		return
	}
	t.stopShuffle()
	if res := t.handleCommand(engine.Command{Type: engine.CmdCommitPairing}); res.Err != nil {
		t.log.Error("commit pairing", zap.Error(res.Err))
	}
}

// publishCandidates shows a throwaway pairing. Nothing is committed.
func (t *Tournament) publishCandidates() {
	a, b, ok := engine.PickPair(t.state.Participants, t.opts.Rand)
	if !ok {
		return
	}
	action, err := shufflingAction(t.state.Participants.Active(), a, b)
	if err != nil {
		t.log.Error("build shuffle action", zap.Error(err))
		return
	}
	t.publish(action)
}
