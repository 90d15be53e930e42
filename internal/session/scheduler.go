package session

import (
	"time"

	"github.com/nadasuara/server/internal/audio"
	"github.com/nadasuara/server/internal/vad"
)

// Decision is the scheduler's verdict after an audio append.
type Decision int

const (
	// NoAction defers recognition until more audio arrives.
	NoAction Decision = iota
	// TriggerPartial runs a recognition pass without consuming audio.
	TriggerPartial
	// TriggerFinal runs a recognition pass and retires the window: a
	// silence run long enough to count as an utterance boundary was seen.
	TriggerFinal
	// DropSilence retires buffered audio without a recognition pass
	// because the whole buffer is silence. Calling the recognizer on it
	// would burn CPU to produce an empty result, and keeping it would
	// eventually overflow the buffer.
	DropSilence
)

// Default trigger policy values.
const (
	DefaultTriggerInterval = 3 * time.Second
	DefaultMaxWindow       = 30 * time.Second
	DefaultMinSilence      = 300 * time.Millisecond
)

// Scheduler decides, after every append, whether enough new audio has
// accumulated to justify a recognition pass and whether the utterance has
// ended. It owns the latency/CPU trade-off: partial passes re-read
// overlapping audio for context, so they are rationed by the trigger
// interval.
type Scheduler struct {
	triggerInterval time.Duration
	maxWindow       time.Duration
	minSilence      time.Duration

	// New audio appended since the last pass (or silence drop).
	sinceTrigger time.Duration
}

// NewScheduler creates a scheduler; zero arguments fall back to defaults.
func NewScheduler(triggerInterval, maxWindow, minSilence time.Duration) *Scheduler {
	if triggerInterval <= 0 {
		triggerInterval = DefaultTriggerInterval
	}
	if maxWindow <= 0 {
		maxWindow = DefaultMaxWindow
	}
	if minSilence <= 0 {
		minSilence = DefaultMinSilence
	}
	return &Scheduler{
		triggerInterval: triggerInterval,
		maxWindow:       maxWindow,
		minSilence:      minSilence,
	}
}

// OnAudioAppended records that d of new audio arrived.
func (s *Scheduler) OnAudioAppended(d time.Duration) {
	s.sinceTrigger += d
}

// NotePass resets the new-audio counter. Called whenever a pass is
// started or silence is dropped.
func (s *Scheduler) NotePass() {
	s.sinceTrigger = 0
}

// MaxWindow returns the ceiling duration for a partial snapshot.
func (s *Scheduler) MaxWindow() time.Duration {
	return s.maxWindow
}

// Evaluate inspects the buffer after an append. Priority order: utterance
// boundary (trailing silence) first, then the trigger interval, else
// defer.
func (s *Scheduler) Evaluate(buf *audio.Ring, det *vad.Detector) Decision {
	if buf.Len() == 0 {
		return NoAction
	}

	window := buf.SnapshotAll()

	if det.IsSilence(window) {
		// Nothing worth transcribing. Retire it once it is old enough
		// to be sure no utterance is forming.
		if s.sinceTrigger >= s.triggerInterval || det.TrailingSilence(window) >= s.minSilence {
			return DropSilence
		}
		return NoAction
	}

	if det.TrailingSilence(window) >= s.minSilence {
		return TriggerFinal
	}

	if s.sinceTrigger >= s.triggerInterval {
		return TriggerPartial
	}

	return NoAction
}
