package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/nadasuara/server/domain/entities"
	"github.com/nadasuara/server/domain/repositories"
	"github.com/nadasuara/server/internal/audio"
	"github.com/nadasuara/server/internal/metrics"
	"github.com/nadasuara/server/internal/vad"
)

// State is the lifecycle state of a streaming session.
type State string

const (
	// StateIdle: connected, no session started.
	StateIdle State = "idle"
	// StateActive: accepting audio, scheduler running.
	StateActive State = "active"
	// StateDraining: stop received, final pass in flight.
	StateDraining State = "draining"
	// StateClosed: terminal, no further events accepted or emitted.
	StateClosed State = "closed"
)

// Audio payload encodings accepted per session, fixed at start.
const (
	EncodingPCM = "pcm"
	EncodingWAV = "wav"
)

// Config carries the per-session engine tuning.
type Config struct {
	SampleRate      int
	BufferCap       time.Duration
	TriggerInterval time.Duration
	MaxWindow       time.Duration
	MinSilence      time.Duration
	VADThreshold    float64
	Language        string
	PassTimeout     time.Duration
}

func (c Config) withDefaults() Config {
	if c.SampleRate <= 0 {
		c.SampleRate = audio.SampleRate
	}
	if c.BufferCap <= 0 {
		c.BufferCap = 60 * time.Second
	}
	if c.Language == "" {
		c.Language = "zh"
	}
	if c.PassTimeout <= 0 {
		c.PassTimeout = 30 * time.Second
	}
	return c
}

// Session is the per-connection streaming state machine. It owns one
// audio buffer and one scheduler, and emits one ordered sequence of
// protocol events over its lifetime.
//
// All entry points serialize on the session mutex; at most one
// recognition pass is in flight at any time. Audio arriving while a pass
// runs queues in the buffer and is considered once the pass completes.
type Session struct {
	ID       string
	DeviceID string

	cfg        Config
	recognizer repositories.Recognizer
	emitter    Emitter
	logger     *zap.Logger

	mu          sync.Mutex
	state       State
	language    string
	encoding    string
	buf         *audio.Ring
	sched       *Scheduler
	det         *vad.Detector
	seq         int
	segments    []entities.TranscriptSegment
	inflight    bool
	startedAt   time.Time
	lastAudioAt time.Time
	chunkCount  int

	onEnded func(*entities.Transcript)
}

// New creates a session in the Idle state.
func New(id, deviceID string, cfg Config, recognizer repositories.Recognizer, emitter Emitter, logger *zap.Logger) *Session {
	cfg = cfg.withDefaults()
	return &Session{
		ID:         id,
		DeviceID:   deviceID,
		cfg:        cfg,
		recognizer: recognizer,
		emitter:    emitter,
		logger:     logger,
		state:      StateIdle,
		language:   cfg.Language,
		encoding:   EncodingPCM,
		buf:        audio.NewRing(cfg.BufferCap, cfg.SampleRate),
		sched:      NewScheduler(cfg.TriggerInterval, cfg.MaxWindow, cfg.MinSilence),
		det:        vad.NewDetector(cfg.VADThreshold, 0, cfg.SampleRate),
	}
}

// SetOnEnded registers a hook invoked once with the finished transcript
// when the session reaches Closed with committed text.
func (s *Session) SetOnEnded(fn func(*entities.Transcript)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onEnded = fn
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActivity returns when audio was last received, or the start time.
func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastAudioAt.IsZero() {
		return s.startedAt
	}
	return s.lastAudioAt
}

// Start transitions Idle to Active. language and encoding override the
// configured defaults for this session only; the encoding is fixed until
// the session ends.
func (s *Session) Start(language, encoding string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		s.emitErrorLocked(CodeProtocol, fmt.Sprintf("start ignored: session is %s", s.state))
		return
	}
	if encoding != "" && encoding != EncodingPCM && encoding != EncodingWAV {
		s.emitErrorLocked(CodeProtocol, fmt.Sprintf("unsupported encoding %q", encoding))
		return
	}

	if language != "" {
		s.language = language
	}
	if encoding != "" {
		s.encoding = encoding
	}
	s.state = StateActive
	s.startedAt = time.Now()
	s.lastAudioAt = s.startedAt

	s.logger.Info("session started",
		zap.String("sessionID", s.ID),
		zap.String("deviceID", s.DeviceID),
		zap.String("language", s.language),
		zap.String("encoding", s.encoding))

	s.emitter.Emit(ControlEvent{Type: EventSessionStarted, SessionID: s.ID})
}

// HandleAudio buffers one incoming audio chunk and consults the
// scheduler. Zero or one recognition pass is started as a result.
func (s *Session) HandleAudio(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		s.emitErrorLocked(CodeProtocol, fmt.Sprintf("audio ignored: session is %s", s.state))
		return
	}

	var samples []int16
	var err error
	switch s.encoding {
	case EncodingWAV:
		samples, err = audio.DecodeWAV(data, s.cfg.SampleRate)
	default:
		samples, err = audio.DecodePCM16(data)
	}
	if err != nil {
		s.emitErrorLocked(CodeFormat, err.Error())
		return
	}

	s.chunkCount++
	s.lastAudioAt = time.Now()

	if dropped := s.buf.Append(samples); dropped > 0 {
		lost := audio.Duration(dropped, s.cfg.SampleRate)
		s.logger.Warn("audio buffer overflow",
			zap.String("sessionID", s.ID),
			zap.Duration("lost", lost))
		s.emitErrorLocked(CodeOverflow, fmt.Sprintf("buffer full, dropped oldest %v of audio", lost))
	}
	s.sched.OnAudioAppended(audio.Duration(len(samples), s.cfg.SampleRate))

	s.evaluateLocked()
}

// Stop forces an utterance boundary on whatever remains buffered and
// ends the session: Active -> Draining -> (final, session_ended) ->
// Closed. The silence check is bypassed; a session that never sent audio
// still gets a final with empty text.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateActive {
		s.emitErrorLocked(CodeProtocol, fmt.Sprintf("stop ignored: session is %s", s.state))
		return
	}

	s.state = StateDraining
	if s.inflight {
		// The running pass finishes first; draining resumes in its
		// completion path.
		return
	}
	s.finishDrainLocked()
}

// Close transitions straight to Closed without emitting further events.
// Used on connection loss: buffered audio is not flushed. An in-flight
// pass is left to finish and discard its result.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateClosed {
		return
	}
	started := s.state != StateIdle
	s.state = StateClosed

	s.logger.Info("session closed",
		zap.String("sessionID", s.ID),
		zap.Int("chunks", s.chunkCount),
		zap.Int("segments", len(s.segments)))

	if started && len(s.segments) > 0 {
		s.archiveLocked()
	}
}

// evaluateLocked consults the scheduler and starts at most one pass.
// Deferred entirely while a pass is in flight.
func (s *Session) evaluateLocked() {
	if s.inflight {
		return
	}
	switch s.sched.Evaluate(s.buf, s.det) {
	case TriggerPartial:
		s.startPassLocked(false)
	case TriggerFinal:
		s.startPassLocked(true)
	case DropSilence:
		s.buf.CommitAll()
		s.sched.NotePass()
	}
}

// startPassLocked snapshots a recognition window and runs the recognizer
// off the session goroutine. Partial windows are capped at the configured
// maximum, preferring the most recent audio; final windows take the whole
// unconsumed buffer up to the boundary.
func (s *Session) startPassLocked(final bool) {
	var window []int16
	if final {
		window = s.buf.SnapshotAll()
	} else {
		window = s.buf.Snapshot(s.sched.MaxWindow())
	}
	s.inflight = true
	s.sched.NotePass()
	go s.runPass(window, final)
}

func (s *Session) runPass(window []int16, final bool) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.PassTimeout)
	defer cancel()

	start := time.Now()
	text, err := s.recognizer.Transcribe(ctx, window, s.language)
	metrics.RecognitionDuration.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight = false

	if s.state == StateClosed {
		// Result arrived after disconnect; drop it.
		return
	}

	if err != nil {
		s.logger.Error("recognition pass failed",
			zap.String("sessionID", s.ID),
			zap.Bool("final", final),
			zap.Duration("window", audio.Duration(len(window), s.cfg.SampleRate)),
			zap.Error(err))
		// The buffer is untouched so the next trigger retries against
		// the accumulated audio.
		s.emitErrorLocked(CodeRecognizer, "recognition failed: "+err.Error())
	} else if final {
		s.buf.Commit(len(window))
		s.commitSegmentLocked(strings.TrimSpace(text))
	} else {
		s.seq++
		s.emitter.Emit(TranscriptEvent{
			Type:      EventPartial,
			SessionID: s.ID,
			Seq:       s.seq,
			Text:      strings.TrimSpace(text),
			IsFinal:   false,
		})
	}

	s.logger.Debug("recognition pass done",
		zap.String("sessionID", s.ID),
		zap.Bool("final", final),
		zap.Duration("took", time.Since(start)))

	if s.state == StateDraining {
		switch {
		case err != nil && final:
			// The drain pass itself failed; end with what is committed.
			s.commitSegmentLocked("")
			s.endLocked()
		case final && s.buf.Len() == 0:
			s.endLocked()
		default:
			s.finishDrainLocked()
		}
		return
	}

	// More audio may have queued past the trigger while this pass ran.
	s.evaluateLocked()
}

// finishDrainLocked runs the stop-forced final pass, or emits an empty
// final directly when nothing is buffered.
func (s *Session) finishDrainLocked() {
	if s.buf.Len() == 0 {
		s.commitSegmentLocked("")
		s.endLocked()
		return
	}
	s.startPassLocked(true)
}

// commitSegmentLocked emits a final TranscriptEvent and makes its text
// part of the immutable committed transcript.
func (s *Session) commitSegmentLocked(text string) {
	s.seq++
	if text != "" {
		s.segments = append(s.segments, entities.TranscriptSegment{
			Seq:       s.seq,
			Text:      text,
			Timestamp: time.Now(),
		})
	}
	s.emitter.Emit(TranscriptEvent{
		Type:      EventFinal,
		SessionID: s.ID,
		Seq:       s.seq,
		Text:      text,
		FullText:  s.fullTextLocked(),
		IsFinal:   true,
	})
}

func (s *Session) endLocked() {
	s.state = StateClosed
	s.emitter.Emit(ControlEvent{Type: EventSessionEnded, SessionID: s.ID})
	s.archiveLocked()
}

func (s *Session) archiveLocked() {
	if s.onEnded == nil {
		return
	}
	transcript := &entities.Transcript{
		SessionID:  s.ID,
		DeviceID:   s.DeviceID,
		Language:   s.language,
		StartedAt:  s.startedAt,
		EndedAt:    time.Now(),
		Segments:   append([]entities.TranscriptSegment(nil), s.segments...),
		FullText:   s.fullTextLocked(),
		ChunkCount: s.chunkCount,
	}
	// Persisting may hit a database; keep it off the session lock.
	go s.onEnded(transcript)
}

func (s *Session) fullTextLocked() string {
	parts := make([]string, 0, len(s.segments))
	for _, seg := range s.segments {
		parts = append(parts, seg.Text)
	}
	return strings.Join(parts, " ")
}

func (s *Session) emitErrorLocked(code, message string) {
	s.emitter.Emit(ErrorEvent{
		Type:      EventError,
		SessionID: s.ID,
		Code:      code,
		Message:   message,
	})
}
