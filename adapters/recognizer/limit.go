package recognizer

import (
	"context"

	"github.com/nadasuara/server/domain/repositories"
)

// Limited wraps a recognizer with a concurrency cap so a burst of
// sessions cannot fan out unbounded requests to the backend.
type Limited struct {
	inner repositories.Recognizer
	slots chan struct{}
}

// NewLimited caps the wrapped recognizer at maxConcurrent simultaneous
// passes.
func NewLimited(inner repositories.Recognizer, maxConcurrent int) *Limited {
	if maxConcurrent <= 0 {
		maxConcurrent = 1
	}
	return &Limited{
		inner: inner,
		slots: make(chan struct{}, maxConcurrent),
	}
}

// Transcribe implements repositories.Recognizer. It blocks until a slot
// frees up or the context ends.
func (l *Limited) Transcribe(ctx context.Context, samples []int16, language string) (string, error) {
	select {
	case l.slots <- struct{}{}:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	defer func() { <-l.slots }()

	return l.inner.Transcribe(ctx, samples, language)
}
