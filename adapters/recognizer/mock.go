package recognizer

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/nadasuara/server/domain/repositories"
	"github.com/nadasuara/server/internal/audio"
)

// MockRecognizer is a placeholder implementation for speech recognition.
// Useful for running the server without cloud credentials.
type MockRecognizer struct {
	logger *zap.Logger
}

// NewMockRecognizer creates a new mock recognizer.
func NewMockRecognizer(logger *zap.Logger) repositories.Recognizer {
	return &MockRecognizer{
		logger: logger,
	}
}

// Transcribe implements repositories.Recognizer. The text depends only
// on the window duration, so repeated passes over the same audio are
// stable the way a real recognizer's would be.
func (m *MockRecognizer) Transcribe(ctx context.Context, samples []int16, language string) (string, error) {
	d := audio.Duration(len(samples), audio.SampleRate)

	m.logger.Info("Processing speech-to-text",
		zap.Duration("window", d),
		zap.String("language", language))

	switch {
	case d > 10*time.Second:
		return "this is a longer stretch of speech with several phrases strung together", nil
	case d > 3*time.Second:
		return "a few seconds of continuous speech", nil
	case d > time.Second:
		return "a short phrase", nil
	case d > 0:
		return "hm", nil
	default:
		return "", nil
	}
}
