package adapters

import (
	"context"
	"errors"
	"sync"

	"github.com/nadasuara/server/domain/entities"
)

// MemoryTranscriptArchive is an in-memory implementation of
// TranscriptArchive, used when no MongoDB is configured. Transcripts are
// kept for the process lifetime only.
type MemoryTranscriptArchive struct {
	mu       sync.RWMutex
	byDevice map[string][]*entities.Transcript
}

// NewMemoryTranscriptArchive creates a new in-memory transcript archive
func NewMemoryTranscriptArchive() *MemoryTranscriptArchive {
	return &MemoryTranscriptArchive{
		byDevice: make(map[string][]*entities.Transcript),
	}
}

// Save implements repositories.TranscriptArchive
func (m *MemoryTranscriptArchive) Save(ctx context.Context, transcript *entities.Transcript) error {
	if transcript == nil {
		return errors.New("transcript cannot be nil")
	}
	if err := transcript.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	transcriptCopy := *transcript
	m.byDevice[transcript.DeviceID] = append(m.byDevice[transcript.DeviceID], &transcriptCopy)
	return nil
}

// ListByDevice implements repositories.TranscriptArchive
func (m *MemoryTranscriptArchive) ListByDevice(ctx context.Context, deviceID string, limit int) ([]*entities.Transcript, error) {
	if deviceID == "" {
		return nil, errors.New("device ID cannot be empty")
	}
	if limit <= 0 {
		limit = 20
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.byDevice[deviceID]

	// Newest first, matching the MongoDB adapter.
	result := make([]*entities.Transcript, 0, limit)
	for i := len(stored) - 1; i >= 0 && len(result) < limit; i-- {
		transcriptCopy := *stored[i]
		result = append(result, &transcriptCopy)
	}
	return result, nil
}
