package repositories

import (
	"context"

	"github.com/nadasuara/server/domain/entities"
)

// TranscriptArchive stores finished session transcripts. The streaming
// engine writes once per session end; failures are logged, never surfaced
// to the client.
type TranscriptArchive interface {
	// Save persists a finished transcript.
	Save(ctx context.Context, transcript *entities.Transcript) error
	// ListByDevice returns the most recent transcripts for a device,
	// newest first, up to limit.
	ListByDevice(ctx context.Context, deviceID string, limit int) ([]*entities.Transcript, error)
}
