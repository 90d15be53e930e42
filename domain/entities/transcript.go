package entities

import (
	"errors"
	"time"
)

// TranscriptSegment is one finalized utterance within a session.
type TranscriptSegment struct {
	Seq       int       `json:"seq" bson:"seq"`
	Text      string    `json:"text" bson:"text"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}

// Transcript is the committed text of one finished streaming session.
// Segments are immutable once finalized; FullText is their concatenation
// in emission order.
type Transcript struct {
	SessionID  string              `json:"session_id" bson:"session_id"`
	DeviceID   string              `json:"device_id" bson:"device_id"`
	Language   string              `json:"language" bson:"language"`
	StartedAt  time.Time           `json:"started_at" bson:"started_at"`
	EndedAt    time.Time           `json:"ended_at" bson:"ended_at"`
	Segments   []TranscriptSegment `json:"segments" bson:"segments"`
	FullText   string              `json:"full_text" bson:"full_text"`
	ChunkCount int                 `json:"chunk_count" bson:"chunk_count"`
}

// Validate validates the transcript data.
func (t *Transcript) Validate() error {
	if t.SessionID == "" {
		return errors.New("session_id is required")
	}
	if t.StartedAt.IsZero() {
		return errors.New("started_at is required")
	}
	return nil
}
