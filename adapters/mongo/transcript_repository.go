package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/nadasuara/server/domain/entities"
	"github.com/nadasuara/server/domain/repositories"
)

type TranscriptRepository struct {
	collection *mongo.Collection
}

// NewTranscriptRepository creates a new MongoDB transcript archive
func NewTranscriptRepository(db *mongo.Database) repositories.TranscriptArchive {
	return &TranscriptRepository{
		collection: db.Collection("transcripts"),
	}
}

// Save implements repositories.TranscriptArchive
func (r *TranscriptRepository) Save(ctx context.Context, transcript *entities.Transcript) error {
	if transcript == nil {
		return errors.New("transcript cannot be nil")
	}
	if err := transcript.Validate(); err != nil {
		return err
	}

	if _, err := r.collection.InsertOne(ctx, transcript); err != nil {
		return fmt.Errorf("failed to save transcript: %w", err)
	}
	return nil
}

// ListByDevice implements repositories.TranscriptArchive
func (r *TranscriptRepository) ListByDevice(ctx context.Context, deviceID string, limit int) ([]*entities.Transcript, error) {
	if deviceID == "" {
		return nil, errors.New("device ID cannot be empty")
	}
	if limit <= 0 {
		limit = 20
	}

	filter := bson.M{"device_id": deviceID}
	opts := options.Find().
		SetSort(bson.M{"ended_at": -1}).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list transcripts for device %s: %w", deviceID, err)
	}
	defer cursor.Close(ctx)

	var transcripts []*entities.Transcript
	if err := cursor.All(ctx, &transcripts); err != nil {
		return nil, fmt.Errorf("failed to decode transcripts: %w", err)
	}
	return transcripts, nil
}
