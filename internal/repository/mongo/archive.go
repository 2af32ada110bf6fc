package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"studyhub/internal/domain"
)

// ArchiveRepository persists ended sessions as single documents: the final
// session state with its messages and notes embedded. One document per
// session code; re-archiving the same code replaces the previous record.
type ArchiveRepository struct {
	collection *mongo.Collection
}

// NewArchiveRepository creates a new archive repository.
func NewArchiveRepository(client *Client) *ArchiveRepository {
	return &ArchiveRepository{
		collection: client.Database().Collection(CollectionArchives),
	}
}

// Save upserts the archive document keyed by session code.
func (r *ArchiveRepository) Save(ctx context.Context, archive *domain.SessionArchive) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"session.code": archive.Session.Code}
	update := bson.M{"$set": archive}

	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to archive session %s: %w", archive.Session.Code, err)
	}
	return nil
}

// Get returns the archived record for a code, or ErrNotFound.
func (r *ArchiveRepository) Get(ctx context.Context, code string) (*domain.SessionArchive, error) {
	var archive domain.SessionArchive
	err := r.collection.FindOne(ctx, bson.M{"session.code": code}).Decode(&archive)
	if err == mongo.ErrNoDocuments {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load archive %s: %w", code, err)
	}
	return &archive, nil
}

var _ domain.ArchiveRepository = (*ArchiveRepository)(nil)
