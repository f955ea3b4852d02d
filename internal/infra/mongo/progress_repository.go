// Package mongo stores progress records as MongoDB documents keyed by user id.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"training-quiz-service/internal/domain"
)

const progressCollection = "user_progress"

// ProgressRepository keeps one document per user. It does not implement
// progress.Updater: standalone deployments lack multi-document transactions,
// and a single ReplaceOne is already atomic per record.
type ProgressRepository struct {
	collection *mongo.Collection
}

func NewProgressRepository(client *mongo.Client, database string) *ProgressRepository {
	return &ProgressRepository{
		collection: client.Database(database).Collection(progressCollection),
	}
}

func (r *ProgressRepository) Load(ctx context.Context, userID string) (domain.UserProgress, bool, error) {
	var p domain.UserProgress
	err := r.collection.FindOne(ctx, bson.M{"_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.UserProgress{}, false, nil
	}
	if err != nil {
		return domain.UserProgress{}, false, fmt.Errorf("find progress: %w", err)
	}
	return p, true, nil
}

func (r *ProgressRepository) Save(ctx context.Context, userID string, p domain.UserProgress) error {
	p.UserID = userID
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": userID}, p, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("replace progress: %w", err)
	}
	return nil
}
