package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brdc/darts-league/brackets"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	bracketsCollection        = "brackets"
	defaultMongoUpdateRetries = 5
)

// bracketDocument is the stored shape: one document per tournament keyed by
// tournament id, with a version counter for optimistic concurrency.
type bracketDocument struct {
	TournamentID int               `bson:"_id"`
	Version      int64             `bson:"version"`
	Bracket      *brackets.Bracket `bson:"bracket"`
	CreatedAt    time.Time         `bson:"created_at"`
	UpdatedAt    time.Time         `bson:"updated_at"`
}

type mongoBracketRepository struct {
	collection  *mongo.Collection
	maxAttempts int
}

func NewMongoBracketRepository(db *mongo.Database) BracketRepository {
	return &mongoBracketRepository{
		collection:  db.Collection(bracketsCollection),
		maxAttempts: defaultMongoUpdateRetries,
	}
}

// Create inserts the bracket, then runs then. When then fails the document is
// deleted again.
func (r *mongoBracketRepository) Create(ctx context.Context, b *brackets.Bracket, then BracketCreateHook) error {
	now := time.Now().UTC()
	doc := bracketDocument{
		TournamentID: b.TournamentID,
		Version:      1,
		Bracket:      b,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrBracketExists
		}
		return fmt.Errorf("failed to insert bracket for tournament %d: %w", b.TournamentID, err)
	}
	if then == nil {
		return nil
	}
	if err := then(ctx, nil); err != nil {
		if _, delErr := r.collection.DeleteOne(ctx, bson.M{"_id": b.TournamentID}); delErr != nil {
			return errors.Join(err, fmt.Errorf("failed to remove bracket for tournament %d: %w", b.TournamentID, delErr))
		}
		return err
	}
	return nil
}

func (r *mongoBracketRepository) GetByTournamentID(ctx context.Context, tournamentID int) (*brackets.Bracket, error) {
	doc, err := r.find(ctx, tournamentID)
	if err != nil {
		return nil, err
	}
	return doc.Bracket, nil
}

// Update reads the document, applies mutate and writes it back only if the
// version is unchanged. A lost race re-reads and retries.
func (r *mongoBracketRepository) Update(ctx context.Context, tournamentID int, mutate BracketMutator) (*brackets.Bracket, error) {
	for attempt := 0; attempt < r.maxAttempts; attempt++ {
		doc, err := r.find(ctx, tournamentID)
		if err != nil {
			return nil, err
		}
		if err := mutate(doc.Bracket); err != nil {
			return nil, err
		}

		filter := bson.M{"_id": tournamentID, "version": doc.Version}
		update := bson.M{
			"$set": bson.M{"bracket": doc.Bracket, "updated_at": time.Now().UTC()},
			"$inc": bson.M{"version": 1},
		}
		res, err := r.collection.UpdateOne(ctx, filter, update)
		if err != nil {
			return nil, fmt.Errorf("failed to update bracket for tournament %d: %w", tournamentID, err)
		}
		if res.MatchedCount == 1 {
			return doc.Bracket, nil
		}
	}
	return nil, fmt.Errorf("%w: tournament %d after %d attempts", ErrBracketUpdateConflict, tournamentID, r.maxAttempts)
}

func (r *mongoBracketRepository) find(ctx context.Context, tournamentID int) (*bracketDocument, error) {
	var doc bracketDocument
	err := r.collection.FindOne(ctx, bson.D{{Key: "_id", Value: tournamentID}}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrBracketNotFound
		}
		return nil, fmt.Errorf("failed to load bracket for tournament %d: %w", tournamentID, err)
	}
	if doc.Bracket == nil {
		return nil, fmt.Errorf("bracket document for tournament %d is empty", tournamentID)
	}
	return &doc, nil
}
