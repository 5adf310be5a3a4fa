package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/univlib/lending-system/internal/core/domain"
	"github.com/univlib/lending-system/internal/core/ports"
)

const collectionLoanEvents = "loan_events"

// LoanJournal appends loan events to the loan_events audit collection.
type LoanJournal struct {
	col *mongo.Collection
}

func NewLoanJournal(db *mongo.Database) *LoanJournal {
	return &LoanJournal{col: db.Collection(collectionLoanEvents)}
}

var (
	_ ports.LoanJournal  = (*LoanJournal)(nil)
	_ ports.LoanIDSource = (*LoanJournal)(nil)
	_ ports.LoanHistory  = (*LoanJournal)(nil)
)

func (j *LoanJournal) Name() string { return "mongo" }

// Record inserts the event. A retried insert of the same event id is not an error.
func (j *LoanJournal) Record(ctx context.Context, event domain.LoanEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := j.col.InsertOne(ctx, event)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("record loan event: %w", err)
	}
	return nil
}

// MaxLoanID returns the highest loan id in the journal, or 0 when it is empty.
func (j *LoanJournal) MaxLoanID(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.FindOne().
		SetSort(bson.D{{Key: "loan_id", Value: -1}}).
		SetProjection(bson.M{"loan_id": 1})

	var doc struct {
		LoanID int `bson:"loan_id"`
	}
	err := j.col.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("max loan id: %w", err)
	}
	return doc.LoanID, nil
}

// EventsForPatron returns a patron's loan history, oldest first.
func (j *LoanJournal) EventsForPatron(ctx context.Context, patronID int) ([]domain.LoanEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := j.col.Find(ctx, bson.M{"patron_id": patronID},
		options.Find().SetSort(bson.D{{Key: "occurred_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("patron events: %w", err)
	}
	defer cur.Close(ctx)

	var events []domain.LoanEvent
	if err := cur.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("patron events: decode: %w", err)
	}
	return events, nil
}

// EnsureIndexes creates necessary indexes on the loan_events collection.
func (j *LoanJournal) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "loan_id", Value: -1}}},
		{Keys: bson.D{{Key: "patron_id", Value: 1}, {Key: "occurred_at", Value: 1}}},
	}
	_, err := j.col.Indexes().CreateMany(ctx, indexes)
	return err
}
