package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/univlib/lending-system/internal/core/domain"
	"github.com/univlib/lending-system/internal/core/ports"
)

const collectionPatrons = "patrons"

// patronDocument is the stored shape of a patron. Open loans are never persisted.
type patronDocument struct {
	ID         int    `bson:"_id"`
	Name       string `bson:"name"`
	Email      string `bson:"email"`
	Role       string `bson:"role"`
	GuardianID int    `bson:"guardian_id,omitempty"`
	Course     string `bson:"course,omitempty"`
	Year       int    `bson:"year,omitempty"`
}

// PatronRepository stores registered patrons.
type PatronRepository struct {
	col *mongo.Collection
}

func NewPatronRepository(db *mongo.Database) *PatronRepository {
	return &PatronRepository{col: db.Collection(collectionPatrons)}
}

var _ ports.PatronStore = (*PatronRepository)(nil)

// LoadPatrons returns every stored patron ordered by id. Guardian links are
// carried as ids and resolved by the engine.
func (r *PatronRepository) LoadPatrons(ctx context.Context) ([]*domain.Patron, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("load patrons: %w", err)
	}
	defer cur.Close(ctx)

	var docs []patronDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("load patrons: decode: %w", err)
	}

	patrons := make([]*domain.Patron, 0, len(docs))
	for _, d := range docs {
		p, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("load patrons: id %d: %w", d.ID, err)
		}
		patrons = append(patrons, p)
	}
	return patrons, nil
}

// SavePatron upserts a patron by id.
func (r *PatronRepository) SavePatron(ctx context.Context, p *domain.Patron) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := toPatronDocument(p)
	_, err := r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("save patron: %w", err)
	}
	return nil
}

func (r *PatronRepository) DeletePatron(ctx context.Context, id int) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete patron: %w", err)
	}
	return nil
}

func (d patronDocument) toDomain() (*domain.Patron, error) {
	role, err := domain.ParseRole(d.Role)
	if err != nil {
		return nil, err
	}
	var p *domain.Patron
	if role == domain.RoleStudent {
		p = domain.NewStudent(d.ID, d.Name, d.Email, d.Course, d.Year)
	} else {
		p = domain.NewPatron(d.ID, d.Name, d.Email, role)
	}
	p.GuardianID = d.GuardianID
	return p, nil
}

func toPatronDocument(p *domain.Patron) patronDocument {
	return patronDocument{
		ID:         p.ID,
		Name:       p.Name,
		Email:      p.Email,
		Role:       string(p.Role),
		GuardianID: p.GuardianID,
		Course:     p.Course,
		Year:       p.Year,
	}
}
