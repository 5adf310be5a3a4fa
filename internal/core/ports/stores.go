package ports

import (
	"context"

	"github.com/univlib/lending-system/internal/core/domain"
)

// CatalogStore supplies the items the engine is seeded with at startup and
// mirrors catalog changes made through the API.
type CatalogStore interface {
	LoadCatalog(ctx context.Context) ([]*domain.Item, error)
	SaveItems(ctx context.Context, items []*domain.Item) error
	DeleteItem(ctx context.Context, id int) error
}

// PatronStore supplies the registry the engine is seeded with at startup and
// mirrors registry changes made through the API. Guardian links are carried
// in Patron.GuardianID and resolved by the engine.
type PatronStore interface {
	LoadPatrons(ctx context.Context) ([]*domain.Patron, error)
	SavePatron(ctx context.Context, p *domain.Patron) error
	DeletePatron(ctx context.Context, id int) error
}
