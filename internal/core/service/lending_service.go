package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/univlib/lending-system/internal/core/domain"
	"github.com/univlib/lending-system/internal/core/ports"
)

// LendingService adapts the Library to the transport layer. It turns inputs
// into domain values, snapshots every result under the engine lock and
// replays idempotent loan requests.
type LendingService struct {
	lib     *Library
	idem    ports.IdempotencyStore
	catalog ports.CatalogStore
	patrons ports.PatronStore
	history ports.LoanHistory
	logger  zerolog.Logger
}

// ServiceOption configures the optional collaborators of a LendingService.
type ServiceOption func(*LendingService)

// WithCatalogStore mirrors item additions and removals to store.
func WithCatalogStore(store ports.CatalogStore) ServiceOption {
	return func(s *LendingService) { s.catalog = store }
}

// WithPatronStore mirrors registry changes to store.
func WithPatronStore(store ports.PatronStore) ServiceOption {
	return func(s *LendingService) { s.patrons = store }
}

// WithLoanHistory enables PatronHistory.
func WithLoanHistory(h ports.LoanHistory) ServiceOption {
	return func(s *LendingService) { s.history = h }
}

// NewLendingService wraps lib. idem may be nil, in which case Idempotency-Key
// headers are ignored.
func NewLendingService(lib *Library, idem ports.IdempotencyStore, logger zerolog.Logger, opts ...ServiceOption) *LendingService {
	s := &LendingService{lib: lib, idem: idem, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ ports.LendingService = (*LendingService)(nil)

// ---------------------------------------------------------------------------
// Items
// ---------------------------------------------------------------------------

func (s *LendingService) ListItems(_ context.Context, kind string) ([]domain.Item, error) {
	var k domain.ItemKind
	if kind != "" {
		parsed, err := domain.ParseItemKind(kind)
		if err != nil {
			return nil, err
		}
		k = parsed
	}

	var out []domain.Item
	s.lib.locked(func() {
		items := s.lib.items(k)
		out = make([]domain.Item, 0, len(items))
		for _, it := range items {
			out = append(out, *it)
		}
	})
	return out, nil
}

func (s *LendingService) GetItem(_ context.Context, id int) (domain.Item, error) {
	var (
		out domain.Item
		err error
	)
	s.lib.locked(func() {
		it, ok := s.lib.itemsByID[id]
		if !ok {
			err = fmt.Errorf("%w: id %d", domain.ErrItemNotFound, id)
			return
		}
		out = *it
	})
	return out, err
}

func (s *LendingService) AddItem(ctx context.Context, in ports.AddItemInput) (domain.Item, error) {
	item, err := newItem(in)
	if err != nil {
		return domain.Item{}, err
	}
	snapshot := *item
	if err := s.lib.AddItem(item); err != nil {
		return domain.Item{}, err
	}
	s.logger.Info().Int("item_id", in.ID).Str("kind", string(item.Kind)).Msg("item added")

	if s.catalog != nil {
		if err := s.catalog.SaveItems(ctx, []*domain.Item{&snapshot}); err != nil {
			s.logger.Warn().Err(err).Int("item_id", in.ID).Msg("failed to persist item")
		}
	}
	return snapshot, nil
}

func newItem(in ports.AddItemInput) (*domain.Item, error) {
	kind, err := domain.ParseItemKind(in.Kind)
	if err != nil {
		return nil, err
	}
	switch kind {
	case domain.KindBook:
		return domain.NewBook(in.ID, in.Title, in.Author, in.ISBN, in.Genre), nil
	case domain.KindCD:
		return domain.NewCD(in.ID, in.Title, in.Composer), nil
	case domain.KindDVD:
		return domain.NewDVD(in.ID, in.Title, in.Director), nil
	default:
		return domain.NewAudiobook(in.ID, in.Title, in.Narrator), nil
	}
}

func (s *LendingService) RemoveItem(ctx context.Context, id int) error {
	if err := s.lib.RemoveItem(id); err != nil {
		return err
	}
	s.logger.Info().Int("item_id", id).Msg("item removed")

	if s.catalog != nil {
		if err := s.catalog.DeleteItem(ctx, id); err != nil {
			s.logger.Warn().Err(err).Int("item_id", id).Msg("failed to delete persisted item")
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Patrons
// ---------------------------------------------------------------------------

func (s *LendingService) GetPatron(_ context.Context, id int) (*ports.PatronView, error) {
	var (
		out *ports.PatronView
		err error
	)
	s.lib.locked(func() {
		p, ok := s.lib.byPatron[id]
		if !ok {
			err = fmt.Errorf("%w: id %d", domain.ErrPatronNotFound, id)
			return
		}
		out = s.patronView(p)
	})
	return out, err
}

func (s *LendingService) PatronRole(_ context.Context, id int) (domain.Role, error) {
	p, ok := s.lib.FindPatron(id)
	if !ok {
		return "", fmt.Errorf("%w: id %d", domain.ErrPatronNotFound, id)
	}
	return p.Role, nil
}

func (s *LendingService) RegisterPatron(ctx context.Context, in ports.RegisterPatronInput) (*ports.PatronView, error) {
	role, err := domain.ParseRole(in.Role)
	if err != nil {
		return nil, err
	}

	var p *domain.Patron
	if role == domain.RoleStudent {
		p = domain.NewStudent(in.ID, in.Name, in.Email, in.Course, in.Year)
	} else {
		p = domain.NewPatron(in.ID, in.Name, in.Email, role)
	}
	p.GuardianID = in.GuardianID

	var (
		out      *ports.PatronView
		snapshot domain.Patron
	)
	s.lib.locked(func() {
		if err = s.lib.registerPatron(p); err != nil {
			return
		}
		out = s.patronView(p)
		snapshot = *p
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int("patron_id", in.ID).Str("role", string(role)).Msg("patron registered")
	s.persistPatron(ctx, &snapshot)
	return out, nil
}

func (s *LendingService) RemovePatron(ctx context.Context, id int) error {
	var (
		touched []domain.Patron
		err     error
	)
	s.lib.locked(func() {
		var changed []*domain.Patron
		if changed, err = s.lib.removePatron(id); err != nil {
			return
		}
		for _, p := range changed {
			touched = append(touched, *p)
		}
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int("patron_id", id).Msg("patron removed")

	if s.patrons != nil {
		if err := s.patrons.DeletePatron(ctx, id); err != nil {
			s.logger.Warn().Err(err).Int("patron_id", id).Msg("failed to delete persisted patron")
		}
	}
	for i := range touched {
		s.persistPatron(ctx, &touched[i])
	}
	return nil
}

func (s *LendingService) AssignGuardian(ctx context.Context, adultID, childID int) error {
	if err := s.lib.AssignGuardian(adultID, childID); err != nil {
		return err
	}

	var (
		snapshot domain.Patron
		found    bool
	)
	s.lib.locked(func() {
		var child *domain.Patron
		if child, found = s.lib.byPatron[childID]; found {
			snapshot = *child
		}
	})
	if found {
		s.persistPatron(ctx, &snapshot)
	}
	return nil
}

func (s *LendingService) persistPatron(ctx context.Context, p *domain.Patron) {
	if s.patrons == nil {
		return
	}
	if err := s.patrons.SavePatron(ctx, p); err != nil {
		s.logger.Warn().Err(err).Int("patron_id", p.ID).Msg("failed to persist patron")
	}
}

// PatronHistory returns the recorded loan events of a registered patron.
// Without a configured history source it returns an empty list.
func (s *LendingService) PatronHistory(ctx context.Context, id int) ([]domain.LoanEvent, error) {
	if _, ok := s.lib.FindPatron(id); !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrPatronNotFound, id)
	}
	if s.history == nil {
		return []domain.LoanEvent{}, nil
	}
	events, err := s.history.EventsForPatron(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("patron history: %w", err)
	}
	return events, nil
}

func (s *LendingService) PatronLoans(_ context.Context, id int) ([]ports.LoanView, error) {
	var (
		out []ports.LoanView
		err error
	)
	s.lib.locked(func() {
		p, ok := s.lib.byPatron[id]
		if !ok {
			err = fmt.Errorf("%w: id %d", domain.ErrPatronNotFound, id)
			return
		}
		out = s.loanViews(p.OpenLoans())
	})
	return out, err
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

// Borrow opens a loan. A repeated Idempotency-Key from the same patron
// returns the first result without touching the engine.
func (s *LendingService) Borrow(ctx context.Context, in ports.LoanInput) (*ports.LoanResult, error) {
	return s.idempotent(ctx, "borrow", in, s.lib.borrow)
}

// Return closes a loan. A repeated Idempotency-Key returns the first result.
func (s *LendingService) Return(ctx context.Context, in ports.LoanInput) (*ports.LoanResult, error) {
	return s.idempotent(ctx, "return", in, s.lib.returnItem)
}

func (s *LendingService) Renew(_ context.Context, in ports.LoanInput) (*ports.LoanResult, error) {
	var (
		view ports.LoanView
		err  error
	)
	s.lib.locked(func() {
		var loan *domain.Loan
		if loan, err = s.lib.renew(in.PatronID, in.ItemID); err == nil {
			view = s.loanView(loan)
		}
	})
	if err != nil {
		return nil, err
	}
	return &ports.LoanResult{Loan: view}, nil
}

// idempotent runs op once per (operation, patron, key). The key is reserved
// before the engine runs so a concurrent retry sees it in flight; a failed
// request releases it.
func (s *LendingService) idempotent(
	ctx context.Context,
	op string,
	in ports.LoanInput,
	run func(patronID, itemID int) (*domain.Loan, error),
) (*ports.LoanResult, error) {
	key := ""
	if in.IdempotencyKey != "" && s.idem != nil {
		key = fmt.Sprintf("%s:%d:%s", op, in.PatronID, in.IdempotencyKey)
		reserved, prior, err := s.idem.Reserve(ctx, key)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("idempotency reserve failed, processing anyway")
			key = ""
		case reserved:
		case prior == nil:
			return nil, fmt.Errorf("%w: %s", domain.ErrRequestInFlight, in.IdempotencyKey)
		case prior.ItemID != in.ItemID:
			return nil, fmt.Errorf("%w: key %q names item %d", domain.ErrIdempotencyMismatch, in.IdempotencyKey, prior.ItemID)
		default:
			s.logger.Info().Str("idempotency_key", in.IdempotencyKey).Int("loan_id", prior.ID).Msg("idempotent replay")
			return &ports.LoanResult{Loan: *prior, AlreadyExisted: true}, nil
		}
	}

	var (
		view ports.LoanView
		err  error
	)
	s.lib.locked(func() {
		var loan *domain.Loan
		if loan, err = run(in.PatronID, in.ItemID); err == nil {
			view = s.loanView(loan)
		}
	})
	if err != nil {
		if key != "" {
			if rerr := s.idem.Release(ctx, key); rerr != nil {
				s.logger.Warn().Err(rerr).Str("idempotency_key", in.IdempotencyKey).Msg("failed to release idempotency key")
			}
		}
		return nil, err
	}

	if key != "" {
		if err := s.idem.Remember(ctx, key, view); err != nil {
			s.logger.Warn().Err(err).Str("idempotency_key", in.IdempotencyKey).Msg("failed to store idempotency key")
		}
	}
	return &ports.LoanResult{Loan: view}, nil
}

func (s *LendingService) Ledger(_ context.Context) []ports.LoanView {
	var out []ports.LoanView
	s.lib.locked(func() { out = s.loanViews(s.lib.ledger) })
	return out
}

func (s *LendingService) OverdueLoans(_ context.Context) []ports.LoanView {
	var out []ports.LoanView
	s.lib.locked(func() { out = s.loanViews(s.lib.overdue(s.lib.now())) })
	return out
}

func (s *LendingService) LoanReport(_ context.Context) string {
	return s.lib.LoanReport()
}

func (s *LendingService) CheckConsistency(_ context.Context) error {
	return s.lib.CheckConsistency()
}
