package service

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/univlib/lending-system/internal/core/domain"
	"github.com/univlib/lending-system/internal/core/ports"
)

// Option configures a Library.
type Option func(*Library)

// WithClock replaces time.Now as the source of loan dates.
func WithClock(now func() time.Time) Option {
	return func(l *Library) { l.now = now }
}

// WithEventSink receives a LoanEvent after every successful borrow, renew and return.
func WithEventSink(sink ports.LoanEventSink) Option {
	return func(l *Library) { l.sink = sink }
}

// Library is the lending engine: it owns the catalog, the patron registry and
// the master ledger of open loans. Every exported method holds one mutex for
// its whole duration, so concurrent callers observe each operation atomically.
type Library struct {
	mu sync.Mutex

	base domain.Policy
	ids  *domain.IDIssuer

	catalog   []*domain.Item
	itemsByID map[int]*domain.Item
	patrons   []*domain.Patron
	byPatron  map[int]*domain.Patron
	ledger    []*domain.Loan

	now  func() time.Time
	sink ports.LoanEventSink
	log  zerolog.Logger
}

func NewLibrary(base domain.Policy, ids *domain.IDIssuer, log zerolog.Logger, opts ...Option) *Library {
	l := &Library{
		base:      base,
		ids:       ids,
		itemsByID: make(map[int]*domain.Item),
		byPatron:  make(map[int]*domain.Patron),
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// BasePolicy returns the policy adults and librarians borrow under.
func (l *Library) BasePolicy() domain.Policy { return l.base }

func (l *Library) locked(fn func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn()
}

// ---------------------------------------------------------------------------
// Catalog
// ---------------------------------------------------------------------------

func (l *Library) AddItem(item *domain.Item) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.addItem(item)
}

func (l *Library) addItem(item *domain.Item) error {
	if _, ok := l.itemsByID[item.ID]; ok {
		return fmt.Errorf("%w: id %d", domain.ErrDuplicateItem, item.ID)
	}
	l.catalog = append(l.catalog, item)
	l.itemsByID[item.ID] = item
	return nil
}

// LoadItems adds a batch of items. The batch is all-or-nothing: a duplicate
// id, against the catalog or within the batch, aborts before any insert.
func (l *Library) LoadItems(items []*domain.Item) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[int]struct{}, len(items))
	for _, it := range items {
		_, inCatalog := l.itemsByID[it.ID]
		_, inBatch := seen[it.ID]
		if inCatalog || inBatch {
			return 0, fmt.Errorf("load items: %w: id %d", domain.ErrDuplicateItem, it.ID)
		}
		seen[it.ID] = struct{}{}
	}
	for _, it := range items {
		_ = l.addItem(it)
	}
	return len(items), nil
}

// RemoveItem drops an item from the catalog. Items on loan cannot be removed.
func (l *Library) RemoveItem(id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	item, ok := l.itemsByID[id]
	if !ok {
		return fmt.Errorf("%w: id %d", domain.ErrItemNotFound, id)
	}
	if !item.IsAvailable() {
		return fmt.Errorf("%w: id %d", domain.ErrItemOnLoan, id)
	}
	delete(l.itemsByID, id)
	l.catalog = slices.DeleteFunc(l.catalog, func(it *domain.Item) bool { return it.ID == id })
	return nil
}

func (l *Library) FindItem(id int) (*domain.Item, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	item, ok := l.itemsByID[id]
	return item, ok
}

// Items lists the catalog in insertion order, filtered by kind when kind is non-empty.
func (l *Library) Items(kind domain.ItemKind) []*domain.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.items(kind)
}

func (l *Library) items(kind domain.ItemKind) []*domain.Item {
	if kind == "" {
		return slices.Clone(l.catalog)
	}
	var out []*domain.Item
	for _, it := range l.catalog {
		if it.Kind == kind {
			out = append(out, it)
		}
	}
	return out
}

// CatalogListing renders one Describe line per item.
func (l *Library) CatalogListing(kind domain.ItemKind) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := l.items(kind)
	if len(items) == 0 {
		return "No items loaded."
	}
	lines := make([]string, 0, len(items))
	for _, it := range items {
		lines = append(lines, it.Describe())
	}
	return strings.Join(lines, "\n")
}

// ---------------------------------------------------------------------------
// Registry
// ---------------------------------------------------------------------------

// RegisterPatron adds p to the registry. A non-zero p.GuardianID must name an
// adult that is already registered.
func (l *Library) RegisterPatron(p *domain.Patron) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.registerPatron(p)
}

func (l *Library) registerPatron(p *domain.Patron) error {
	if _, ok := l.byPatron[p.ID]; ok {
		return fmt.Errorf("%w: id %d", domain.ErrDuplicatePatron, p.ID)
	}
	if p.GuardianID != 0 {
		guardian, ok := l.byPatron[p.GuardianID]
		if !ok {
			return fmt.Errorf("guardian: %w: id %d", domain.ErrPatronNotFound, p.GuardianID)
		}
		gid := p.GuardianID
		p.GuardianID = 0
		if err := domain.LinkGuardian(guardian, p, nil); err != nil {
			p.GuardianID = gid
			return err
		}
	}
	l.patrons = append(l.patrons, p)
	l.byPatron[p.ID] = p
	return nil
}

// LoadPatrons registers a batch, then links guardians, so a child may be
// listed before its guardian. It stops at the first registration failure;
// patrons registered before it stay registered. A guardian link that cannot
// be restored is dropped with a warning and the child loads unguarded.
func (l *Library) LoadPatrons(patrons []*domain.Patron) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	guardians := make(map[int]int, len(patrons))
	for i, p := range patrons {
		if p.GuardianID != 0 {
			guardians[p.ID] = p.GuardianID
			p.GuardianID = 0
		}
		if err := l.registerPatron(p); err != nil {
			return i, fmt.Errorf("load patrons: %w", err)
		}
	}
	for _, p := range patrons {
		gid, ok := guardians[p.ID]
		if !ok {
			continue
		}
		guardian, ok := l.byPatron[gid]
		if !ok {
			l.log.Warn().Int("patron_id", p.ID).Int("guardian_id", gid).Msg("guardian not registered, link dropped")
			continue
		}
		if err := domain.LinkGuardian(guardian, p, nil); err != nil {
			l.log.Warn().Err(err).Int("patron_id", p.ID).Int("guardian_id", gid).Msg("guardian link dropped")
		}
	}
	return len(patrons), nil
}

// RemovePatron drops a patron with no open loans and clears any guardian
// links pointing at it.
func (l *Library) RemovePatron(id int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, err := l.removePatron(id)
	return err
}

// removePatron returns the remaining patrons whose guardian links changed.
func (l *Library) removePatron(id int) ([]*domain.Patron, error) {
	p, ok := l.byPatron[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrPatronNotFound, id)
	}
	if p.OpenLoanCount() > 0 {
		return nil, fmt.Errorf("%w: id %d holds %d", domain.ErrPatronHasLoans, id, p.OpenLoanCount())
	}

	var touched []*domain.Patron
	if guardian, ok := l.byPatron[p.GuardianID]; ok {
		guardian.Unlink(p)
		touched = append(touched, guardian)
	}
	for _, childID := range p.Dependents {
		if child, ok := l.byPatron[childID]; ok {
			child.Unlink(p)
			touched = append(touched, child)
		}
	}

	delete(l.byPatron, id)
	l.patrons = slices.DeleteFunc(l.patrons, func(x *domain.Patron) bool { return x.ID == id })
	return touched, nil
}

func (l *Library) FindPatron(id int) (*domain.Patron, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	p, ok := l.byPatron[id]
	return p, ok
}

// Patrons lists the registry in registration order.
func (l *Library) Patrons() []*domain.Patron {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.patrons)
}

func (l *Library) AssignGuardian(adultID, childID int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	adult, ok := l.byPatron[adultID]
	if !ok {
		return fmt.Errorf("%w: id %d", domain.ErrPatronNotFound, adultID)
	}
	child, ok := l.byPatron[childID]
	if !ok {
		return fmt.Errorf("%w: id %d", domain.ErrPatronNotFound, childID)
	}
	if err := domain.LinkGuardian(adult, child, l.byPatron[child.GuardianID]); err != nil {
		return err
	}

	l.log.Info().Int("guardian_id", adultID).Int("patron_id", childID).Msg("guardian assigned")
	return nil
}

// Guardian resolves the registered guardian of a child.
func (l *Library) Guardian(childID int) (*domain.Patron, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.guardianOf(childID)
}

func (l *Library) guardianOf(childID int) (*domain.Patron, bool) {
	child, ok := l.byPatron[childID]
	if !ok || !child.HasGuardian() {
		return nil, false
	}
	g, ok := l.byPatron[child.GuardianID]
	return g, ok
}

// ---------------------------------------------------------------------------
// Loans
// ---------------------------------------------------------------------------

// Borrow opens a loan of itemID for patronID. On any rejection the catalog,
// the ledger and the patron are left untouched and no id is consumed.
func (l *Library) Borrow(patronID, itemID int) (*domain.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.borrow(patronID, itemID)
}

func (l *Library) borrow(patronID, itemID int) (*domain.Loan, error) {
	p, item, err := l.resolve(patronID, itemID)
	if err != nil {
		return nil, l.rejected("borrow", patronID, itemID, err)
	}
	if !item.IsAvailable() {
		return nil, l.rejected("borrow", patronID, itemID,
			fmt.Errorf("%w: %q", domain.ErrItemUnavailable, item.Title))
	}

	now := l.now()
	loan, err := p.Borrow(item, l.base, l.ids, now)
	if err != nil {
		return nil, l.rejected("borrow", patronID, itemID, err)
	}
	l.ledger = append(l.ledger, loan)

	l.log.Info().
		Int("loan_id", loan.ID).
		Int("patron_id", patronID).
		Int("item_id", itemID).
		Str("due", loan.DueDate.Format(time.DateOnly)).
		Msg("loan opened")
	l.emit(domain.LoanOpened, loan, now)
	return loan, nil
}

// Return closes the patron's open loan on itemID and restores availability.
func (l *Library) Return(patronID, itemID int) (*domain.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.returnItem(patronID, itemID)
}

func (l *Library) returnItem(patronID, itemID int) (*domain.Loan, error) {
	p, item, err := l.resolve(patronID, itemID)
	if err != nil {
		return nil, l.rejected("return", patronID, itemID, err)
	}

	now := l.now()
	loan, err := p.Return(item, now)
	if err != nil {
		return nil, l.rejected("return", patronID, itemID, err)
	}
	l.ledger = slices.DeleteFunc(l.ledger, func(x *domain.Loan) bool {
		return x.Item.ID == itemID && x.Patron.ID == patronID
	})

	l.log.Info().
		Int("loan_id", loan.ID).
		Int("patron_id", patronID).
		Int("item_id", itemID).
		Msg("loan closed")
	l.emit(domain.LoanClosed, loan, now)
	return loan, nil
}

// Renew extends the patron's open loan on itemID under the policy the loan
// was opened with.
func (l *Library) Renew(patronID, itemID int) (*domain.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.renew(patronID, itemID)
}

func (l *Library) renew(patronID, itemID int) (*domain.Loan, error) {
	p, item, err := l.resolve(patronID, itemID)
	if err != nil {
		return nil, l.rejected("renew", patronID, itemID, err)
	}
	loan, ok := p.LoanFor(itemID)
	if !ok {
		return nil, l.rejected("renew", patronID, itemID,
			fmt.Errorf("%w for %q", domain.ErrLoanNotFound, item.Title))
	}
	if !loan.Renew(loan.Policy) {
		return nil, l.rejected("renew", patronID, itemID,
			fmt.Errorf("%w (%d max)", domain.ErrRenewalLimitReached, loan.Policy.MaxRenewals()))
	}

	l.log.Info().
		Int("loan_id", loan.ID).
		Int("patron_id", patronID).
		Int("renewals", loan.RenewCount).
		Str("due", loan.DueDate.Format(time.DateOnly)).
		Msg("loan renewed")
	l.emit(domain.LoanRenewed, loan, l.now())
	return loan, nil
}

func (l *Library) resolve(patronID, itemID int) (*domain.Patron, *domain.Item, error) {
	p, ok := l.byPatron[patronID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: id %d", domain.ErrPatronNotFound, patronID)
	}
	item, ok := l.itemsByID[itemID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: id %d", domain.ErrItemNotFound, itemID)
	}
	return p, item, nil
}

func (l *Library) rejected(op string, patronID, itemID int, err error) error {
	l.log.Info().
		Int("patron_id", patronID).
		Int("item_id", itemID).
		Str("reason", err.Error()).
		Msg(op + " rejected")
	return err
}

func (l *Library) emit(t domain.LoanEventType, loan *domain.Loan, at time.Time) {
	if l.sink == nil {
		return
	}
	l.sink.Enqueue(domain.NewLoanEvent(t, loan, at))
}

// ---------------------------------------------------------------------------
// Reporting
// ---------------------------------------------------------------------------

// Ledger returns the open loans in the order they were opened.
func (l *Library) Ledger() []*domain.Loan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.ledger)
}

func (l *Library) PatronLoans(patronID int) ([]*domain.Loan, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.byPatron[patronID]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", domain.ErrPatronNotFound, patronID)
	}
	return p.OpenLoans(), nil
}

// OverdueLoans lists the open loans whose due date lies before asOf.
func (l *Library) OverdueLoans(asOf time.Time) []*domain.Loan {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.overdue(asOf)
}

func (l *Library) overdue(asOf time.Time) []*domain.Loan {
	var out []*domain.Loan
	for _, loan := range l.ledger {
		if loan.IsOverdue(asOf) {
			out = append(out, loan)
		}
	}
	return out
}

// LoanReport renders the ledger, each loan followed by its due reminder.
func (l *Library) LoanReport() string {
	l.mu.Lock()
	defer l.mu.Unlock()

	var sb strings.Builder
	sb.WriteString("Library Loan Report:\n")
	if len(l.ledger) == 0 {
		sb.WriteString("No loans currently registered.\n")
		return sb.String()
	}
	today := l.now()
	for _, loan := range l.ledger {
		sb.WriteString(loan.Describe())
		sb.WriteString("\n  Reminder: ")
		sb.WriteString(domain.DueReminder(loan.DueDate, today).String())
		sb.WriteString("\n")
	}
	return sb.String()
}

// CheckConsistency verifies that the ledger equals the union of the patrons'
// open loans and that an item is unavailable exactly when one loan holds it.
func (l *Library) CheckConsistency() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	held := make(map[int]int, len(l.ledger))
	for _, loan := range l.ledger {
		owner, ok := l.byPatron[loan.Patron.ID]
		if !ok {
			return fmt.Errorf("loan %d: borrower %d is not registered", loan.ID, loan.Patron.ID)
		}
		if _, ok := owner.LoanFor(loan.Item.ID); !ok {
			return fmt.Errorf("loan %d: missing from patron %d", loan.ID, owner.ID)
		}
		held[loan.Item.ID]++
	}

	open := 0
	for _, p := range l.patrons {
		for _, loan := range p.OpenLoans() {
			open++
			if !slices.Contains(l.ledger, loan) {
				return fmt.Errorf("loan %d: held by patron %d but not in ledger", loan.ID, p.ID)
			}
		}
	}
	if open != len(l.ledger) {
		return fmt.Errorf("ledger has %d loans, patrons hold %d", len(l.ledger), open)
	}

	for _, it := range l.catalog {
		n := held[it.ID]
		if n > 1 {
			return fmt.Errorf("item %d: %d open loans", it.ID, n)
		}
		if it.IsAvailable() == (n == 1) {
			return fmt.Errorf("item %d: available=%t with %d open loans", it.ID, it.IsAvailable(), n)
		}
	}
	return nil
}
