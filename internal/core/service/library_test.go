package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/univlib/lending-system/internal/core/domain"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubSink struct {
	mu     sync.Mutex
	events []domain.LoanEvent
}

func (s *stubSink) Enqueue(e domain.LoanEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func (s *stubSink) types() []domain.LoanEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.LoanEventType, 0, len(s.events))
	for _, e := range s.events {
		out = append(out, e.Type)
	}
	return out
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

var discardLogger = zerolog.Nop()

var fixedNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func (c *clock) advance(days int) { c.now = c.now.AddDate(0, 0, days) }

func newTestLibrary(t *testing.T) (*Library, *stubSink, *clock) {
	t.Helper()
	sink := &stubSink{}
	clk := &clock{now: fixedNow}
	lib := NewLibrary(domain.DefaultPolicy(), domain.NewIDIssuer(1), discardLogger,
		WithClock(clk.Now), WithEventSink(sink))
	return lib, sink, clk
}

// seed registers the usual cast: adult 1 (guardian of child 2), student 3,
// librarian 4, an unguarded child 5, and items 100..119 alternating kinds.
func seed(t *testing.T, lib *Library) {
	t.Helper()
	adult := domain.NewPatron(1, "John", "john@mail.com", domain.RoleAdult)
	child := domain.NewPatron(2, "Tim", "tim@mail.com", domain.RoleChild)
	child.GuardianID = 1
	patrons := []*domain.Patron{
		adult,
		child,
		domain.NewStudent(3, "Sara", "sara@uni.edu", "Computing", 2),
		domain.NewPatron(4, "Lee", "lee@lib.org", domain.RoleLibrarian),
		domain.NewPatron(5, "Amy", "amy@mail.com", domain.RoleChild),
	}
	if _, err := lib.LoadPatrons(patrons); err != nil {
		t.Fatalf("seed patrons: %v", err)
	}

	var items []*domain.Item
	for i := 0; i < 20; i++ {
		id := 100 + i
		title := fmt.Sprintf("Title %d", id)
		switch i % 4 {
		case 0:
			items = append(items, domain.NewBook(id, title, "Author", "ISBN", "Fiction"))
		case 1:
			items = append(items, domain.NewCD(id, title, "Composer"))
		case 2:
			items = append(items, domain.NewDVD(id, title, "Director"))
		default:
			items = append(items, domain.NewAudiobook(id, title, "Narrator"))
		}
	}
	if _, err := lib.LoadItems(items); err != nil {
		t.Fatalf("seed items: %v", err)
	}
}

func mustConsistent(t *testing.T, lib *Library) {
	t.Helper()
	if err := lib.CheckConsistency(); err != nil {
		t.Fatalf("engine inconsistent: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Catalog tests
// ---------------------------------------------------------------------------

func TestLibrary_AddItem_Duplicate(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	if err := lib.AddItem(domain.NewBook(1, "A", "x", "y", "z")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := lib.AddItem(domain.NewCD(1, "B", "c"))
	if !errors.Is(err, domain.ErrDuplicateItem) {
		t.Fatalf("expected ErrDuplicateItem, got %v", err)
	}
	if got := len(lib.Items("")); got != 1 {
		t.Errorf("expected 1 item, got %d", got)
	}
}

func TestLibrary_LoadItems_AllOrNothing(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	_ = lib.AddItem(domain.NewBook(7, "Existing", "a", "i", "g"))

	_, err := lib.LoadItems([]*domain.Item{
		domain.NewCD(8, "New", "c"),
		domain.NewDVD(7, "Clash", "d"),
	})
	if !errors.Is(err, domain.ErrDuplicateItem) {
		t.Fatalf("expected ErrDuplicateItem, got %v", err)
	}
	if _, ok := lib.FindItem(8); ok {
		t.Error("batch must not be partially inserted")
	}

	_, err = lib.LoadItems([]*domain.Item{domain.NewCD(9, "x", "c"), domain.NewCD(9, "y", "c")})
	if !errors.Is(err, domain.ErrDuplicateItem) {
		t.Fatalf("expected duplicate within batch to fail, got %v", err)
	}
}

func TestLibrary_Items_FilterByKind(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)

	cds := lib.Items(domain.KindCD)
	if len(cds) != 5 {
		t.Fatalf("expected 5 CDs, got %d", len(cds))
	}
	for _, it := range cds {
		if it.Kind != domain.KindCD {
			t.Errorf("unexpected kind %q", it.Kind)
		}
	}
	if all := lib.Items(""); len(all) != 20 {
		t.Errorf("expected 20 items, got %d", len(all))
	}
}

func TestLibrary_CatalogListing(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	if got := lib.CatalogListing(""); got != "No items loaded." {
		t.Errorf("empty listing = %q", got)
	}

	_ = lib.AddItem(domain.NewBook(1, "Dune", "Herbert", "978", "SciFi"))
	_ = lib.AddItem(domain.NewDVD(2, "Alien", "Scott"))

	want := "ID: 1 | Title: Dune | Status: Available | Book by Herbert (SciFi)\n" +
		"ID: 2 | Title: Alien | Status: Available | Director: Scott"
	if got := lib.CatalogListing(""); got != want {
		t.Errorf("listing mismatch:\n got %q\nwant %q", got, want)
	}
	if got := lib.CatalogListing(domain.KindCD); got != "No items loaded." {
		t.Errorf("empty kind listing = %q", got)
	}
}

func TestLibrary_RemoveItem(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)

	if _, err := lib.Borrow(1, 100); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if err := lib.RemoveItem(100); !errors.Is(err, domain.ErrItemOnLoan) {
		t.Errorf("expected ErrItemOnLoan, got %v", err)
	}
	if err := lib.RemoveItem(101); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := lib.RemoveItem(101); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	mustConsistent(t, lib)
}

// ---------------------------------------------------------------------------
// Registry tests
// ---------------------------------------------------------------------------

func TestLibrary_RegisterPatron(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)

	err := lib.RegisterPatron(domain.NewPatron(1, "Dup", "d@mail.com", domain.RoleAdult))
	if !errors.Is(err, domain.ErrDuplicatePatron) {
		t.Errorf("expected ErrDuplicatePatron, got %v", err)
	}

	orphan := domain.NewPatron(50, "Kid", "k@mail.com", domain.RoleChild)
	orphan.GuardianID = 999
	if err := lib.RegisterPatron(orphan); !errors.Is(err, domain.ErrPatronNotFound) {
		t.Errorf("expected ErrPatronNotFound for unknown guardian, got %v", err)
	}
	if _, ok := lib.FindPatron(50); ok {
		t.Error("rejected patron must not be registered")
	}

	g, ok := lib.Guardian(2)
	if !ok || g.ID != 1 {
		t.Fatalf("expected guardian 1 for child 2, got %v %v", g, ok)
	}
	adult, _ := lib.FindPatron(1)
	if len(adult.Dependents) != 1 || adult.Dependents[0] != 2 {
		t.Errorf("expected dependents [2], got %v", adult.Dependents)
	}
}

func TestLibrary_RemovePatron(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)

	if _, err := lib.Borrow(3, 100); err != nil {
		t.Fatalf("borrow: %v", err)
	}
	if err := lib.RemovePatron(3); !errors.Is(err, domain.ErrPatronHasLoans) {
		t.Errorf("expected ErrPatronHasLoans, got %v", err)
	}

	// removing a guardian detaches the child
	if err := lib.RemovePatron(1); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	child, _ := lib.FindPatron(2)
	if child.HasGuardian() {
		t.Error("child must lose its guardian when the guardian is removed")
	}
	if _, err := lib.Borrow(2, 101); !errors.Is(err, domain.ErrGuardianRequired) {
		t.Errorf("expected ErrGuardianRequired after guardian removal, got %v", err)
	}
	if err := lib.RemovePatron(1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	mustConsistent(t, lib)
}

func TestLibrary_LoadPatrons_DropsUnresolvableGuardian(t *testing.T) {
	lib, _, _ := newTestLibrary(t)

	orphan := domain.NewPatron(2, "Tim", "tim@mail.com", domain.RoleChild)
	orphan.GuardianID = 1
	misfit := domain.NewPatron(6, "Max", "max@mail.com", domain.RoleChild)
	misfit.GuardianID = 3

	n, err := lib.LoadPatrons([]*domain.Patron{
		orphan,
		domain.NewStudent(3, "Sara", "sara@uni.edu", "Computing", 2),
		misfit,
	})
	if err != nil {
		t.Fatalf("a stale guardian link must not abort loading: %v", err)
	}
	if n != 3 {
		t.Errorf("loaded %d, want 3", n)
	}
	for _, id := range []int{2, 6} {
		p, ok := lib.FindPatron(id)
		if !ok {
			t.Fatalf("patron %d not registered", id)
		}
		if p.HasGuardian() {
			t.Errorf("patron %d must load without a guardian, got %d", id, p.GuardianID)
		}
	}
	mustConsistent(t, lib)
}

func TestLibrary_RegisterPatron_RejectedGuardianLeavesInputUntouched(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)

	child := domain.NewPatron(7, "Ana", "ana@mail.com", domain.RoleChild)
	child.GuardianID = 3

	if err := lib.RegisterPatron(child); !errors.Is(err, domain.ErrInvalidGuardian) {
		t.Fatalf("expected ErrInvalidGuardian, got %v", err)
	}
	if child.GuardianID != 3 {
		t.Errorf("rejected registration changed GuardianID to %d", child.GuardianID)
	}
	if _, ok := lib.FindPatron(7); ok {
		t.Error("rejected patron must not be registered")
	}
}

func TestLibrary_AssignGuardian(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)

	if _, err := lib.Borrow(5, 100); !errors.Is(err, domain.ErrGuardianRequired) {
		t.Fatalf("expected ErrGuardianRequired, got %v", err)
	}
	if err := lib.AssignGuardian(1, 5); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if _, err := lib.Borrow(5, 100); err != nil {
		t.Fatalf("borrow after assigning guardian: %v", err)
	}

	if err := lib.AssignGuardian(3, 5); !errors.Is(err, domain.ErrInvalidGuardian) {
		t.Errorf("expected ErrInvalidGuardian for student guardian, got %v", err)
	}
	if err := lib.AssignGuardian(1, 404); !errors.Is(err, domain.ErrPatronNotFound) {
		t.Errorf("expected ErrPatronNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Borrow / return tests
// ---------------------------------------------------------------------------

func TestLibrary_Borrow_Success(t *testing.T) {
	lib, sink, _ := newTestLibrary(t)
	seed(t, lib)

	loan, err := lib.Borrow(1, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	item, _ := lib.FindItem(100)
	if item.IsAvailable() {
		t.Error("borrowed item must be unavailable")
	}
	ledger := lib.Ledger()
	if len(ledger) != 1 || ledger[0] != loan {
		t.Fatalf("ledger must hold the same loan pointer, got %v", ledger)
	}
	own, _ := lib.PatronLoans(1)
	if len(own) != 1 || own[0] != loan {
		t.Fatalf("patron list must hold the same loan pointer, got %v", own)
	}
	if want := domain.DateOf(fixedNow).AddDate(0, 0, 14); !loan.DueDate.Equal(want) {
		t.Errorf("due = %v, want %v", loan.DueDate, want)
	}
	if got := sink.types(); len(got) != 1 || got[0] != domain.LoanOpened {
		t.Errorf("expected one loan_opened event, got %v", got)
	}
	mustConsistent(t, lib)
}

func TestLibrary_Borrow_Rejections(t *testing.T) {
	lib, sink, _ := newTestLibrary(t)
	seed(t, lib)
	if _, err := lib.Borrow(1, 100); err != nil {
		t.Fatalf("setup borrow: %v", err)
	}

	cases := []struct {
		name     string
		patronID int
		itemID   int
		want     error
	}{
		{"unknown patron", 404, 101, domain.ErrPatronNotFound},
		{"unknown item", 1, 999, domain.ErrItemNotFound},
		{"item already on loan", 3, 100, domain.ErrItemUnavailable},
		{"child without guardian", 5, 101, domain.ErrGuardianRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := lib.Borrow(tc.patronID, tc.itemID); !errors.Is(err, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, err)
			}
		})
	}

	if got := len(lib.Ledger()); got != 1 {
		t.Errorf("rejections must not touch the ledger, got %d loans", got)
	}
	if got := len(sink.types()); got != 1 {
		t.Errorf("rejections must not emit events, got %d", got)
	}
	item, _ := lib.FindItem(101)
	if !item.IsAvailable() {
		t.Error("item of a rejected borrow must stay available")
	}
	mustConsistent(t, lib)
}

func TestLibrary_Borrow_ItemUnavailableWins(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)
	_, _ = lib.Borrow(1, 100)

	// the unguarded child would also fail the role gate; availability is checked first
	if _, err := lib.Borrow(5, 100); !errors.Is(err, domain.ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}
}

func TestLibrary_AdultCap(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)

	for id := 100; id < 110; id++ {
		if _, err := lib.Borrow(1, id); err != nil {
			t.Fatalf("borrow %d: %v", id, err)
		}
	}
	if _, err := lib.Borrow(1, 110); !errors.Is(err, domain.ErrLoanCapReached) {
		t.Fatalf("expected ErrLoanCapReached, got %v", err)
	}
	if got := len(lib.Ledger()); got != 10 {
		t.Errorf("expected 10 open loans, got %d", got)
	}
	mustConsistent(t, lib)
}

func TestLibrary_ChildWithGuardian_Cap(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)

	for id := 100; id < 103; id++ {
		if _, err := lib.Borrow(2, id); err != nil {
			t.Fatalf("borrow %d: %v", id, err)
		}
	}
	if _, err := lib.Borrow(2, 103); !errors.Is(err, domain.ErrLoanCapReached) {
		t.Fatalf("expected ErrLoanCapReached, got %v", err)
	}
	fourth, _ := lib.FindItem(103)
	if !fourth.IsAvailable() {
		t.Error("fourth item must remain available")
	}
}

func TestLibrary_LibrarianIsUncapped(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)

	for id := 100; id < 120; id++ {
		if _, err := lib.Borrow(4, id); err != nil {
			t.Fatalf("borrow %d: %v", id, err)
		}
	}
	mustConsistent(t, lib)
}

func TestLibrary_Return_RestoresState(t *testing.T) {
	lib, sink, clk := newTestLibrary(t)
	seed(t, lib)

	_, _ = lib.Borrow(3, 100)
	_, _ = lib.Borrow(3, 101)
	clk.advance(5)

	loan, err := lib.Return(3, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if loan.IsOpen() {
		t.Error("returned loan must be closed")
	}
	item, _ := lib.FindItem(100)
	if !item.IsAvailable() {
		t.Error("returned item must be available")
	}
	own, _ := lib.PatronLoans(3)
	if len(own) != 1 || own[0].Item.ID != 101 {
		t.Errorf("expected only loan on 101 to remain, got %v", own)
	}
	if got := len(lib.Ledger()); got != 1 {
		t.Errorf("expected 1 ledger entry, got %d", got)
	}

	types := sink.types()
	if types[len(types)-1] != domain.LoanClosed {
		t.Errorf("expected loan_closed last, got %v", types)
	}
	mustConsistent(t, lib)
}

func TestLibrary_Return_NotBorrowed(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)
	_, _ = lib.Borrow(1, 100)

	if _, err := lib.Return(3, 100); !errors.Is(err, domain.ErrLoanNotFound) {
		t.Errorf("expected ErrLoanNotFound, got %v", err)
	}
	if _, err := lib.Return(3, 101); !errors.Is(err, domain.ErrLoanNotFound) {
		t.Errorf("expected ErrLoanNotFound for available item, got %v", err)
	}
	item, _ := lib.FindItem(100)
	if item.IsAvailable() {
		t.Error("foreign return must not release the item")
	}
	if got := len(lib.Ledger()); got != 1 {
		t.Errorf("ledger changed on failed return: %d", got)
	}
	mustConsistent(t, lib)
}

func TestLibrary_BorrowReturnBorrow_NewLoanID(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)

	first, _ := lib.Borrow(1, 100)
	_, _ = lib.Return(1, 100)
	second, err := lib.Borrow(3, 100)
	if err != nil {
		t.Fatalf("re-borrow: %v", err)
	}
	if second.ID != first.ID+1 {
		t.Errorf("expected sequential loan ids, got %d then %d", first.ID, second.ID)
	}
}

// ---------------------------------------------------------------------------
// Renew tests
// ---------------------------------------------------------------------------

func TestLibrary_Renew_UsesLoanPolicy(t *testing.T) {
	lib, sink, _ := newTestLibrary(t)
	seed(t, lib)

	loan, _ := lib.Borrow(3, 100) // student: 21 days, 1 renewal
	start := loan.StartDate

	if _, err := lib.Renew(3, 100); err != nil {
		t.Fatalf("first renew: %v", err)
	}
	if want := start.AddDate(0, 0, 42); !loan.DueDate.Equal(want) {
		t.Errorf("due = %v, want %v", loan.DueDate, want)
	}
	if _, err := lib.Renew(3, 100); !errors.Is(err, domain.ErrRenewalLimitReached) {
		t.Fatalf("expected ErrRenewalLimitReached, got %v", err)
	}
	if !errors.Is(domain.ErrRenewalLimitReached, domain.ErrPolicyViolation) {
		t.Error("renewal limit must classify as a policy violation")
	}
	if loan.RenewCount != 1 {
		t.Errorf("renew count = %d, want 1", loan.RenewCount)
	}

	want := []domain.LoanEventType{domain.LoanOpened, domain.LoanRenewed}
	got := sink.types()
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("events = %v, want %v", got, want)
	}
}

func TestLibrary_Renew_ChildNeverRenews(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)
	_, _ = lib.Borrow(2, 100)

	if _, err := lib.Renew(2, 100); !errors.Is(err, domain.ErrRenewalLimitReached) {
		t.Errorf("expected ErrRenewalLimitReached, got %v", err)
	}
}

func TestLibrary_Renew_NoOpenLoan(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)

	if _, err := lib.Renew(1, 100); !errors.Is(err, domain.ErrLoanNotFound) {
		t.Errorf("expected ErrLoanNotFound, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Reporting tests
// ---------------------------------------------------------------------------

func TestLibrary_LoanReport(t *testing.T) {
	lib, _, clk := newTestLibrary(t)
	seed(t, lib)

	if got := lib.LoanReport(); got != "Library Loan Report:\nNo loans currently registered.\n" {
		t.Errorf("empty report = %q", got)
	}

	_, _ = lib.Borrow(1, 100)
	clk.advance(4)

	report := lib.LoanReport()
	if !strings.HasPrefix(report, "Library Loan Report:\n") {
		t.Fatalf("missing header: %q", report)
	}
	wantLine := "Loan #1 | Type: Book | Title: Title 100 | Borrower: John [Adult] | Due: 2026-03-24 | Renewals: 0\n  Reminder: 10 day(s) left\n"
	if !strings.Contains(report, wantLine) {
		t.Errorf("report missing loan line:\n%s", report)
	}
}

func TestLibrary_OverdueLoans(t *testing.T) {
	lib, _, clk := newTestLibrary(t)
	seed(t, lib)

	_, _ = lib.Borrow(2, 100) // child: 7 days
	_, _ = lib.Borrow(1, 101) // adult: 14 days

	clk.advance(8)
	overdue := lib.OverdueLoans(clk.Now())
	if len(overdue) != 1 || overdue[0].Patron.ID != 2 {
		t.Fatalf("expected child's loan overdue, got %v", overdue)
	}
	if got := overdue[0].AccruedFine(clk.Now()).StringFixed(2); got != "0.50" {
		t.Errorf("accrued fine = %s, want 0.50", got)
	}
}

// ---------------------------------------------------------------------------
// Concurrency
// ---------------------------------------------------------------------------

func TestLibrary_ConcurrentBorrowers_OneWinnerPerItem(t *testing.T) {
	lib, _, _ := newTestLibrary(t)
	seed(t, lib)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins = map[int]int{}
	)
	for _, patronID := range []int{1, 3, 4} {
		wg.Add(1)
		go func(pid int) {
			defer wg.Done()
			for id := 100; id < 120; id++ {
				if _, err := lib.Borrow(pid, id); err == nil {
					mu.Lock()
					wins[id]++
					mu.Unlock()
				}
			}
		}(patronID)
	}
	wg.Wait()

	for id, n := range wins {
		if n != 1 {
			t.Errorf("item %d lent %d times", id, n)
		}
	}
	mustConsistent(t, lib)
}
