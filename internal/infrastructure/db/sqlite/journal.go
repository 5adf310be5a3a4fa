// Package sqlite keeps a local append-only copy of the loan event journal.
package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/jmoiron/sqlx"

	"github.com/univlib/lending-system/internal/core/domain"
	"github.com/univlib/lending-system/internal/core/ports"

	_ "modernc.org/sqlite"
)

const (
	tableLoanEvents = "loan_events"
	dialectSQLite   = "sqlite3"

	// Fixed width so that occurred_at sorts lexically in time order.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

var builder = goqu.Dialect(dialectSQLite)

// Journal records loan events in a SQLite database opened in WAL mode.
type Journal struct {
	db *sqlx.DB
}

var (
	_ ports.LoanJournal  = (*Journal)(nil)
	_ ports.LoanIDSource = (*Journal)(nil)
	_ ports.LoanHistory  = (*Journal)(nil)
)

type eventRow struct {
	ID         string `db:"id"`
	Type       string `db:"type"`
	LoanID     int    `db:"loan_id"`
	PatronID   int    `db:"patron_id"`
	PatronRole string `db:"patron_role"`
	ItemID     int    `db:"item_id"`
	DueDate    string `db:"due_date"`
	RenewCount int    `db:"renew_count"`
	OccurredAt string `db:"occurred_at"`
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Journal, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: migrate: %w", err)
	}
	return j, nil
}

func (j *Journal) Close() error { return j.db.Close() }

func (j *Journal) Ping(ctx context.Context) error { return j.db.PingContext(ctx) }

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS loan_events (
		id          TEXT PRIMARY KEY,
		type        TEXT NOT NULL,
		loan_id     INTEGER NOT NULL,
		patron_id   INTEGER NOT NULL,
		patron_role TEXT NOT NULL,
		item_id     INTEGER NOT NULL,
		due_date    TEXT NOT NULL,
		renew_count INTEGER NOT NULL DEFAULT 0,
		occurred_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_loan_events_loan ON loan_events(loan_id);
	CREATE INDEX IF NOT EXISTS idx_loan_events_patron ON loan_events(patron_id, occurred_at);
	`
	_, err := j.db.Exec(schema)
	return err
}

func (j *Journal) Name() string { return "sqlite" }

// Record appends the event. Replaying an event id already stored is a no-op.
func (j *Journal) Record(ctx context.Context, event domain.LoanEvent) error {
	query, args, err := builder.
		Insert(tableLoanEvents).
		Rows(toRow(event)).
		OnConflict(goqu.DoNothing()).
		Prepared(true).
		ToSQL()
	if err != nil {
		return fmt.Errorf("sqlite: build insert: %w", err)
	}
	if _, err := j.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("sqlite: record loan event: %w", err)
	}
	return nil
}

// MaxLoanID returns the highest loan id recorded, or 0 for an empty journal.
func (j *Journal) MaxLoanID(ctx context.Context) (int, error) {
	query, args, err := builder.
		From(tableLoanEvents).
		Select(goqu.COALESCE(goqu.MAX("loan_id"), 0)).
		ToSQL()
	if err != nil {
		return 0, fmt.Errorf("sqlite: build max query: %w", err)
	}
	var maxID int
	if err := j.db.GetContext(ctx, &maxID, query, args...); err != nil {
		return 0, fmt.Errorf("sqlite: max loan id: %w", err)
	}
	return maxID, nil
}

// EventsForPatron returns a patron's loan events, oldest first.
func (j *Journal) EventsForPatron(ctx context.Context, patronID int) ([]domain.LoanEvent, error) {
	query, args, err := builder.
		From(tableLoanEvents).
		Select("id", "type", "loan_id", "patron_id", "patron_role", "item_id", "due_date", "renew_count", "occurred_at").
		Where(goqu.C("patron_id").Eq(patronID)).
		Order(goqu.I("occurred_at").Asc(), goqu.I("rowid").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build select: %w", err)
	}

	var rows []eventRow
	if err := j.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("sqlite: patron events: %w", err)
	}

	events := make([]domain.LoanEvent, 0, len(rows))
	for _, r := range rows {
		e, err := r.toDomain()
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, nil
}

func toRow(e domain.LoanEvent) eventRow {
	return eventRow{
		ID:         e.ID,
		Type:       string(e.Type),
		LoanID:     e.LoanID,
		PatronID:   e.PatronID,
		PatronRole: string(e.PatronRole),
		ItemID:     e.ItemID,
		DueDate:    e.DueDate.UTC().Format(timeLayout),
		RenewCount: e.RenewCount,
		OccurredAt: e.OccurredAt.UTC().Format(timeLayout),
	}
}

func (r eventRow) toDomain() (domain.LoanEvent, error) {
	due, err := time.Parse(timeLayout, r.DueDate)
	if err != nil {
		return domain.LoanEvent{}, fmt.Errorf("sqlite: event %s: due_date: %w", r.ID, err)
	}
	at, err := time.Parse(timeLayout, r.OccurredAt)
	if err != nil {
		return domain.LoanEvent{}, fmt.Errorf("sqlite: event %s: occurred_at: %w", r.ID, err)
	}
	return domain.LoanEvent{
		ID:         r.ID,
		Type:       domain.LoanEventType(r.Type),
		LoanID:     r.LoanID,
		PatronID:   r.PatronID,
		PatronRole: domain.Role(r.PatronRole),
		ItemID:     r.ItemID,
		DueDate:    due,
		RenewCount: r.RenewCount,
		OccurredAt: at,
	}, nil
}
