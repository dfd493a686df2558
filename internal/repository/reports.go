package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmdelacruz/bibliotek/internal/model"
)

var dialect = goqu.Dialect("postgres")

// ReportStore serves the read-only aggregate and listing queries over
// circulation data.
type ReportStore struct {
	pool *pgxpool.Pool
}

// NewReportStore constructs a ReportStore.
func NewReportStore(pool *pgxpool.Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Counts aggregates circulations by status. Overdue is computed from the due
// date here, never read from a stored state. The threshold is the start of
// the current day so the boundary matches DaysLate: due earlier today is not
// overdue yet.
func (s *ReportStore) Counts(ctx context.Context, now time.Time) (*model.ReportCounts, error) {
	query, args, err := dialect.From("circulations").Prepared(true).
		Select(
			goqu.L("COUNT(*) FILTER (WHERE status = ?)", string(model.StatusBorrowed)).As("borrowed"),
			goqu.L("COUNT(*) FILTER (WHERE status = ?)", string(model.StatusReturned)).As("returned"),
			goqu.L("COUNT(*) FILTER (WHERE status = ?)", string(model.StatusLost)).As("lost"),
			goqu.L("COUNT(*) FILTER (WHERE status = ? AND due_date < ?)",
				string(model.StatusBorrowed), model.StartOfDay(now)).As("overdue"),
		).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build counts query: %w", err)
	}
	var counts model.ReportCounts
	row := s.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(&counts.Borrowed, &counts.Returned, &counts.Lost, &counts.Overdue); err != nil {
		return nil, fmt.Errorf("scan counts: %w", err)
	}
	return &counts, nil
}

// PatronTransactions lists one patron's borrowing history flattened to the
// book title, call number, and copy number of each loan, ordered by issue
// date. oldestFirst toggles the sort direction.
func (s *ReportStore) PatronTransactions(ctx context.Context, patronID int64, oldestFirst bool) ([]model.TransactionRow, error) {
	order := goqu.I("c.issue_date").Desc()
	if oldestFirst {
		order = goqu.I("c.issue_date").Asc()
	}
	query, args, err := dialect.From(goqu.T("circulations").As("c")).Prepared(true).
		Join(goqu.T("book_copies").As("bc"), goqu.On(goqu.Ex{"bc.id": goqu.I("c.book_copy_id")})).
		Join(goqu.T("books").As("b"), goqu.On(goqu.Ex{"b.id": goqu.I("bc.book_id")})).
		Where(goqu.Ex{"c.patron_id": patronID}).
		Select(
			goqu.I("c.id"), goqu.I("b.title"), goqu.I("b.call_number"), goqu.I("bc.copy_number"),
			goqu.I("c.status"), goqu.I("c.issue_date"), goqu.I("c.due_date"),
			goqu.I("c.date_returned"), goqu.I("c.fine"),
		).
		Order(order, goqu.I("c.id").Desc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build transactions query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()
	var out []model.TransactionRow
	for rows.Next() {
		var t model.TransactionRow
		err := rows.Scan(&t.CirculationID, &t.BookTitle, &t.CallNumber, &t.CopyNumber,
			&t.Status, &t.DateIssued, &t.DueDate, &t.ReturnDate, &t.Fine)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// PatronStats summarizes one patron's activity plus their full history.
func (s *ReportStore) PatronStats(ctx context.Context, patronID int64, now time.Time) (*model.PatronStats, error) {
	query, args, err := dialect.From("circulations").Prepared(true).
		Where(goqu.Ex{"patron_id": patronID}).
		Select(
			goqu.COUNT(goqu.Star()).As("borrowed"),
			goqu.L("COUNT(*) FILTER (WHERE status = ?)", string(model.StatusReturned)).As("returned"),
			goqu.L("COALESCE(SUM(fine), 0)").As("total_fine"),
			goqu.L("COUNT(*) FILTER (WHERE status != ? AND due_date < ?)",
				string(model.StatusReturned), model.StartOfDay(now)).As("overdue"),
		).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}
	var stats model.PatronStats
	row := s.pool.QueryRow(ctx, query, args...)
	if err := row.Scan(&stats.BorrowedBooks, &stats.ReturnedBooks, &stats.TotalFine, &stats.OverdueBooks); err != nil {
		return nil, fmt.Errorf("scan stats: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+circulationColumns+`
		FROM circulations WHERE patron_id=$1 ORDER BY issue_date DESC, id DESC
	`, patronID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	defer rows.Close()
	stats.History = make([]model.Circulation, 0)
	for rows.Next() {
		c, err := scanCirculation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		stats.History = append(stats.History, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}
	return &stats, nil
}

// OverdueLoan is one open loan past its due date, as seen by the sweep.
type OverdueLoan struct {
	CirculationID int64
	PatronID      int64
	DueDate       time.Time
}

// OverdueLoans lists open loans at least one calendar day past due.
func (s *ReportStore) OverdueLoans(ctx context.Context, now time.Time) ([]OverdueLoan, error) {
	query, args, err := dialect.From("circulations").Prepared(true).
		Select("id", "patron_id", "due_date").
		Where(
			goqu.Ex{"status": string(model.StatusBorrowed)},
			goqu.C("due_date").Lt(model.StartOfDay(now)),
		).
		Order(goqu.C("due_date").Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build overdue query: %w", err)
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list overdue loans: %w", err)
	}
	defer rows.Close()
	var out []OverdueLoan
	for rows.Next() {
		var l OverdueLoan
		if err := rows.Scan(&l.CirculationID, &l.PatronID, &l.DueDate); err != nil {
			return nil, fmt.Errorf("scan overdue loan: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list overdue loans: %w", err)
	}
	return out, nil
}

// RecordOverdueNotice upserts the latest notice for a loan. Notices are an
// audit of the sweep; they never feed back into the stored fine.
func (s *ReportStore) RecordOverdueNotice(ctx context.Context, circulationID int64, daysOverdue int, projectedFine int64, now time.Time) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO overdue_notices (circulation_id, days_overdue, projected_fine, notified_at)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (circulation_id) DO UPDATE
		SET days_overdue = EXCLUDED.days_overdue,
			projected_fine = EXCLUDED.projected_fine,
			notified_at = EXCLUDED.notified_at
	`, circulationID, daysOverdue, projectedFine, now)
	if err != nil {
		return fmt.Errorf("record overdue notice: %w", err)
	}
	return nil
}
