// Package repository wraps all SQL used throughout the API and worker.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmdelacruz/bibliotek/internal/circulation"
	"github.com/jmdelacruz/bibliotek/internal/model"
)

// CirculationStore is the Postgres implementation of circulation.Store plus
// the read-side queries for circulation records.
type CirculationStore struct {
	pool *pgxpool.Pool
}

// NewCirculationStore constructs a CirculationStore.
func NewCirculationStore(pool *pgxpool.Pool) *CirculationStore {
	return &CirculationStore{pool: pool}
}

// InTx runs fn inside a database transaction, rolling back on error.
func (s *CirculationStore) InTx(ctx context.Context, fn func(tx circulation.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(&pgxTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// pgxTx adapts a pgx transaction to the circulation.Tx interface.
type pgxTx struct {
	tx pgx.Tx
}

const circulationColumns = `id, book_copy_id, patron_id, issue_date, due_date,
	renewal_date, renewal_count, overdue_by, fine, date_returned, status`

// CopyForUpdate loads a copy row and locks it for the rest of the
// transaction. The lock is what makes concurrent borrows of one copy
// serialize instead of both passing the availability check.
func (t *pgxTx) CopyForUpdate(ctx context.Context, id int64) (*model.BookCopy, error) {
	var cp model.BookCopy
	row := t.tx.QueryRow(ctx, `
		SELECT id, book_id, accession_number, barcode, copy_number, status, date_added
		FROM book_copies WHERE id=$1
		FOR UPDATE
	`, id)
	err := row.Scan(&cp.ID, &cp.BookID, &cp.AccessionNumber, &cp.Barcode,
		&cp.CopyNumber, &cp.Status, &cp.DateAdded)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: book copy %d", circulation.ErrNotFound, id)
		}
		return nil, fmt.Errorf("select book copy: %w", err)
	}
	return &cp, nil
}

func (t *pgxTx) SetCopyStatus(ctx context.Context, id int64, status model.CopyStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE book_copies SET status=$1 WHERE id=$2`, status, id)
	if err != nil {
		return fmt.Errorf("update copy status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: book copy %d", circulation.ErrNotFound, id)
	}
	return nil
}

func (t *pgxTx) PatronByPublicID(ctx context.Context, publicID string) (*model.Patron, error) {
	var p model.Patron
	row := t.tx.QueryRow(ctx, `
		SELECT id, patron_id, first_name, last_name, status, created_at
		FROM patrons WHERE patron_id=$1
	`, publicID)
	if err := row.Scan(&p.ID, &p.PatronID, &p.FirstName, &p.LastName, &p.Status, &p.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: patron %s", circulation.ErrNotFound, publicID)
		}
		return nil, fmt.Errorf("select patron: %w", err)
	}
	return &p, nil
}

func (t *pgxTx) CreateCirculation(ctx context.Context, c *model.Circulation) error {
	row := t.tx.QueryRow(ctx, `
		INSERT INTO circulations
			(book_copy_id, patron_id, issue_date, due_date, renewal_count, overdue_by, fine, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING id
	`, c.BookCopyID, c.PatronID, c.IssueDate, c.DueDate, c.RenewalCount, c.OverdueBy, c.Fine, c.Status)
	if err := row.Scan(&c.ID); err != nil {
		return fmt.Errorf("insert circulation: %w", err)
	}
	return nil
}

func (t *pgxTx) CirculationForUpdate(ctx context.Context, id int64) (*model.Circulation, error) {
	row := t.tx.QueryRow(ctx, `
		SELECT `+circulationColumns+`
		FROM circulations WHERE id=$1
		FOR UPDATE
	`, id)
	c, err := scanCirculation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: circulation %d", circulation.ErrNotFound, id)
		}
		return nil, fmt.Errorf("select circulation: %w", err)
	}
	return c, nil
}

func (t *pgxTx) UpdateCirculation(ctx context.Context, c *model.Circulation) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE circulations
		SET due_date=$1, renewal_date=$2, renewal_count=$3, overdue_by=$4,
			fine=$5, date_returned=$6, status=$7
		WHERE id=$8
	`, c.DueDate, c.RenewalDate, c.RenewalCount, c.OverdueBy, c.Fine, c.DateReturned, c.Status, c.ID)
	if err != nil {
		return fmt.Errorf("update circulation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: circulation %d", circulation.ErrNotFound, c.ID)
	}
	return nil
}

// Get returns one circulation record by id.
func (s *CirculationStore) Get(ctx context.Context, id int64) (*model.Circulation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+circulationColumns+`
		FROM circulations WHERE id=$1
	`, id)
	c, err := scanCirculation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: circulation %d", circulation.ErrNotFound, id)
		}
		return nil, fmt.Errorf("select circulation: %w", err)
	}
	return c, nil
}

// List returns every circulation record with its copy, book, and patron
// summary embedded, newest first.
func (s *CirculationStore) List(ctx context.Context) ([]model.Circulation, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT c.id, c.book_copy_id, c.patron_id, c.issue_date, c.due_date,
			c.renewal_date, c.renewal_count, c.overdue_by, c.fine, c.date_returned, c.status,
			bc.accession_number, bc.barcode, bc.copy_number, bc.status,
			b.id, b.title, b.call_number,
			p.patron_id, p.first_name, p.last_name, p.status
		FROM circulations c
		JOIN book_copies bc ON bc.id = c.book_copy_id
		JOIN books b ON b.id = bc.book_id
		JOIN patrons p ON p.id = c.patron_id
		ORDER BY c.issue_date DESC, c.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list circulations: %w", err)
	}
	defer rows.Close()

	var out []model.Circulation
	for rows.Next() {
		var (
			c  model.Circulation
			cp model.BookCopy
			b  model.Book
			p  model.Patron
		)
		err := rows.Scan(&c.ID, &c.BookCopyID, &c.PatronID, &c.IssueDate, &c.DueDate,
			&c.RenewalDate, &c.RenewalCount, &c.OverdueBy, &c.Fine, &c.DateReturned, &c.Status,
			&cp.AccessionNumber, &cp.Barcode, &cp.CopyNumber, &cp.Status,
			&b.ID, &b.Title, &b.CallNumber,
			&p.PatronID, &p.FirstName, &p.LastName, &p.Status)
		if err != nil {
			return nil, fmt.Errorf("scan circulation: %w", err)
		}
		cp.ID = c.BookCopyID
		cp.BookID = b.ID
		p.ID = c.PatronID
		c.Copy = &cp
		c.Book = &b
		c.Patron = &p
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list circulations: %w", err)
	}
	return out, nil
}

// rowScanner covers both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCirculation(row rowScanner) (*model.Circulation, error) {
	var c model.Circulation
	err := row.Scan(&c.ID, &c.BookCopyID, &c.PatronID, &c.IssueDate, &c.DueDate,
		&c.RenewalDate, &c.RenewalCount, &c.OverdueBy, &c.Fine, &c.DateReturned, &c.Status)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
