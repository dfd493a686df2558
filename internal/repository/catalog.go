package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmdelacruz/bibliotek/internal/circulation"
	"github.com/jmdelacruz/bibliotek/internal/model"
)

// CatalogStore persists books and their physical copies.
type CatalogStore struct {
	pool *pgxpool.Pool
}

// NewCatalogStore constructs a CatalogStore.
func NewCatalogStore(pool *pgxpool.Pool) *CatalogStore {
	return &CatalogStore{pool: pool}
}

// CreateBook inserts a book and its initial copies in one transaction.
// Copy numbers are a per-book sequence; accession numbers continue the
// global sequence, padded to 5 digits. The MAX() read and the inserts share
// the transaction so concurrent accessions cannot collide.
func (s *CatalogStore) CreateBook(ctx context.Context, b *model.Book, copies int) error {
	if copies < 1 {
		copies = 1
	}
	b.CallNumber = model.BuildCallNumber(b.Section, b.DeweyDecimal, b.AuthorNumber, b.Copyright)
	b.CreatedAt = time.Now().UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx, `
		INSERT INTO books
			(title, author, isbn, publisher, copyright, section, dewey_decimal,
			 author_number, call_number, source, source_person, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id
	`, b.Title, b.Author, b.ISBN, b.Publisher, b.Copyright, b.Section, b.DeweyDecimal,
		b.AuthorNumber, b.CallNumber, b.Source, b.SourcePerson, b.CreatedAt)
	if err := row.Scan(&b.ID); err != nil {
		return fmt.Errorf("insert book: %w", err)
	}

	var lastAccession int
	row = tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(CAST(accession_number AS INTEGER)), 0) FROM book_copies
	`)
	if err := row.Scan(&lastAccession); err != nil {
		return fmt.Errorf("read accession sequence: %w", err)
	}

	b.Copies = make([]model.BookCopy, 0, copies)
	for i := 1; i <= copies; i++ {
		cp := model.BookCopy{
			BookID:          b.ID,
			AccessionNumber: model.FormatAccession(lastAccession + i),
			Barcode:         newBarcode(),
			CopyNumber:      i,
			Status:          model.CopyAvailable,
			DateAdded:       b.CreatedAt,
		}
		row := tx.QueryRow(ctx, `
			INSERT INTO book_copies
				(book_id, accession_number, barcode, copy_number, status, date_added)
			VALUES ($1,$2,$3,$4,$5,$6)
			RETURNING id
		`, cp.BookID, cp.AccessionNumber, cp.Barcode, cp.CopyNumber, cp.Status, cp.DateAdded)
		if err := row.Scan(&cp.ID); err != nil {
			return fmt.Errorf("insert book copy: %w", err)
		}
		b.Copies = append(b.Copies, cp)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// newBarcode generates a unique copy barcode in the "BC" + hex form the
// labels are printed with.
func newBarcode() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "BC" + strings.ToUpper(hex[:13])
}

// Get returns a book with its copies.
func (s *CatalogStore) Get(ctx context.Context, id int64) (*model.Book, error) {
	var b model.Book
	row := s.pool.QueryRow(ctx, `
		SELECT id, title, author, isbn, publisher, copyright, section, dewey_decimal,
			author_number, call_number, source, source_person, created_at
		FROM books WHERE id=$1
	`, id)
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Publisher, &b.Copyright,
		&b.Section, &b.DeweyDecimal, &b.AuthorNumber, &b.CallNumber, &b.Source,
		&b.SourcePerson, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: book %d", circulation.ErrNotFound, id)
		}
		return nil, fmt.Errorf("select book: %w", err)
	}
	copies, err := s.copiesForBooks(ctx, []int64{b.ID})
	if err != nil {
		return nil, err
	}
	b.Copies = copies[b.ID]
	return &b, nil
}

// List returns all books with their copies.
func (s *CatalogStore) List(ctx context.Context) ([]model.Book, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, title, author, isbn, publisher, copyright, section, dewey_decimal,
			author_number, call_number, source, source_person, created_at
		FROM books ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	defer rows.Close()

	var books []model.Book
	var ids []int64
	for rows.Next() {
		var b model.Book
		err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Publisher, &b.Copyright,
			&b.Section, &b.DeweyDecimal, &b.AuthorNumber, &b.CallNumber, &b.Source,
			&b.SourcePerson, &b.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, b)
		ids = append(ids, b.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	copies, err := s.copiesForBooks(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range books {
		books[i].Copies = copies[books[i].ID]
	}
	return books, nil
}

func (s *CatalogStore) copiesForBooks(ctx context.Context, bookIDs []int64) (map[int64][]model.BookCopy, error) {
	out := make(map[int64][]model.BookCopy)
	if len(bookIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, book_id, accession_number, barcode, copy_number, status, date_added
		FROM book_copies WHERE book_id = ANY($1) ORDER BY book_id, copy_number
	`, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("list copies: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var cp model.BookCopy
		err := rows.Scan(&cp.ID, &cp.BookID, &cp.AccessionNumber, &cp.Barcode,
			&cp.CopyNumber, &cp.Status, &cp.DateAdded)
		if err != nil {
			return nil, fmt.Errorf("scan copy: %w", err)
		}
		out[cp.BookID] = append(out[cp.BookID], cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list copies: %w", err)
	}
	return out, nil
}

// CopyByBarcode resolves a scanned barcode to the copy and its book.
func (s *CatalogStore) CopyByBarcode(ctx context.Context, barcode string) (*model.BookCopy, *model.Book, error) {
	var (
		cp model.BookCopy
		b  model.Book
	)
	row := s.pool.QueryRow(ctx, `
		SELECT bc.id, bc.book_id, bc.accession_number, bc.barcode, bc.copy_number,
			bc.status, bc.date_added,
			b.id, b.title, b.author, b.call_number, b.section, b.dewey_decimal
		FROM book_copies bc
		JOIN books b ON b.id = bc.book_id
		WHERE bc.barcode=$1
	`, barcode)
	err := row.Scan(&cp.ID, &cp.BookID, &cp.AccessionNumber, &cp.Barcode, &cp.CopyNumber,
		&cp.Status, &cp.DateAdded,
		&b.ID, &b.Title, &b.Author, &b.CallNumber, &b.Section, &b.DeweyDecimal)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("%w: barcode %s", circulation.ErrNotFound, barcode)
		}
		return nil, nil, fmt.Errorf("select copy by barcode: %w", err)
	}
	return &cp, &b, nil
}
