package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmdelacruz/bibliotek/internal/circulation"
	"github.com/jmdelacruz/bibliotek/internal/model"
)

// PatronStore persists registered library members.
type PatronStore struct {
	pool *pgxpool.Pool
}

// NewPatronStore constructs a PatronStore.
func NewPatronStore(pool *pgxpool.Pool) *PatronStore {
	return &PatronStore{pool: pool}
}

const patronColumns = `id, patron_id, first_name, middle_name, last_name, suffix,
	email, barangay, city, province, number, status, age, notes, created_at`

// Create inserts a patron. A missing public code is generated; a missing
// status defaults to Active.
func (s *PatronStore) Create(ctx context.Context, p *model.Patron) error {
	if p.PatronID == "" {
		code, err := s.GenerateID(ctx)
		if err != nil {
			return err
		}
		p.PatronID = code
	}
	if p.Status == "" {
		p.Status = model.PatronActive
	}
	p.CreatedAt = time.Now().UTC()
	row := s.pool.QueryRow(ctx, `
		INSERT INTO patrons
			(patron_id, first_name, middle_name, last_name, suffix, email,
			 barangay, city, province, number, status, age, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id
	`, p.PatronID, p.FirstName, p.MiddleName, p.LastName, p.Suffix, p.Email,
		p.Barangay, p.City, p.Province, p.Number, p.Status, p.Age, p.Notes, p.CreatedAt)
	if err := row.Scan(&p.ID); err != nil {
		return fmt.Errorf("insert patron: %w", err)
	}
	return nil
}

// GenerateID produces an unused public patron code of the form P#####.
func (s *PatronStore) GenerateID(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 100; attempt++ {
		code := fmt.Sprintf("P%05d", rand.Intn(99999)+1)
		var exists bool
		row := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM patrons WHERE patron_id=$1)`, code)
		if err := row.Scan(&exists); err != nil {
			return "", fmt.Errorf("check patron id: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", errors.New("exhausted attempts generating a unique patron id")
}

// Get returns a patron by internal id.
func (s *PatronStore) Get(ctx context.Context, id int64) (*model.Patron, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+patronColumns+` FROM patrons WHERE id=$1`, id)
	return scanPatron(row, fmt.Sprintf("patron %d", id))
}

// ByPublicID returns a patron by their public code.
func (s *PatronStore) ByPublicID(ctx context.Context, publicID string) (*model.Patron, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+patronColumns+` FROM patrons WHERE patron_id=$1`, publicID)
	return scanPatron(row, "patron "+publicID)
}

// List returns all patrons ordered by registration.
func (s *PatronStore) List(ctx context.Context) ([]model.Patron, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+patronColumns+` FROM patrons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list patrons: %w", err)
	}
	defer rows.Close()
	var out []model.Patron
	for rows.Next() {
		p, err := scanPatron(rows, "patron")
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list patrons: %w", err)
	}
	return out, nil
}

// Update rewrites the mutable fields of a patron record.
func (s *PatronStore) Update(ctx context.Context, p *model.Patron) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE patrons
		SET first_name=$1, middle_name=$2, last_name=$3, suffix=$4, email=$5,
			barangay=$6, city=$7, province=$8, number=$9, status=$10, age=$11, notes=$12
		WHERE id=$13
	`, p.FirstName, p.MiddleName, p.LastName, p.Suffix, p.Email,
		p.Barangay, p.City, p.Province, p.Number, p.Status, p.Age, p.Notes, p.ID)
	if err != nil {
		return fmt.Errorf("update patron: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: patron %d", circulation.ErrNotFound, p.ID)
	}
	return nil
}

// Delete removes a patron record.
func (s *PatronStore) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM patrons WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete patron: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: patron %d", circulation.ErrNotFound, id)
	}
	return nil
}

// Deactivate sets a patron's status to Deactivated.
func (s *PatronStore) Deactivate(ctx context.Context, id int64) (*model.Patron, error) {
	tag, err := s.pool.Exec(ctx, `UPDATE patrons SET status=$1 WHERE id=$2`,
		model.PatronDeactivated, id)
	if err != nil {
		return nil, fmt.Errorf("deactivate patron: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, fmt.Errorf("%w: patron %d", circulation.ErrNotFound, id)
	}
	return s.Get(ctx, id)
}

func scanPatron(row rowScanner, what string) (*model.Patron, error) {
	var p model.Patron
	err := row.Scan(&p.ID, &p.PatronID, &p.FirstName, &p.MiddleName, &p.LastName, &p.Suffix,
		&p.Email, &p.Barangay, &p.City, &p.Province, &p.Number, &p.Status, &p.Age,
		&p.Notes, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", circulation.ErrNotFound, what)
		}
		return nil, fmt.Errorf("select patron: %w", err)
	}
	return &p, nil
}
