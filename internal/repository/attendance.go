package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jmdelacruz/bibliotek/internal/circulation"
	"github.com/jmdelacruz/bibliotek/internal/model"
)

// ErrAlreadyTimedOut rejects a second time-out on one attendance entry.
var ErrAlreadyTimedOut = errors.New("already timed out")

// AttendanceStore persists the visitor sign-in sheet.
type AttendanceStore struct {
	pool *pgxpool.Pool
}

// NewAttendanceStore constructs an AttendanceStore.
func NewAttendanceStore(pool *pgxpool.Pool) *AttendanceStore {
	return &AttendanceStore{pool: pool}
}

const attendanceColumns = `id, patron_id, first_name, middle_name, last_name, suffix,
	province, city, barangay, email, number, affiliation, purpose_of_visit,
	time_in, time_out, created_at`

// TimeIn records a visitor arrival.
func (s *AttendanceStore) TimeIn(ctx context.Context, a *model.Attendance) error {
	now := time.Now().UTC()
	a.TimeIn = now
	a.CreatedAt = now
	row := s.pool.QueryRow(ctx, `
		INSERT INTO attendance
			(patron_id, first_name, middle_name, last_name, suffix, province, city,
			 barangay, email, number, affiliation, purpose_of_visit, time_in, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING id
	`, a.PatronID, a.FirstName, a.MiddleName, a.LastName, a.Suffix, a.Province, a.City,
		a.Barangay, a.Email, a.Number, a.Affiliation, a.PurposeOfVisit, a.TimeIn, a.CreatedAt)
	if err := row.Scan(&a.ID); err != nil {
		return fmt.Errorf("insert attendance: %w", err)
	}
	return nil
}

// TimeOut stamps a visitor departure. The update is conditional on the
// time-out still being unset, so of two concurrent requests exactly one
// stamps the row and the other is rejected.
func (s *AttendanceStore) TimeOut(ctx context.Context, id int64) (*model.Attendance, error) {
	now := time.Now().UTC()
	tag, err := s.pool.Exec(ctx,
		`UPDATE attendance SET time_out=$1 WHERE id=$2 AND time_out IS NULL`, now, id)
	if err != nil {
		return nil, fmt.Errorf("update attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Missing row or already stamped; Get distinguishes the two.
		if _, err := s.Get(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrAlreadyTimedOut
	}
	return s.Get(ctx, id)
}

// Get returns one attendance entry.
func (s *AttendanceStore) Get(ctx context.Context, id int64) (*model.Attendance, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+attendanceColumns+` FROM attendance WHERE id=$1`, id)
	a, err := scanAttendance(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: attendance %d", circulation.ErrNotFound, id)
		}
		return nil, fmt.Errorf("select attendance: %w", err)
	}
	return a, nil
}

// List returns all attendance entries, newest first.
func (s *AttendanceStore) List(ctx context.Context) ([]model.Attendance, error) {
	return s.list(ctx, `SELECT `+attendanceColumns+` FROM attendance ORDER BY created_at DESC`)
}

// Today returns entries whose time-in falls on the given day (UTC).
func (s *AttendanceStore) Today(ctx context.Context, now time.Time) ([]model.Attendance, error) {
	y, m, d := now.UTC().Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return s.list(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE time_in >= $1 AND time_in < $2
		ORDER BY time_in DESC
	`, start, start.AddDate(0, 0, 1))
}

// PatronLogs returns the attendance trail of one registered patron.
func (s *AttendanceStore) PatronLogs(ctx context.Context, patronID int64) ([]model.Attendance, error) {
	return s.list(ctx, `
		SELECT `+attendanceColumns+` FROM attendance
		WHERE patron_id = $1
		ORDER BY time_in DESC
	`, patronID)
}

func (s *AttendanceStore) list(ctx context.Context, query string, args ...any) ([]model.Attendance, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()
	var out []model.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	return out, nil
}

func scanAttendance(row rowScanner) (*model.Attendance, error) {
	var a model.Attendance
	err := row.Scan(&a.ID, &a.PatronID, &a.FirstName, &a.MiddleName, &a.LastName, &a.Suffix,
		&a.Province, &a.City, &a.Barangay, &a.Email, &a.Number, &a.Affiliation,
		&a.PurposeOfVisit, &a.TimeIn, &a.TimeOut, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
