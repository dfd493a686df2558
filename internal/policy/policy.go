// Package policy holds the admin-configurable numeric settings that govern
// loan behavior. Reads always succeed by substituting hardcoded defaults;
// writes are range-checked before they are persisted.
package policy

import (
	"context"
	"errors"
	"fmt"
)

// ErrOutOfRange marks a write rejected by a setting's valid range.
var ErrOutOfRange = errors.New("setting value out of range")

// Setting describes one configurable value, its default, and its valid range.
type Setting struct {
	Key     string
	Default int
	Min     int
	Max     int
}

var (
	LoanDays        = Setting{Key: "default_loan_days", Default: 5, Min: 1, Max: 60}
	FinePerDay      = Setting{Key: "fine_per_day", Default: 5, Min: 1, Max: 100}
	RenewalLimit    = Setting{Key: "renewal_limit", Default: 2, Min: 1, Max: 10}
	ExpirationYears = Setting{Key: "patron_expiration_years", Default: 3, Min: 1, Max: 10}
)

// Store persists raw key/value pairs. The bool result of Get reports whether
// the key was present.
type Store interface {
	Get(ctx context.Context, key string) (int, bool, error)
	Set(ctx context.Context, key string, value int) error
}

// Service reads and writes settings on top of a Store. It is injected into
// the circulation engine rather than accessed as a singleton so every
// operation reads fresh values.
type Service struct {
	store Store
}

// NewService constructs a Service.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Get returns the stored value for a setting, or its default when absent.
func (s *Service) Get(ctx context.Context, setting Setting) (int, error) {
	v, ok, err := s.store.Get(ctx, setting.Key)
	if err != nil {
		return 0, fmt.Errorf("get setting %s: %w", setting.Key, err)
	}
	if !ok {
		return setting.Default, nil
	}
	return v, nil
}

// Set validates the value against the setting's range and persists it.
func (s *Service) Set(ctx context.Context, setting Setting, value int) error {
	if value < setting.Min || value > setting.Max {
		return fmt.Errorf("%w: %s must be between %d and %d",
			ErrOutOfRange, setting.Key, setting.Min, setting.Max)
	}
	if err := s.store.Set(ctx, setting.Key, value); err != nil {
		return fmt.Errorf("set setting %s: %w", setting.Key, err)
	}
	return nil
}

// LoanDays returns the configured loan period in days.
func (s *Service) LoanDays(ctx context.Context) (int, error) {
	return s.Get(ctx, LoanDays)
}

// FinePerDay returns the configured fine rate per overdue day.
func (s *Service) FinePerDay(ctx context.Context) (int, error) {
	return s.Get(ctx, FinePerDay)
}

// RenewalLimit returns the maximum number of renewals per loan.
func (s *Service) RenewalLimit(ctx context.Context) (int, error) {
	return s.Get(ctx, RenewalLimit)
}

// ExpirationYears returns the membership validity period in years.
func (s *Service) ExpirationYears(ctx context.Context) (int, error) {
	return s.Get(ctx, ExpirationYears)
}
