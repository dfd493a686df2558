// Package circulation implements the loan state machine: borrowing,
// returning, renewing, and marking copies lost, together with due-date and
// fine computation. All status transitions of a book copy go through here.
package circulation

import (
	"context"
	"fmt"
	"time"

	"github.com/jmdelacruz/bibliotek/internal/model"
)

// Clock returns the current time. Injected so tests can pin "now".
type Clock func() time.Time

// Engine orchestrates loan operations over a transactional Store, reading
// policy values fresh at the start of each operation.
type Engine struct {
	store    Store
	policies Policies
	now      Clock
}

// NewEngine constructs an Engine. A nil clock defaults to time.Now.
func NewEngine(store Store, policies Policies, clock Clock) *Engine {
	if clock == nil {
		clock = time.Now
	}
	return &Engine{store: store, policies: policies, now: clock}
}

// Borrow opens a loan for a copy and a patron identified by their public
// code. The availability check and both row mutations run in one
// transaction, so two concurrent borrows of the same copy cannot both
// succeed.
func (e *Engine) Borrow(ctx context.Context, bookCopyID int64, patronPublicID string) (*model.Circulation, error) {
	loanDays, err := e.policies.LoanDays(ctx)
	if err != nil {
		return nil, err
	}
	var out *model.Circulation
	err = e.store.InTx(ctx, func(tx Tx) error {
		patron, err := tx.PatronByPublicID(ctx, patronPublicID)
		if err != nil {
			return err
		}
		if patron.Status != model.PatronActive {
			return fmt.Errorf("%w: patron %s is %s", ErrPatronIneligible, patron.PatronID, patron.Status)
		}
		cp, err := tx.CopyForUpdate(ctx, bookCopyID)
		if err != nil {
			return err
		}
		if cp.Status != model.CopyAvailable {
			return fmt.Errorf("%w: copy %s is %s", ErrCopyUnavailable, cp.AccessionNumber, cp.Status)
		}
		now := e.now()
		c := &model.Circulation{
			BookCopyID: cp.ID,
			PatronID:   patron.ID,
			IssueDate:  now,
			DueDate:    now.AddDate(0, 0, loanDays),
			Status:     model.StatusBorrowed,
		}
		if err := tx.CreateCirculation(ctx, c); err != nil {
			return err
		}
		if err := tx.SetCopyStatus(ctx, cp.ID, model.CopyBorrowed); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Return closes an open loan. Overdue days and the fine are computed from
// the due date, and only the returned copy goes back to available; sibling
// copies of the same book are untouched.
func (e *Engine) Return(ctx context.Context, circulationID int64) (*model.Circulation, error) {
	fineRate, err := e.policies.FinePerDay(ctx)
	if err != nil {
		return nil, err
	}
	var out *model.Circulation
	err = e.store.InTx(ctx, func(tx Tx) error {
		c, err := tx.CirculationForUpdate(ctx, circulationID)
		if err != nil {
			return err
		}
		if c.Status != model.StatusBorrowed {
			return fmt.Errorf("%w (status is %s)", ErrNotCurrentlyBorrowed, c.Status)
		}
		now := e.now()
		overdueBy := model.DaysLate(c.DueDate, now)
		c.OverdueBy = overdueBy
		c.Fine = int64(overdueBy) * int64(fineRate)
		c.DateReturned = &now
		c.Status = model.StatusReturned
		if err := tx.UpdateCirculation(ctx, c); err != nil {
			return err
		}
		if err := tx.SetCopyStatus(ctx, c.BookCopyID, model.CopyAvailable); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Renew extends an open loan. An on-time renewal extends the due date from
// the existing one with no added fine; an overdue renewal accrues the fine
// for the late days and restarts the clock from the renewal moment. The
// fine is cumulative across renewals, never reset.
func (e *Engine) Renew(ctx context.Context, circulationID int64) (*model.Circulation, error) {
	loanDays, err := e.policies.LoanDays(ctx)
	if err != nil {
		return nil, err
	}
	fineRate, err := e.policies.FinePerDay(ctx)
	if err != nil {
		return nil, err
	}
	limit, err := e.policies.RenewalLimit(ctx)
	if err != nil {
		return nil, err
	}
	var out *model.Circulation
	err = e.store.InTx(ctx, func(tx Tx) error {
		c, err := tx.CirculationForUpdate(ctx, circulationID)
		if err != nil {
			return err
		}
		if c.Status != model.StatusBorrowed {
			return fmt.Errorf("%w (status is %s)", ErrNotCurrentlyBorrowed, c.Status)
		}
		if c.RenewalCount >= limit {
			return fmt.Errorf("%w (%d of %d renewals used)", ErrRenewalLimitReached, c.RenewalCount, limit)
		}
		now := e.now()
		if late := model.DaysLate(c.DueDate, now); late > 0 {
			c.OverdueBy = late
			c.Fine += int64(late) * int64(fineRate)
			c.DueDate = now.AddDate(0, 0, loanDays)
		} else {
			c.OverdueBy = 0
			c.DueDate = c.DueDate.AddDate(0, 0, loanDays)
		}
		c.RenewalDate = &now
		c.RenewalCount++
		if err := tx.UpdateCirculation(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// MarkLost flags an open loan's copy as lost. The accrued fine is left
// untouched; replacement charges are handled outside the system.
func (e *Engine) MarkLost(ctx context.Context, circulationID int64) (*model.Circulation, error) {
	var out *model.Circulation
	err := e.store.InTx(ctx, func(tx Tx) error {
		c, err := tx.CirculationForUpdate(ctx, circulationID)
		if err != nil {
			return err
		}
		if c.Status != model.StatusBorrowed {
			return fmt.Errorf("%w (status is %s)", ErrNotCurrentlyBorrowed, c.Status)
		}
		c.Status = model.StatusLost
		if err := tx.UpdateCirculation(ctx, c); err != nil {
			return err
		}
		if err := tx.SetCopyStatus(ctx, c.BookCopyID, model.CopyLost); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
