package circulation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmdelacruz/bibliotek/internal/circulation"
	"github.com/jmdelacruz/bibliotek/internal/model"
	"github.com/jmdelacruz/bibliotek/internal/policy"
	"github.com/jmdelacruz/bibliotek/internal/storage"
)

// day returns a fixed point in time n days after the test epoch.
func day(n int) time.Time {
	return time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type fixture struct {
	store    *storage.MemoryStore
	clock    *fakeClock
	engine   *circulation.Engine
	policies *policy.Service
	copyID   int64
	patronID string
}

// newFixture seeds one available copy and one active patron with
// loan_days=5, fine_per_day=10, renewal_limit=2.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	policies := policy.NewService(policy.NewMemoryStore())
	require.NoError(t, policies.Set(ctx, policy.LoanDays, 5))
	require.NoError(t, policies.Set(ctx, policy.FinePerDay, 10))
	require.NoError(t, policies.Set(ctx, policy.RenewalLimit, 2))

	clock := &fakeClock{now: day(0)}
	copyID := store.AddCopy(model.BookCopy{AccessionNumber: "00001", Barcode: "BC1", CopyNumber: 1})
	store.AddPatron(model.Patron{PatronID: "P00001", FirstName: "Ana", LastName: "Reyes"})

	return &fixture{
		store:    store,
		clock:    clock,
		engine:   circulation.NewEngine(store, policies, clock.Now),
		policies: policies,
		copyID:   copyID,
		patronID: "P00001",
	}
}

func TestBorrow(t *testing.T) {
	ctx := context.Background()

	t.Run("creates_loan_and_marks_copy_borrowed", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.engine.Borrow(ctx, f.copyID, f.patronID)
		require.NoError(t, err)

		assert.Equal(t, model.StatusBorrowed, c.Status)
		assert.Equal(t, day(0), c.IssueDate)
		assert.Equal(t, day(5), c.DueDate)
		assert.Equal(t, 0, c.RenewalCount)
		assert.Equal(t, 0, c.OverdueBy)
		assert.Equal(t, int64(0), c.Fine)

		cp, ok := f.store.Copy(f.copyID)
		require.True(t, ok)
		assert.Equal(t, model.CopyBorrowed, cp.Status)
	})

	t.Run("rejects_ineligible_patrons", func(t *testing.T) {
		for _, status := range []model.PatronStatus{model.PatronDeactivated, model.PatronBlocked} {
			f := newFixture(t)
			f.store.AddPatron(model.Patron{PatronID: "P00002", Status: status})

			_, err := f.engine.Borrow(ctx, f.copyID, "P00002")
			assert.ErrorIs(t, err, circulation.ErrPatronIneligible, "status %s", status)

			cp, _ := f.store.Copy(f.copyID)
			assert.Equal(t, model.CopyAvailable, cp.Status, "copy must stay available")
			assert.Equal(t, 0, f.store.OpenLoanCount(f.copyID))
		}
	})

	t.Run("rejects_unavailable_copies", func(t *testing.T) {
		for _, status := range []model.CopyStatus{model.CopyBorrowed, model.CopyLost, model.CopyArchived} {
			f := newFixture(t)
			id := f.store.AddCopy(model.BookCopy{AccessionNumber: "00002", Barcode: "BC2", Status: status})

			_, err := f.engine.Borrow(ctx, id, f.patronID)
			assert.ErrorIs(t, err, circulation.ErrCopyUnavailable, "status %s", status)
			assert.Equal(t, 0, f.store.OpenLoanCount(id))
		}
	})

	t.Run("unknown_copy_and_patron_are_not_found", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.engine.Borrow(ctx, 999, f.patronID)
		assert.ErrorIs(t, err, circulation.ErrNotFound)
		_, err = f.engine.Borrow(ctx, f.copyID, "P99999")
		assert.ErrorIs(t, err, circulation.ErrNotFound)
	})

	t.Run("double_borrow_leaves_original_loan_untouched", func(t *testing.T) {
		f := newFixture(t)
		first, err := f.engine.Borrow(ctx, f.copyID, f.patronID)
		require.NoError(t, err)

		_, err = f.engine.Borrow(ctx, f.copyID, f.patronID)
		assert.ErrorIs(t, err, circulation.ErrCopyUnavailable)

		got, ok := f.store.Circulation(first.ID)
		require.True(t, ok)
		assert.Equal(t, *first, got)
		assert.Equal(t, 1, f.store.OpenLoanCount(f.copyID))
	})

	t.Run("concurrent_borrows_open_exactly_one_loan", func(t *testing.T) {
		f := newFixture(t)
		const attempts = 16
		var wg sync.WaitGroup
		errs := make([]error, attempts)
		for i := 0; i < attempts; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, errs[i] = f.engine.Borrow(ctx, f.copyID, f.patronID)
			}(i)
		}
		wg.Wait()

		succeeded := 0
		for _, err := range errs {
			if err == nil {
				succeeded++
			} else {
				assert.ErrorIs(t, err, circulation.ErrCopyUnavailable)
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, f.store.OpenLoanCount(f.copyID))
	})
}

func TestReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("overdue_return_computes_fine", func(t *testing.T) {
		// Borrow on day 0, due day 5, returned day 8: 3 days late at 10/day.
		f := newFixture(t)
		c, err := f.engine.Borrow(ctx, f.copyID, f.patronID)
		require.NoError(t, err)

		f.clock.Set(day(8))
		returned, err := f.engine.Return(ctx, c.ID)
		require.NoError(t, err)

		assert.Equal(t, model.StatusReturned, returned.Status)
		assert.Equal(t, 3, returned.OverdueBy)
		assert.Equal(t, int64(30), returned.Fine)
		require.NotNil(t, returned.DateReturned)
		assert.Equal(t, day(8), *returned.DateReturned)

		cp, _ := f.store.Copy(f.copyID)
		assert.Equal(t, model.CopyAvailable, cp.Status)
	})

	t.Run("on_time_return_has_zero_fine", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.engine.Borrow(ctx, f.copyID, f.patronID)
		require.NoError(t, err)

		f.clock.Set(day(4))
		returned, err := f.engine.Return(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, returned.OverdueBy)
		assert.Equal(t, int64(0), returned.Fine)
	})

	t.Run("sibling_copies_are_unaffected", func(t *testing.T) {
		f := newFixture(t)
		sibling := f.store.AddCopy(model.BookCopy{AccessionNumber: "00002", Barcode: "BC2", CopyNumber: 2})
		c, err := f.engine.Borrow(ctx, f.copyID, f.patronID)
		require.NoError(t, err)
		_, err = f.engine.Borrow(ctx, sibling, f.patronID)
		require.NoError(t, err)

		_, err = f.engine.Return(ctx, c.ID)
		require.NoError(t, err)

		cp, _ := f.store.Copy(f.copyID)
		assert.Equal(t, model.CopyAvailable, cp.Status)
		sib, _ := f.store.Copy(sibling)
		assert.Equal(t, model.CopyBorrowed, sib.Status)
	})

	t.Run("rejects_non_borrowed_records", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.engine.Borrow(ctx, f.copyID, f.patronID)
		require.NoError(t, err)
		_, err = f.engine.Return(ctx, c.ID)
		require.NoError(t, err)

		_, err = f.engine.Return(ctx, c.ID)
		assert.ErrorIs(t, err, circulation.ErrNotCurrentlyBorrowed)
	})
}

func TestRenew(t *testing.T) {
	ctx := context.Background()

	t.Run("on_time_renewal_extends_from_due_date", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.engine.Borrow(ctx, f.copyID, f.patronID)
		require.NoError(t, err)

		f.clock.Set(day(3))
		renewed, err := f.engine.Renew(ctx, c.ID)
		require.NoError(t, err)

		assert.Equal(t, day(10), renewed.DueDate, "due extends from the old due date, not from now")
		assert.Equal(t, 1, renewed.RenewalCount)
		assert.Equal(t, 0, renewed.OverdueBy)
		assert.Equal(t, int64(0), renewed.Fine)
		require.NotNil(t, renewed.RenewalDate)
		assert.Equal(t, day(3), *renewed.RenewalDate)
		assert.Equal(t, model.StatusBorrowed, renewed.Status)
	})

	t.Run("overdue_renewal_restarts_clock_and_accrues_fine", func(t *testing.T) {
		// Due day 5, renewed day 7: 2 days late at 10/day, new due day 12.
		f := newFixture(t)
		c, err := f.engine.Borrow(ctx, f.copyID, f.patronID)
		require.NoError(t, err)

		f.clock.Set(day(7))
		renewed, err := f.engine.Renew(ctx, c.ID)
		require.NoError(t, err)

		assert.Equal(t, int64(20), renewed.Fine)
		assert.Equal(t, 2, renewed.OverdueBy)
		assert.Equal(t, day(12), renewed.DueDate)
		assert.Equal(t, 1, renewed.RenewalCount)
	})

	t.Run("fine_accumulates_across_renewals", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.engine.Borrow(ctx, f.copyID, f.patronID)
		require.NoError(t, err)

		f.clock.Set(day(7)) // 2 days late: fine 20, due day 12
		_, err = f.engine.Renew(ctx, c.ID)
		require.NoError(t, err)

		f.clock.Set(day(13)) // 1 day late: fine 30, due day 18
		renewed, err := f.engine.Renew(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(30), renewed.Fine)
		assert.Equal(t, day(18), renewed.DueDate)
		assert.Equal(t, 2, renewed.RenewalCount)
	})

	t.Run("renewal_limit_is_enforced_without_state_change", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.engine.Borrow(ctx, f.copyID, f.patronID)
		require.NoError(t, err)
		_, err = f.engine.Renew(ctx, c.ID)
		require.NoError(t, err)
		second, err := f.engine.Renew(ctx, c.ID)
		require.NoError(t, err)

		_, err = f.engine.Renew(ctx, c.ID)
		assert.ErrorIs(t, err, circulation.ErrRenewalLimitReached)

		got, ok := f.store.Circulation(c.ID)
		require.True(t, ok)
		assert.Equal(t, *second, got, "failed renewal must not mutate the record")
	})

	t.Run("rejects_non_borrowed_records", func(t *testing.T) {
		f := newFixture(t)
		c, err := f.engine.Borrow(ctx, f.copyID, f.patronID)
		require.NoError(t, err)
		_, err = f.engine.Return(ctx, c.ID)
		require.NoError(t, err)

		_, err = f.engine.Renew(ctx, c.ID)
		assert.ErrorIs(t, err, circulation.ErrNotCurrentlyBorrowed)
	})
}

func TestMarkLost(t *testing.T) {
	ctx := context.Background()

	f := newFixture(t)
	c, err := f.engine.Borrow(ctx, f.copyID, f.patronID)
	require.NoError(t, err)

	lost, err := f.engine.MarkLost(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusLost, lost.Status)

	cp, _ := f.store.Copy(f.copyID)
	assert.Equal(t, model.CopyLost, cp.Status)

	// A lost loan is no longer returnable or renewable.
	_, err = f.engine.Return(ctx, c.ID)
	assert.ErrorIs(t, err, circulation.ErrNotCurrentlyBorrowed)
	_, err = f.engine.Renew(ctx, c.ID)
	assert.ErrorIs(t, err, circulation.ErrNotCurrentlyBorrowed)
}
