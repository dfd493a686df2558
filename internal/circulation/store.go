package circulation

import (
	"context"

	"github.com/jmdelacruz/bibliotek/internal/model"
)

// Store provides transactional access to the rows the engine mutates. InTx
// runs fn inside one transaction: every mutation commits together or the
// whole operation rolls back. Implementations must serialize conflicting
// writers on the same copy row (row lock in Postgres, a single mutex in the
// memory store) so two concurrent borrows cannot both observe "available".
type Store interface {
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of reads and writes available inside one transaction.
// Lookups that miss return ErrNotFound.
type Tx interface {
	CopyForUpdate(ctx context.Context, id int64) (*model.BookCopy, error)
	SetCopyStatus(ctx context.Context, id int64, status model.CopyStatus) error

	PatronByPublicID(ctx context.Context, publicID string) (*model.Patron, error)

	CreateCirculation(ctx context.Context, c *model.Circulation) error
	CirculationForUpdate(ctx context.Context, id int64) (*model.Circulation, error)
	UpdateCirculation(ctx context.Context, c *model.Circulation) error
}

// Policies supplies the loan parameters the engine reads at the start of
// each operation.
type Policies interface {
	LoanDays(ctx context.Context) (int, error)
	FinePerDay(ctx context.Context) (int, error)
	RenewalLimit(ctx context.Context) (int, error)
}
