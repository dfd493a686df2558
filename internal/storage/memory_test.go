package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmdelacruz/bibliotek/internal/circulation"
	"github.com/jmdelacruz/bibliotek/internal/model"
)

func TestInTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	copyID := store.AddCopy(model.BookCopy{AccessionNumber: "00001", Barcode: "BC1"})

	boom := errors.New("boom")
	err := store.InTx(ctx, func(tx circulation.Tx) error {
		require.NoError(t, tx.SetCopyStatus(ctx, copyID, model.CopyBorrowed))
		c := &model.Circulation{BookCopyID: copyID, PatronID: 1, Status: model.StatusBorrowed}
		require.NoError(t, tx.CreateCirculation(ctx, c))
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Nothing staged in the failed transaction may leak out.
	cp, ok := store.Copy(copyID)
	require.True(t, ok)
	assert.Equal(t, model.CopyAvailable, cp.Status)
	assert.Empty(t, store.Circulations())
}

func TestInTxReadsSeeStagedWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	copyID := store.AddCopy(model.BookCopy{AccessionNumber: "00001", Barcode: "BC1"})

	err := store.InTx(ctx, func(tx circulation.Tx) error {
		require.NoError(t, tx.SetCopyStatus(ctx, copyID, model.CopyBorrowed))
		cp, err := tx.CopyForUpdate(ctx, copyID)
		require.NoError(t, err)
		assert.Equal(t, model.CopyBorrowed, cp.Status)
		return nil
	})
	require.NoError(t, err)

	cp, _ := store.Copy(copyID)
	assert.Equal(t, model.CopyBorrowed, cp.Status)
}

func TestLookupsMissWithNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	err := store.InTx(ctx, func(tx circulation.Tx) error {
		_, err := tx.CopyForUpdate(ctx, 42)
		assert.ErrorIs(t, err, circulation.ErrNotFound)
		_, err = tx.PatronByPublicID(ctx, "P00042")
		assert.ErrorIs(t, err, circulation.ErrNotFound)
		_, err = tx.CirculationForUpdate(ctx, 42)
		assert.ErrorIs(t, err, circulation.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}
