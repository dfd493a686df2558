package policy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetFallsBackToDefaults(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	tests := []struct {
		setting Setting
		want    int
	}{
		{LoanDays, 5},
		{FinePerDay, 5},
		{RenewalLimit, 2},
		{ExpirationYears, 3},
	}
	for _, tt := range tests {
		t.Run(tt.setting.Key, func(t *testing.T) {
			got, err := svc.Get(ctx, tt.setting)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetValidatesRanges(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	tests := []struct {
		setting Setting
		value   int
		ok      bool
	}{
		{LoanDays, 1, true},
		{LoanDays, 60, true},
		{LoanDays, 0, false},
		{LoanDays, 61, false},
		{FinePerDay, 100, true},
		{FinePerDay, 101, false},
		{RenewalLimit, 10, true},
		{RenewalLimit, 0, false},
		{ExpirationYears, 3, true},
		{ExpirationYears, 11, false},
	}
	for _, tt := range tests {
		err := svc.Set(ctx, tt.setting, tt.value)
		if tt.ok {
			require.NoError(t, err, "%s=%d", tt.setting.Key, tt.value)
			got, err := svc.Get(ctx, tt.setting)
			require.NoError(t, err)
			assert.Equal(t, tt.value, got)
		} else {
			assert.ErrorIs(t, err, ErrOutOfRange, "%s=%d", tt.setting.Key, tt.value)
		}
	}
}

func TestRejectedWriteDoesNotClobberValue(t *testing.T) {
	ctx := context.Background()
	svc := NewService(NewMemoryStore())

	require.NoError(t, svc.Set(ctx, LoanDays, 14))
	assert.Error(t, svc.Set(ctx, LoanDays, 0))

	got, err := svc.Get(ctx, LoanDays)
	require.NoError(t, err)
	assert.Equal(t, 14, got)
}
