package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestock/internal/core/apperror"
)

func TestNewBalance(t *testing.T) {
	tests := []struct {
		name     string
		physical int64
		reserved int64
		wantErr  bool
	}{
		{"empty", 0, 0, false},
		{"physical only", 10, 0, false},
		{"partially reserved", 10, 4, false},
		{"fully reserved", 10, 10, false},
		{"negative physical", -1, 0, true},
		{"negative reserved", 5, -1, true},
		{"reserved exceeds physical", 5, 6, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBalance(quantity(tt.physical), quantity(tt.reserved))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperror.IsCode(err, apperror.CodeInvalidBalanceState))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.physical, b.Physical().Int64())
			assert.Equal(t, tt.reserved, b.Reserved().Int64())
			assert.Equal(t, tt.physical-tt.reserved, b.Available().Int64())
		})
	}
}

func TestBalanceWithEntry(t *testing.T) {
	b := ZeroBalance()

	b, err := b.WithEntry(quantity(100))
	require.NoError(t, err)
	assert.Equal(t, int64(100), b.Physical().Int64())
	assert.Equal(t, int64(0), b.Reserved().Int64())

	_, err = b.WithEntry(quantity(0))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = b.WithEntry(quantity(-5))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestBalanceWithExit(t *testing.T) {
	b := mustBalance(t, 10, 3) // available = 7

	t.Run("exact available succeeds", func(t *testing.T) {
		next, err := b.WithExit(quantity(7))
		require.NoError(t, err)
		assert.Equal(t, int64(3), next.Physical().Int64())
		assert.Equal(t, int64(0), next.Available().Int64())
	})

	t.Run("one above available fails and leaves balance unchanged", func(t *testing.T) {
		next, err := b.WithExit(quantity(8))
		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientAvailable))
		assert.Equal(t, b, next)
	})
}

func TestBalanceWithReservation(t *testing.T) {
	b := mustBalance(t, 10, 0)

	next, err := b.WithReservation(quantity(4))
	require.NoError(t, err)
	assert.Equal(t, int64(10), next.Physical().Int64(), "reservation must not touch physical")
	assert.Equal(t, int64(4), next.Reserved().Int64())
	assert.Equal(t, int64(6), next.Available().Int64())

	_, err = next.WithReservation(quantity(7))
	assert.True(t, apperror.IsCode(err, apperror.CodeInsufficientAvailable))
}

func TestBalanceWithRelease(t *testing.T) {
	b := mustBalance(t, 10, 4)

	next, err := b.WithRelease(quantity(4))
	require.NoError(t, err)
	assert.Equal(t, int64(10), next.Physical().Int64())
	assert.Equal(t, int64(0), next.Reserved().Int64())

	_, err = b.WithRelease(quantity(5))
	assert.True(t, apperror.IsCode(err, apperror.CodeReleaseExceedsReserved))
}

func TestBalanceRoundTrip(t *testing.T) {
	b := ZeroBalance()

	b, err := b.WithEntry(quantity(25))
	require.NoError(t, err)
	b, err = b.WithExit(quantity(25))
	require.NoError(t, err)

	assert.Equal(t, ZeroBalance(), b)
}

func mustBalance(t *testing.T, physical, reserved int64) Balance {
	t.Helper()
	b, err := NewBalance(quantity(physical), quantity(reserved))
	require.NoError(t, err)
	return b
}
