package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gestock/internal/core/apperror"
	"gestock/internal/core/types"
)

func TestNewReorderPoint(t *testing.T) {
	rop, err := NewReorderPoint(types.NewRate(10), 7, types.NewRate(20))
	require.NoError(t, err)

	assert.Equal(t, int64(90), rop.Threshold().Int64())
	assert.Equal(t, 7, rop.LeadTimeDays())
}

func TestNewReorderPointCeils(t *testing.T) {
	// 2.5/day * 3 days + 0.2 = 7.7 -> 8
	rop, err := NewReorderPoint(types.MustRate("2.5"), 3, types.MustRate("0.2"))
	require.NoError(t, err)
	assert.Equal(t, int64(8), rop.Threshold().Int64())
}

func TestNewReorderPointRejectsNegatives(t *testing.T) {
	_, err := NewReorderPoint(types.NewRate(-1), 7, types.NewRate(0))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = NewReorderPoint(types.NewRate(1), -1, types.NewRate(0))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = NewReorderPoint(types.NewRate(1), 7, types.NewRate(-3))
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestReorderPointReached(t *testing.T) {
	rop, err := NewReorderPoint(types.NewRate(10), 7, types.NewRate(20))
	require.NoError(t, err)

	assert.True(t, rop.Reached(quantity(85)))
	assert.True(t, rop.Reached(quantity(90)), "threshold itself counts as reached")
	assert.False(t, rop.Reached(quantity(95)))
}

func TestReorderPointFromHistory(t *testing.T) {
	// 900 units over 90 days -> 10/day; 10*7+20 = 90
	rop, err := ReorderPointFromHistory(quantity(900), 7, types.NewRate(20))
	require.NoError(t, err)
	assert.Equal(t, int64(90), rop.Threshold().Int64())
}

func TestReorderPointFromHistoryAveragesOverWindow(t *testing.T) {
	// 100 units over the 90-day window -> ~1.11/day; *7 days = 7.78 -> 8
	rop, err := ReorderPointFromHistory(quantity(100), 7, types.ZeroRate())
	require.NoError(t, err)
	assert.Equal(t, int64(8), rop.Threshold().Int64())

	_, err = ReorderPointFromHistory(quantity(-1), 7, types.ZeroRate())
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestDefaultReorderPoint(t *testing.T) {
	rop := DefaultReorderPoint()
	assert.Equal(t, int64(1), rop.Threshold().Int64())
	assert.True(t, rop.Reached(quantity(1)))
	assert.False(t, rop.Reached(quantity(2)))
}
