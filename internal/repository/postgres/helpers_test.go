package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat64ToNumeric(t *testing.T) {
	n, err := Float64ToNumeric(19.99)
	require.NoError(t, err)
	assert.Equal(t, 19.99, NumericToFloat64(n))

	// Values are stored at 2 decimal places.
	n, err = Float64ToNumeric(10.999)
	require.NoError(t, err)
	assert.Equal(t, 11.0, NumericToFloat64(n))

	n, err = Float64ToNumeric(0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, NumericToFloat64(n))
}

func TestPgTimeConversion(t *testing.T) {
	assert.Nil(t, toTimePtr(toPgTime(nil)))

	now := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	got := toTimePtr(toPgTime(&now))
	require.NotNil(t, got)
	assert.Equal(t, now, *got)
}
