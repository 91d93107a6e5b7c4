package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToCents(t *testing.T) {
	c, err := ToCents(decimal.RequireFromString("12.50"))
	require.NoError(t, err)
	assert.Equal(t, int64(1250), c)

	c, err = ToCents(decimal.RequireFromString("100000000"))
	require.NoError(t, err)
	assert.Equal(t, int64(10000000000), c)

	_, err = ToCents(decimal.RequireFromString("1.005"))
	assert.ErrorIs(t, err, ErrSubCent)
}

func TestFromCents(t *testing.T) {
	assert.Equal(t, "0.30", FromCents(10).Add(FromCents(20)).StringFixed(2))
	assert.True(t, decimal.RequireFromString("0.3").Equal(FromCents(30)))
	assert.Equal(t, "-5.00", FromCents(-500).StringFixed(2))
}
