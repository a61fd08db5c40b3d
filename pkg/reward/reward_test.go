package reward

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	d, err := ParseAmount("5.00", 18)
	require.NoError(t, err)
	assert.True(t, d.Equal(decimal.RequireFromString("5")))

	_, err = ParseAmount("0", 18)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount("-1", 18)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount("abc", 18)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount("0.001", 2)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = ParseAmount("1.2300", 2)
	assert.NoError(t, err)
}

func TestTotals(t *testing.T) {
	now := time.Now()
	grants := []*Grant{
		{Amount: decimal.RequireFromString("0.1")},
		{Amount: decimal.RequireFromString("0.2"), ClaimedAt: &now},
		{Amount: decimal.RequireFromString("5.00")},
	}

	earned, pending := Totals(grants)
	assert.Equal(t, "5.3", earned.String())
	assert.Equal(t, "5.1", pending.String())

	earned, pending = Totals(nil)
	assert.True(t, earned.IsZero())
	assert.True(t, pending.IsZero())
}
