package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatUsesTwoDecimals(t *testing.T) {
	assert.Equal(t, "350.00", Format(35000))
	assert.Equal(t, "0.05", Format(5))
	assert.Equal(t, "-1.50", Format(-150))
	assert.Equal(t, "", FormatPtr(nil))
	assert.Equal(t, "16.00", FormatPtr(Ptr(1600)))
}

func TestTaxRoundsToNearestCent(t *testing.T) {
	assert.Equal(t, int64(1600), Tax(10000, decimal.NewFromInt(16)))
	assert.Equal(t, int64(0), Tax(10000, decimal.Zero))
	// 333 * 16% = 53.28
	assert.Equal(t, int64(53), Tax(333, decimal.NewFromInt(16)))
	assert.Equal(t, int64(54), Tax(335, decimal.NewFromInt(16)))
}

func TestCurrencyConversion(t *testing.T) {
	rate := decimal.RequireFromString("17.5")
	assert.Equal(t, int64(35000), ToDomestic(2000, rate))
	assert.Equal(t, int64(2000), ToForeign(35000, rate))
	// 100.00 MXN / 17.5 = 5.714.. USD, rounded up to 5.72
	assert.Equal(t, int64(572), ToForeign(10000, rate))
	assert.Equal(t, int64(0), ToForeign(10000, decimal.Zero))
}

func TestChange(t *testing.T) {
	change, ok := Change(50000, 35000)
	assert.True(t, ok)
	assert.Equal(t, int64(15000), change)

	_, ok = Change(100, 35000)
	assert.False(t, ok)
}
