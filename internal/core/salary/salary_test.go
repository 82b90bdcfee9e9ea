package salary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRangeExplicitRange(t *testing.T) {
	r := ParseRange("$65,000 - $85,000 a year")
	require.NotNil(t, r.Min)
	require.NotNil(t, r.Max)
	assert.Equal(t, 65000.0, *r.Min)
	assert.Equal(t, 85000.0, *r.Max)
	assert.Equal(t, PeriodYearly, r.PeriodAssumed)
}

func TestParseRangeNoThousandsSeparator(t *testing.T) {
	r := ParseRange("$60000 - $90000")
	require.NotNil(t, r.Min)
	assert.Equal(t, 60000.0, *r.Min)
	assert.Equal(t, 90000.0, *r.Max)
}

func TestParseRangeKShorthand(t *testing.T) {
	// "$45K" is one token worth 45000, not a $45 plus a 45K.
	r := ParseRange("$45K")
	require.NotNil(t, r.Min)
	assert.Equal(t, 45000.0, *r.Min)
	assert.Equal(t, 45000.0, *r.Max)

	r = ParseRange("60k - 80k")
	require.NotNil(t, r.Min)
	assert.Equal(t, 60000.0, *r.Min)
	assert.Equal(t, 80000.0, *r.Max)

	r = ParseRange("$45k - $65k")
	require.NotNil(t, r.Min)
	assert.Equal(t, 45000.0, *r.Min)
	assert.Equal(t, 65000.0, *r.Max)
}

func TestParseRangeSingleValue(t *testing.T) {
	r := ParseRange("From $72,500 a year")
	require.NotNil(t, r.Min)
	assert.Equal(t, 72500.0, *r.Min)
	assert.Equal(t, 72500.0, *r.Max)
}

func TestParseRangeNoDigits(t *testing.T) {
	for _, raw := range []string{"", "Negotiable", "Competitive salary and benefits"} {
		r := ParseRange(raw)
		assert.Nil(t, r.Min, "raw=%q", raw)
		assert.Nil(t, r.Max, "raw=%q", raw)
	}
}

func TestParseRangeHourlyAnnualized(t *testing.T) {
	r := ParseRange("$20 - $25 an hour")
	require.NotNil(t, r.Min)
	assert.Equal(t, PeriodHourly, r.PeriodAssumed)
	assert.Equal(t, 20.0*2080, *r.Min)
	assert.Equal(t, 25.0*2080, *r.Max)
}

func TestParseRangeMonthlyAnnualized(t *testing.T) {
	r := ParseRange("$5,000 a month")
	require.NotNil(t, r.Min)
	assert.Equal(t, PeriodMonthly, r.PeriodAssumed)
	assert.Equal(t, 60000.0, *r.Min)
}

func TestParseRangeMinNeverExceedsMax(t *testing.T) {
	r := ParseRange("$85,000 - $65,000")
	require.NotNil(t, r.Min)
	assert.LessOrEqual(t, *r.Min, *r.Max)
}
