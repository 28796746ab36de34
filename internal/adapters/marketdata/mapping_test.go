package marketdata

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/alejandrodnm/pewinrate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeRecords(t *testing.T, s string) []rawRecord {
	t.Helper()
	var out seriesResponse
	require.NoError(t, json.Unmarshal([]byte(s), &out))
	return out
}

func TestMapRecords_ColumnVariants(t *testing.T) {
	for _, col := range []string{"averagePETTM", "averagePeTtm", "平均市盈率", "pe"} {
		recs := decodeRecords(t, `[{"date":"2024-03-01","`+col+`":17.25}]`)
		series, err := mapRecords(recs)
		require.NoError(t, err, col)
		require.Len(t, series, 1, col)
		assert.InDelta(t, 17.25, series[0].Ratio, 1e-9, col)
		assert.True(t, series[0].HasRatio, col)
	}
}

func TestMapRecords_PrefersFirstKnownColumn(t *testing.T) {
	recs := decodeRecords(t, `[{"date":"2024-03-01","pe":99,"averagePETTM":17.25}]`)
	series, err := mapRecords(recs)
	require.NoError(t, err)
	assert.InDelta(t, 17.25, series[0].Ratio, 1e-9)
}

func TestMapRecords_MissingColumnIsAbsent(t *testing.T) {
	recs := decodeRecords(t, `[{"date":"2024-03-01","pe":12},{"date":"2024-03-04","close":3000}]`)
	series, err := mapRecords(recs)
	require.NoError(t, err)
	require.Len(t, series, 2)
	assert.False(t, series[1].HasRatio)
}

func TestMapRecords_SkipsBadDates(t *testing.T) {
	recs := decodeRecords(t, `[{"date":"yesterday","pe":12},{"pe":13},{"date":"2024-03-04","pe":14}]`)
	series, err := mapRecords(recs)
	require.NoError(t, err)
	require.Len(t, series, 1)
	assert.InDelta(t, 14.0, series[0].Ratio, 1e-9)
}

func TestMapRecords_Empty(t *testing.T) {
	series, err := mapRecords(nil)
	require.NoError(t, err)
	assert.Empty(t, series)
}

func TestParseDate_EpochMillisUsesMarketDay(t *testing.T) {
	// 2024-01-02 00:00 en Shanghai = 2024-01-01 16:00 UTC
	d, ok := parseDate(json.RawMessage(`1704124800000`))
	require.True(t, ok)
	s := domain.NormalizeSeries([]domain.Observation{{Date: d}})
	assert.Equal(t, "2024-01-02", s[0].Date.Format(domain.DateLayout))

	d, ok = parseDate(json.RawMessage(`"1704124800000"`))
	require.True(t, ok)
	assert.Equal(t, 2, d.Day())
}

func TestParseDate_Layouts(t *testing.T) {
	for _, v := range []string{`"2024-03-01"`, `"2024-03-01T00:00:00Z"`, `"2024-03-01 09:30:00"`, `"2024/03/01"`} {
		d, ok := parseDate(json.RawMessage(v))
		require.True(t, ok, v)
		assert.Equal(t, "2024-03-01", d.Format(domain.DateLayout), v)
	}

	_, ok := parseDate(json.RawMessage(`null`))
	assert.False(t, ok)
	_, ok = parseDate(nil)
	assert.False(t, ok)
}

func TestParseRatio(t *testing.T) {
	v, ok := parseRatio(json.RawMessage(`15.5`))
	assert.True(t, ok)
	assert.InDelta(t, 15.5, v, 1e-9)

	v, ok = parseRatio(json.RawMessage(`"15.5"`))
	assert.True(t, ok)
	assert.InDelta(t, 15.5, v, 1e-9)

	_, ok = parseRatio(json.RawMessage(`null`))
	assert.False(t, ok)

	_, ok = parseRatio(json.RawMessage(`""`))
	assert.False(t, ok)

	v, ok = parseRatio(json.RawMessage(`"n/a"`))
	assert.True(t, ok)
	assert.True(t, math.IsNaN(v))

	v, ok = parseRatio(json.RawMessage(`true`))
	assert.True(t, ok)
	assert.True(t, math.IsNaN(v))
}

func TestParseDate_CompactInteger(t *testing.T) {
	for _, v := range []string{`20240102`, `"20240102"`} {
		d, ok := parseDate(json.RawMessage(v))
		require.True(t, ok, v)
		assert.Equal(t, "2024-01-02", d.Format(domain.DateLayout), v)
	}
}

func TestParseDate_RejectsImplausibleEpoch(t *testing.T) {
	for _, v := range []string{`20241399`, `86400000`, `0`} {
		_, ok := parseDate(json.RawMessage(v))
		assert.False(t, ok, v)
	}
}
