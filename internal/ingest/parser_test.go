package ingest

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rawSample = "1719830000\t39.9042000\t116.4074000\t52.1\t10\n" +
	"1719830060\t39.9042100\t116.4074100\t52.3\t15\n" +
	"not-a-time\t39.9\t116.4\t0\t5\n" +
	"1719830120\t95.0\t116.4\t0\t5\n" +
	"1719830180\t39.9\t186.0\t0\t5\n" +
	"1719830240\t39.9042200\t116.4074200\t\t-5\n" +
	"1719830300\t39.9042300\t116.4074300\t52.0\t20000\n"

func TestParseReaderDropsInvalidRows(t *testing.T) {
	table, err := ParseReader(strings.NewReader(rawSample), "phone", 0)
	require.NoError(t, err)

	// 7 lines: one bad timestamp, one lat out of range, one lon out of range
	require.Len(t, table, 4)
	for _, r := range table {
		assert.Equal(t, "phone", r.DeviceID)
		assert.GreaterOrEqual(t, r.Latitude, -90.0)
		assert.LessOrEqual(t, r.Latitude, 90.0)
		assert.GreaterOrEqual(t, r.Longitude, -180.0)
		assert.LessOrEqual(t, r.Longitude, 180.0)
	}

	// accuracy -5 and accuracy 20000 are normalized to unknown, not zero
	assert.True(t, math.IsNaN(table[2].Accuracy))
	assert.True(t, math.IsNaN(table[3].Accuracy))
	assert.False(t, table[2].HasAccuracy())
}

func TestParseReaderTimeFormats(t *testing.T) {
	raw := "2024-07-01 10:00:00\t39.9\t116.4\t50\t10\n" +
		"2024-07-01T10:01:00Z\t39.9\t116.4\t50\t10\n" +
		"1719828120000\t39.9\t116.4\t50\t10\n" // milliseconds
	table, err := ParseReader(strings.NewReader(raw), "pad", 0)
	require.NoError(t, err)
	require.Len(t, table, 3)
	assert.Equal(t, time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC), table[0].Time)
	assert.Equal(t, 2024, table[2].Time.Year())
}

func TestParseReaderChunking(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 25; i++ {
		b.WriteString("1719830000\t39.9\t116.4\t50\t10\n")
	}
	table, err := ParseReader(strings.NewReader(b.String()), "phone", 10)
	require.NoError(t, err)
	assert.Len(t, table, 25)
}

func TestCleanIdempotent(t *testing.T) {
	table, err := ParseReader(strings.NewReader(rawSample), "phone", 0)
	require.NoError(t, err)

	once := Clean(table)
	twice := Clean(once)
	require.Equal(t, len(once), len(twice))
	for i := range once {
		assert.Equal(t, once[i], twice[i])
	}
}

func TestCleanDeduplicates(t *testing.T) {
	raw := "1719830000\t39.9\t116.4\t50\t10\n" +
		"1719830000\t39.9\t116.4\t50\t10\n" + // exact duplicate
		"1719830000\t39.9\t116.4\t50\t12\n" + // same (time, lat, lon): still a duplicate
		"1719830060\t39.9\t116.4\t50\t10\n"
	table, err := ParseReader(strings.NewReader(raw), "phone", 0)
	require.NoError(t, err)

	cleaned := Clean(table)
	require.Len(t, cleaned, 2)

	// Sorted by time descending
	assert.True(t, cleaned[0].Time.After(cleaned[1].Time))

	// No two rows share (device, time, lat, lon)
	seen := make(map[string]bool)
	for _, r := range cleaned {
		key := r.DeviceID + r.Time.String()
		assert.False(t, seen[key])
		seen[key] = true
	}
}

func TestCleanKeepsDistinctDevices(t *testing.T) {
	a, err := ParseReader(strings.NewReader("1719830000\t39.9\t116.4\t50\t10\n"), "phone", 0)
	require.NoError(t, err)
	b, err := ParseReader(strings.NewReader("1719830000\t39.9\t116.4\t50\t10\n"), "watch", 0)
	require.NoError(t, err)

	cleaned := Clean(append(a, b...))
	assert.Len(t, cleaned, 2)
}
