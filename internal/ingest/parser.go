package ingest

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/heart5/happyjoplin-go/internal/models"
)

// DefaultChunkSize bounds how many rows are accumulated before a chunk is
// flushed into the result table.
const DefaultChunkSize = 10000

// MaxAccuracyMeters is the largest accuracy reading treated as plausible.
// Anything above it (or negative) is normalized to unknown.
const MaxAccuracyMeters = 10000.0

// Raw location rows are tab-separated:
//   <unix-or-ISO time> \t <latitude> \t <longitude> \t <altitude> \t <accuracy>
// Sentinel strings for missing values are tolerated in altitude/accuracy.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseFile parses one raw device file. A file that cannot be opened is an
// error for the caller to log and skip; malformed rows inside the file are
// dropped and counted, never fatal.
func ParseFile(path, deviceID string, chunkSize int) (models.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open location file: %w", err)
	}
	defer f.Close()
	return ParseReader(f, deviceID, chunkSize)
}

// ParseReader parses raw tab-separated location rows for one device,
// accumulating in chunks of chunkSize rows to keep memory bounded.
func ParseReader(r io.Reader, deviceID string, chunkSize int) (models.Table, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var table models.Table
	chunk := make(models.Table, 0, chunkSize)
	dropped := 0
	lineNo := 0

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r\n")
		if line == "" {
			continue
		}
		rec, ok := parseLine(line, deviceID)
		if !ok {
			dropped++
			continue
		}
		chunk = append(chunk, rec)
		if len(chunk) >= chunkSize {
			table = append(table, chunk...)
			chunk = chunk[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read location rows: %w", err)
	}
	table = append(table, chunk...)

	if dropped > 0 {
		log.Printf("[Ingest] device=%s: dropped %d of %d rows", deviceID, dropped, lineNo)
	}
	return table, nil
}

func parseLine(line, deviceID string) (models.LocationRecord, bool) {
	fields := strings.Split(line, "\t")
	if len(fields) < 3 {
		return models.LocationRecord{}, false
	}

	ts, ok := parseTime(strings.TrimSpace(fields[0]))
	if !ok {
		return models.LocationRecord{}, false
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	if err != nil || lat < -90 || lat > 90 {
		return models.LocationRecord{}, false
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	if err != nil || lon < -180 || lon > 180 {
		return models.LocationRecord{}, false
	}

	alt := math.NaN()
	if len(fields) > 3 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64); err == nil {
			alt = v
		}
	}
	acc := math.NaN()
	if len(fields) > 4 {
		if v, err := strconv.ParseFloat(strings.TrimSpace(fields[4]), 64); err == nil {
			acc = normalizeAccuracy(v)
		}
	}

	return models.LocationRecord{
		Time:      ts,
		DeviceID:  deviceID,
		Latitude:  round7(lat),
		Longitude: round7(lon),
		Altitude:  alt,
		Accuracy:  acc,
		Cluster:   -1,
	}, true
}

func parseTime(s string) (time.Time, bool) {
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		// Some exporters write milliseconds
		if unix > 1e12 {
			unix /= 1000
		}
		return time.Unix(unix, 0).UTC(), true
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Truncate(time.Second).UTC(), true
		}
	}
	return time.Time{}, false
}

func normalizeAccuracy(v float64) float64 {
	if v < 0 || v > MaxAccuracyMeters {
		return math.NaN()
	}
	return v
}

// round7 coerces coordinates to 7 decimal places (~1 cm), which also makes
// duplicate detection stable across parse runs.
func round7(v float64) float64 {
	return math.Round(v*1e7) / 1e7
}

// Clean sorts the table by time descending, drops duplicate
// (device, time, lat, lon) rows and returns the densely re-indexed result.
// Running Clean twice yields an identical table.
func Clean(table models.Table) models.Table {
	out := table.Clone()
	out.SortByTimeDesc()

	seen := make(map[string]struct{}, len(out))
	cleaned := out[:0]
	for _, r := range out {
		key := fmt.Sprintf("%s|%d|%.7f|%.7f", r.DeviceID, r.Time.Unix(), r.Latitude, r.Longitude)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, r)
	}
	return cleaned
}
