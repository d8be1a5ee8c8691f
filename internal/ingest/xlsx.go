package ingest

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/heart5/happyjoplin-go/internal/models"
)

// Snapshot column layout. The column names and order are a compatibility
// contract: a written snapshot must reload into the same tuples.
var snapshotHeader = []string{"time", "latitude", "longitude", "altitude", "accuracy", "device_id", "month"}

const (
	snapshotSheet = "locations"
	timeLayout    = "2006-01-02 15:04:05"
)

// WriteSnapshot serializes the table into an XLSX workbook at path.
// Unknown altitude/accuracy values become empty cells.
func WriteSnapshot(table models.Table, path string) error {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(snapshotSheet)
	if err != nil {
		return fmt.Errorf("failed to create snapshot sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	if err := f.SetSheetRow(snapshotSheet, "A1", &snapshotHeader); err != nil {
		return fmt.Errorf("failed to write snapshot header: %w", err)
	}

	for i, r := range table {
		row := []interface{}{
			r.Time.UTC().Format(timeLayout),
			r.Latitude,
			r.Longitude,
			floatCell(r.Altitude),
			floatCell(r.Accuracy),
			r.DeviceID,
			r.Time.UTC().Format("2006-01"),
		}
		cell := fmt.Sprintf("A%d", i+2)
		if err := f.SetSheetRow(snapshotSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write snapshot row %d: %w", i, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// SnapshotBytes renders the table into an in-memory XLSX workbook.
func SnapshotBytes(table models.Table) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(snapshotSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create snapshot sheet: %w", err)
	}
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	if err := f.SetSheetRow(snapshotSheet, "A1", &snapshotHeader); err != nil {
		return nil, fmt.Errorf("failed to write snapshot header: %w", err)
	}
	for i, r := range table {
		row := []interface{}{
			r.Time.UTC().Format(timeLayout),
			r.Latitude,
			r.Longitude,
			floatCell(r.Altitude),
			floatCell(r.Accuracy),
			r.DeviceID,
			r.Time.UTC().Format("2006-01"),
		}
		if err := f.SetSheetRow(snapshotSheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return nil, fmt.Errorf("failed to write snapshot row %d: %w", i, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	return buf.Bytes(), nil
}

// ReadSnapshot loads a previously written XLSX snapshot. Rows with an
// unparseable timestamp are dropped, matching the raw-file parser.
func ReadSnapshot(path string) (models.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()
	return readSnapshotRows(f)
}

// ReadSnapshotBytes loads a snapshot from an in-memory workbook, as
// downloaded from the note store.
func ReadSnapshotBytes(data []byte) (models.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot bytes: %w", err)
	}
	defer f.Close()
	return readSnapshotRows(f)
}

func readSnapshotRows(f *excelize.File) (models.Table, error) {
	rows, err := f.GetRows(snapshotSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot sheet: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	var table models.Table
	for _, row := range rows[1:] { // skip header
		if len(row) < 6 {
			continue
		}
		ts, err := time.Parse(timeLayout, row[0])
		if err != nil {
			continue
		}
		lat, err1 := strconv.ParseFloat(row[1], 64)
		lon, err2 := strconv.ParseFloat(row[2], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		table = append(table, models.LocationRecord{
			Time:      ts.UTC(),
			Latitude:  round7(lat),
			Longitude: round7(lon),
			Altitude:  parseFloatCell(row[3]),
			Accuracy:  parseFloatCell(row[4]),
			DeviceID:  row[5],
			Cluster:   -1,
		})
	}
	return table, nil
}

func floatCell(v float64) interface{} {
	if math.IsNaN(v) {
		return ""
	}
	return v
}

func parseFloatCell(s string) float64 {
	if s == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
