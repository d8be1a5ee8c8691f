// Package sync orchestrates the end-to-end report runs: raw-file snapshot
// upload, per-scope pipeline execution and note upsert. Scopes run strictly
// in sequence; the note store shares one set of API credentials.
package sync

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/heart5/happyjoplin-go/internal/analysis"
	"github.com/heart5/happyjoplin-go/internal/config"
	"github.com/heart5/happyjoplin-go/internal/fusion"
	"github.com/heart5/happyjoplin-go/internal/ingest"
	"github.com/heart5/happyjoplin-go/internal/models"
	"github.com/heart5/happyjoplin-go/internal/notestore"
	"github.com/heart5/happyjoplin-go/internal/report"
	"github.com/heart5/happyjoplin-go/internal/segment"
	"github.com/heart5/happyjoplin-go/internal/spatial"
)

// Runner drives the pipeline for every configured scope.
type Runner struct {
	cfg   *config.Config
	store notestore.Client
	now   func() time.Time
}

// NewRunner builds a runner over an explicit config and note-store client.
func NewRunner(cfg *config.Config, store notestore.Client) *Runner {
	return &Runner{cfg: cfg, store: store, now: time.Now}
}

func dataNoteTitle(month string) string {
	return fmt.Sprintf("位置数据 Location Data (%s)", month)
}

// snapshotResourcePrefix marks snapshot attachments so rotation only ever
// deletes resources this pipeline created.
const snapshotResourcePrefix = "location_snapshot_"

// SyncMonthlyData parses every raw device file for the month, merges the
// cleaned result and uploads it as the month's XLSX snapshot, replacing any
// previous snapshot resource on the data note.
func (r *Runner) SyncMonthlyData(month string) error {
	pattern := filepath.Join(r.cfg.RawDataDir, "*_"+month+".txt")
	files, err := filepath.Glob(pattern)
	if err != nil {
		return fmt.Errorf("failed to scan raw data dir: %w", err)
	}
	if len(files) == 0 {
		log.Printf("[Sync] No raw files for %s, skipping snapshot", month)
		return nil
	}

	var merged models.Table
	for _, path := range files {
		device := deviceFromFilename(path, month)
		table, err := ingest.ParseFile(path, device, r.cfg.ChunkSize)
		if err != nil {
			// One bad file must not abort the month
			log.Printf("[Sync] Failed to parse %s: %v", path, err)
			continue
		}
		merged = append(merged, table...)
	}
	merged = ingest.Clean(merged)
	if len(merged) == 0 {
		log.Printf("[Sync] No valid rows for %s, skipping snapshot", month)
		return nil
	}

	data, err := ingest.SnapshotBytes(merged)
	if err != nil {
		return fmt.Errorf("failed to build snapshot for %s: %w", month, err)
	}

	title := dataNoteTitle(month)
	ref, created, err := notestore.FindOrCreate(r.store, title, "", "")
	if err != nil {
		return fmt.Errorf("failed to find or create data note: %w", err)
	}
	if !created {
		r.rotateResources(ref.ID, snapshotResourcePrefix)
	}

	resName := fmt.Sprintf("%s%s.xlsx", snapshotResourcePrefix, month)
	resID, err := r.store.UploadResource(data, resName)
	if err != nil {
		return fmt.Errorf("failed to upload snapshot for %s: %w", month, err)
	}
	body := fmt.Sprintf("%d points, %d devices\n\n[%s](:/%s)\n", len(merged), countDevices(merged), resName, resID)
	if err := r.store.UpdateNoteBody(ref.ID, body); err != nil {
		return fmt.Errorf("failed to update data note for %s: %w", month, err)
	}

	log.Printf("[Sync] Uploaded snapshot for %s: %d rows from %d files", month, len(merged), len(files))
	return nil
}

// RunReports executes every configured scope in sequence. A failing scope
// is logged and does not stop the remaining scopes.
func (r *Runner) RunReports() error {
	if len(r.cfg.Scopes) == 0 {
		return fmt.Errorf("no report scopes configured")
	}
	if err := os.MkdirAll(r.cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	runID := uuid.NewString()
	log.Printf("[Sync] Starting report run %s for scopes %v", runID, r.cfg.Scopes)

	for _, scope := range r.cfg.Scopes {
		if err := r.runScope(scope); err != nil {
			log.Printf("[Sync] Scope %s failed: %v", scope, err)
		}
	}
	return nil
}

func (r *Runner) runScope(scope string) error {
	months, err := monthsForScope(scope, r.now())
	if err != nil {
		return err
	}

	var table models.Table
	for _, month := range months {
		monthly, err := r.loadMonth(month)
		if err != nil {
			return err
		}
		if monthly == nil {
			log.Printf("[Sync] No data note for %s, skipping month", month)
			continue
		}
		table = append(table, monthly...)
	}
	if len(table) == 0 {
		log.Printf("[Sync] Scope %s has no data, skipping", scope)
		return nil
	}

	// Pipeline stages, strictly in order
	table = ingest.Clean(table)
	table = fusion.FuseDevices(table, r.cfg.FusionWindow)
	table = segment.ByTimeGaps(table, segment.Options{
		DayThresholdMin:   r.cfg.DayThresholdMin,
		NightThresholdMin: r.cfg.NightThresholdMin,
		StayDistanceM:     r.cfg.StayDistanceM,
	})
	spatial.SmoothCoordinates(table, r.cfg.SmoothWindow)
	spatial.IdentifyImportantPlaces(table, spatial.ClusterOptions{
		RadiusKm:   r.cfg.ClusterRadiusKm,
		MinPoints:  r.cfg.ClusterMinPoints,
		SampleSize: r.cfg.ClusterSampleSize,
		Seed:       r.cfg.ClusterSeed,
	})
	spatial.IdentifyStayPoints(table, r.cfg.StayDistanceM)

	result := analysis.Analyze(table, scope)
	result.Artifacts = report.RenderAll(table, scope, func(name string, png []byte) (string, error) {
		if err := os.WriteFile(filepath.Join(r.cfg.OutputDir, scope+"_"+name+".png"), png, 0o644); err != nil {
			log.Printf("[Sync] Failed to keep local copy of %s/%s: %v", scope, name, err)
		}
		return r.store.UploadResource(png, fmt.Sprintf("%s_%s_%s.png", chartResourcePrefix, scope, name))
	})

	body := report.Build(result)
	if err := os.WriteFile(filepath.Join(r.cfg.OutputDir, scope+".md"), []byte(body), 0o644); err != nil {
		log.Printf("[Sync] Failed to keep local report for %s: %v", scope, err)
	}

	title := report.Title(scope)
	ref, created, err := notestore.FindOrCreate(r.store, title, body, "")
	if err != nil {
		return fmt.Errorf("failed to upsert report note: %w", err)
	}
	if !created {
		r.rotateResources(ref.ID, chartResourcePrefix)
		if err := r.store.UpdateNoteBody(ref.ID, body); err != nil {
			return fmt.Errorf("failed to update report note: %w", err)
		}
	}

	log.Printf("[Sync] Scope %s done: %d points, %d artifacts", scope, result.PointCount, len(result.Artifacts))
	return nil
}

const chartResourcePrefix = "location_chart"

// loadMonth fetches and parses one month's snapshot from the note store.
// A missing data note is not an error; it returns (nil, nil).
func (r *Runner) loadMonth(month string) (models.Table, error) {
	title := dataNoteTitle(month)
	matches, err := r.store.SearchNotesByTitle(title)
	if err != nil {
		return nil, fmt.Errorf("failed to search data note for %s: %w", month, err)
	}
	var noteID string
	for _, m := range matches {
		if m.Title == title {
			noteID = m.ID
			break
		}
	}
	if noteID == "" {
		return nil, nil
	}

	resources, err := r.store.ListResources(noteID)
	if err != nil {
		return nil, fmt.Errorf("failed to list resources for %s: %w", month, err)
	}
	for _, res := range resources {
		if !strings.HasPrefix(res.Title, snapshotResourcePrefix) {
			continue
		}
		data, err := r.store.DownloadResourceBytes(res.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to download snapshot for %s: %w", month, err)
		}
		table, err := ingest.ReadSnapshotBytes(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse snapshot for %s: %w", month, err)
		}
		return table, nil
	}
	return nil, nil
}

// rotateResources deletes previously attached pipeline resources so an
// upsert replaces rather than accumulates. Deletion failures are logged;
// a stale attachment is not worth failing the report over.
func (r *Runner) rotateResources(noteID, prefix string) {
	resources, err := r.store.ListResources(noteID)
	if err != nil {
		log.Printf("[Sync] Failed to list old resources of %s: %v", noteID, err)
		return
	}
	for _, res := range resources {
		if !strings.HasPrefix(res.Title, prefix) {
			continue
		}
		if err := r.store.DeleteResource(res.ID); err != nil {
			log.Printf("[Sync] Failed to delete old resource %s: %v", res.ID, err)
		}
	}
}

// monthsForScope expands a scope name into the covered "YYYY-MM" months,
// most recent first.
func monthsForScope(scope string, now time.Time) ([]string, error) {
	var n int
	switch scope {
	case "monthly":
		n = 1
	case "quarterly":
		n = 3
	case "yearly":
		n = 12
	case "twoyear":
		n = 24
	default:
		return nil, fmt.Errorf("unknown report scope %q", scope)
	}

	months := make([]string, 0, n)
	cursor := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		months = append(months, cursor.Format("2006-01"))
		cursor = cursor.AddDate(0, -1, 0)
	}
	return months, nil
}

func deviceFromFilename(path, month string) string {
	base := filepath.Base(path)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSuffix(base, "_"+month)
}

func countDevices(table models.Table) int {
	devices := make(map[string]struct{})
	for _, r := range table {
		devices[r.DeviceID] = struct{}{}
	}
	return len(devices)
}
