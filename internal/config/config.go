// Package config centralises configuration for a report run. One Config is
// built in main and passed explicitly into every pipeline stage.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config 应用配置
type Config struct {
	// Note store collaborator
	JoplinURL   string
	JoplinToken string

	// Local paths
	ConfigDBPath string // device-identity KV store
	OutputDir    string // rendered reports and chart artifacts
	RawDataDir   string // raw per-device location files

	// Preview server
	Port      string
	JWTSecret string

	// Report scopes to run end-to-end
	Scopes []string

	// Pipeline parameters
	ChunkSize         int
	FusionWindow      time.Duration
	DayThresholdMin   float64
	NightThresholdMin float64
	StayDistanceM     float64
	SmoothWindow      int
	ClusterRadiusKm   float64
	ClusterMinPoints  int
	ClusterSampleSize int
	ClusterSeed       int64
}

// Load 加载配置
func Load() *Config {
	return &Config{
		JoplinURL:   getEnv("JOPLIN_URL", "http://127.0.0.1:41184"),
		JoplinToken: getEnv("JOPLIN_TOKEN", ""),

		ConfigDBPath: getEnv("CONFIG_DB_PATH", "./data/config.db"),
		OutputDir:    getEnv("OUTPUT_DIR", "./data/reports"),
		RawDataDir:   getEnv("RAW_DATA_DIR", "./data/raw"),

		Port:      getEnv("PORT", ":8080"),
		JWTSecret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),

		Scopes: splitAndTrim(getEnv("REPORT_SCOPES", "monthly,quarterly,yearly,twoyear")),

		ChunkSize:         getIntEnv("INGEST_CHUNK_SIZE", 10000),
		FusionWindow:      getDurationEnv("FUSION_WINDOW", 2*time.Hour),
		DayThresholdMin:   getFloatEnv("GAP_DAY_THRESHOLD_MIN", 30),
		NightThresholdMin: getFloatEnv("GAP_NIGHT_THRESHOLD_MIN", 360),
		StayDistanceM:     getFloatEnv("STAY_DISTANCE_M", 200),
		SmoothWindow:      getIntEnv("SMOOTH_WINDOW", 5),
		ClusterRadiusKm:   getFloatEnv("CLUSTER_RADIUS_KM", 0.5),
		ClusterMinPoints:  getIntEnv("CLUSTER_MIN_POINTS", 10),
		ClusterSampleSize: getIntEnv("CLUSTER_SAMPLE_SIZE", 5000),
		ClusterSeed:       int64(getIntEnv("CLUSTER_SEED", 42)),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if v, err := strconv.ParseFloat(value, 64); err == nil {
			return v
		}
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if v, err := time.ParseDuration(value); err == nil {
			return v
		}
	}
	return fallback
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
