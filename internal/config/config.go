package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config carries process-level settings, all sourced from the environment.
type Config struct {
	HTTPAddr        string
	PGDSN           string
	AuthSecret      string
	KVPath          string
	PermissionsPath string
	AnalyzerURL     string
	ResumeBucket    string
	SessionTTL      time.Duration
	SuccessReset    time.Duration
	MigrationsDir   string
	SeedsDir        string
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// Load reads the configuration from the environment. PGDSN may be empty, in
// which case the service runs on the in-memory store.
func Load() Config {
	cfg := Config{
		HTTPAddr:        getenv("ATLASFORGE_HTTP_ADDR", ":8080"),
		PGDSN:           os.Getenv("ATLASFORGE_PG_DSN"),
		AuthSecret:      os.Getenv("ATLASFORGE_AUTH_SECRET"),
		KVPath:          getenv("ATLASFORGE_KV_PATH", "atlasforge-state.json"),
		PermissionsPath: os.Getenv("ATLASFORGE_PERMISSIONS_PATH"),
		AnalyzerURL:     os.Getenv("ATLASFORGE_ANALYZER_URL"),
		ResumeBucket:    getenv("ATLASFORGE_RESUME_BUCKET", "applications"),
		SessionTTL:      getenvDuration("ATLASFORGE_SESSION_TTL", 24*time.Hour),
		SuccessReset:    getenvDuration("ATLASFORGE_SUCCESS_RESET", 3*time.Second),
		MigrationsDir:   getenv("ATLASFORGE_MIGRATIONS_DIR", "migrations"),
		SeedsDir:        getenv("ATLASFORGE_SEEDS_DIR", "migrations/seeds"),
	}
	if cfg.AuthSecret == "" {
		cfg.AuthSecret = "dev-secret-change-me"
	}
	return cfg
}

// LoadPermissions reads a role -> allowed-paths table from a YAML file:
//
//	admin:
//	  - /admin/dashboard
//	  - /admin/users
//	hr:
//	  - /admin/dashboard
//	  - /admin/jobs
func LoadPermissions(path string) (map[string][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read permissions %s: %w", path, err)
	}
	var table map[string][]string
	if err := yaml.Unmarshal(raw, &table); err != nil {
		return nil, fmt.Errorf("config: decode permissions %s: %w", path, err)
	}
	return table, nil
}
