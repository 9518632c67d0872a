package config

import (
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"cvpro-backend/internal/shared/telemetry"
)

// loadEnvFiles loads KEY=VALUE files that exist. Variables already set in
// the process environment win. Errors are ignored.
func loadEnvFiles(paths ...string) {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		_ = godotenv.Load(path)
	}
}

// loadYAMLFile reads a flat KEY: value YAML map. Missing or invalid files
// yield an empty map.
func loadYAMLFile(path string) map[string]string {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		telemetry.Warn("config.file.read_failed", map[string]any{"path": path, "err": err.Error()})
		return nil
	}
	var out map[string]string
	if err := yaml.Unmarshal(data, &out); err != nil {
		telemetry.Warn("config.file.parse_failed", map[string]any{"path": path, "err": err.Error()})
		return nil
	}
	return out
}
