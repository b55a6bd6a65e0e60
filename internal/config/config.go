package config

import "os"

type Config struct {
	Port         string
	DatabaseDSN  string
	Env          string
	LogLevel     string
	AssetVersion string
	AssetOrigin  string
}

// Load loads configuration from environment with sensible defaults.
// Precedence: explicit env var > .env file (if loaded by main) > default.
func Load() Config {
	cfg := Config{}
	cfg.Port = getEnv("PORT", "8080")
	cfg.DatabaseDSN = getEnv("DATABASE_DSN", "zakupki.db")
	cfg.Env = getEnv("APP_ENV", "development")
	cfg.LogLevel = getEnv("LOG_LEVEL", "info")
	cfg.AssetVersion = getEnv("ASSET_VERSION", "v8")
	// Empty origin disables the asset cache; the API still runs.
	cfg.AssetOrigin = getEnv("ASSET_ORIGIN", "")
	return cfg
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
