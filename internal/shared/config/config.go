package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"cvpro-backend/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool

	LLMProvider  string
	LLMModel     string
	GeminiAPIKey string
	OpenAIAPIKey string
	AITimeout    time.Duration
	AIMaxRetries int
	AIRetryDelay time.Duration

	IngestValidateSchema bool
	IngestTempDir        string
	MaxUploadBytes       int64
	ExtractRatePerSec    float64
	ExtractRateBurst     int
	ResetRatePerSec      float64
	ResetRateBurst       int

	JWTSecret       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	AdminSignupKey  string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string
}

// Load reads configuration from environment variables with sensible defaults.
// Values from CONFIG_FILE (YAML) act as defaults beneath the environment.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	src := source{file: loadYAMLFile(os.Getenv("CONFIG_FILE"))}

	env := normalizeEnv(src.get("ENV", "dev"))
	dbURL := src.get("DATABASE_URL", "")
	jwtSecret := src.get("JWT_SECRET", "")

	if env == "production" {
		if dbURL == "" {
			telemetry.Warn("config.missing", map[string]any{"key": "DATABASE_URL", "env": env})
		}
		if jwtSecret == "" {
			telemetry.Warn("config.missing", map[string]any{"key": "JWT_SECRET", "env": env})
		}
	}

	return Config{
		Port:            src.get("PORT", "8000"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(src.get("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		DatabaseURL:     dbURL,

		ObjectStoreType: normalizeStoreType(src.get("OBJECT_STORE", "local")),
		LocalStoreDir:   src.get("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       src.get("AWS_REGION", ""),
		S3Bucket:        src.get("S3_BUCKET", ""),
		S3Prefix:        src.get("S3_PREFIX", "images/"),
		SSEKMSKeyID:     src.get("SSE_KMS_KEY_ID", ""),
		MinioEndpoint:   src.get("MINIO_ENDPOINT", ""),
		MinioAccessKey:  src.get("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  src.get("MINIO_SECRET_KEY", ""),
		MinioBucket:     src.get("MINIO_BUCKET", "resume-images"),
		MinioUseSSL:     src.getBool("MINIO_USE_SSL", false),

		LLMProvider:  normalizeProvider(src.get("LLM_PROVIDER", "gemini")),
		LLMModel:     src.get("LLM_MODEL", ""),
		GeminiAPIKey: src.get("GEMINI_API_KEY", ""),
		OpenAIAPIKey: src.get("OPENAI_API_KEY", ""),
		AITimeout:    src.getDuration("AI_TIMEOUT", 60*time.Second),
		AIMaxRetries: src.getInt("AI_MAX_RETRIES", 1),
		AIRetryDelay: src.getDuration("AI_RETRY_DELAY", 500*time.Millisecond),

		IngestValidateSchema: src.getBool("INGEST_VALIDATE_SCHEMA", true),
		IngestTempDir:        src.get("INGEST_TEMP_DIR", ""),
		MaxUploadBytes:       int64(src.getInt("MAX_UPLOAD_BYTES", 10<<20)),
		ExtractRatePerSec:    src.getFloat("EXTRACT_RATE_PER_SEC", 0.2),
		ExtractRateBurst:     src.getInt("EXTRACT_RATE_BURST", 5),
		ResetRatePerSec:      src.getFloat("RESET_RATE_PER_SEC", 0.05),
		ResetRateBurst:       src.getInt("RESET_RATE_BURST", 5),

		JWTSecret:       jwtSecret,
		AccessTokenTTL:  src.getDuration("ACCESS_TOKEN_TTL", time.Hour),
		RefreshTokenTTL: src.getDuration("REFRESH_TOKEN_TTL", 24*time.Hour),
		AdminSignupKey:  src.get("ADMIN_SIGNUP_KEY", ""),

		GoogleClientID:     src.get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: src.get("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  src.get("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      src.get("UI_REDIRECT_URL", ""),
	}
}

// IsDevLike reports whether env allows in-memory fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if val, ok := s.file[key]; ok && val != "" {
		return val
	}
	return def
}

func (s source) getInt(key string, def int) int {
	raw := strings.TrimSpace(s.get(key, ""))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "value": raw, "err": err.Error()})
		return def
	}
	return val
}

func (s source) getFloat(key string, def float64) float64 {
	raw := strings.TrimSpace(s.get(key, ""))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "value": raw, "err": err.Error()})
		return def
	}
	return val
}

func (s source) getBool(key string, def bool) bool {
	raw := strings.TrimSpace(s.get(key, ""))
	if raw == "" {
		return def
	}
	val, err := strconv.ParseBool(raw)
	if err != nil {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "value": raw, "err": err.Error()})
		return def
	}
	return val
}

// getDuration accepts Go durations ("90s") or bare integers as seconds.
func (s source) getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(s.get(key, ""))
	if raw == "" {
		return def
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		return time.Duration(secs) * time.Second
	}
	val, err := time.ParseDuration(raw)
	if err != nil {
		telemetry.Warn("config.invalid", map[string]any{"key": key, "value": raw, "err": err.Error()})
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	case "minio":
		return "minio"
	default:
		return "local"
	}
}

func normalizeProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "none", "off", "":
		return "none"
	default:
		return "gemini"
	}
}
