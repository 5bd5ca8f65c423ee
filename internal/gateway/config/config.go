package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"bizdiag/internal/kv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string
	// AllowedOrigins limits CORS and websocket origins. Empty allows any
	// origin for CORS and only same-host origins for the websocket.
	AllowedOrigins []string
	LLM            LLMConfig
	Storage        kv.Config
	Export         ExportConfig
}

type LLMConfig struct {
	APIKey      string
	Model       string
	RPS         float64
	Burst       int
	MaxRetries  int
	BackoffBase time.Duration
}

type ExportConfig struct {
	// Sink is "disk" or "s3"; "s3" falls back to disk when the S3 settings
	// are incomplete.
	Sink string
	Dir  string
	S3   S3Config
}

type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

func (c S3Config) CanUse() bool {
	return strings.TrimSpace(c.Endpoint) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != "" &&
		strings.TrimSpace(c.Bucket) != ""
}

// Load reads .env, the environment and command-line flags. Flags win over
// the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return Parse(os.Args[1:], os.Getenv)
}

func Parse(args []string, getenv func(string) string) (*Config, error) {
	env := firstNonEmpty(strings.TrimSpace(getenv("APP_ENV")), "local")
	local := strings.EqualFold(env, "local")
	defaults := deployedConfig(getenv)
	if local {
		defaults = localConfig(getenv)
	}

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	port := fs.String("port", ":8081", "server port")
	logLevel := fs.String("log-level", strings.TrimSpace(getenv("LOG_LEVEL")), "log level (debug, info, warn, error)")
	model := fs.String("model", firstNonEmpty(strings.TrimSpace(getenv("GEMINI_MODEL")), "gemini-2.5-flash"), "Gemini model name")
	storage := fs.String("storage", firstNonEmpty(strings.TrimSpace(getenv("STORAGE_BACKEND")), defaults.Storage.Backend), "storage backend (memory, file, sqlite, postgres)")
	storagePath := fs.String("storage-path", firstNonEmpty(strings.TrimSpace(getenv("STORAGE_PATH")), defaults.Storage.Path), "file or sqlite storage location")
	sink := fs.String("export-sink", firstNonEmpty(strings.TrimSpace(getenv("EXPORT_SINK")), defaults.Export.Sink), "export sink (disk, s3)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	if envPort := strings.TrimSpace(getenv("PORT")); envPort != "" && !flagSet(fs, "port") {
		if strings.HasPrefix(envPort, ":") {
			*port = envPort
		} else {
			*port = ":" + envPort
		}
	}

	llmCfg := LLMConfig{
		APIKey:      firstNonEmpty(strings.TrimSpace(getenv("GEMINI_API_KEY")), strings.TrimSpace(getenv("API_KEY"))),
		Model:       *model,
		RPS:         2,
		Burst:       4,
		MaxRetries:  2,
		BackoffBase: time.Second,
	}
	var err error
	if llmCfg.RPS, err = floatEnv(getenv, "LLM_RPS", llmCfg.RPS); err != nil {
		return nil, err
	}
	if llmCfg.Burst, err = intEnv(getenv, "LLM_BURST", llmCfg.Burst); err != nil {
		return nil, err
	}
	if llmCfg.MaxRetries, err = intEnv(getenv, "LLM_MAX_RETRIES", llmCfg.MaxRetries); err != nil {
		return nil, err
	}
	if llmCfg.BackoffBase, err = durationEnv(getenv, "LLM_BACKOFF_BASE", llmCfg.BackoffBase); err != nil {
		return nil, err
	}

	store := defaults.Storage
	store.Backend = *storage
	store.Path = *storagePath
	store.DSN = firstNonEmpty(strings.TrimSpace(getenv("DATABASE_URL")), store.DSN)
	if store.MaxEntries, err = intEnv(getenv, "STORAGE_MAX_ENTRIES", store.MaxEntries); err != nil {
		return nil, err
	}
	if store.CacheEntries, err = intEnv(getenv, "STORAGE_CACHE_ENTRIES", store.CacheEntries); err != nil {
		return nil, err
	}

	exp := defaults.Export
	exp.Sink = *sink
	exp.Dir = firstNonEmpty(strings.TrimSpace(getenv("EXPORT_DIR")), exp.Dir)

	return &Config{
		Port:           *port,
		Env:            env,
		LogLevel:       *logLevel,
		AllowedOrigins: splitList(getenv("CORS_ALLOWED_ORIGINS")),
		LLM:            llmCfg,
		Storage:        store,
		Export:         exp,
	}, nil
}

func deployedConfig(getenv func(string) string) Config {
	return Config{
		Storage: kv.Config{Backend: kv.BackendPostgres, CacheEntries: 1024},
		Export: ExportConfig{
			Sink: "s3",
			Dir:  "exports",
			S3: S3Config{
				Endpoint:  strings.TrimSpace(getenv("EXPORT_S3_ENDPOINT")),
				Region:    firstNonEmpty(strings.TrimSpace(getenv("EXPORT_S3_REGION")), "us-east-1"),
				AccessKey: strings.TrimSpace(getenv("EXPORT_S3_ACCESS_KEY")),
				SecretKey: strings.TrimSpace(getenv("EXPORT_S3_SECRET_KEY")),
				Bucket:    firstNonEmpty(strings.TrimSpace(getenv("EXPORT_S3_BUCKET")), "bizdiag-exports"),
				UseSSL:    boolEnv(getenv, "EXPORT_S3_USE_SSL", true),
			},
		},
	}
}

func flagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func intEnv(getenv func(string) string, key string, def int) (int, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func floatEnv(getenv func(string) string, key string, def float64) (float64, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func durationEnv(getenv func(string) string, key string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return v, nil
}

func boolEnv(getenv func(string) string, key string, def bool) bool {
	raw := strings.TrimSpace(getenv(key))
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
