package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL          string `yaml:"ttl"`
		TemplatesDir string `yaml:"templates_dir"`
	} `yaml:"quiz"`
	Runtime struct {
		AutoAdvanceDelay string `yaml:"auto_advance_delay"`
		CallTimeout      string `yaml:"call_timeout"`
	} `yaml:"runtime"`
	Events struct {
		Publisher     string   `yaml:"publisher"`
		KafkaBrokers  []string `yaml:"kafka_brokers"`
		Topic         string   `yaml:"topic"`
		ConsumerGroup string   `yaml:"consumer_group"`
	} `yaml:"events"`
	Admin struct {
		Username     string `yaml:"username"`
		PasswordHash string `yaml:"password_hash"`
		JWTSecret    string `yaml:"jwt_secret"`
		TokenTTL     string `yaml:"token_ttl"`
	} `yaml:"admin"`
	Jobs struct {
		Enabled        bool   `yaml:"enabled"`
		Concurrency    int    `yaml:"concurrency"`
		WebhookTimeout string `yaml:"webhook_timeout"`
	} `yaml:"jobs"`
}

// Load reads YAML config from path, then applies .env and environment overrides.
// A missing file is not an error; the service can run from the environment alone.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return cfg, err
	}

	// .env is optional in every environment.
	_ = godotenv.Load()
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Server.Port, "PORT")
	setString(&cfg.Postgres.URL, "DATABASE_URL")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setString(&cfg.Admin.Username, "ADMIN_USERNAME")
	setString(&cfg.Admin.PasswordHash, "ADMIN_PASSWORD_HASH")
	setString(&cfg.Admin.JWTSecret, "JWT_SECRET")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Events.Publisher, "EVENTS_PUBLISHER")
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Events.KafkaBrokers = splitList(v)
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = splitList(v)
	}
	if v := os.Getenv("JOBS_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Jobs.Enabled = b
		}
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Events.Publisher == "" {
		cfg.Events.Publisher = "direct"
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = "quiz_events"
	}
	if cfg.Events.ConsumerGroup == "" {
		cfg.Events.ConsumerGroup = "quiz-funnel-service"
	}
	if cfg.Admin.Username == "" {
		cfg.Admin.Username = "admin"
	}
	if cfg.Jobs.Concurrency <= 0 {
		cfg.Jobs.Concurrency = 5
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = []string{"*"}
	}
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
