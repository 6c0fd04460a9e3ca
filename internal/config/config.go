package config

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/sethvargo/go-envconfig"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Log          LogConfig          `yaml:"log"`
	Database     DatabaseConfig     `yaml:"database"`
	JWT          JWTConfig          `yaml:"jwt"`
	Redis        RedisConfig        `yaml:"redis"`
	Mail         MailConfig         `yaml:"mail"`
	Verification VerificationConfig `yaml:"verification"`
	Reminder     ReminderConfig     `yaml:"reminder"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
}

type ServerConfig struct {
	Host string `yaml:"host" env:"SERVER_HOST, overwrite"`
	Port string `yaml:"port" env:"SERVER_PORT, overwrite"`
	Mode string `yaml:"mode" env:"SERVER_MODE, overwrite"` // debug, release, test
	// AllowOrigins lists the CORS origins; empty or "*" allows any origin.
	AllowOrigins []string `yaml:"allow_origins" env:"CORS_ALLOW_ORIGINS, overwrite"`
}

type LogConfig struct {
	Level string `yaml:"level" env:"LOG_LEVEL, overwrite"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver" env:"DB_DRIVER, overwrite"` // sqlite, mysql, postgres
	DSN    string `yaml:"dsn" env:"DB_DSN, overwrite"`
	Debug  bool   `yaml:"debug" env:"DB_DEBUG, overwrite"`
}

type JWTConfig struct {
	Secret        string `yaml:"secret" env:"SECRET_KEY, overwrite"`
	ExpireMinutes int    `yaml:"expire_minutes" env:"JWT_EXPIRES_TIME, overwrite"`
}

// TTL returns the access token lifetime.
func (c JWTConfig) TTL() time.Duration {
	return time.Duration(c.ExpireMinutes) * time.Minute
}

// RedisConfig for the optional async notification queue
type RedisConfig struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED, overwrite"`
	Addr     string `yaml:"addr" env:"REDIS_ADDR, overwrite"`
	Password string `yaml:"password" env:"REDIS_PASSWORD, overwrite"`
	DB       int    `yaml:"db" env:"REDIS_DB, overwrite"`
}

type MailConfig struct {
	Host     string `yaml:"host" env:"MAIL_SERVER, overwrite"`
	Port     int    `yaml:"port" env:"MAIL_SERVER_PORT, overwrite"`
	Username string `yaml:"username" env:"MAIL_USERNAME, overwrite"`
	Password string `yaml:"password" env:"MAIL_PASSWORD, overwrite"`
	From     string `yaml:"from" env:"MAIL_FROM, overwrite"`
	UseTLS   bool   `yaml:"use_tls" env:"MAIL_USE_TLS, overwrite"`
}

// VerificationConfig controls e-mail verification and password reset codes.
// In developer mode every code is TestCode and no mail leaves the process.
type VerificationConfig struct {
	DeveloperMode bool          `yaml:"developer_mode" env:"DEVELOPER_MODE, overwrite"`
	TestCode      string        `yaml:"test_code" env:"DEVELOPER_MODE_TEST_CODE, overwrite"`
	CodeLength    int           `yaml:"code_length" env:"VERIFICATION_CODE_LENGTH, overwrite"`
	CodeTTL       time.Duration `yaml:"code_ttl" env:"EMAIL_VERIFICATION_EXP_TIME, overwrite"`
}

type ReminderConfig struct {
	Enabled    bool   `yaml:"enabled" env:"REMINDER_ENABLED, overwrite"`
	StartCron  string `yaml:"start_cron" env:"REMINDER_START_CRON, overwrite"`
	FinishCron string `yaml:"finish_cron" env:"REMINDER_FINISH_CRON, overwrite"`
	// DedupWindow suppresses a repeated reminder for the same card and
	// timestamp within the window. Zero keeps every run re-sending.
	DedupWindow time.Duration `yaml:"dedup_window" env:"REMINDER_DEDUP_WINDOW, overwrite"`
}

type RateLimitConfig struct {
	AuthRPS   float64 `yaml:"auth_rps" env:"RATE_LIMIT_AUTH_RPS, overwrite"`
	AuthBurst int     `yaml:"auth_burst" env:"RATE_LIMIT_AUTH_BURST, overwrite"`
}

// Load reads configPath (default config.yaml), then a .env file next to the
// working directory, then environment variables. Later sources win.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = "config.yaml"
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	}

	// .env is optional
	_ = godotenv.Load()

	if err := envconfig.Process(context.Background(), cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         "8000",
			Mode:         "debug",
			AllowOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level: "info",
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "taskboard.db",
		},
		JWT: JWTConfig{
			Secret:        "taskboard-secret-key-change-in-production",
			ExpireMinutes: 60 * 24,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			DB:      0,
		},
		Mail: MailConfig{
			Host: "smtp.googlemail.com",
			Port: 587,
		},
		Verification: VerificationConfig{
			DeveloperMode: true,
			TestCode:      "123456",
			CodeLength:    6,
			CodeTTL:       5 * time.Minute,
		},
		Reminder: ReminderConfig{
			Enabled:    true,
			StartCron:  "*/15 * * * *",
			FinishCron: "0 * * * *",
		},
		RateLimit: RateLimitConfig{
			AuthRPS:   1,
			AuthBurst: 5,
		},
	}
}

func (c *Config) Save(configPath string) error {
	if configPath == "" {
		configPath = "config.yaml"
	}

	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(configPath, data, 0644)
}
