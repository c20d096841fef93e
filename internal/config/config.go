package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
	"go.uber.org/zap/zapcore"
	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	Env      string `mapstructure:"BLOG_ENV"`
	HTTPAddr string `mapstructure:"BLOG_HTTP_ADDR"`
	LogLevel string `mapstructure:"BLOG_LOG_LEVEL"` // empty means the env default

	Database DBConfig       `mapstructure:",squash"`
	Auth     AuthConfig     `mapstructure:",squash"`
	Security SecurityConfig `mapstructure:",squash"`
}

type DBConfig struct {
	Path string `mapstructure:"BLOG_DB_PATH"`
}

type AuthConfig struct {
	SessionTTL    time.Duration `mapstructure:"BLOG_SESSION_TTL"`
	BcryptCost    int           `mapstructure:"BLOG_BCRYPT_COST"`
	AdminUsername string        `mapstructure:"BLOG_ADMIN_USERNAME"` // promoted to admin at startup
}

type SecurityConfig struct {
	RequestTimeout     time.Duration `mapstructure:"BLOG_REQUEST_TIMEOUT"`
	RateLimitRPM       int           `mapstructure:"BLOG_RATE_LIMIT_RPM"`
	CORSAllowedOrigins []string      `mapstructure:"BLOG_CORS_ALLOWED_ORIGINS"`
}

func loadDotEnvFiles() {
	candidates := []string{
		".env",
		filepath.Join("..", ".env"),
	}

	seen := make(map[string]struct{})
	for _, path := range candidates {
		abs := path
		if resolved, err := filepath.Abs(path); err == nil {
			abs = resolved
		}
		if _, ok := seen[abs]; ok {
			continue
		}
		seen[abs] = struct{}{}

		if _, err := os.Stat(path); err == nil {
			_ = gotenv.Load(path) // variables already in the environment win
		}
	}
}

func Load() (*Config, error) {
	loadDotEnvFiles()

	v := viper.New()
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("BLOG_ENV", "dev")
	v.SetDefault("BLOG_HTTP_ADDR", ":8080")
	v.SetDefault("BLOG_LOG_LEVEL", "")
	v.SetDefault("BLOG_DB_PATH", "blog.db")
	v.SetDefault("BLOG_SESSION_TTL", "24h")
	v.SetDefault("BLOG_BCRYPT_COST", bcrypt.DefaultCost)
	v.SetDefault("BLOG_ADMIN_USERNAME", "")
	v.SetDefault("BLOG_REQUEST_TIMEOUT", "30s")
	v.SetDefault("BLOG_RATE_LIMIT_RPM", 120)
	v.SetDefault("BLOG_CORS_ALLOWED_ORIGINS", "http://localhost:3000")

	if origins := v.GetString("BLOG_CORS_ALLOWED_ORIGINS"); origins != "" {
		v.Set("BLOG_CORS_ALLOWED_ORIGINS", splitList(origins))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) validate() error {
	switch c.Env {
	case "dev", "test", "prod":
	default:
		return fmt.Errorf("invalid BLOG_ENV %q (must be dev, test, or prod)", c.Env)
	}
	if c.LogLevel != "" {
		if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
			return fmt.Errorf("invalid BLOG_LOG_LEVEL %q", c.LogLevel)
		}
	}
	if c.HTTPAddr == "" {
		return fmt.Errorf("BLOG_HTTP_ADDR is required")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("BLOG_DB_PATH is required")
	}
	if c.Auth.SessionTTL <= 0 {
		return fmt.Errorf("BLOG_SESSION_TTL must be positive")
	}
	if c.Auth.BcryptCost < bcrypt.MinCost || c.Auth.BcryptCost > bcrypt.MaxCost {
		return fmt.Errorf("BLOG_BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.Security.RequestTimeout <= 0 {
		return fmt.Errorf("BLOG_REQUEST_TIMEOUT must be positive")
	}
	if c.Security.RateLimitRPM < 0 {
		return fmt.Errorf("BLOG_RATE_LIMIT_RPM must not be negative")
	}
	return nil
}

func (c *Config) IsDev() bool {
	return c.Env == "dev"
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}
