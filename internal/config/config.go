package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"

	EmailResend = "resend"
	EmailSMTP   = "smtp"
	EmailLog    = "log"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Port        string
	CORSOrigins []string
	JWTKey      []byte
	LogLevel    string

	StoreDriver string
	MongoURI    string
	MongoDB     string

	EmailDriver  string
	ResendAPIKey string
	FromEmail    string
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string

	OTPTTL            time.Duration
	OTPRatePerMinute  int
	AnalyticsInterval time.Duration
	PrivilegedRoles   []string
}

// Load reads the configuration and validates required values.
func Load() (*Config, error) {
	cfg := &Config{
		Port:         getenv("PORT", "8080"),
		CORSOrigins:  splitList(getenv("CORS_ORIGINS", "http://localhost:5173")),
		JWTKey:       []byte(os.Getenv("JWT_KEY")),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		StoreDriver:  getenv("STORE_DRIVER", StoreMongo),
		MongoURI:     os.Getenv("MONGO_URI"),
		MongoDB:      getenv("MONGO_DB", "smart_notice"),
		EmailDriver:  getenv("EMAIL_DRIVER", EmailResend),
		ResendAPIKey: os.Getenv("RESEND_API_KEY"),
		FromEmail:    os.Getenv("FROM_EMAIL"),
		SMTPHost:     os.Getenv("SMTP_HOST"),
		SMTPUser:     os.Getenv("SMTP_USER"),
		SMTPPassword: os.Getenv("SMTP_PASSWORD"),
	}
	cfg.PrivilegedRoles = splitList(getenv("PRIVILEGED_ROLES", "admin,academic_head"))

	var errs []error
	var err error
	if cfg.OTPTTL, err = durationEnv("OTP_TTL", 5*time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.AnalyticsInterval, err = durationEnv("ANALYTICS_INTERVAL", time.Minute); err != nil {
		errs = append(errs, err)
	}
	if cfg.OTPRatePerMinute, err = intEnv("OTP_RATE_PER_MINUTE", 5); err != nil {
		errs = append(errs, err)
	}
	if cfg.SMTPPort, err = intEnv("SMTP_PORT", 587); err != nil {
		errs = append(errs, err)
	}

	if len(cfg.JWTKey) == 0 {
		errs = append(errs, errors.New("JWT_KEY not set"))
	}
	switch cfg.StoreDriver {
	case StoreMongo:
		if cfg.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI not set"))
		}
	case StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver))
	}
	switch cfg.EmailDriver {
	case EmailResend:
		if cfg.ResendAPIKey == "" || cfg.FromEmail == "" {
			errs = append(errs, errors.New("RESEND_API_KEY and FROM_EMAIL are required for the resend driver"))
		}
	case EmailSMTP:
		if cfg.SMTPHost == "" || cfg.FromEmail == "" {
			errs = append(errs, errors.New("SMTP_HOST and FROM_EMAIL are required for the smtp driver"))
		}
	case EmailLog:
	default:
		errs = append(errs, fmt.Errorf("unknown EMAIL_DRIVER %q", cfg.EmailDriver))
	}
	if cfg.OTPTTL <= 0 || cfg.AnalyticsInterval <= 0 {
		errs = append(errs, errors.New("OTP_TTL and ANALYTICS_INTERVAL must be positive"))
	}

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c *Config) Addr() string {
	return ":" + strings.TrimPrefix(c.Port, ":")
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func durationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
