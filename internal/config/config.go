package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	DatabaseURL string
	JWTSecret   string
	JWTTTL      time.Duration
	Location    *time.Location

	HTTPAddr            string // mémoires API
	MarketplaceHTTPAddr string
	LogLevel            string
	Env                 string // dev|prod
	SentryDSN           string
	Release             string

	AdminEmails []string

	BotToken            string // empty: notifications disabled
	JuryReminderEvery   time.Duration
	JuryReminderAdvance time.Duration

	OSS      OSSConfig
	Midtrans MidtransConfig
}

type OSSConfig struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	SecurityToken   string
	Bucket          string
	Prefix          string
}

// Enabled reports whether every mandatory OSS variable is present.
func (c OSSConfig) Enabled() bool {
	return c.Endpoint != "" && c.AccessKeyID != "" && c.AccessKeySecret != "" && c.Bucket != ""
}

type MidtransConfig struct {
	ServerKey  string
	Production bool
}

func Load() (*Config, error) {
	tz := getenv("TZ", "Africa/Douala")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.Local
	}

	ttl, err := getDuration("JWT_TTL", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	every, err := getDuration("JURY_REMINDER_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}
	advance, err := getDuration("JURY_REMINDER_ADVANCE", 24*time.Hour)
	if err != nil {
		return nil, err
	}
	prod, err := getBool("MIDTRANS_PRODUCTION", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DatabaseURL:         mustEnv("DATABASE_URL"),
		JWTSecret:           mustEnv("JWT_SECRET"),
		JWTTTL:              ttl,
		Location:            loc,
		HTTPAddr:            getenv("HTTP_ADDR", ":8080"),
		MarketplaceHTTPAddr: getenv("MARKETPLACE_HTTP_ADDR", ":8081"),
		LogLevel:            getenv("LOG_LEVEL", "info"),
		Env:                 getenv("ENV", "dev"),
		SentryDSN:           os.Getenv("SENTRY_DSN"),
		Release:             getenv("RELEASE", "dev"),
		AdminEmails:         parseList(os.Getenv("ADMIN_EMAILS")),
		BotToken:            os.Getenv("BOT_TOKEN"),
		JuryReminderEvery:   every,
		JuryReminderAdvance: advance,
		OSS: OSSConfig{
			Endpoint:        os.Getenv("ALI_OSS_ENDPOINT"),
			AccessKeyID:     os.Getenv("ALI_OSS_ACCESS_KEY_ID"),
			AccessKeySecret: os.Getenv("ALI_OSS_ACCESS_KEY_SECRET"),
			SecurityToken:   os.Getenv("ALI_OSS_SECURITY_TOKEN"),
			Bucket:          os.Getenv("ALI_OSS_BUCKET"),
			Prefix:          getenv("ALI_OSS_PREFIX", "pensezy"),
		},
		Midtrans: MidtransConfig{
			ServerKey:  os.Getenv("MIDTRANS_SERVER_KEY"),
			Production: prod,
		},
	}
	return cfg, nil
}

// IsAdminEmail reports whether email belongs to the ADMIN_EMAILS allow-list.
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, e := range c.AdminEmails {
		if e == email {
			return true
		}
	}
	return false
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("required env " + k + " is empty")
	}
	return v
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getDuration(k string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", k, err)
	}
	return d, nil
}

func getBool(k string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", k, err)
	}
	return b, nil
}

func parseList(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' || r == ';' })
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
