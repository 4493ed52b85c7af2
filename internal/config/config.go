// Package config holds the gateway configuration: defaults, an optional YAML
// file, .env files and environment variables. Command-line flags are applied
// on top by the cmd package.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// TLS modes for the IMAP and SMTP connections.
const (
	TLSImplicit = "implicit"
	TLSStartTLS = "starttls"
	TLSNone     = "none"
)

// Data store backends.
const (
	BackendPostgREST = "postgrest"
	BackendPostgres  = "postgres"
)

// Config is the complete gateway configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	IMAP     MailConfig     `yaml:"imap"`
	SMTP     SMTPConfig     `yaml:"smtp"`
	Calendar CalendarConfig `yaml:"calendar"`
	Business StoreConfig    `yaml:"business_db"`
	Admin    StoreConfig    `yaml:"admin_db"`
	Workflow WorkflowConfig `yaml:"workflow"`
	SMS      SMSConfig      `yaml:"sms"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	ReadOnly bool           `yaml:"read_only"`
}

// HTTPConfig configures the SSE transport listener.
type HTTPConfig struct {
	Addr              string        `yaml:"addr"`
	KeepAliveInterval time.Duration `yaml:"keepalive_interval"`
}

// MailConfig configures the IMAP mailbox.
type MailConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	TLS      string        `yaml:"tls"`
	Timeout  time.Duration `yaml:"timeout"`
}

// SMTPConfig configures outbound mail.
type SMTPConfig struct {
	Host     string        `yaml:"host"`
	Port     int           `yaml:"port"`
	User     string        `yaml:"user"`
	Password string        `yaml:"password"`
	From     string        `yaml:"from"`
	TLS      string        `yaml:"tls"`
	Timeout  time.Duration `yaml:"timeout"`
}

// CalendarConfig configures the ICS feed.
type CalendarConfig struct {
	URL      string        `yaml:"url"`
	Timezone string        `yaml:"timezone"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// StoreConfig configures one named data store. An empty Backend means the
// store is not configured.
type StoreConfig struct {
	Backend string `yaml:"backend"`
	URL     string `yaml:"url"`
	Key     string `yaml:"key"`
	DSN     string `yaml:"dsn"`
}

// Configured reports whether the store has enough settings to be opened.
func (s StoreConfig) Configured() bool {
	switch s.Backend {
	case BackendPostgREST:
		return s.URL != ""
	case BackendPostgres:
		return s.DSN != ""
	}
	return false
}

// WorkflowConfig configures the serverless function endpoint.
type WorkflowConfig struct {
	URL string `yaml:"url"`
	Key string `yaml:"key"`
}

// SMSConfig configures the Twilio account.
type SMSConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	FromNumber string `yaml:"from_number"`
	BaseURL    string `yaml:"base_url"`
}

// Configured reports whether all Twilio credentials are present.
func (s SMSConfig) Configured() bool {
	return s.AccountSID != "" && s.AuthToken != "" && s.FromNumber != ""
}

// MetricsConfig configures the dedicated Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the configuration used when nothing else is supplied.
func Default() Config {
	return Config{
		HTTP: HTTPConfig{
			Addr:              ":3000",
			KeepAliveInterval: 15 * time.Second,
		},
		IMAP: MailConfig{
			Port:    993,
			TLS:     TLSImplicit,
			Timeout: 30 * time.Second,
		},
		SMTP: SMTPConfig{
			Port:    465,
			TLS:     TLSImplicit,
			Timeout: 30 * time.Second,
		},
		Calendar: CalendarConfig{
			CacheTTL: 5 * time.Minute,
		},
		Business: StoreConfig{Backend: BackendPostgREST},
		Admin:    StoreConfig{Backend: BackendPostgREST},
		SMS: SMSConfig{
			BaseURL: "https://api.twilio.com",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
	}
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are ignored; variables already set are not overwritten.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// Load builds a Config from defaults, the YAML file at path (if non-empty)
// and the process environment.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LookupFunc matches os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// ApplyEnv overlays environment variables on c.
func (c *Config) ApplyEnv(lookup LookupFunc) error {
	e := envReader{lookup: lookup}

	if port, ok := e.get("PORT"); ok {
		c.HTTP.Addr = ":" + port
	}
	e.str("HTTP_ADDR", &c.HTTP.Addr)
	e.duration("KEEPALIVE_INTERVAL", &c.HTTP.KeepAliveInterval)

	e.str("IMAP_HOST", &c.IMAP.Host)
	e.integer("IMAP_PORT", &c.IMAP.Port)
	e.str("IMAP_USER", &c.IMAP.User)
	e.str("IMAP_PASSWORD", &c.IMAP.Password)
	e.str("IMAP_TLS", &c.IMAP.TLS)
	e.duration("IMAP_TIMEOUT", &c.IMAP.Timeout)

	e.str("SMTP_HOST", &c.SMTP.Host)
	e.integer("SMTP_PORT", &c.SMTP.Port)
	e.str("SMTP_USER", &c.SMTP.User)
	e.str("SMTP_PASSWORD", &c.SMTP.Password)
	e.str("SMTP_FROM", &c.SMTP.From)
	e.str("SMTP_TLS", &c.SMTP.TLS)

	e.str("CALENDAR_URL", &c.Calendar.URL)
	e.str("CALENDAR_TIMEZONE", &c.Calendar.Timezone)
	e.duration("CALENDAR_CACHE_TTL", &c.Calendar.CacheTTL)

	e.store("BUSINESS_DB", &c.Business)
	e.store("ADMIN_DB", &c.Admin)

	e.str("WORKFLOW_URL", &c.Workflow.URL)
	e.str("WORKFLOW_KEY", &c.Workflow.Key)

	e.str("TWILIO_ACCOUNT_SID", &c.SMS.AccountSID)
	e.str("TWILIO_AUTH_TOKEN", &c.SMS.AuthToken)
	e.str("TWILIO_FROM_NUMBER", &c.SMS.FromNumber)
	e.str("TWILIO_BASE_URL", &c.SMS.BaseURL)

	e.boolean("METRICS_ENABLED", &c.Metrics.Enabled)
	e.str("METRICS_ADDR", &c.Metrics.Addr)
	e.boolean("READ_ONLY", &c.ReadOnly)

	return errors.Join(e.errs...)
}

// Validate checks value shapes. Missing credentials are not an error here;
// the component that needs them reports it when used.
func (c *Config) Validate() error {
	var errs []error

	if c.HTTP.KeepAliveInterval <= 0 {
		errs = append(errs, errors.New("keepalive interval must be positive"))
	}
	for name, mode := range map[string]string{"imap": c.IMAP.TLS, "smtp": c.SMTP.TLS} {
		switch mode {
		case TLSImplicit, TLSStartTLS, TLSNone:
		default:
			errs = append(errs, fmt.Errorf("invalid %s tls mode %q, must be one of: implicit, starttls, none", name, mode))
		}
	}
	for name, port := range map[string]int{"imap": c.IMAP.Port, "smtp": c.SMTP.Port} {
		if port <= 0 || port > 65535 {
			errs = append(errs, fmt.Errorf("invalid %s port %d", name, port))
		}
	}
	for name, store := range map[string]StoreConfig{"business_db": c.Business, "admin_db": c.Admin} {
		switch store.Backend {
		case "", BackendPostgREST, BackendPostgres:
		default:
			errs = append(errs, fmt.Errorf("invalid %s backend %q, must be one of: postgrest, postgres", name, store.Backend))
		}
	}
	if c.Calendar.Timezone != "" {
		if _, err := time.LoadLocation(c.Calendar.Timezone); err != nil {
			errs = append(errs, fmt.Errorf("invalid calendar timezone: %w", err))
		}
	}
	if c.Calendar.CacheTTL < 0 {
		errs = append(errs, errors.New("calendar cache ttl must not be negative"))
	}

	return errors.Join(errs...)
}

// CalendarLocation returns the configured calendar location, or time.Local.
func (c *Config) CalendarLocation() *time.Location {
	if c.Calendar.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Calendar.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type envReader struct {
	lookup LookupFunc
	errs   []error
}

func (e *envReader) get(key string) (string, bool) {
	v, ok := e.lookup(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func (e *envReader) str(key string, dst *string) {
	if v, ok := e.get(key); ok {
		*dst = v
	}
}

func (e *envReader) integer(key string, dst *int) {
	if v, ok := e.get(key); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*dst = n
	}
}

func (e *envReader) boolean(key string, dst *bool) {
	if v, ok := e.get(key); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*dst = b
	}
}

func (e *envReader) duration(key string, dst *time.Duration) {
	if v, ok := e.get(key); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			e.errs = append(e.errs, fmt.Errorf("invalid %s: %w", key, err))
			return
		}
		*dst = d
	}
}

func (e *envReader) store(prefix string, dst *StoreConfig) {
	e.str(prefix+"_BACKEND", &dst.Backend)
	e.str(prefix+"_URL", &dst.URL)
	e.str(prefix+"_KEY", &dst.Key)
	e.str(prefix+"_DSN", &dst.DSN)
}
