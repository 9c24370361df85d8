package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DBPath    string
	OutputDir string
	HTTPAddr  string

	LogLevel  string
	LogFormat string

	PreferredSheet      string
	DecodeConcurrency   int
	DecodeTimeout       time.Duration
	PassthroughMinRunes int
	MaxUploadMB         int
	RunHistoryLimit     int

	MappingFile string
	Mapping     Mapping

	WatchDir         string
	WatchIntervalSec int

	MailProvider string
	MailFolder   string
	MailFetchMax int
	MailPollSec  int

	IMAPHost     string
	IMAPPort     int
	IMAPSecure   bool
	IMAPUser     string
	IMAPPassword string
	IMAPMarkSeen bool

	GmailClientID     string
	GmailClientSecret string
	GmailRedirectURI  string
	GmailRefreshToken string
}

const (
	MailProviderIMAP  = "imap"
	MailProviderGmail = "gmail"
)

// Mapping holds optional overrides for the alias lists and extra classifier rules.
// Alias fields left nil keep the built-in lists.
type Mapping struct {
	Aliases AliasOverrides `yaml:"aliases"`
	Rules   []RuleSpec     `yaml:"rules"`
}

type AliasOverrides struct {
	Subsystem           []string `yaml:"subsystem"`
	Tag                 []string `yaml:"tag"`
	Description         []string `yaml:"description"`
	Location            []string `yaml:"location"`
	CalibrationRequired []string `yaml:"calibration_required"`
	CalibrationStatus   []string `yaml:"calibration_status"`
	Origin              []string `yaml:"origin"`
}

type RuleSpec struct {
	Subsystem string   `yaml:"subsystem"`
	Contains  []string `yaml:"contains"`
	Equals    []string `yaml:"equals"`
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "runs.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		PreferredSheet:      getEnv("PREFERRED_SHEET", "BASE_CONSOLIDADA"),
		DecodeConcurrency:   getEnvInt("DECODE_CONCURRENCY", 4),
		DecodeTimeout:       time.Duration(getEnvInt("DECODE_TIMEOUT_SEC", 60)) * time.Second,
		PassthroughMinRunes: getEnvInt("PASSTHROUGH_MIN_RUNES", 3),
		MaxUploadMB:         getEnvInt("MAX_UPLOAD_MB", 32),
		RunHistoryLimit:     getEnvInt("RUN_HISTORY_LIMIT", 50),

		MappingFile: getEnv("MAPPING_FILE", ""),

		WatchDir:         getEnv("WATCH_DIR", ""),
		WatchIntervalSec: getEnvInt("WATCH_INTERVAL_SEC", 30),

		MailProvider: strings.ToLower(strings.TrimSpace(getEnv("MAIL_PROVIDER", ""))),
		MailFolder:   getEnv("MAIL_FOLDER", "INBOX"),
		MailFetchMax: getEnvInt("MAIL_FETCH_MAX", 10),
		MailPollSec:  getEnvInt("MAIL_POLL_SEC", 120),

		IMAPHost:     getEnv("IMAP_HOST", ""),
		IMAPPort:     getEnvInt("IMAP_PORT", 993),
		IMAPSecure:   getEnvBool("IMAP_SECURE", true),
		IMAPUser:     getEnv("IMAP_USER", ""),
		IMAPPassword: getEnv("IMAP_PASSWORD", ""),
		IMAPMarkSeen: getEnvBool("IMAP_MARK_SEEN", true),

		GmailClientID:     getEnv("GMAIL_CLIENT_ID", ""),
		GmailClientSecret: getEnv("GMAIL_CLIENT_SECRET", ""),
		GmailRedirectURI:  getEnv("GMAIL_REDIRECT_URI", "https://developers.google.com/oauthplayground"),
		GmailRefreshToken: getEnv("GMAIL_REFRESH_TOKEN", ""),
	}
	if cfg.MailProvider == "" && strings.TrimSpace(cfg.IMAPHost) != "" {
		cfg.MailProvider = MailProviderIMAP
	}

	if strings.TrimSpace(cfg.MappingFile) != "" {
		mapping, err := LoadMapping(cfg.MappingFile)
		if err != nil {
			return Config{}, err
		}
		cfg.Mapping = mapping
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadMapping reads a YAML mapping file with alias overrides and extra rules.
func LoadMapping(path string) (Mapping, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return Mapping{}, fmt.Errorf("reading mapping file: %w", err)
	}

	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Mapping{}, fmt.Errorf("parsing mapping YAML: %w", err)
	}
	if err := m.validate(); err != nil {
		return Mapping{}, fmt.Errorf("validating mapping file: %w", err)
	}
	return m, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.DecodeConcurrency < 1 {
		errs = append(errs, fmt.Errorf("DECODE_CONCURRENCY must be >= 1 (got %d)", c.DecodeConcurrency))
	}
	if c.DecodeTimeout <= 0 {
		errs = append(errs, fmt.Errorf("DECODE_TIMEOUT_SEC must be > 0"))
	}
	if c.PassthroughMinRunes < 1 {
		errs = append(errs, fmt.Errorf("PASSTHROUGH_MIN_RUNES must be >= 1 (got %d)", c.PassthroughMinRunes))
	}
	if c.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("MAX_UPLOAD_MB must be >= 1 (got %d)", c.MaxUploadMB))
	}
	if c.WatchDir != "" && c.WatchIntervalSec < 1 {
		errs = append(errs, fmt.Errorf("WATCH_INTERVAL_SEC must be >= 1 when WATCH_DIR is set"))
	}
	switch c.MailProvider {
	case "":
	case MailProviderIMAP, MailProviderGmail:
		if c.MailFetchMax < 1 {
			errs = append(errs, fmt.Errorf("MAIL_FETCH_MAX must be >= 1 (got %d)", c.MailFetchMax))
		}
		if c.MailPollSec < 1 {
			errs = append(errs, fmt.Errorf("MAIL_POLL_SEC must be >= 1 when MAIL_PROVIDER is set"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_PROVIDER must be imap or gmail (got %q)", c.MailProvider))
	}
	return errors.Join(errs...)
}

func (m Mapping) validate() error {
	var errs []error
	for i, r := range m.Rules {
		if strings.TrimSpace(r.Subsystem) == "" {
			errs = append(errs, fmt.Errorf("rules[%d].subsystem is required", i))
		}
		if len(r.Contains) == 0 && len(r.Equals) == 0 {
			errs = append(errs, fmt.Errorf("rules[%d] needs at least one contains or equals token", i))
		}
	}
	return errors.Join(errs...)
}

// MailEnabled reports whether a mailbox is configured as a source. Setting
// IMAP_HOST alone selects the imap provider.
func (c Config) MailEnabled() bool {
	return c.MailProvider != ""
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(key, "")))
	if value == "" {
		return fallback
	}
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
