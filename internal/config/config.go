// Package config resolves wedplan settings from defaults, HuJSON config files
// and WEDPLAN_* environment variables. Command-line flags are applied last by
// the CLI.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"
)

const FileName = ".wedplan.json"

var (
	ErrInvalid      = errors.New("config: invalid")
	ErrFileNotFound = errors.New("config: file not found")
)

const (
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
	StorageFile     = "file"
)

type Config struct {
	User             string `json:"user"`
	Storage          string `json:"storage"`
	DataDir          string `json:"data_dir"`
	DBPath           string `json:"db_path,omitempty"`
	PlannerDBPath    string `json:"planner_db_path,omitempty"`
	PostgresDSN      string `json:"postgres_dsn,omitempty"`
	Template         string `json:"template"`
	TemplatesFile    string `json:"templates_file,omitempty"`
	ExportDir        string `json:"export_dir"`
	LogLevel         string `json:"log_level"`
	ReminderLeadDays int    `json:"reminder_lead_days"`
	SchedulerBuffer  int    `json:"scheduler_buffer"`
	DigestCron       string `json:"digest_cron"`
	DigestDays       int    `json:"digest_days"`
	TelegramToken    string `json:"telegram_token,omitempty"`
	TelegramChatID   int64  `json:"telegram_chat_id,omitempty"`

	Sources Sources `json:"-"`
}

// Sources lists the config files that were applied.
type Sources struct {
	Global  string
	Project string
}

func Default() Config {
	return Config{
		User:             "default",
		Storage:          StorageSQLite,
		Template:         "standard",
		ExportDir:        ".",
		LogLevel:         "info",
		ReminderLeadDays: 7,
		SchedulerBuffer:  64,
		DigestCron:       "0 0 8 * * *",
		DigestDays:       7,
	}
}

type LoadInput struct {
	WorkDir    string
	ConfigPath string
	Getenv     func(string) string
}

// Load applies, in order: defaults, the global config file, the project (or
// explicit) config file and environment overrides.
func Load(in LoadInput) (Config, error) {
	getenv := in.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	workDir := in.WorkDir
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
		workDir = wd
	}

	cfg := Default()

	if path := globalPath(getenv); path != "" {
		loaded, err := applyFile(&cfg, path, false)
		if err != nil {
			return Config{}, err
		}
		if loaded {
			cfg.Sources.Global = path
		}
	}

	projectPath := filepath.Join(workDir, FileName)
	mustExist := false
	if in.ConfigPath != "" {
		projectPath = in.ConfigPath
		if !filepath.IsAbs(projectPath) {
			projectPath = filepath.Join(workDir, projectPath)
		}
		mustExist = true
	}
	loaded, err := applyFile(&cfg, projectPath, mustExist)
	if err != nil {
		return Config{}, err
	}
	if loaded {
		cfg.Sources.Project = projectPath
	}

	cfg = FromEnv(cfg, getenv)
	cfg.resolvePaths(getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func globalPath(getenv func(string) string) string {
	if xdg := getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "wedplan", "config.json")
	}
	if home := getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "wedplan", "config.json")
	}
	return ""
}

func applyFile(cfg *Config, path string, mustExist bool) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if mustExist {
				return false, fmt.Errorf("%w: %s", ErrFileNotFound, path)
			}
			return false, nil
		}
		return false, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := Parse(data, cfg); err != nil {
		return false, fmt.Errorf("%w %s: %w", ErrInvalid, path, err)
	}
	return true, nil
}

// Parse overlays the HuJSON document data onto cfg. Keys absent from data keep
// their current value.
func Parse(data []byte, cfg *Config) error {
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}
	if err := json.Unmarshal(standardized, cfg); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// FromEnv applies WEDPLAN_* overrides to base.
func FromEnv(base Config, getenv func(string) string) Config {
	cfg := base
	if v, ok := getEnvString(getenv, "WEDPLAN_USER"); ok {
		cfg.User = v
	}
	if v, ok := getEnvString(getenv, "WEDPLAN_STORAGE"); ok {
		cfg.Storage = strings.ToLower(v)
	}
	if v, ok := getEnvString(getenv, "WEDPLAN_DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := getEnvString(getenv, "WEDPLAN_DB"); ok {
		cfg.DBPath = v
	}
	if v, ok := getEnvString(getenv, "WEDPLAN_POSTGRES_DSN"); ok {
		cfg.PostgresDSN = v
	}
	if v, ok := getEnvString(getenv, "WEDPLAN_TEMPLATE"); ok {
		cfg.Template = v
	}
	if v, ok := getEnvString(getenv, "WEDPLAN_TEMPLATES_FILE"); ok {
		cfg.TemplatesFile = v
	}
	if v, ok := getEnvString(getenv, "WEDPLAN_EXPORT_DIR"); ok {
		cfg.ExportDir = v
	}
	if v, ok := getEnvString(getenv, "WEDPLAN_LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := getEnvInt(getenv, "WEDPLAN_REMINDER_LEAD_DAYS"); ok && v >= 0 {
		cfg.ReminderLeadDays = v
	}
	if v, ok := getEnvInt(getenv, "WEDPLAN_SCHEDULER_BUFFER"); ok && v > 0 {
		cfg.SchedulerBuffer = v
	}
	if v, ok := getEnvString(getenv, "WEDPLAN_DIGEST_CRON"); ok {
		cfg.DigestCron = v
	}
	if v, ok := getEnvInt(getenv, "WEDPLAN_DIGEST_DAYS"); ok && v > 0 {
		cfg.DigestDays = v
	}
	if v, ok := getEnvString(getenv, "WEDPLAN_TELEGRAM_TOKEN"); ok {
		cfg.TelegramToken = v
	}
	if v, ok := getEnvInt(getenv, "WEDPLAN_TELEGRAM_CHAT_ID"); ok {
		cfg.TelegramChatID = int64(v)
	}
	return cfg
}

func (c *Config) resolvePaths(getenv func(string) string) {
	if c.DataDir == "" {
		switch {
		case getenv("XDG_DATA_HOME") != "":
			c.DataDir = filepath.Join(getenv("XDG_DATA_HOME"), "wedplan")
		case getenv("HOME") != "":
			c.DataDir = filepath.Join(getenv("HOME"), ".local", "share", "wedplan")
		default:
			c.DataDir = ".wedplan"
		}
	}
	if c.DBPath == "" {
		c.DBPath = filepath.Join(c.DataDir, "timeline.db")
	}
	if c.PlannerDBPath == "" {
		c.PlannerDBPath = filepath.Join(c.DataDir, "planner.db")
	}
}

// TelegramEnabled reports whether reminders should be forwarded to Telegram.
func (c Config) TelegramEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != 0
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.User) == "" {
		return fmt.Errorf("%w: user must not be empty", ErrInvalid)
	}
	switch c.Storage {
	case StorageSQLite, StorageFile:
	case StoragePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: postgres storage needs postgres_dsn", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown storage %q", ErrInvalid, c.Storage)
	}
	if c.ReminderLeadDays < 0 {
		return fmt.Errorf("%w: reminder_lead_days must not be negative", ErrInvalid)
	}
	return nil
}

func getEnvString(getenv func(string) string, name string) (string, bool) {
	raw := strings.TrimSpace(getenv(name))
	return raw, raw != ""
}

func getEnvInt(getenv func(string) string, name string) (int, bool) {
	raw := strings.TrimSpace(getenv(name))
	if raw == "" {
		return 0, false
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return v, true
}
