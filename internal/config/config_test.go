package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	home := t.TempDir()
	cfg, err := Load(LoadInput{WorkDir: t.TempDir(), Getenv: envMap(map[string]string{"HOME": home})})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Storage != StorageSQLite || cfg.Template != "standard" || cfg.ReminderLeadDays != 7 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	wantDir := filepath.Join(home, ".local", "share", "wedplan")
	if cfg.DataDir != wantDir || cfg.DBPath != filepath.Join(wantDir, "timeline.db") {
		t.Fatalf("unexpected paths: data=%s db=%s", cfg.DataDir, cfg.DBPath)
	}
	if cfg.Sources.Global != "" || cfg.Sources.Project != "" {
		t.Fatalf("no files should have been loaded: %+v", cfg.Sources)
	}
}

func TestLoadLayersFilesThenEnv(t *testing.T) {
	xdg := t.TempDir()
	work := t.TempDir()
	if err := os.MkdirAll(filepath.Join(xdg, "wedplan"), 0o755); err != nil {
		t.Fatal(err)
	}
	global := `{
		// shared defaults
		"template": "short",
		"reminder_lead_days": 3,
	}`
	if err := os.WriteFile(filepath.Join(xdg, "wedplan", "config.json"), []byte(global), 0o644); err != nil {
		t.Fatal(err)
	}
	project := `{"user": "anna-ben", "storage": "file", "data_dir": "/tmp/wp",}`
	if err := os.WriteFile(filepath.Join(work, FileName), []byte(project), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(LoadInput{
		WorkDir: work,
		Getenv: envMap(map[string]string{
			"XDG_CONFIG_HOME":            xdg,
			"WEDPLAN_REMINDER_LEAD_DAYS": "14",
			"WEDPLAN_SCHEDULER_BUFFER":   "not-a-number",
		}),
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Template != "short" || cfg.User != "anna-ben" || cfg.Storage != StorageFile {
		t.Fatalf("file layers not applied: %+v", cfg)
	}
	if cfg.ReminderLeadDays != 14 {
		t.Fatalf("env should override files, got %d", cfg.ReminderLeadDays)
	}
	if cfg.SchedulerBuffer != 64 {
		t.Fatalf("invalid env int should be ignored, got %d", cfg.SchedulerBuffer)
	}
	if cfg.DBPath != filepath.Join("/tmp/wp", "timeline.db") {
		t.Fatalf("db path should follow data dir, got %s", cfg.DBPath)
	}
	if cfg.Sources.Global == "" || cfg.Sources.Project == "" {
		t.Fatalf("sources not recorded: %+v", cfg.Sources)
	}
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	_, err := Load(LoadInput{WorkDir: t.TempDir(), ConfigPath: "missing.json", Getenv: envMap(nil)})
	if !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestLoadRejectsInvalidFiles(t *testing.T) {
	work := t.TempDir()
	if err := os.WriteFile(filepath.Join(work, FileName), []byte(`{"storage": `), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(LoadInput{WorkDir: work, Getenv: envMap(nil)}); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Storage = StoragePostgres
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("postgres without dsn should be invalid, got %v", err)
	}
	cfg.PostgresDSN = "postgres://localhost/wedplan"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cfg.Storage = "mongo"
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("unknown storage should be invalid, got %v", err)
	}
}

func TestTelegramEnabled(t *testing.T) {
	cfg := FromEnv(Default(), envMap(map[string]string{
		"WEDPLAN_TELEGRAM_TOKEN":   "123:abc",
		"WEDPLAN_TELEGRAM_CHAT_ID": "-100200",
	}))
	if !cfg.TelegramEnabled() || cfg.TelegramChatID != -100200 {
		t.Fatalf("expected telegram enabled, got %+v", cfg)
	}
}
