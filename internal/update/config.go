package update

import (
	"strings"

	"github.com/sandeepkv93/wedplan/internal/config"
)

type RuntimeConfig struct {
	UserID            string
	ExportDir         string
	UpcomingDays      int
	NotificationLimit int
}

func DefaultRuntimeConfig() RuntimeConfig {
	return RuntimeConfig{
		UserID:            "default",
		ExportDir:         ".",
		UpcomingDays:      30,
		NotificationLimit: 5,
	}
}

// RuntimeConfigFrom takes the TUI settings out of the resolved app config.
func RuntimeConfigFrom(cfg config.Config) RuntimeConfig {
	out := DefaultRuntimeConfig()
	if v := strings.TrimSpace(cfg.User); v != "" {
		out.UserID = v
	}
	if v := strings.TrimSpace(cfg.ExportDir); v != "" {
		out.ExportDir = v
	}
	if cfg.DigestDays > out.UpcomingDays {
		out.UpcomingDays = cfg.DigestDays
	}
	return out
}
