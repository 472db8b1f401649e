package config

import (
	"errors"
	"fmt"
	"strings"
)

type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Remote is the group-management API endpoint (Napcat-compatible,
	// HTTP/JSON). All poke / card / member-info calls go through it.
	Remote RemoteConfig `json:"remote"`

	// Bot is the bot's own identity as known to the remote API.
	Bot BotConfig `json:"bot"`

	Schedule  ScheduleConfig  `json:"schedule"`
	Selection SelectionConfig `json:"selection"`
	History   HistoryConfig   `json:"history"`
	Events    *EventsConfig   `json:"events,omitempty"`
	Debug     *DebugConfig    `json:"debug,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// RemoteConfig points at the group-management HTTP API.
//
// Timeout is a Go duration string (e.g. "10s"); it bounds every single
// remote call. Default is 10s.
type RemoteConfig struct {
	Address    string `json:"address"`
	Port       int    `json:"port"`
	Timeout    string `json:"timeout,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

type BotConfig struct {
	AccountID string   `json:"account_id"`
	Nickname  string   `json:"nickname"`
	Aliases   []string `json:"aliases,omitempty"`
}

// ScheduleConfig controls the per-group swap cadence.
//
// Each group runs on an independent randomized interval drawn uniformly
// from [min_interval_minutes, max_interval_minutes].
type ScheduleConfig struct {
	Enabled            bool        `json:"enabled"`
	MinIntervalMinutes int         `json:"min_interval_minutes,omitempty"`
	MaxIntervalMinutes int         `json:"max_interval_minutes,omitempty"`
	Store              StoreConfig `json:"store"`

	// DirectoryResync is a Go duration string; how often the group list is
	// re-read so loops follow group membership. Default "10m".
	DirectoryResync string `json:"directory_resync,omitempty"`
}

// StoreConfig controls the schedule persistence backend.
//
// Driver values:
//   - "file": flat human-readable JSON document (default)
//   - "sqlite": embedded SQLite database file
type StoreConfig struct {
	Driver string `json:"driver,omitempty"`
	Path   string `json:"path"`
}

// SelectionConfig tunes the activity-weighted draw. Larger lambda biases
// selection toward the most active members.
type SelectionConfig struct {
	Lambda float64 `json:"lambda,omitempty"`
}

type HistoryConfig struct {
	Path string `json:"path"`

	// Retention is a Go duration string; messages older than this are
	// pruned. Default "72h".
	Retention string `json:"retention,omitempty"`
}

// EventsConfig controls the message event feed (WebSocket subscription to
// the remote API). If the whole section is omitted it defaults to enabled,
// since the activity ranking is starved without it.
type EventsConfig struct {
	Enabled         *bool    `json:"enabled,omitempty"`
	CommandPrefixes []string `json:"command_prefixes,omitempty"`
}

// DebugConfig gates the pprof HTTP server. Off unless explicitly enabled.
type DebugConfig struct {
	Pprof PprofConfig `json:"pprof"`
}

type PprofConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"`
	Token   string `json:"token,omitempty"`
}

// Long-standing deployment defaults.
const (
	DefaultMinIntervalMinutes = 360
	DefaultMaxIntervalMinutes = 480
	DefaultLambda             = 1.5
	DefaultRemotePort         = 3000
)

// EventsEnabled reports whether the event feed should run.
func (c *Config) EventsEnabled() bool {
	if c.Events == nil || c.Events.Enabled == nil {
		return true
	}
	return *c.Events.Enabled
}

// Validate rejects configs the daemon cannot run with. It is installed as
// the ConfigManager validator so bad reloads never get published.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	if strings.TrimSpace(cfg.Remote.Address) == "" {
		return errors.New("remote.address is required")
	}
	if cfg.Remote.Port < 0 || cfg.Remote.Port > 65535 {
		return fmt.Errorf("remote.port out of range: %d", cfg.Remote.Port)
	}
	if _, err := ParseDurationField("remote.timeout", cfg.Remote.Timeout); err != nil {
		return err
	}
	if cfg.Schedule.Enabled && strings.TrimSpace(cfg.Bot.AccountID) == "" {
		return errors.New("bot.account_id is required when schedule.enabled")
	}
	if cfg.Schedule.MinIntervalMinutes < 0 || cfg.Schedule.MaxIntervalMinutes < 0 {
		return errors.New("schedule intervals must be >= 0")
	}
	if _, err := ParseDurationField("schedule.directory_resync", cfg.Schedule.DirectoryResync); err != nil {
		return err
	}
	if cfg.Selection.Lambda < 0 {
		return errors.New("selection.lambda must be >= 0")
	}
	if _, err := ParseDurationField("history.retention", cfg.History.Retention); err != nil {
		return err
	}
	return nil
}
