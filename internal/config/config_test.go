package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const sampleYAML = `
logging:
  level: debug
  console: true
remote:
  address: 127.0.0.1
  port: 3000
  timeout: 10s
bot:
  account_id: "10000"
  nickname: bot
  aliases: [robo]
schedule:
  enabled: true
  min_interval_minutes: 360
  max_interval_minutes: 480
  store:
    driver: file
    path: data/schedule.json
selection:
  lambda: 1.5
history:
  path: data/history.db
  retention: 72h
`

func TestParseYAML(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeConfig(t, "config.yaml", sampleYAML))
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Remote.Address != "127.0.0.1" || cfg.Remote.Port != 3000 {
		t.Fatalf("remote = %+v", cfg.Remote)
	}
	if !cfg.Schedule.Enabled || cfg.Schedule.MinIntervalMinutes != 360 || cfg.Schedule.MaxIntervalMinutes != 480 {
		t.Fatalf("schedule = %+v", cfg.Schedule)
	}
	if cfg.Bot.AccountID != "10000" || len(cfg.Bot.Aliases) != 1 || cfg.Bot.Aliases[0] != "robo" {
		t.Fatalf("bot = %+v", cfg.Bot)
	}
	if cfg.Selection.Lambda != 1.5 {
		t.Fatalf("lambda = %v", cfg.Selection.Lambda)
	}
	if got := m.Get(); got != cfg {
		t.Fatal("Get did not return committed config")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeConfig(t, "config.yaml", sampleYAML+"\nbogus_section:\n  x: 1\n"))
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected error for unknown top-level field")
	}
}

func TestParseJSON(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeConfig(t, "config.json",
		`{"remote":{"address":"127.0.0.1"},"bot":{"account_id":"1"},"schedule":{"store":{"path":"s.json"}},"history":{"path":"h.db"}}`))
	cfg, err := m.Parse()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Remote.Address != "127.0.0.1" {
		t.Fatalf("remote = %+v", cfg.Remote)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	base := func() *Config {
		return &Config{
			Remote:   RemoteConfig{Address: "127.0.0.1", Port: 3000},
			Bot:      BotConfig{AccountID: "1"},
			Schedule: ScheduleConfig{Enabled: true},
		}
	}

	if err := Validate(base()); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing address", func(c *Config) { c.Remote.Address = "" }},
		{"port out of range", func(c *Config) { c.Remote.Port = 70000 }},
		{"bad timeout", func(c *Config) { c.Remote.Timeout = "soonish" }},
		{"missing account id", func(c *Config) { c.Bot.AccountID = "" }},
		{"negative interval", func(c *Config) { c.Schedule.MinIntervalMinutes = -1 }},
		{"negative lambda", func(c *Config) { c.Selection.Lambda = -0.5 }},
		{"bad retention", func(c *Config) { c.History.Retention = "3 fortnights" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestValidateAccountOptionalWhenDisabled(t *testing.T) {
	t.Parallel()
	cfg := &Config{Remote: RemoteConfig{Address: "127.0.0.1"}}
	if err := Validate(cfg); err != nil {
		t.Fatalf("disabled schedule should not require account id: %v", err)
	}
}

func TestEventsEnabledDefaults(t *testing.T) {
	t.Parallel()
	var cfg Config
	if !cfg.EventsEnabled() {
		t.Fatal("events should default to enabled when section omitted")
	}
	off := false
	cfg.Events = &EventsConfig{Enabled: &off}
	if cfg.EventsEnabled() {
		t.Fatal("events explicitly disabled")
	}
}
