// Package config loads the jibot configuration file (JSON5) and applies
// environment overrides for secrets.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/titanous/json5"
)

// DefaultPath is where the config lives unless --config or JIBOT_CONFIG say otherwise.
const DefaultPath = "~/.jibot/config.json"

// Config is the root configuration.
type Config struct {
	DataDir   string          `json:"dataDir"`
	Log       LogConfig       `json:"log"`
	Bot       BotConfig       `json:"bot"`
	LLM       LLMConfig       `json:"llm"`
	Slack     SlackConfig     `json:"slack"`
	Discord   DiscordConfig   `json:"discord"`
	MUD       MUDConfig       `json:"mud"`
	Facts     FactsConfig     `json:"facts"`
	Reminders RemindersConfig `json:"reminders"`
	Tools     ToolsConfig     `json:"tools"`
	Google    GoogleConfig    `json:"google"`
	Knowledge KnowledgeConfig `json:"knowledge"`
	Postgres  PostgresConfig  `json:"postgres"`
	Backup    BackupConfig    `json:"backup"`
	Telemetry TelemetryConfig `json:"telemetry"`
}

type LogConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // text or json
}

// BotConfig holds the pipeline settings. Trigger, Herald and AssistantMode
// are applied live when the file changes.
type BotConfig struct {
	Trigger       string `json:"trigger"`
	Herald        bool   `json:"herald"`
	AssistantMode bool   `json:"assistantMode"`
	// GuardAction is what the injection guard does: off, log, warn or block.
	GuardAction       string  `json:"guardAction"`
	RateLimitRPM      int     `json:"rateLimitRpm"`
	RateLimitBurst    int     `json:"rateLimitBurst"`
	MinRuleConfidence float64 `json:"minRuleConfidence,omitempty"`
}

type LLMConfig struct {
	Enabled  bool   `json:"enabled"`
	Provider string `json:"provider"`
	APIKey   string `json:"apiKey,omitempty"`
	APIBase  string `json:"apiBase,omitempty"`
	Model    string `json:"model,omitempty"`
	// Synthesize merges multi-skill outputs through the model.
	Synthesize   bool `json:"synthesize"`
	HistoryTurns int  `json:"historyTurns"`
	MaxSessions  int  `json:"maxSessions"`
}

type SlackConfig struct {
	Enabled  bool   `json:"enabled"`
	BotToken string `json:"botToken,omitempty"`
	AppToken string `json:"appToken,omitempty"`
	// Command is the slash command registered for the admin surface.
	Command string `json:"command"`
}

type DiscordConfig struct {
	Enabled bool   `json:"enabled"`
	Token   string `json:"token,omitempty"`
	// ArchiveChannels limits link archiving to these channel ids; empty archives every channel.
	ArchiveChannels []string `json:"archiveChannels,omitempty"`
}

type MUDConfig struct {
	Enabled bool   `json:"enabled"`
	Listen  string `json:"listen"`
	Token   string `json:"token,omitempty"`
	// RelayChannel is the Slack channel unaddressed MUD speech is relayed to.
	RelayChannel string `json:"relayChannel,omitempty"`
}

type FactsConfig struct {
	PerWorkspace bool `json:"perWorkspace"`
}

type RemindersConfig struct {
	Backend string      `json:"backend"` // file or redis
	Redis   RedisConfig `json:"redis"`
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
}

type ToolsConfig struct {
	TimeoutSeconds   int    `json:"timeoutSeconds"`
	RateLimitPerHour int    `json:"rateLimitPerHour"`
	Scrub            bool   `json:"scrub"`
	WebFetchMaxChars int    `json:"webFetchMaxChars"`
	BraveAPIKey      string `json:"braveApiKey,omitempty"`
	DuckDuckGo       bool   `json:"duckDuckGo"`
	WeatherLocation  string `json:"weatherLocation"`
}

// Timeout returns the per-skill timeout.
func (t ToolsConfig) Timeout() time.Duration {
	if t.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(t.TimeoutSeconds) * time.Second
}

type GoogleConfig struct {
	CredentialsFile string `json:"credentialsFile,omitempty"`
	TokenFile       string `json:"tokenFile,omitempty"`
}

type KnowledgeConfig struct {
	Path string   `json:"path,omitempty"`
	Seed []string `json:"seed,omitempty"`
}

type PostgresConfig struct {
	DSN string `json:"dsn,omitempty"`
}

type BackupConfig struct {
	Bucket   string `json:"bucket,omitempty"`
	Prefix   string `json:"prefix"`
	Region   string `json:"region,omitempty"`
	Endpoint string `json:"endpoint,omitempty"` // S3-compatible stores (MinIO, R2)
	// Interval runs the backup from serve, e.g. "24h". Empty means manual only.
	Interval string `json:"interval,omitempty"`

	// Static keys. Empty means the default AWS credential chain.
	AccessKeyID     string `json:"accessKeyId,omitempty"`
	SecretAccessKey string `json:"secretAccessKey,omitempty"`
}

// Every returns the parsed backup interval, or 0 when unset.
func (b BackupConfig) Every() time.Duration {
	d, err := time.ParseDuration(b.Interval)
	if err != nil || d < 0 {
		return 0
	}
	return d
}

type TelemetryConfig struct {
	Enabled     bool   `json:"enabled"`
	Endpoint    string `json:"endpoint,omitempty"`
	Protocol    string `json:"protocol"` // http or grpc
	Insecure    bool   `json:"insecure"`
	ServiceName string `json:"serviceName"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir: "~/.jibot/data",
		Log:     LogConfig{Level: "info", Format: "text"},
		Bot: BotConfig{
			Trigger:        "jibot",
			Herald:         true,
			GuardAction:    "warn",
			RateLimitRPM:   30,
			RateLimitBurst: 5,
		},
		LLM: LLMConfig{
			Provider:     "openai",
			Synthesize:   true,
			HistoryTurns: 10,
			MaxSessions:  1000,
		},
		Slack:     SlackConfig{Command: "/jibot"},
		MUD:       MUDConfig{Listen: "127.0.0.1:8765"},
		Reminders: RemindersConfig{Backend: "file", Redis: RedisConfig{Addr: "localhost:6379", Key: "jibot:reminders"}},
		Tools: ToolsConfig{
			TimeoutSeconds:   30,
			RateLimitPerHour: 120,
			Scrub:            true,
			WebFetchMaxChars: 5000,
			DuckDuckGo:       true,
			WeatherLocation:  "Tokyo",
		},
		Backup:    BackupConfig{Prefix: "jibot/"},
		Telemetry: TelemetryConfig{Protocol: "http", ServiceName: "jibot"},
	}
}

// Load reads path on top of Default and applies environment overrides.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(ExpandHome(path))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		if err := json5.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg as indented JSON (valid JSON5) with owner-only permissions.
func Save(path string, cfg *Config) error {
	path = ExpandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0600)
}

// Validate rejects settings the bot cannot start with.
func (c *Config) Validate() error {
	switch c.Reminders.Backend {
	case "", "file", "redis":
	default:
		return fmt.Errorf("reminders.backend: unknown backend %q (want file or redis)", c.Reminders.Backend)
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log.format: unknown format %q", c.Log.Format)
	}
	switch c.Telemetry.Protocol {
	case "", "http", "grpc":
	default:
		return fmt.Errorf("telemetry.protocol: unknown protocol %q", c.Telemetry.Protocol)
	}
	if c.Backup.Interval != "" {
		if d, err := time.ParseDuration(c.Backup.Interval); err != nil || d < time.Minute {
			return fmt.Errorf("backup.interval: want a duration of at least 1m, got %q", c.Backup.Interval)
		}
	}
	if c.Bot.MinRuleConfidence < 0 || c.Bot.MinRuleConfidence > 1 {
		return fmt.Errorf("bot.minRuleConfidence must be between 0 and 1")
	}
	return nil
}

func (c *Config) applyEnv() {
	envStr("JIBOT_DATA_DIR", &c.DataDir)
	envStr("JIBOT_SLACK_BOT_TOKEN", &c.Slack.BotToken)
	envStr("JIBOT_SLACK_APP_TOKEN", &c.Slack.AppToken)
	envStr("JIBOT_DISCORD_TOKEN", &c.Discord.Token)
	envStr("JIBOT_MUD_TOKEN", &c.MUD.Token)
	envStr("JIBOT_LLM_API_KEY", &c.LLM.APIKey)
	envStr("JIBOT_LLM_MODEL", &c.LLM.Model)
	envStr("JIBOT_BRAVE_API_KEY", &c.Tools.BraveAPIKey)
	envStr("JIBOT_POSTGRES_DSN", &c.Postgres.DSN)
	envStr("JIBOT_REDIS_ADDR", &c.Reminders.Redis.Addr)
	envStr("JIBOT_REDIS_PASSWORD", &c.Reminders.Redis.Password)
	envStr("JIBOT_BACKUP_BUCKET", &c.Backup.Bucket)
	if v := os.Getenv("JIBOT_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("JIBOT_LLM_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.LLM.Enabled = b
		}
	}
}

func envStr(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ResolvedDataDir returns the expanded data directory.
func (c *Config) ResolvedDataDir() string {
	return ExpandHome(c.DataDir)
}

// KnowledgePath returns the knowledge base file, defaulting to data_dir/knowledge.db.
func (c *Config) KnowledgePath() string {
	if c.Knowledge.Path != "" {
		return ExpandHome(c.Knowledge.Path)
	}
	return filepath.Join(c.ResolvedDataDir(), "knowledge.db")
}

// GoogleTokenPath returns where the Google OAuth token is kept.
func (c *Config) GoogleTokenPath() string {
	if c.Google.TokenFile != "" {
		return ExpandHome(c.Google.TokenFile)
	}
	return filepath.Join(c.ResolvedDataDir(), "google-token.json")
}

// ExpandHome replaces a leading ~ with the user's home directory.
func ExpandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(path, "~"))
	}
	return path
}

// MaskedCopy returns a copy safe to print: every secret keeps at most its
// first and last four characters.
func (c *Config) MaskedCopy() *Config {
	cp := *c
	cp.Discord.ArchiveChannels = append([]string(nil), c.Discord.ArchiveChannels...)
	cp.Knowledge.Seed = append([]string(nil), c.Knowledge.Seed...)
	for _, s := range []*string{
		&cp.LLM.APIKey,
		&cp.Slack.BotToken,
		&cp.Slack.AppToken,
		&cp.Discord.Token,
		&cp.MUD.Token,
		&cp.Tools.BraveAPIKey,
		&cp.Reminders.Redis.Password,
		&cp.Postgres.DSN,
		&cp.Backup.SecretAccessKey,
	} {
		*s = Mask(*s)
	}
	return &cp
}

// Mask hides a secret for display.
func Mask(s string) string {
	switch {
	case s == "":
		return ""
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	default:
		return "****"
	}
}
