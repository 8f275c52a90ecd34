package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"FilingsMonitor/internal/classifier"
)

const (
	configPathEnv     = "FILINGS_MONITOR_CONFIG"
	databaseDSNEnv    = "DATABASE_DSN"
	httpAddrEnv       = "HTTP_ADDR"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"

	defaultMonitorEvery  = 2 * time.Hour
	defaultDownloadEvery = 24 * time.Hour
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Server        ServerConfig       `yaml:"server"`
	Portal        PortalConfig       `yaml:"portal"`
	Storage       StorageConfig      `yaml:"storage"`
	Database      DatabaseConfig     `yaml:"database"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	Keywords      KeywordsConfig     `yaml:"keywords"`
	Companies     []CompanyConfig    `yaml:"companies"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ServerConfig describes the HTTP surface.
type ServerConfig struct {
	BindAddr string `yaml:"bindAddr"`
}

// PortalConfig points at the exchange portal endpoints.
type PortalConfig struct {
	AnnouncementsURL  string `yaml:"announcementsUrl"`
	AttachmentBaseURL string `yaml:"attachmentBaseUrl"`
	FromYear          int    `yaml:"fromYear"`
}

// StorageConfig locates the on-disk state.
type StorageConfig struct {
	DownloadsDir string `yaml:"downloadsDir"`
	SnapshotsDir string `yaml:"snapshotsDir"`
}

// DatabaseConfig describes the optional Postgres archive. An empty DSN
// disables archiving.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines the recurring run intervals as duration strings.
type SchedulerConfig struct {
	MonitorEvery  string `yaml:"monitorEvery"`
	DownloadEvery string `yaml:"downloadEvery"`
}

// MonitorInterval parses the monitor interval, falling back to the default.
func (s SchedulerConfig) MonitorInterval() time.Duration {
	return parseDuration(s.MonitorEvery, defaultMonitorEvery)
}

// DownloadInterval parses the download interval, falling back to the default.
func (s SchedulerConfig) DownloadInterval() time.Duration {
	return parseDuration(s.DownloadEvery, defaultDownloadEvery)
}

// NotificationConfig encapsulates outbound channels.
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// KeywordsConfig carries the classification phrase lists, either inline or
// from a separate YAML file so the lists can be edited without touching the
// main config.
type KeywordsConfig struct {
	File   string              `yaml:"file"`
	Inline classifier.Keywords `yaml:"inline"`
}

// CompanyConfig is one tracked company.
type CompanyConfig struct {
	Name string `yaml:"name"`
	Code string `yaml:"code"`
}

// Load reads YAML configuration (if present) and applies environment
// overrides. A .env file in the working directory is honored when present.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	return cfg
}

// KeywordLists resolves the effective classification keywords: the external
// file wins over inline values, and any list left empty falls back to the
// built-in defaults.
func (c Config) KeywordLists() classifier.Keywords {
	kw := c.Keywords.Inline

	if c.Keywords.File != "" {
		if raw, err := os.ReadFile(c.Keywords.File); err != nil {
			log.Printf("config: cannot read keywords file %s: %v (using inline/defaults)", c.Keywords.File, err)
		} else {
			var fileKw classifier.Keywords
			if err := yaml.Unmarshal(raw, &fileKw); err != nil {
				log.Printf("config: cannot parse keywords file %s: %v (using inline/defaults)", c.Keywords.File, err)
			} else {
				kw = fileKw
			}
		}
	}

	defaults := classifier.DefaultKeywords()
	if len(kw.Exclude) == 0 {
		kw.Exclude = defaults.Exclude
	}
	if len(kw.BoardMeetingResults) == 0 {
		kw.BoardMeetingResults = defaults.BoardMeetingResults
	}
	if len(kw.Financial) == 0 {
		kw.Financial = defaults.Financial
	}

	return kw
}

// FromDate is the start of the announcement window fetched from the portal.
func (c Config) FromDate() time.Time {
	year := c.Portal.FromYear
	if year <= 0 {
		year = 2024
	}
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.BindAddr = v
	}

	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}

	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging = override.Logging
	}

	if override.Server.BindAddr != "" {
		base.Server = override.Server
	}

	if override.Portal.AnnouncementsURL != "" {
		base.Portal.AnnouncementsURL = override.Portal.AnnouncementsURL
	}
	if override.Portal.AttachmentBaseURL != "" {
		base.Portal.AttachmentBaseURL = override.Portal.AttachmentBaseURL
	}
	if override.Portal.FromYear != 0 {
		base.Portal.FromYear = override.Portal.FromYear
	}

	if override.Storage.DownloadsDir != "" {
		base.Storage.DownloadsDir = override.Storage.DownloadsDir
	}
	if override.Storage.SnapshotsDir != "" {
		base.Storage.SnapshotsDir = override.Storage.SnapshotsDir
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.MonitorEvery != "" {
		base.Scheduler.MonitorEvery = override.Scheduler.MonitorEvery
	}
	if override.Scheduler.DownloadEvery != "" {
		base.Scheduler.DownloadEvery = override.Scheduler.DownloadEvery
	}

	if override.Notifications.Telegram.BotToken != "" {
		base.Notifications.Telegram.BotToken = override.Notifications.Telegram.BotToken
	}
	if override.Notifications.Telegram.ChatID != "" {
		base.Notifications.Telegram.ChatID = override.Notifications.Telegram.ChatID
	}

	if override.Keywords.File != "" {
		base.Keywords.File = override.Keywords.File
	}
	if len(override.Keywords.Inline.Exclude) > 0 ||
		len(override.Keywords.Inline.BoardMeetingResults) > 0 ||
		len(override.Keywords.Inline.Financial) > 0 {
		base.Keywords.Inline = override.Keywords.Inline
	}

	if len(override.Companies) > 0 {
		base.Companies = override.Companies
	}

	return base
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("config: invalid duration %q, using %s", raw, fallback)
		return fallback
	}
	return d
}

func defaultConfig() Config {
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Server:  ServerConfig{BindAddr: "0.0.0.0:8000"},
		Portal: PortalConfig{
			AnnouncementsURL:  "https://api.bseindia.com/BseIndiaAPI/api/AnnGetData/w",
			AttachmentBaseURL: "https://www.bseindia.com/xml-data/corpfiling/AttachLive/",
			FromYear:          2024,
		},
		Storage: StorageConfig{
			DownloadsDir: "downloads",
			SnapshotsDir: "snapshots",
		},
		Scheduler: SchedulerConfig{
			MonitorEvery:  "2h",
			DownloadEvery: "24h",
		},
		Companies: []CompanyConfig{
			{Name: "Tata Consultancy Services", Code: "532540"},
			{Name: "Infosys", Code: "500209"},
			{Name: "Reliance Industries", Code: "500325"},
		},
	}
}
