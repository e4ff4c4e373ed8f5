package config

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone     = "UTC"
	configPathEnv       = "NEWSDIGEST_CONFIG"
	databaseDSNEnv      = "DATABASE_DSN"
	logLevelEnv         = "LOG_LEVEL"
	geminiAPIKeyEnv     = "GEMINI_API_KEY"
	geminiModelEnv      = "GEMINI_MODEL"
	linkedInTokenEnv    = "LINKEDIN_ACCESS_TOKEN"
	youTubeTokenEnv     = "YOUTUBE_ACCESS_TOKEN"
	smtpPasswordEnv     = "SMTP_PASSWORD"
	documentOutputEnv   = "DOCUMENT_OUTPUT_DIR"
	defaultChannelCap   = 10
	defaultMaxAttempts  = 3
	defaultMinContent   = 100
	defaultMaxContent   = 300000
	defaultBaseBackoff  = time.Second
	defaultThrottle     = 2 * time.Second
	defaultPollInterval = 10 * time.Second
	defaultMaxPolls     = 30
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Database  DatabaseConfig  `yaml:"database"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Gemini    GeminiConfig    `yaml:"gemini"`
	SMTP      SMTPConfig      `yaml:"smtp"`
	LinkedIn  LinkedInConfig  `yaml:"linkedin"`
	YouTube   YouTubeConfig   `yaml:"youtube"`
	Documents DocumentConfig  `yaml:"documents"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Profiles  []ProfileConfig `yaml:"profiles"`
}

// LoggingConfig selects the slog level, record format (text or json) and an optional log file.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// DatabaseConfig points at the row store. DSNs starting with postgres:// use Postgres, anything else SQLite.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// SchedulerConfig defines when the pipeline should run.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// GeminiConfig defines how to contact the generative model and how hard to retry it.
type GeminiConfig struct {
	Endpoint         string        `yaml:"endpoint"`
	Model            string        `yaml:"model"`
	PhraseModel      string        `yaml:"phraseModel"`
	APIKey           string        `yaml:"apiKey"`
	Language         string        `yaml:"language"`
	Extractor        string        `yaml:"extractor"`
	MaxAttempts      int           `yaml:"maxAttempts"`
	BaseBackoff      time.Duration `yaml:"baseBackoff"`
	MinContentLength int           `yaml:"minContentLength"`
	MaxContentLength int           `yaml:"maxContentLength"`
	Throttle         time.Duration `yaml:"throttle"`
	Timeout          time.Duration `yaml:"timeout"`
}

// SMTPConfig wires the outbound mailer.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
}

// LinkedInConfig wires the social publisher. The token is obtained out of band.
type LinkedInConfig struct {
	APIBase     string `yaml:"apiBase"`
	AccessToken string `yaml:"accessToken"`
	PostsTable  string `yaml:"postsTable"`
}

// YouTubeConfig wires the video publisher and its bounded processing poll.
type YouTubeConfig struct {
	APIBase       string        `yaml:"apiBase"`
	UploadBase    string        `yaml:"uploadBase"`
	AccessToken   string        `yaml:"accessToken"`
	PrivacyStatus string        `yaml:"privacyStatus"`
	Language      string        `yaml:"language"`
	PollInterval  time.Duration `yaml:"pollInterval"`
	MaxPolls      int           `yaml:"maxPolls"`
}

// DocumentConfig says where assembled digests are written.
type DocumentConfig struct {
	OutputDir string `yaml:"outputDir"`
}

// ArchiveConfig controls which processed rows move to the archive table.
type ArchiveConfig struct {
	OnlySummarized bool `yaml:"onlySummarized"`
}

// ProfileConfig describes one independent feed pipeline (e.g. GCP or GWS).
type ProfileConfig struct {
	Name                 string   `yaml:"name"`
	FeedURL              string   `yaml:"feedUrl"`
	Channels             []string `yaml:"channels"`
	ChannelCap           int      `yaml:"channelCap"`
	ExcludeTitleContains []string `yaml:"excludeTitleContains"`
	ActiveTable          string   `yaml:"activeTable"`
	ArchiveTable         string   `yaml:"archiveTable"`
	EmailTable           string   `yaml:"emailTable"`
	EmailListKey         string   `yaml:"emailListKey"`
	SubjectBase          string   `yaml:"subjectBase"`
	DocumentBaseTitle    string   `yaml:"documentBaseTitle"`
	PlatformName         string   `yaml:"platformName"`
	VideoTable           string   `yaml:"videoTable"`
	VideoSourceDir       string   `yaml:"videoSourceDir"`
	VideoDoneDir         string   `yaml:"videoDoneDir"`
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
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
	cfg.bindTimezone()

	if len(cfg.Profiles) == 0 {
		cfg.Profiles = defaultConfig().Profiles
	}
	for i := range cfg.Profiles {
		cfg.Profiles[i] = cfg.Profiles[i].withDefaults()
	}

	return cfg
}

// Profile returns the profile with the given (case-insensitive) name.
func (c Config) Profile(name string) (ProfileConfig, bool) {
	for _, p := range c.Profiles {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return ProfileConfig{}, false
}

func (p ProfileConfig) withDefaults() ProfileConfig {
	if p.ChannelCap <= 0 {
		p.ChannelCap = defaultChannelCap
	}
	if p.ActiveTable == "" {
		p.ActiveTable = p.Name
	}
	if p.ArchiveTable == "" {
		p.ArchiveTable = p.ActiveTable + " Old"
	}
	if p.EmailTable == "" {
		p.EmailTable = "email"
	}
	if p.EmailListKey == "" {
		p.EmailListKey = p.Name
	}
	if p.VideoTable == "" {
		p.VideoTable = p.Name + " Video Overview"
	}
	if p.DocumentBaseTitle == "" {
		p.DocumentBaseTitle = "Noticias " + p.Name + " - "
	}
	if p.SubjectBase == "" {
		p.SubjectBase = "[Readiness " + p.Name + "]"
	}
	if p.PlatformName == "" {
		p.PlatformName = p.Name
	}
	return p
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(geminiAPIKeyEnv); v != "" {
		c.Gemini.APIKey = v
	}

	if v := os.Getenv(geminiModelEnv); v != "" {
		c.Gemini.Model = v
	}

	if v := os.Getenv(linkedInTokenEnv); v != "" {
		c.LinkedIn.AccessToken = v
	}

	if v := os.Getenv(youTubeTokenEnv); v != "" {
		c.YouTube.AccessToken = v
	}

	if v := os.Getenv(smtpPasswordEnv); v != "" {
		c.SMTP.Password = v
	}

	if v := os.Getenv(documentOutputEnv); v != "" {
		c.Documents.OutputDir = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Logging.Format != "" {
		base.Logging.Format = override.Logging.Format
	}
	if override.Logging.File != "" {
		base.Logging.File = override.Logging.File
	}

	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}

	base.Gemini = mergeGemini(base.Gemini, override.Gemini)

	if override.SMTP.Host != "" {
		base.SMTP.Host = override.SMTP.Host
	}
	if override.SMTP.Port != 0 {
		base.SMTP.Port = override.SMTP.Port
	}
	if override.SMTP.Username != "" {
		base.SMTP.Username = override.SMTP.Username
	}
	if override.SMTP.Password != "" {
		base.SMTP.Password = override.SMTP.Password
	}
	if override.SMTP.From != "" {
		base.SMTP.From = override.SMTP.From
	}

	if override.LinkedIn.APIBase != "" {
		base.LinkedIn.APIBase = override.LinkedIn.APIBase
	}
	if override.LinkedIn.AccessToken != "" {
		base.LinkedIn.AccessToken = override.LinkedIn.AccessToken
	}
	if override.LinkedIn.PostsTable != "" {
		base.LinkedIn.PostsTable = override.LinkedIn.PostsTable
	}

	if override.YouTube.APIBase != "" {
		base.YouTube.APIBase = override.YouTube.APIBase
	}
	if override.YouTube.UploadBase != "" {
		base.YouTube.UploadBase = override.YouTube.UploadBase
	}
	if override.YouTube.AccessToken != "" {
		base.YouTube.AccessToken = override.YouTube.AccessToken
	}
	if override.YouTube.PrivacyStatus != "" {
		base.YouTube.PrivacyStatus = override.YouTube.PrivacyStatus
	}
	if override.YouTube.Language != "" {
		base.YouTube.Language = override.YouTube.Language
	}
	if override.YouTube.PollInterval > 0 {
		base.YouTube.PollInterval = override.YouTube.PollInterval
	}
	if override.YouTube.MaxPolls > 0 {
		base.YouTube.MaxPolls = override.YouTube.MaxPolls
	}

	if override.Documents.OutputDir != "" {
		base.Documents.OutputDir = override.Documents.OutputDir
	}

	if override.Archive.OnlySummarized {
		base.Archive.OnlySummarized = true
	}

	if len(override.Profiles) > 0 {
		base.Profiles = override.Profiles
	}

	return base
}

func mergeGemini(base, override GeminiConfig) GeminiConfig {
	if override.Endpoint != "" {
		base.Endpoint = override.Endpoint
	}
	if override.Model != "" {
		base.Model = override.Model
	}
	if override.PhraseModel != "" {
		base.PhraseModel = override.PhraseModel
	}
	if override.APIKey != "" {
		base.APIKey = override.APIKey
	}
	if override.Language != "" {
		base.Language = override.Language
	}
	if override.Extractor != "" {
		base.Extractor = override.Extractor
	}
	if override.MaxAttempts > 0 {
		base.MaxAttempts = override.MaxAttempts
	}
	if override.BaseBackoff > 0 {
		base.BaseBackoff = override.BaseBackoff
	}
	if override.MinContentLength > 0 {
		base.MinContentLength = override.MinContentLength
	}
	if override.MaxContentLength > 0 {
		base.MaxContentLength = override.MaxContentLength
	}
	if override.Throttle > 0 {
		base.Throttle = override.Throttle
	}
	if override.Timeout > 0 {
		base.Timeout = override.Timeout
	}
	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging:   LoggingConfig{Level: "info", Format: "text"},
		Database:  DatabaseConfig{DSN: "newsdigest.db"},
		Scheduler: SchedulerConfig{Interval: 7 * 24 * time.Hour, Timezone: defaultTimezone, location: tz},
		Gemini: GeminiConfig{
			Endpoint:         "https://generativelanguage.googleapis.com/v1/models",
			Model:            "gemini-2.5-flash",
			PhraseModel:      "gemini-2.5-flash",
			Language:         "Spanish",
			Extractor:        "strip",
			MaxAttempts:      defaultMaxAttempts,
			BaseBackoff:      defaultBaseBackoff,
			MinContentLength: defaultMinContent,
			MaxContentLength: defaultMaxContent,
			Throttle:         defaultThrottle,
			Timeout:          60 * time.Second,
		},
		SMTP: SMTPConfig{Host: "smtp.gmail.com", Port: 587},
		LinkedIn: LinkedInConfig{
			APIBase:    "https://api.linkedin.com/v2",
			PostsTable: "LinkedIn Posts",
		},
		YouTube: YouTubeConfig{
			APIBase:       "https://www.googleapis.com/youtube/v3",
			UploadBase:    "https://www.googleapis.com/upload/youtube/v3",
			PrivacyStatus: "public",
			Language:      "es",
			PollInterval:  defaultPollInterval,
			MaxPolls:      defaultMaxPolls,
		},
		Documents: DocumentConfig{OutputDir: "documents"},
		Profiles: []ProfileConfig{
			{
				Name:         "GCP",
				FeedURL:      "https://cloudblog.withgoogle.com/rss",
				Channels:     gcpChannels,
				SubjectBase:  "[Readiness GCP]",
				PlatformName: "Google Cloud",
			},
			{
				Name:                 "GWS",
				FeedURL:              "https://workspaceupdates.googleblog.com/feeds/posts/default",
				Channels:             gwsChannels,
				ExcludeTitleContains: []string{"Weekly Recap"},
				SubjectBase:          "[Readiness GWS]",
				PlatformName:         "Google Workspace",
			},
		},
	}
}

var gcpChannels = []string{
	"Solutions & Technology", "AI & Machine Learning", "API Management", "Application Development",
	"Application Modernization", "Chrome Enterprise", "Compute", "Containers & Kubernetes",
	"Data Analytics", "Databases", "DevOps & SRE", "Maps & Geospatial", "Security",
	"Security & Identity", "Threat Intelligence", "Infrastructure", "Infrastructure Modernization",
	"Networking", "Productivity & Collaboration", "SAP on Google Cloud", "Storage & Data Transfer",
	"Sustainability", "Ecosystem", "IT Leaders", "Industries", "Financial Services",
	"Healthcare & Life Sciences", "Manufacturing", "Media & Entertainment", "Public Sector", "Retail",
	"Supply Chain", "Telecommunications", "Partners", "Startups & SMB", "Training & Certifications",
	"Inside Google Cloud", "Google Cloud Next & Events", "Google Cloud Consulting",
	"Google Maps Platform", "Google Workspace", "Developers & Practitioners", "Transform with Google Cloud",
}

var gwsChannels = []string{
	"Comms & Meetings", "Gmail", "Google Chat", "Google Calendar", "Google Tasks", "Google Groups",
	"Google Meet", "Google Meet hardware", "Google Voice",
	"Content & Collaboration", "Google Drive", "Google Docs", "Google Sheets", "Google Slides",
	"Google Forms", "Google Keep", "Google Sites", "Google Vids",
	"Gemini", "Gemini App", "NotebookLM",
	"Admin & Security", "Admin console", "Security and Compliance", "Directory Sync",
	"Google Workspace Migrate", "Google Vault", "Identity", "MDM", "SSO",
	"Education", "Google Workspace for Education", "Google Classroom",
	"More", "Google Workspace Marketplace", "API", "Google Apps Script", "AppSheet", "Mobile", "iOS",
	"Android", "Beta", "Additional Google services", "Other", "Google Workspace Add-ons",
}
