package config

import (
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone         = "Europe/Paris"
	defaultActiveHoursStart = 9
	defaultActiveHoursEnd   = 1

	configPathEnv = "TRENDING_BOT_CONFIG"

	databaseDSNEnv      = "DATABASE_DSN"
	githubTokenEnv      = "GITHUB_TOKEN"
	twitterAPIKeyEnv    = "TWITTER_API_KEY"
	twitterAPISecretEnv = "TWITTER_API_SECRET"
	twitterTokenEnv     = "TWITTER_ACCESS_TOKEN"
	twitterTokenSecret  = "TWITTER_ACCESS_TOKEN_SECRET"
	openAIAPIKeyEnv     = "OPENAI_API_KEY"
	ollamaHostEnv       = "OLLAMA_HOST"
	browserProfileEnv   = "BROWSER_PROFILE_DIR"
	browserHandleEnv    = "TWITTER_HANDLE"
	telegramTokenEnv    = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv   = "TELEGRAM_CHAT_ID"
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	Twitter    TwitterConfig    `yaml:"twitter"`
	Browser    BrowserConfig    `yaml:"browser"`
	GitHub     GitHubConfig     `yaml:"github"`
	LLM        LLMConfig        `yaml:"llm"`
	History    HistoryConfig    `yaml:"history"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Screenshot ScreenshotConfig `yaml:"screenshot"`
	Telegram   TelegramConfig   `yaml:"telegram"`
}

// TelegramConfig wires the optional posting-report channel.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// TwitterConfig wires the API credentials of the primary channel. The bot
// degrades to browser-only posting when any of the four is missing.
type TwitterConfig struct {
	APIKey            string `yaml:"apiKey"`
	APISecret         string `yaml:"apiSecret"`
	AccessToken       string `yaml:"accessToken"`
	AccessTokenSecret string `yaml:"accessTokenSecret"`
}

// BrowserConfig describes the fallback channel.
type BrowserConfig struct {
	ProfileDir string `yaml:"profileDir"`
	Handle     string `yaml:"handle"`
	Headless   bool   `yaml:"headless"`
}

// GitHubConfig holds the token used for the search and contents APIs.
// Anonymous access works but hits lower rate limits.
type GitHubConfig struct {
	Token string `yaml:"token"`
}

// LLMConfig describes the summarization providers, tried in order.
type LLMConfig struct {
	OpenAI OpenAIConfig `yaml:"openai"`
	Ollama OllamaConfig `yaml:"ollama"`
}

// OpenAIConfig defines how to contact an OpenAI-compatible endpoint.
type OpenAIConfig struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"apiKey"`
}

// OllamaConfig points at a local Ollama daemon.
type OllamaConfig struct {
	Host  string `yaml:"host"`
	Model string `yaml:"model"`
}

// HistoryConfig selects the posting-history backend. Postgres is used
// when DSN is set, the JSON file otherwise.
type HistoryConfig struct {
	FilePath      string `yaml:"filePath"`
	DSN           string `yaml:"dsn"`
	RetentionDays int    `yaml:"retentionDays"`
}

// SchedulerConfig defines the posting cadence. The active-hours bounds
// are pointers so an explicit midnight (0) survives the merge.
type SchedulerConfig struct {
	IntervalMinutes  int            `yaml:"intervalMinutes"`
	Timezone         string         `yaml:"timezone"`
	ActiveHoursStart *int           `yaml:"activeHoursStart"`
	ActiveHoursEnd   *int           `yaml:"activeHoursEnd"`
	location         *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// Interval returns the base posting interval.
func (s SchedulerConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// ActiveHours returns the posting window bounds, defaulting to 09:00
// through 00:59. Out-of-range values fall back to the defaults.
func (s SchedulerConfig) ActiveHours() (start, end int) {
	start, end = defaultActiveHoursStart, defaultActiveHoursEnd
	if s.ActiveHoursStart != nil && *s.ActiveHoursStart >= 0 && *s.ActiveHoursStart < 24 {
		start = *s.ActiveHoursStart
	}
	if s.ActiveHoursEnd != nil && *s.ActiveHoursEnd >= 0 && *s.ActiveHoursEnd < 24 {
		end = *s.ActiveHoursEnd
	}
	return start, end
}

// ScreenshotConfig controls the media capture step.
type ScreenshotConfig struct {
	Enabled bool   `yaml:"enabled"`
	Dir     string `yaml:"dir"`
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

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(twitterAPIKeyEnv); v != "" {
		c.Twitter.APIKey = v
	}
	if v := os.Getenv(twitterAPISecretEnv); v != "" {
		c.Twitter.APISecret = v
	}
	if v := os.Getenv(twitterTokenEnv); v != "" {
		c.Twitter.AccessToken = v
	}
	if v := os.Getenv(twitterTokenSecret); v != "" {
		c.Twitter.AccessTokenSecret = v
	}
	if v := os.Getenv(githubTokenEnv); v != "" {
		c.GitHub.Token = v
	}
	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.LLM.OpenAI.APIKey = v
	}
	if v := os.Getenv(ollamaHostEnv); v != "" {
		c.LLM.Ollama.Host = v
	}
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.History.DSN = v
	}
	if v := os.Getenv(browserProfileEnv); v != "" {
		c.Browser.ProfileDir = v
	}
	if v := os.Getenv(browserHandleEnv); v != "" {
		c.Browser.Handle = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Telegram.ChatID = v
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

	if override.Twitter.APIKey != "" {
		base.Twitter.APIKey = override.Twitter.APIKey
	}
	if override.Twitter.APISecret != "" {
		base.Twitter.APISecret = override.Twitter.APISecret
	}
	if override.Twitter.AccessToken != "" {
		base.Twitter.AccessToken = override.Twitter.AccessToken
	}
	if override.Twitter.AccessTokenSecret != "" {
		base.Twitter.AccessTokenSecret = override.Twitter.AccessTokenSecret
	}

	if override.Browser.ProfileDir != "" {
		base.Browser.ProfileDir = override.Browser.ProfileDir
	}
	if override.Browser.Handle != "" {
		base.Browser.Handle = override.Browser.Handle
	}
	if override.Browser.Headless {
		base.Browser.Headless = true
	}

	if override.GitHub.Token != "" {
		base.GitHub.Token = override.GitHub.Token
	}

	if override.LLM.OpenAI.Endpoint != "" {
		base.LLM.OpenAI.Endpoint = override.LLM.OpenAI.Endpoint
	}
	if override.LLM.OpenAI.Model != "" {
		base.LLM.OpenAI.Model = override.LLM.OpenAI.Model
	}
	if override.LLM.OpenAI.APIKey != "" {
		base.LLM.OpenAI.APIKey = override.LLM.OpenAI.APIKey
	}
	if override.LLM.Ollama.Host != "" {
		base.LLM.Ollama.Host = override.LLM.Ollama.Host
	}
	if override.LLM.Ollama.Model != "" {
		base.LLM.Ollama.Model = override.LLM.Ollama.Model
	}

	if override.History.FilePath != "" {
		base.History.FilePath = override.History.FilePath
	}
	if override.History.DSN != "" {
		base.History.DSN = override.History.DSN
	}
	if override.History.RetentionDays > 0 {
		base.History.RetentionDays = override.History.RetentionDays
	}

	if override.Scheduler.IntervalMinutes > 0 {
		base.Scheduler.IntervalMinutes = override.Scheduler.IntervalMinutes
	}
	if override.Scheduler.Timezone != "" {
		base.Scheduler.Timezone = override.Scheduler.Timezone
	}
	if override.Scheduler.ActiveHoursStart != nil {
		base.Scheduler.ActiveHoursStart = override.Scheduler.ActiveHoursStart
	}
	if override.Scheduler.ActiveHoursEnd != nil {
		base.Scheduler.ActiveHoursEnd = override.Scheduler.ActiveHoursEnd
	}

	if override.Screenshot.Enabled {
		base.Screenshot.Enabled = true
	}
	if override.Screenshot.Dir != "" {
		base.Screenshot.Dir = override.Screenshot.Dir
	}

	if override.Telegram.BotToken != "" {
		base.Telegram.BotToken = override.Telegram.BotToken
	}
	if override.Telegram.ChatID != "" {
		base.Telegram.ChatID = override.Telegram.ChatID
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Logging: LoggingConfig{Level: "info"},
		Browser: BrowserConfig{
			ProfileDir: "browser_profile",
			Headless:   false,
		},
		LLM: LLMConfig{
			OpenAI: OpenAIConfig{
				Endpoint: "https://api.openai.com/v1/chat/completions",
				Model:    "gpt-4o-mini",
			},
			Ollama: OllamaConfig{
				Host:  "http://localhost:11434",
				Model: "qwen3:4b",
			},
		},
		History: HistoryConfig{
			FilePath:      "posted_repos.json",
			RetentionDays: 60,
		},
		Scheduler: SchedulerConfig{
			IntervalMinutes: 30,
			Timezone:        defaultTimezone,
			location:        tz,
		},
		Screenshot: ScreenshotConfig{
			Enabled: true,
			Dir:     "screenshots",
		},
	}
}
