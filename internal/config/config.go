package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Env            string
	ServiceName    string
	ServiceVersion string
	LogLevel       string

	Port string

	RedisURL string
	CacheTTL time.Duration

	JWTSecret string
	JWTIssuer string

	OtelExporterOTLPEndpoint string
	OtelExporterOTLPHeaders  string
	SentryDSN                string

	AI         AIConfig
	Fetch      FetchConfig
	Transcript TranscriptConfig
	Storage    StorageConfig
	Lexicon    LexiconConfig
}

// AIConfig selects and tunes the text-generation backend.
type AIConfig struct {
	Provider          string        `yaml:"provider"`
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`

	GroqKey     string `yaml:"-"`
	CerebrasKey string `yaml:"-"`
	OpenAIKey   string `yaml:"-"`
}

// APIKey returns the credential for the selected provider.
func (c AIConfig) APIKey() string {
	switch c.Provider {
	case "cerebras":
		return c.CerebrasKey
	case "openai":
		return c.OpenAIKey
	default:
		return c.GroqKey
	}
}

type FetchConfig struct {
	Timeout         time.Duration `yaml:"timeout"`
	CaptionTimeout  time.Duration `yaml:"caption_timeout"`
	ResolverTimeout time.Duration `yaml:"resolver_timeout"`
	UserAgent       string        `yaml:"user_agent"`
	MaxContentChars int           `yaml:"max_content_chars"`
}

type TranscriptConfig struct {
	YtDlpPath string   `yaml:"ytdlp_path"`
	Languages []string `yaml:"languages"`
}

type StorageConfig struct {
	Backend     string `yaml:"backend"`
	S3Bucket    string `yaml:"s3_bucket"`
	AWSRegion   string `yaml:"aws_region"`
	DatabaseURL string `yaml:"-"`
	SQLitePath  string `yaml:"sqlite_path"`
}

// LexiconConfig extends the built-in segmentation word lists.
type LexiconConfig struct {
	Units           []string `yaml:"units"`
	IngredientCues  []string `yaml:"ingredient_cues"`
	CookingVerbs    []string `yaml:"cooking_verbs"`
	Bullets         []string `yaml:"bullets"`
	TitleSeparators []string `yaml:"title_separators"`
}

func Load() (*Config, error) {
	return LoadFile("config.yaml")
}

// LoadFile reads the environment, then overlays the YAML file at path.
func LoadFile(path string) (*Config, error) {
	cfg := &Config{
		Env:                      os.Getenv("ENV"),
		ServiceName:              os.Getenv("SERVICE_NAME"),
		ServiceVersion:           os.Getenv("SERVICE_VERSION"),
		LogLevel:                 os.Getenv("LOG_LEVEL"),
		Port:                     os.Getenv("PORT"),
		RedisURL:                 os.Getenv("REDIS_URL"),
		JWTSecret:                os.Getenv("JWT_SECRET"),
		JWTIssuer:                os.Getenv("JWT_ISSUER"),
		OtelExporterOTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		OtelExporterOTLPHeaders:  os.Getenv("OTEL_EXPORTER_OTLP_HEADERS"),
		SentryDSN:                os.Getenv("SENTRY_DSN"),
		AI: AIConfig{
			Provider:    os.Getenv("AI_PROVIDER"),
			Model:       os.Getenv("AI_MODEL"),
			BaseURL:     os.Getenv("AI_BASE_URL"),
			GroqKey:     os.Getenv("GROQ_API_KEY"),
			CerebrasKey: os.Getenv("CEREBRAS_API_KEY"),
			OpenAIKey:   os.Getenv("OPENAI_API_KEY"),
		},
		Fetch: FetchConfig{
			UserAgent: os.Getenv("USER_AGENT"),
		},
		Transcript: TranscriptConfig{
			YtDlpPath: os.Getenv("YTDLP_PATH"),
		},
		Storage: StorageConfig{
			Backend:     os.Getenv("STORAGE_BACKEND"),
			S3Bucket:    os.Getenv("S3_BUCKET"),
			AWSRegion:   os.Getenv("AWS_REGION"),
			DatabaseURL: os.Getenv("DATABASE_URL"),
			SQLitePath:  os.Getenv("SQLITE_PATH"),
		},
	}

	var err error
	if cfg.CacheTTL, err = durationEnv("CACHE_TTL"); err != nil {
		return nil, err
	}
	if cfg.AI.Timeout, err = durationEnv("AI_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.Fetch.Timeout, err = durationEnv("FETCH_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.Fetch.CaptionTimeout, err = durationEnv("CAPTION_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.Fetch.ResolverTimeout, err = durationEnv("RESOLVER_TIMEOUT"); err != nil {
		return nil, err
	}
	if cfg.AI.MaxTokens, err = intEnv("AI_MAX_TOKENS"); err != nil {
		return nil, err
	}
	if v := os.Getenv("AI_REQUESTS_PER_SECOND"); v != "" {
		if cfg.AI.RequestsPerSecond, err = strconv.ParseFloat(v, 64); err != nil {
			return nil, fmt.Errorf("invalid AI_REQUESTS_PER_SECOND: %w", err)
		}
	}

	// Load from YAML file if available
	if err := cfg.LoadFromYAML(path); err != nil {
		return nil, fmt.Errorf("failed to load YAML config: %w", err)
	}

	cfg.SetDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

func (c *Config) LoadFromYAML(path string) error {
	if path == "" {
		return nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // File not found is not an error
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	var yamlConfig struct {
		AI         AIConfig         `yaml:"ai"`
		Fetch      FetchConfig      `yaml:"fetch"`
		Transcript TranscriptConfig `yaml:"transcript"`
		Storage    StorageConfig    `yaml:"storage"`
		Lexicon    LexiconConfig    `yaml:"lexicon"`
	}

	if err := yaml.Unmarshal(data, &yamlConfig); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment wins over the file for anything already set.
	setString(&c.AI.Provider, yamlConfig.AI.Provider)
	setString(&c.AI.Model, yamlConfig.AI.Model)
	setString(&c.AI.BaseURL, yamlConfig.AI.BaseURL)
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = yamlConfig.AI.MaxTokens
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = yamlConfig.AI.Timeout
	}
	if c.AI.RequestsPerSecond == 0 {
		c.AI.RequestsPerSecond = yamlConfig.AI.RequestsPerSecond
	}

	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = yamlConfig.Fetch.Timeout
	}
	if c.Fetch.CaptionTimeout == 0 {
		c.Fetch.CaptionTimeout = yamlConfig.Fetch.CaptionTimeout
	}
	if c.Fetch.ResolverTimeout == 0 {
		c.Fetch.ResolverTimeout = yamlConfig.Fetch.ResolverTimeout
	}
	setString(&c.Fetch.UserAgent, yamlConfig.Fetch.UserAgent)
	if c.Fetch.MaxContentChars == 0 {
		c.Fetch.MaxContentChars = yamlConfig.Fetch.MaxContentChars
	}

	setString(&c.Transcript.YtDlpPath, yamlConfig.Transcript.YtDlpPath)
	if len(yamlConfig.Transcript.Languages) > 0 {
		c.Transcript.Languages = yamlConfig.Transcript.Languages
	}

	setString(&c.Storage.Backend, yamlConfig.Storage.Backend)
	setString(&c.Storage.S3Bucket, yamlConfig.Storage.S3Bucket)
	setString(&c.Storage.AWSRegion, yamlConfig.Storage.AWSRegion)
	setString(&c.Storage.SQLitePath, yamlConfig.Storage.SQLitePath)

	c.Lexicon = yamlConfig.Lexicon

	return nil
}

func (c *Config) SetDefaults() {
	if c.Env == "" {
		c.Env = "development"
	}
	if c.ServiceName == "" {
		c.ServiceName = "recipebox"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "1.0.0"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.Port == "" {
		c.Port = "8080"
	}
	if c.CacheTTL == 0 {
		c.CacheTTL = 6 * time.Hour
	}

	if c.AI.Provider == "" {
		c.AI.Provider = "groq"
	}
	if c.AI.MaxTokens == 0 {
		c.AI.MaxTokens = 5000
	}
	if c.AI.Timeout == 0 {
		c.AI.Timeout = 60 * time.Second
	}
	if c.AI.RequestsPerSecond == 0 {
		c.AI.RequestsPerSecond = 2
	}

	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 10 * time.Second
	}
	if c.Fetch.CaptionTimeout == 0 {
		c.Fetch.CaptionTimeout = 15 * time.Second
	}
	if c.Fetch.ResolverTimeout == 0 {
		c.Fetch.ResolverTimeout = 60 * time.Second
	}
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"
	}
	if c.Fetch.MaxContentChars == 0 {
		c.Fetch.MaxContentChars = 15000
	}

	if c.Transcript.YtDlpPath == "" {
		c.Transcript.YtDlpPath = "yt-dlp"
	}
	if len(c.Transcript.Languages) == 0 {
		c.Transcript.Languages = []string{"en", "en-US", "en-GB", "auto-en"}
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = "sqlite"
	}
	if c.Storage.AWSRegion == "" {
		c.Storage.AWSRegion = "us-east-1"
	}
	if c.Storage.SQLitePath == "" {
		c.Storage.SQLitePath = "recipes.db"
	}
}

func (c *Config) validate() error {
	switch c.AI.Provider {
	case "groq", "cerebras", "openai", "none":
	default:
		return fmt.Errorf("unknown AI_PROVIDER %q", c.AI.Provider)
	}

	switch c.Storage.Backend {
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
	case "postgres":
		if c.Storage.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres storage backend")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}
	return nil
}

// OTLPHeaders parses "k1=v1,k2=v2" into a map.
func (c *Config) OTLPHeaders() map[string]string {
	if c.OtelExporterOTLPHeaders == "" {
		return nil
	}
	headers := make(map[string]string)
	for _, pair := range strings.Split(c.OtelExporterOTLPHeaders, ",") {
		k, v, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return headers
}

func setString(dst *string, v string) {
	if *dst == "" && v != "" {
		*dst = v
	}
}

func durationEnv(key string) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func intEnv(key string) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
