package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"credibility-scanner/scraper"
)

type Config struct {
	ServerPort  string `mapstructure:"SERVER_PORT"`
	MetricsPath string `mapstructure:"METRICS_PATH"`

	LogLevel    string `mapstructure:"LOG_LEVEL"`
	LogEncoding string `mapstructure:"LOG_ENCODING"`

	// Scraper
	UserAgent        string  `mapstructure:"USER_AGENT"`
	ScrapeTimeout    int     `mapstructure:"SCRAPE_TIMEOUT"`
	TLSTimeout       int     `mapstructure:"TLS_TIMEOUT"`
	WhoisTimeout     int     `mapstructure:"WHOIS_TIMEOUT"`
	WhoisAPIURL      string  `mapstructure:"WHOIS_API_URL"`
	WhoisAPIKey      string  `mapstructure:"WHOIS_API_KEY"`
	MaxBodyBytes     int64   `mapstructure:"MAX_BODY_BYTES"`
	GeoLookupEnabled bool    `mapstructure:"GEO_LOOKUP_ENABLED"`
	GeoAPIURL        string  `mapstructure:"GEO_API_URL"`
	ScrapeRateLimit  float64 `mapstructure:"SCRAPE_RATE_LIMIT"`

	// Classifier
	FeatureSchemaPath string `mapstructure:"FEATURE_SCHEMA_PATH"`
	ModelServerURL    string `mapstructure:"MODEL_SERVER_URL"`
	ModelWeightsPath  string `mapstructure:"MODEL_WEIGHTS_PATH"`
	ModelTimeout      int    `mapstructure:"MODEL_TIMEOUT"`
	BreakerThreshold  int    `mapstructure:"BREAKER_THRESHOLD"`
	BreakerReset      int    `mapstructure:"BREAKER_RESET"`
	ImageModelURL     string `mapstructure:"IMAGE_MODEL_URL"`

	// LLM
	GeminiAPIKey string `mapstructure:"GEMINI_API_KEY"`
	GeminiModel  string `mapstructure:"GEMINI_MODEL"`
}

var keys = []string{
	"SERVER_PORT", "METRICS_PATH", "LOG_LEVEL", "LOG_ENCODING",
	"USER_AGENT", "SCRAPE_TIMEOUT", "TLS_TIMEOUT", "WHOIS_TIMEOUT",
	"WHOIS_API_URL", "WHOIS_API_KEY", "MAX_BODY_BYTES",
	"GEO_LOOKUP_ENABLED", "GEO_API_URL", "SCRAPE_RATE_LIMIT",
	"FEATURE_SCHEMA_PATH", "MODEL_SERVER_URL", "MODEL_WEIGHTS_PATH",
	"MODEL_TIMEOUT", "BREAKER_THRESHOLD", "BREAKER_RESET", "IMAGE_MODEL_URL",
	"GEMINI_API_KEY", "GEMINI_MODEL",
}

func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("METRICS_PATH", "/metrics")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_ENCODING", "json")

	v.SetDefault("USER_AGENT", scraper.DefaultUserAgent)
	v.SetDefault("SCRAPE_TIMEOUT", 10)
	v.SetDefault("TLS_TIMEOUT", 5)
	v.SetDefault("WHOIS_TIMEOUT", 5)
	v.SetDefault("WHOIS_API_URL", "https://www.whoisxmlapi.com/whoisserver/WhoisService")
	v.SetDefault("WHOIS_API_KEY", "at_free")
	v.SetDefault("MAX_BODY_BYTES", 10<<20)
	v.SetDefault("GEO_LOOKUP_ENABLED", false)
	v.SetDefault("GEO_API_URL", "http://ip-api.com/json")
	v.SetDefault("SCRAPE_RATE_LIMIT", 1.0)

	v.SetDefault("FEATURE_SCHEMA_PATH", "models/feature_schema.yaml")
	v.SetDefault("MODEL_SERVER_URL", "")
	v.SetDefault("MODEL_WEIGHTS_PATH", "models/logistic_weights.yaml")
	v.SetDefault("MODEL_TIMEOUT", 10)
	v.SetDefault("BREAKER_THRESHOLD", 5)
	v.SetDefault("BREAKER_RESET", 30)
	v.SetDefault("IMAGE_MODEL_URL", "")

	v.SetDefault("GEMINI_API_KEY", "")
	v.SetDefault("GEMINI_MODEL", "gemini-2.0-flash-lite")

	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about; bind them so env overrides land.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", k, err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c *Config) ScrapeTimeoutDuration() time.Duration { return seconds(c.ScrapeTimeout) }
func (c *Config) TLSTimeoutDuration() time.Duration    { return seconds(c.TLSTimeout) }
func (c *Config) WhoisTimeoutDuration() time.Duration  { return seconds(c.WhoisTimeout) }
func (c *Config) ModelTimeoutDuration() time.Duration  { return seconds(c.ModelTimeout) }
func (c *Config) BreakerResetDuration() time.Duration  { return seconds(c.BreakerReset) }
