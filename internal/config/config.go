package config

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the fully resolved service configuration.
type Config struct {
	Log            LogConfig
	Server         ServerConfig
	News           NewsConfig
	LLM            LLMConfig
	Market         MarketConfig
	PublishersFile string
}

type LogConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	Host string
	Port int
}

// Addr returns host:port.
func (s ServerConfig) Addr() string { return fmt.Sprintf("%s:%d", s.Host, s.Port) }

// NewsConfig drives the provider walk and the news post-processing steps.
type NewsConfig struct {
	Providers        []string
	Sources          map[string]ProviderSettings
	AugmentThreshold int
	MaxItemsTotal    int
	DisplayLimit     int
	ProviderTimeout  time.Duration
	Enrich           bool
	CachePath        string
	CacheTTL         time.Duration
}

// ProviderSettings holds one provider's credentials and paging. Domains is
// nil when unset so the provider default applies.
type ProviderSettings struct {
	APIKey  string
	Items   int
	Domains []string
}

// Source returns the settings for provider id; unknown ids get zero values.
func (n NewsConfig) Source(id string) ProviderSettings {
	return n.Sources[strings.ToLower(id)]
}

type LLMConfig struct {
	APIKey    string
	Model     string
	MaxTokens int
	Timeout   time.Duration
}

type MarketConfig struct {
	RateLimit     float64
	HistoryRange  string
	ValidateRange string
}

// envBindings maps config keys to the environment variables that set them.
var envBindings = map[string]string{
	"log.level":              "LOG_LEVEL",
	"log.format":             "LOG_FORMAT",
	"server.host":            "SERVER_HOST",
	"server.port":            "SERVER_PORT",
	"news.providers":         "NEWS_PROVIDERS",
	"news.stocknews_api_key": "STOCKNEWS_API_KEY",
	"news.newsapi_api_key":   "NEWSAPI_API_KEY",
	"news.augment_threshold": "NEWS_AUGMENT_THRESHOLD",
	"news.max_items_total":   "NEWS_MAX_ITEMS_TOTAL",
	"news.stocknews_items":   "STOCKNEWS_ITEMS",
	"news.newsapi_items":     "NEWSAPI_ITEMS",
	"news.display_limit":     "NEWS_DISPLAY_LIMIT",
	"news.provider_timeout":  "NEWS_PROVIDER_TIMEOUT",
	"news.trusted_domains":   "NEWS_TRUSTED_DOMAINS",
	"news.enrich":            "NEWS_ENRICH",
	"news.cache_path":        "NEWS_CACHE_PATH",
	"news.cache_ttl":         "NEWS_CACHE_TTL",
	"llm.api_key":            "ANTHROPIC_API_KEY",
	"llm.model":              "LLM_MODEL",
	"llm.max_tokens":         "LLM_MAX_TOKENS",
	"llm.timeout":            "LLM_TIMEOUT",
	"market.rate_limit":      "MARKET_RATE_LIMIT",
	"market.history_range":   "MARKET_HISTORY_RANGE",
	"market.validate_range":  "MARKET_VALIDATE_RANGE",
	"publishers_file":        "PUBLISHERS_FILE",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("news.providers", "stocknews,newsapi")
	v.SetDefault("news.augment_threshold", 8)
	v.SetDefault("news.max_items_total", 15)
	v.SetDefault("news.stocknews_items", 20)
	v.SetDefault("news.newsapi_items", 10)
	v.SetDefault("news.display_limit", 10)
	v.SetDefault("news.provider_timeout", "15s")
	v.SetDefault("news.enrich", false)
	v.SetDefault("news.cache_path", "")
	v.SetDefault("news.cache_ttl", "30m")
	v.SetDefault("llm.model", "claude-haiku-4-5")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout", "60s")
	v.SetDefault("market.rate_limit", 5.0)
	v.SetDefault("market.history_range", "2y")
	v.SetDefault("market.validate_range", "1mo")
}

// Load reads an optional .env file, an optional config file and the
// environment, in increasing order of precedence.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	if path = strings.TrimSpace(path); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	cfg, err := fromViper(v)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromViper(v *viper.Viper) (*Config, error) {
	providerTimeout, err := duration(v, "news.provider_timeout")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := duration(v, "news.cache_ttl")
	if err != nil {
		return nil, err
	}
	llmTimeout, err := duration(v, "llm.timeout")
	if err != nil {
		return nil, err
	}

	return &Config{
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		News: NewsConfig{
			Providers: lowerAll(stringList(v.Get("news.providers"))),
			Sources:   map[string]ProviderSettings{
				"stocknews": {
					APIKey: strings.TrimSpace(v.GetString("news.stocknews_api_key")),
					Items:  v.GetInt("news.stocknews_items"),
				},
				"newsapi": {
					APIKey:  strings.TrimSpace(v.GetString("news.newsapi_api_key")),
					Items:   v.GetInt("news.newsapi_items"),
					Domains: trustedDomains(v),
				},
			},
			AugmentThreshold: v.GetInt("news.augment_threshold"),
			MaxItemsTotal:    v.GetInt("news.max_items_total"),
			DisplayLimit:     v.GetInt("news.display_limit"),
			ProviderTimeout:  providerTimeout,
			Enrich:           v.GetBool("news.enrich"),
			CachePath:        strings.TrimSpace(v.GetString("news.cache_path")),
			CacheTTL:         cacheTTL,
		},
		LLM: LLMConfig{
			APIKey:    strings.TrimSpace(v.GetString("llm.api_key")),
			Model:     strings.TrimSpace(v.GetString("llm.model")),
			MaxTokens: v.GetInt("llm.max_tokens"),
			Timeout:   llmTimeout,
		},
		Market: MarketConfig{
			RateLimit:     v.GetFloat64("market.rate_limit"),
			HistoryRange:  v.GetString("market.history_range"),
			ValidateRange: v.GetString("market.validate_range"),
		},
		PublishersFile: strings.TrimSpace(v.GetString("publishers_file")),
	}, nil
}

// Validate enforces the invariants the news pipeline relies on.
func (c *Config) Validate() error {
	n := c.News
	if len(n.Providers) == 0 {
		return errors.New("news.providers is empty or not set")
	}
	if n.MaxItemsTotal <= 0 {
		return fmt.Errorf("news.max_items_total must be positive, got %d", n.MaxItemsTotal)
	}
	if n.AugmentThreshold <= 0 {
		return fmt.Errorf("news.augment_threshold must be positive, got %d", n.AugmentThreshold)
	}
	if n.AugmentThreshold > n.MaxItemsTotal {
		return fmt.Errorf("news.augment_threshold (%d) cannot be greater than news.max_items_total (%d)", n.AugmentThreshold, n.MaxItemsTotal)
	}
	for _, id := range slices.Sorted(maps.Keys(n.Sources)) {
		if items := n.Sources[id].Items; items <= 0 {
			return fmt.Errorf("news.%s_items must be positive, got %d", id, items)
		}
	}
	if n.DisplayLimit <= 0 {
		return fmt.Errorf("news.display_limit must be positive, got %d", n.DisplayLimit)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Market.RateLimit <= 0 {
		return fmt.Errorf("market.rate_limit must be positive, got %v", c.Market.RateLimit)
	}
	return nil
}

// trustedDomains returns nil when unset so the provider default applies.
func trustedDomains(v *viper.Viper) []string {
	if !v.IsSet("news.trusted_domains") {
		return nil
	}
	return lowerAll(stringList(v.Get("news.trusted_domains")))
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := strings.TrimSpace(v.GetString(key))
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, raw, err)
	}
	return d, nil
}

// stringList accepts either a comma separated string (env) or a list (file).
func stringList(raw any) []string {
	var parts []string
	switch val := raw.(type) {
	case nil:
		return nil
	case string:
		parts = strings.Split(val, ",")
	case []string:
		parts = val
	case []any:
		for _, p := range val {
			parts = append(parts, fmt.Sprint(p))
		}
	default:
		parts = strings.Split(fmt.Sprint(val), ",")
	}

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func lowerAll(values []string) []string {
	for i, v := range values {
		values[i] = strings.ToLower(v)
	}
	return values
}
