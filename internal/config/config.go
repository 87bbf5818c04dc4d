package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"PriceScanner/internal/domain"
)

const (
	configPathEnv       = "PRICE_SCANNER_CONFIG"
	searchAPIKeyEnv     = "SEARCHAPI_API_KEY"
	customSearchKeyEnv  = "GOOGLE_CSE_API_KEY"
	customSearchIDEnv   = "GOOGLE_CSE_ID"
	chatGPTAPIKeyEnv    = "OPENAI_API_KEY"
	chatGPTModelEnv     = "CHATGPT_MODEL"
	sourceScannerEnv    = "SOURCE_SCANNER"
	cacheBackendEnv     = "CACHE_BACKEND"
	cacheTTLEnv         = "CACHE_TTL"
	databaseDSNEnv      = "DATABASE_DSN"
	redisURLEnv         = "REDIS_URL"
	logLevelEnv         = "LOG_LEVEL"
	httpAddrEnv         = "HTTP_ADDR"
	defaultSystemPrompt = "You are a data analyst. Always respond with valid JSON only, no markdown formatting."
)

// Config holds high-level settings required across the application.
type Config struct {
	Logging      LoggingConfig      `yaml:"logging"`
	Server       ServerConfig       `yaml:"server"`
	Source       SourceConfig       `yaml:"source"`
	SearchAPI    SearchAPIConfig    `yaml:"searchapi"`
	CustomSearch CustomSearchConfig `yaml:"customSearch"`
	HTML         HTMLConfig         `yaml:"html"`
	Cache        CacheConfig        `yaml:"cache"`
	ChatGPT      ChatGPTConfig      `yaml:"chatgpt"`
}

// LoggingConfig selects slog level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// SourceConfig picks the primary scanner and the degraded-mode fallback.
type SourceConfig struct {
	Scanner    string        `yaml:"scanner"`
	Fallback   string        `yaml:"fallback"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxResults int           `yaml:"maxResults"`
	Country    string        `yaml:"country"`
	Language   string        `yaml:"language"`
}

// SearchAPIConfig defines how to contact SearchAPI.io.
type SearchAPIConfig struct {
	Endpoint string `yaml:"endpoint"`
	Engine   string `yaml:"engine"`
	APIKey   string `yaml:"apiKey"`
}

// CustomSearchConfig defines the Google Custom Search variant and its retailer allow-list.
type CustomSearchConfig struct {
	Endpoint       string            `yaml:"endpoint"`
	APIKey         string            `yaml:"apiKey"`
	EngineID       string            `yaml:"engineId"`
	AllowedDomains map[string]string `yaml:"allowedDomains"`
}

// HTMLConfig lists retailer search pages scraped directly.
type HTMLConfig struct {
	Renderer  string           `yaml:"renderer"`
	ChromeBin string           `yaml:"chromeBin"`
	UserAgent string           `yaml:"userAgent"`
	Retailers []RetailerConfig `yaml:"retailers"`
}

// RetailerConfig describes a single retailer search page and its selectors.
type RetailerConfig struct {
	Name      string          `yaml:"name"`
	SearchURL string          `yaml:"searchUrl"`
	Selectors SelectorsConfig `yaml:"selectors"`
}

// SelectorsConfig holds goquery selectors for a product tile.
type SelectorsConfig struct {
	Item  string `yaml:"item"`
	Title string `yaml:"title"`
	Price string `yaml:"price"`
	Link  string `yaml:"link"`
}

// CacheConfig selects the cache backend and its TTL.
type CacheConfig struct {
	Backend string        `yaml:"backend"`
	TTL     time.Duration `yaml:"ttl"`
	Dir     string        `yaml:"dir"`
	SQL     SQLConfig     `yaml:"sql"`
	Redis   RedisConfig   `yaml:"redis"`
}

// SQLConfig describes the SQL cache store connection.
type SQLConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// RedisConfig describes the Redis cache store connection.
type RedisConfig struct {
	URL    string `yaml:"url"`
	Prefix string `yaml:"prefix"`
}

// ChatGPTConfig defines how to contact the ChatGPT API.
type ChatGPTConfig struct {
	Endpoint     string        `yaml:"endpoint"`
	Model        string        `yaml:"model"`
	APIKey       string        `yaml:"apiKey"`
	SystemPrompt string        `yaml:"systemPrompt"`
	Temperature  float64       `yaml:"temperature"`
	MaxTokens    int           `yaml:"maxTokens"`
	Timeout      time.Duration `yaml:"timeout"`
}

// Load reads .env and YAML configuration (if present) and applies environment overrides.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: cannot read .env: %v", err)
	}

	cfg := Default()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := cfg.decode(raw); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = Default()
		}
	}

	cfg.applyEnvOverrides()

	if cfg.Source.MaxResults <= 0 {
		cfg.Source.MaxResults = Default().Source.MaxResults
	}
	if len(cfg.HTML.Retailers) == 0 {
		cfg.HTML.Retailers = Default().HTML.Retailers
	}

	return cfg
}

// decode applies YAML on top of the current values so absent keys keep their defaults.
// Maps would otherwise be merged key by key, so a configured allow-list replaces the default one.
func (c *Config) decode(raw []byte) error {
	var domains struct {
		CustomSearch struct {
			AllowedDomains map[string]string `yaml:"allowedDomains"`
		} `yaml:"customSearch"`
	}
	if err := yaml.Unmarshal(raw, &domains); err != nil {
		return err
	}

	if err := yaml.Unmarshal(raw, c); err != nil {
		return err
	}

	if domains.CustomSearch.AllowedDomains != nil {
		c.CustomSearch.AllowedDomains = domains.CustomSearch.AllowedDomains
	}
	return nil
}

// Validate reports settings no component can work with.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "memory", "file", "sql", "redis":
	default:
		return fmt.Errorf("%w: unknown cache backend %q", domain.ErrConfiguration, c.Cache.Backend)
	}

	if c.Cache.TTL <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive", domain.ErrConfiguration)
	}

	switch c.HTML.Renderer {
	case "http", "chrome":
	default:
		return fmt.Errorf("%w: unknown html renderer %q", domain.ErrConfiguration, c.HTML.Renderer)
	}

	if strings.TrimSpace(c.Source.Scanner) == "" {
		return fmt.Errorf("%w: source scanner is empty", domain.ErrConfiguration)
	}

	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(searchAPIKeyEnv); v != "" {
		c.SearchAPI.APIKey = v
	}

	if v := os.Getenv(customSearchKeyEnv); v != "" {
		c.CustomSearch.APIKey = v
	}

	if v := os.Getenv(customSearchIDEnv); v != "" {
		c.CustomSearch.EngineID = v
	}

	if v := os.Getenv(chatGPTAPIKeyEnv); v != "" {
		c.ChatGPT.APIKey = v
	}

	if v := os.Getenv(chatGPTModelEnv); v != "" {
		c.ChatGPT.Model = v
	}

	if v := os.Getenv(sourceScannerEnv); v != "" {
		c.Source.Scanner = v
	}

	if v := os.Getenv(cacheBackendEnv); v != "" {
		c.Cache.Backend = v
	}

	if v := os.Getenv(cacheTTLEnv); v != "" {
		if d, err := parseDuration(v); err == nil {
			c.Cache.TTL = d
		} else {
			log.Printf("config: invalid %s=%q: %v", cacheTTLEnv, v, err)
		}
	}

	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Cache.SQL.DSN = v
	}

	if v := os.Getenv(redisURLEnv); v != "" {
		c.Cache.Redis.URL = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(httpAddrEnv); v != "" {
		c.Server.Addr = v
	}
}

// parseDuration accepts Go durations ("30m") or plain seconds ("300").
func parseDuration(v string) (time.Duration, error) {
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	return time.ParseDuration(v)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Server:  ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Source: SourceConfig{
			Scanner:    "searchapi",
			Fallback:   "demo",
			Timeout:    15 * time.Second,
			MaxResults: 10,
			Country:    "au",
			Language:   "en",
		},
		SearchAPI: SearchAPIConfig{
			Endpoint: "https://www.searchapi.io/api/v1/search",
			Engine:   "google_shopping",
		},
		CustomSearch: CustomSearchConfig{
			Endpoint: "https://www.googleapis.com/customsearch/v1",
			AllowedDomains: map[string]string{
				"woolworths.com.au":       "Woolworths",
				"coles.com.au":            "Coles",
				"aldi.com.au":             "Aldi",
				"iga.com.au":              "IGA",
				"bigw.com.au":             "Big W",
				"chemistwarehouse.com.au": "Chemist Warehouse",
			},
		},
		HTML: HTMLConfig{
			Renderer:  "http",
			UserAgent: "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			Retailers: []RetailerConfig{
				{
					Name:      "Woolworths",
					SearchURL: "https://www.woolworths.com.au/shop/search/products?searchTerm={query}",
					Selectors: SelectorsConfig{
						Item:  "wc-product-tile, .product-tile",
						Title: ".product-title-link, .product-tile-title",
						Price: ".primary, .product-tile-price",
						Link:  "a[href]",
					},
				},
				{
					Name:      "Coles",
					SearchURL: "https://www.coles.com.au/search/products?q={query}",
					Selectors: SelectorsConfig{
						Item:  "[data-testid='product-tile'], section.product__tile",
						Title: ".product__title, h2",
						Price: ".price__value, [data-testid='product-pricing']",
						Link:  "a.product__link, a[href]",
					},
				},
			},
		},
		Cache: CacheConfig{
			Backend: "file",
			TTL:     24 * time.Hour,
			Dir:     "/tmp/shopping_cache",
			SQL:     SQLConfig{Driver: "sqlite", DSN: "file:pricescanner.db"},
			Redis:   RedisConfig{URL: "redis://localhost:6379/0", Prefix: "pricescanner:cache:"},
		},
		ChatGPT: ChatGPTConfig{
			Endpoint:     "https://api.openai.com/v1/chat/completions",
			Model:        "gpt-4o-mini",
			SystemPrompt: defaultSystemPrompt,
			Temperature:  0.3,
			MaxTokens:    2000,
			Timeout:      15 * time.Second,
		},
	}
}
