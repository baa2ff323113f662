package sources

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/confkit"
	"coinsnap/pkg/dexscreener"
	"coinsnap/pkg/ingest"
)

// Config describes the upstream clients and the per-source overrides.
type Config struct {
	CoinGecko   CoinGeckoConfig          `yaml:"coingecko"`
	DexScreener DexScreenerConfig        `yaml:"dexscreener"`
	Sources     map[string]*SourceConfig `yaml:"sources"`
}

// CoinGeckoConfig configures the CoinGecko client.
type CoinGeckoConfig struct {
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	APITier        string        `yaml:"api_tier"`
	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`
	RatePerMinute  int           `yaml:"rate_per_minute"`
}

// DexScreenerConfig configures the DexScreener client.
type DexScreenerConfig struct {
	BaseURL        string        `yaml:"base_url"`
	HTTPTimeoutRaw string        `yaml:"http_timeout"`
	HTTPTimeout    time.Duration `yaml:"-"`
}

// SourceConfig overrides the defaults of one adapter. Unset Limit and Delay
// keep the adapter defaults.
type SourceConfig struct {
	Enabled  *bool          `yaml:"enabled"`
	Limit    *int           `yaml:"limit"`
	DelayRaw string         `yaml:"delay"`
	Delay    *time.Duration `yaml:"-"`
	Schedule string         `yaml:"schedule"`

	IDs        []string `yaml:"ids"`
	Currencies []string `yaml:"currencies"`
	Coin       string   `yaml:"coin"`
	Chain      string   `yaml:"chain"`
	Pair       string   `yaml:"pair"`
}

// IsEnabled reports whether the source takes part in -all and cron runs.
func (s *SourceConfig) IsEnabled() bool {
	return s == nil || s.Enabled == nil || *s.Enabled
}

// LoadConfig reads configuration from disk.
func LoadConfig(path string) (*Config, error) {
	confkit.LoadDotenvOnce()
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sources config: %w", err)
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

// LoadConfigFromReader constructs a Config from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	confkit.LoadDotenvOnce()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read sources config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal sources config: %w", err)
	}
	if err := cfg.normalise(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) normalise() error {
	if c.Sources == nil {
		c.Sources = make(map[string]*SourceConfig)
	}
	cg := &c.CoinGecko
	cg.BaseURL = confkit.Expand(cg.BaseURL)
	cg.APIKey = confkit.Expand(cg.APIKey)
	cg.APITier = strings.ToLower(confkit.Expand(cg.APITier))
	d, err := confkit.ParseDuration(cg.HTTPTimeoutRaw)
	if err != nil || (d != nil && *d <= 0) {
		return fmt.Errorf("sources config: coingecko http_timeout %q must be a positive duration", cg.HTTPTimeoutRaw)
	}
	if d != nil {
		cg.HTTPTimeout = *d
	}

	ds := &c.DexScreener
	ds.BaseURL = confkit.Expand(ds.BaseURL)
	d, err = confkit.ParseDuration(ds.HTTPTimeoutRaw)
	if err != nil || (d != nil && *d <= 0) {
		return fmt.Errorf("sources config: dexscreener http_timeout %q must be a positive duration", ds.HTTPTimeoutRaw)
	}
	if d != nil {
		ds.HTTPTimeout = *d
	}

	normalised := make(map[string]*SourceConfig, len(c.Sources))
	for name, src := range c.Sources {
		if src == nil {
			src = &SourceConfig{}
		}
		src.Schedule = confkit.Expand(src.Schedule)
		src.Coin = confkit.Expand(src.Coin)
		src.Chain = confkit.Expand(src.Chain)
		src.Pair = confkit.Expand(src.Pair)
		delay, err := confkit.ParseDuration(src.DelayRaw)
		if err != nil {
			return fmt.Errorf("sources config: %s: invalid delay %q: %w", name, src.DelayRaw, err)
		}
		src.Delay = delay
		normalised[normaliseName(name)] = src
	}
	c.Sources = normalised
	return nil
}

// Validate ensures the configuration is structurally sound.
func (c *Config) Validate() error {
	switch coingecko.Tier(c.CoinGecko.APITier) {
	case "", coingecko.TierDemo, coingecko.TierPro:
	default:
		return fmt.Errorf("sources config: coingecko api_tier %q must be demo or pro", c.CoinGecko.APITier)
	}
	if c.CoinGecko.RatePerMinute < 0 {
		return fmt.Errorf("sources config: coingecko rate_per_minute cannot be negative")
	}
	for name, src := range c.Sources {
		if _, ok := Lookup(name); !ok {
			return fmt.Errorf("sources config: unknown source %q", name)
		}
		if src.Limit != nil && *src.Limit < 0 {
			return fmt.Errorf("sources config: %s: limit cannot be negative", name)
		}
		if src.Delay != nil && *src.Delay < 0 {
			return fmt.Errorf("sources config: %s: delay cannot be negative", name)
		}
		if src.Pair != "" {
			if err := validatePair(src.Pair); err != nil {
				return fmt.Errorf("sources config: %s: %w", name, err)
			}
		}
	}
	return nil
}

// Source returns the override block of name, or nil.
func (c *Config) Source(name string) *SourceConfig {
	if c == nil {
		return nil
	}
	return c.Sources[normaliseName(name)]
}

// Enabled lists the registered sources not disabled by configuration, sorted.
func (c *Config) Enabled() []string {
	var names []string
	for _, name := range Names() {
		if c.Source(name).IsEnabled() {
			names = append(names, name)
		}
	}
	return names
}

// Schedules maps each enabled source with a schedule to its cron expression.
func (c *Config) Schedules() map[string]string {
	out := make(map[string]string)
	for _, name := range c.Enabled() {
		if src := c.Source(name); src != nil && src.Schedule != "" {
			out[name] = src.Schedule
		}
	}
	return out
}

// Deps constructs the upstream clients.
func (c *Config) Deps() Deps {
	cgOpts := []coingecko.Option{
		coingecko.WithBaseURL(c.CoinGecko.BaseURL),
		coingecko.WithAPIKey(c.CoinGecko.APIKey, coingecko.Tier(c.CoinGecko.APITier)),
		coingecko.WithRequestsPerMinute(c.CoinGecko.RatePerMinute),
	}
	if c.CoinGecko.HTTPTimeout > 0 {
		cgOpts = append(cgOpts, coingecko.WithHTTPClient(&http.Client{Timeout: c.CoinGecko.HTTPTimeout}))
	}
	dsOpts := []dexscreener.Option{dexscreener.WithBaseURL(c.DexScreener.BaseURL)}
	if c.DexScreener.HTTPTimeout > 0 {
		dsOpts = append(dsOpts, dexscreener.WithHTTPClient(&http.Client{Timeout: c.DexScreener.HTTPTimeout}))
	}
	return Deps{
		CoinGecko:   coingecko.NewClient(cgOpts...),
		DexScreener: dexscreener.NewClient(dsOpts...),
	}
}

// BuildJobs instantiates the named sources, or every enabled source when no
// name is given. Explicitly named sources run even when disabled.
func (c *Config) BuildJobs(d Deps, names ...string) ([]ingest.Job, error) {
	if len(names) == 0 {
		names = c.Enabled()
	}
	jobs := make([]ingest.Job, 0, len(names))
	for _, name := range names {
		def, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("sources: unknown source %q", name)
		}
		job, err := def.BuildWith(c.Source(name), d)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
