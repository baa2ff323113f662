// Package sources holds the snapshot source adapters. Each adapter registers a
// Definition at init time; Config.BuildJobs turns the enabled ones into
// runnable ingest jobs.
package sources

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"coinsnap/pkg/coingecko"
	"coinsnap/pkg/dexscreener"
	"coinsnap/pkg/ingest"
)

// Deps are the upstream clients shared by every adapter of a process.
type Deps struct {
	CoinGecko   *coingecko.Client
	DexScreener *dexscreener.Client
}

var (
	errNoCoinGecko   = errors.New("sources: coingecko client not configured")
	errNoDexScreener = errors.New("sources: dexscreener client not configured")
)

func (d Deps) coinGecko() (*coingecko.Client, error) {
	if d.CoinGecko == nil {
		return nil, errNoCoinGecko
	}
	return d.CoinGecko, nil
}

func (d Deps) dexScreener() (*dexscreener.Client, error) {
	if d.DexScreener == nil {
		return nil, errNoDexScreener
	}
	return d.DexScreener, nil
}

// Settings are the resolved per-run parameters of one adapter.
type Settings struct {
	Limit      int
	Delay      time.Duration
	IDs        []string
	Currencies []string
	Coin       string
	Chain      string
	Pair       string
}

// Builder constructs the job of one adapter.
type Builder func(s Settings, d Deps) (ingest.Job, error)

// Definition describes a registered adapter and its defaults.
type Definition struct {
	Name     string
	Relation ingest.Relation
	// Limit is the default item cap; zero means the full list.
	Limit int
	// Delay is the default pause between detail calls.
	Delay time.Duration
	Build Builder
}

var (
	registry   = make(map[string]Definition)
	registryMu sync.RWMutex
)

// Register adds an adapter. Registering a name twice replaces the first.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[normaliseName(def.Name)] = def
}

// Lookup returns the adapter registered under name.
func Lookup(name string) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	def, ok := registry[normaliseName(name)]
	return def, ok
}

// Names lists every registered adapter in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BuildWith resolves def against cfg and constructs its job. A nil cfg uses the
// adapter defaults.
func (def Definition) BuildWith(cfg *SourceConfig, d Deps) (ingest.Job, error) {
	if def.Build == nil {
		return nil, fmt.Errorf("sources: %s has no builder", def.Name)
	}
	job, err := def.Build(def.settings(cfg), d)
	if err != nil {
		return nil, fmt.Errorf("sources: build %s: %w", def.Name, err)
	}
	return job, nil
}

func (def Definition) settings(cfg *SourceConfig) Settings {
	s := Settings{Limit: def.Limit, Delay: def.Delay}
	if cfg == nil {
		return s
	}
	if cfg.Limit != nil {
		s.Limit = *cfg.Limit
	}
	if cfg.Delay != nil {
		s.Delay = *cfg.Delay
	}
	s.IDs = cfg.IDs
	s.Currencies = cfg.Currencies
	s.Coin = cfg.Coin
	s.Chain = cfg.Chain
	s.Pair = cfg.Pair
	return s
}

func normaliseName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func requireID(id string) (string, error) {
	if id = strings.TrimSpace(id); id == "" {
		return "", ingest.ErrMissingIdentifier
	}
	return id, nil
}

func requireIDPtr(id *string) (string, error) {
	if id == nil {
		return "", ingest.ErrMissingIdentifier
	}
	return requireID(*id)
}

func orDefault(values []string, fallback ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

func stringOr(v, fallback string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return fallback
}
