package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zeromicro/go-zero/core/logx"

	"coinsnap/internal/config"
	"coinsnap/pkg/confkit"
	"coinsnap/pkg/sources"
)

// ConfigSummaryLines returns human readable lines describing the loaded app config.
func ConfigSummaryLines(cfg *config.Config) []string {
	if cfg == nil {
		return []string{"Configuration: <nil>"}
	}

	lines := make([]string, 0, 8)
	if p := cfg.MainPath(); p != "" {
		lines = append(lines, fmt.Sprintf("Config file: %s", p))
	}
	lines = append(lines,
		fmt.Sprintf("Environment: %s", cfg.Env),
		fmt.Sprintf("Postgres: %s", presence(cfg.Postgres.DSN != "")),
		fmt.Sprintf("Redis: %s", presence(strings.TrimSpace(cfg.Redis.Host) != "")),
		fmt.Sprintf("Latest-row mirror: %s", mirrorLine(cfg)),
		sectionLine("Sources config", cfg.Sources),
	)
	if src := cfg.Sources.Value; src != nil {
		lines = append(lines, sourcesLines(src)...)
	}
	return lines
}

// LogConfigSummary emits the configuration summary using logx.
func LogConfigSummary(cfg *config.Config) {
	lines := ConfigSummaryLines(cfg)
	if len(lines) == 0 {
		return
	}
	logx.Info("configuration summary")
	for _, line := range lines {
		logx.Infof("config • %s", line)
	}
}

func sourcesLines(src *sources.Config) []string {
	key := "none"
	if src.CoinGecko.APIKey != "" {
		key = "set"
	}
	tier := src.CoinGecko.APITier
	if tier == "" {
		tier = "demo"
	}
	lines := []string{
		fmt.Sprintf("CoinGecko: tier=%s key=%s rate_per_minute=%d", tier, key, src.CoinGecko.RatePerMinute),
		fmt.Sprintf("Enabled sources: %s", strings.Join(src.Enabled(), ", ")),
	}
	schedules := src.Schedules()
	names := make([]string, 0, len(schedules))
	for name := range schedules {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		lines = append(lines, fmt.Sprintf("Schedule %s: %s", name, schedules[name]))
	}
	return lines
}

func mirrorLine(cfg *config.Config) string {
	if !cfg.Mirror.Enabled {
		return "disabled"
	}
	return fmt.Sprintf("enabled (ttl %ds)", cfg.Mirror.TTL)
}

func presence(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func sectionLine[T any](name string, section confkit.Section[T]) string {
	switch {
	case strings.TrimSpace(section.File) != "":
		return fmt.Sprintf("%s: %s", name, section.File)
	case section.Value != nil:
		return fmt.Sprintf("%s: defaults", name)
	default:
		return fmt.Sprintf("%s: not configured", name)
	}
}
