// Package theming exposes the active theme to window creation and content
// loading. Values are read once per use; the provider never pushes updates.
package theming

import "github.com/neferent/streamlabs-obs/config"

// Theme carries the values the overlay windows need from the active theme.
type Theme struct {
	// Background is the window background color as a #rrggbb string.
	Background string
	// Dark selects dark-styled chat content where the platform supports it.
	Dark bool
}

// Provider supplies the current theme.
type Provider interface {
	Current() Theme
}

// ConfigProvider reads the theme from the daemon configuration.
type ConfigProvider struct {
	cfg config.Config
}

func FromConfig(cfg config.Config) *ConfigProvider {
	return &ConfigProvider{cfg: cfg}
}

func (p *ConfigProvider) Current() Theme {
	return Theme{
		Background: p.cfg.GetString("theme", "background", "#17242d"),
		Dark:       p.cfg.GetBool("theme", "dark", true),
	}
}

// Static is a fixed theme, used in tests and as a fallback.
type Static struct {
	Theme Theme
}

func (s Static) Current() Theme {
	return s.Theme
}
