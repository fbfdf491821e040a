// Copyright © 2026 Streamlabs Overlay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: config/defaults.go
// Summary: Default values for the overlay daemon configuration.

package config

func applyDefaults(cfg Config) {
	if cfg == nil {
		return
	}
	cfg.RegisterDefaults("compositor", Section{
		"socket": "/tmp/slobs-compositor.sock",
	})
	cfg.RegisterDefaults("overlay", Section{
		"settle_delay_seconds": 5,
		"frame_interval_ms":    1000,
	})
	cfg.RegisterDefaults("state", Section{
		"record": "gameOverlay",
	})
	cfg.RegisterDefaults("platform", Section{
		"default":             "twitch",
		"twitch_chat_url":     "https://www.twitch.tv/popout/{channel}/chat",
		"youtube_chat_url":    "https://www.youtube.com/live_chat?v={video}",
		"recent_events_url":   "https://streamlabs.com/dashboard/recent-events",
		"validate_urls":       false,
		"validate_timeout_ms": 2000,
	})
	cfg.RegisterDefaults("theme", Section{
		"background": "#17242d",
		"dark":       true,
	})
	cfg.RegisterDefaults("display", Section{
		"x":      0,
		"y":      0,
		"width":  1920,
		"height": 1080,
	})
}
