// Copyright © 2026 Streamlabs Overlay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: cmd/overlayd/main.go
// Summary: Implements main capabilities for the overlay daemon.
// Usage: Executed by operators to run the overlay window manager against a compositor engine.
// Notes: Focuses on wiring configuration, persistence and lifecycle around the overlay packages.

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/neferent/streamlabs-obs/compositor"
	"github.com/neferent/streamlabs-obs/config"
	"github.com/neferent/streamlabs-obs/display"
	"github.com/neferent/streamlabs-obs/internal/browserwin"
	"github.com/neferent/streamlabs-obs/overlay"
	"github.com/neferent/streamlabs-obs/platform"
	"github.com/neferent/streamlabs-obs/session"
	"github.com/neferent/streamlabs-obs/state"
	"github.com/neferent/streamlabs-obs/theming"
)

func printStatus(c *overlay.Controller) {
	st, status := c.State()
	fmt.Printf("overlay: compositor %s, enabled %v, showing %v, preview %v, opacity %d\n",
		status, st.IsEnabled, st.IsShowing, st.PreviewMode, st.Opacity)
}

func main() {
	configPath := flag.String("config", "", "Path to the config file (defaults to the user config dir)")
	dbPath := flag.String("db", "", "Path to the state database (defaults next to the config file)")
	disabled := flag.Bool("disabled", false, "Start with the overlay subsystem disabled")
	flag.Parse()

	path := *configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to resolve config path: %v\n", err)
			os.Exit(1)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	db := *dbPath
	if db == "" {
		db = filepath.Join(filepath.Dir(path), "overlay.db")
	}
	store, err := state.Open(db, cfg.GetString("state", "record", "gameOverlay"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open state store: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *disabled {
		if err := store.SetEnabled(false); err != nil {
			log.Printf("overlayd: disable overlay: %v", err)
		}
	}

	displays := &display.StaticProvider{
		Areas: []display.Rect{{
			X:      cfg.GetInt("display", "x", 0),
			Y:      cfg.GetInt("display", "y", 0),
			Width:  cfg.GetInt("display", "width", 1920),
			Height: cfg.GetInt("display", "height", 1080),
		}},
	}
	displays.Primary = displays.Areas[0]

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	frameInterval := time.Duration(cfg.GetInt("overlay", "frame_interval_ms", 1000)) * time.Millisecond
	settleDelay := time.Duration(cfg.GetInt("overlay", "settle_delay_seconds", 5)) * time.Second

	bridge := compositor.NewBridge(cfg.GetString("compositor", "socket", "/tmp/slobs-compositor.sock"))
	manager := overlay.NewManager(overlay.ManagerConfig{
		Store:       store,
		Resolver:    display.NewResolver(displays, store),
		Factory:     browserwin.NewFactory(ctx, frameInterval),
		Bridge:      bridge,
		Theme:       theming.FromConfig(cfg),
		Platform:    platform.NewResolver(cfg),
		PlatformID:  cfg.GetString("platform", "default", "twitch"),
		SettleDelay: settleDelay,
	})

	bus := session.NewBus()
	controller := overlay.NewController(store, bridge, manager, bus)
	controller.Initialize()

	// The daemon serves a single local user; a process start is a login.
	bus.Login()

	fmt.Printf("Overlay daemon running (config %s, state %s)\n", path, db)
	printStatus(controller)
	fmt.Println("Send SIGUSR1 for a status dump.")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR1)
	for sig := range sigCh {
		if sig == syscall.SIGUSR1 {
			printStatus(controller)
			continue
		}
		break
	}

	bus.Logout()
	cancel()

	printStatus(controller)
	fmt.Println("Overlay daemon stopped")
}
