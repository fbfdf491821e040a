// Copyright © 2026 Streamlabs Overlay contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// File: state/state.go
// Summary: Persisted record types for the overlay subsystem.

package state

// WindowKey identifies one logical overlay window pair. The set is closed;
// every store row and runtime table is keyed by it.
type WindowKey string

const (
	WindowChat         WindowKey = "chat"
	WindowRecentEvents WindowKey = "recentEvents"
)

// WindowKeys returns every key in a stable order.
func WindowKeys() []WindowKey {
	return []WindowKey{WindowChat, WindowRecentEvents}
}

// Point is an on-screen coordinate.
type Point struct {
	X int
	Y int
}

// WindowProperties is the durable per-window record. A nil Position means
// "use default placement"; a nil SurfaceID means "not registered with the
// compositor".
type WindowProperties struct {
	Position  *Point
	SurfaceID *int64
}

// OverlayState is the root persisted record for the subsystem.
type OverlayState struct {
	IsEnabled        bool
	IsShowing        bool
	PreviewMode      bool
	IsPreviewEnabled bool
	Opacity          int
	Windows          map[WindowKey]WindowProperties
}
