package display

import (
	"github.com/neferent/streamlabs-obs/state"
)

// Rect is a work-area rectangle in screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Contains reports whether the point lies inside the rectangle.
func (r Rect) Contains(p state.Point) bool {
	return p.X >= r.X && p.X < r.X+r.Width && p.Y >= r.Y && p.Y < r.Y+r.Height
}

// Provider enumerates the attached displays. Read-only collaborator; the
// resolver never mutates topology.
type Provider interface {
	// WorkAreas returns the work-area rectangle of every attached display.
	WorkAreas() []Rect
	// PrimaryWorkArea returns the work area of the main display.
	PrimaryWorkArea() Rect
}

// StaticProvider is a fixed topology, typically loaded from configuration.
type StaticProvider struct {
	Areas   []Rect
	Primary Rect
}

func (p *StaticProvider) WorkAreas() []Rect {
	return p.Areas
}

func (p *StaticProvider) PrimaryWorkArea() Rect {
	return p.Primary
}

// SizeFor returns the nominal window size for a key: chat is tall, the
// recent-events feed is wide.
func SizeFor(key state.WindowKey) (width, height int) {
	switch key {
	case state.WindowChat:
		return 300, 600
	case state.WindowRecentEvents:
		return 600, 300
	}
	return 300, 300
}
