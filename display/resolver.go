package display

import (
	"log"

	"github.com/neferent/streamlabs-obs/state"
)

// defaultMargin keeps default placements clear of the work-area edges.
const defaultMargin = 50

// positionStore is the slice of the state store the resolver writes through
// when it discards stale coordinates.
type positionStore interface {
	SetWindowPosition(key state.WindowKey, pos *state.Point) error
}

// Resolver validates saved window positions against the current display
// topology and computes per-key defaults when they are stale or absent. This
// guards against coordinates left behind by a disconnected monitor.
type Resolver struct {
	displays Provider
	store    positionStore
}

func NewResolver(displays Provider, store positionStore) *Resolver {
	return &Resolver{displays: displays, store: store}
}

// Resolve returns saved if it still lies within some display's work area.
// Otherwise it clears the stored position for the key and returns the key's
// default. Calling it twice for the same stale input yields the same default.
func (r *Resolver) Resolve(key state.WindowKey, saved *state.Point) state.Point {
	if saved != nil {
		for _, area := range r.displays.WorkAreas() {
			if area.Contains(*saved) {
				return *saved
			}
		}
	}

	if err := r.store.SetWindowPosition(key, nil); err != nil {
		log.Printf("display: failed to clear stale position for %s: %v", key, err)
	}
	return r.defaultFor(key)
}

// defaultFor anchors the recent-events feed near the top-right of the primary
// work area and places chat immediately left of it so the two defaults never
// overlap.
func (r *Resolver) defaultFor(key state.WindowKey) state.Point {
	primary := r.displays.PrimaryWorkArea()
	recentWidth, _ := SizeFor(state.WindowRecentEvents)
	anchorX := primary.X + primary.Width - recentWidth - defaultMargin
	y := primary.Y + defaultMargin

	if key == state.WindowChat {
		chatWidth, _ := SizeFor(state.WindowChat)
		return state.Point{X: anchorX - chatWidth, Y: y}
	}
	return state.Point{X: anchorX, Y: y}
}
