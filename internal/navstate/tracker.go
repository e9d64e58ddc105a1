// Package navstate holds per-viewer navigation state: which section is
// active, whether the back-to-top control shows, and whether the collapsible
// navigation is open.
package navstate

// Entry is one intersection observation for a tracked element. Top and Bottom
// are the element's bounding box relative to the viewport top, in pixels.
// Clients that only know the browser's verdict send Intersecting instead.
type Entry struct {
	ID           string  `json:"id"`
	Top          float64 `json:"top"`
	Bottom       float64 `json:"bottom"`
	Intersecting *bool   `json:"intersecting,omitempty"`
}

func (e Entry) hasGeometry() bool {
	return e.Bottom > e.Top
}

// Batch is a group of entries delivered together, as one observer callback.
type Batch struct {
	Entries        []Entry `json:"entries"`
	ViewportHeight float64 `json:"viewport_height"`
}

// Band is the vertical slice of the viewport that decides the active section.
// Margins are fractions of the viewport height cut from the top and bottom.
type Band struct {
	TopMargin    float64
	BottomMargin float64
	Threshold    float64 // minimum share of the element, or of the band for taller elements
}

// DefaultBand keeps the middle 10% of the viewport.
func DefaultBand() Band {
	return Band{TopMargin: 0.45, BottomMargin: 0.45, Threshold: 0.01}
}

// Contains reports whether the entry intersects the band. The overlap is
// measured against the element height, capped at the band height, so a
// section taller than the band still qualifies once it fills enough of it.
func (b Band) Contains(e Entry, viewportHeight float64) bool {
	if !e.hasGeometry() {
		return e.Intersecting != nil && *e.Intersecting
	}
	if viewportHeight <= 0 {
		return false
	}
	top := viewportHeight * b.TopMargin
	bottom := viewportHeight * (1 - b.BottomMargin)
	overlap := min(e.Bottom, bottom) - max(e.Top, top)
	if overlap <= 0 {
		return false
	}
	return overlap/min(e.Bottom-e.Top, bottom-top) >= b.Threshold
}

// Tracker is the active-section state machine. It is not safe for concurrent
// use; Session drives it from a single goroutine.
type Tracker struct {
	band   Band
	known  map[string]bool
	active string
}

// NewTracker tracks the given identifiers. Nothing is active initially.
func NewTracker(ids []string, band Band) *Tracker {
	t := &Tracker{band: band}
	t.Reset(ids)
	return t
}

// Active returns the active identifier, or "" before any observation.
func (t *Tracker) Active() string {
	return t.active
}

// Observe applies a batch in order; each entry inside the band overwrites the
// active identifier. Unknown identifiers are ignored. It reports whether the
// active identifier changed.
func (t *Tracker) Observe(b Batch) bool {
	prev := t.active
	for _, e := range b.Entries {
		if !t.known[e.ID] {
			continue
		}
		if t.band.Contains(e, b.ViewportHeight) {
			t.active = e.ID
		}
	}
	return t.active != prev
}

// Reset replaces the tracked identifiers and clears the active one.
func (t *Tracker) Reset(ids []string) {
	t.known = make(map[string]bool, len(ids))
	for _, id := range ids {
		t.known[id] = true
	}
	t.active = ""
}
