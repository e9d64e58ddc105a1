package navstate

// ScrollFlag shows the back-to-top control once the page is scrolled past a
// threshold.
type ScrollFlag struct {
	threshold float64
	show      bool
}

// Update records a scroll offset and reports whether the flag flipped.
func (s *ScrollFlag) Update(scrollY float64) bool {
	show := scrollY > s.threshold
	if show == s.show {
		return false
	}
	s.show = show
	return true
}

// Layout tracks the collapsible navigation. Widths at or below the breakpoint
// are narrow; crossing above it forces the navigation closed.
type Layout struct {
	breakpoint int
	width      int // 0 until the first viewport signal
	open       bool
}

func (l *Layout) narrow() bool {
	return l.width == 0 || l.width <= l.breakpoint
}

// Resize records a viewport width and reports whether the open state changed.
func (l *Layout) Resize(width int) bool {
	l.width = width
	if l.narrow() || !l.open {
		return false
	}
	l.open = false
	return true
}

// SetOpen opens or closes the navigation on request. Opening is ignored on a
// wide layout, where the navigation is always visible.
func (l *Layout) SetOpen(open bool) bool {
	if open && !l.narrow() {
		return false
	}
	if l.open == open {
		return false
	}
	l.open = open
	return true
}
