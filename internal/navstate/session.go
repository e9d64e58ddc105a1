package navstate

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Config holds the tunables of a navigation session.
type Config struct {
	Band            Band
	ScrollThreshold float64 // px scrolled before the back-to-top control shows
	CollapseWidth   int     // px; wider viewports force the navigation closed
}

// DefaultConfig mirrors the site's stylesheet breakpoints.
func DefaultConfig() Config {
	return Config{
		Band:            DefaultBand(),
		ScrollThreshold: 400,
		CollapseWidth:   900,
	}
}

// State is the navigation state consumed by the UI.
type State struct {
	ActiveID string `json:"active_id"`
	ShowTop  bool   `json:"show_top"`
	NavOpen  bool   `json:"nav_open"`
}

// Sources are the signal streams a session listens to. A nil channel means the
// corresponding observation mechanism is unavailable; that affordance then
// never updates. A closed channel deregisters its source.
type Sources struct {
	Intersections <-chan Batch
	Scroll        <-chan float64
	Viewport      <-chan int
	Nav           <-chan bool

	// Position known at registration. It is applied once before any signal,
	// so a session opened mid-page starts with the right flags.
	InitialScrollY float64
	InitialWidth   int
}

// Session runs the navigation state machines on one goroutine. All mutation
// happens there; readers use State.
type Session struct {
	tracker *Tracker
	scroll  ScrollFlag
	layout  Layout

	state    atomic.Pointer[State]
	onChange func(State)
	log      *slog.Logger

	resetCh chan []string
	cancel  context.CancelFunc
	done    chan struct{}
	once    sync.Once
}

// Start registers the sources and starts the session loop. onChange (may be
// nil) is called from the loop goroutine after every change and must not
// block. A nil log uses slog.Default. Close releases everything.
func Start(ctx context.Context, cfg Config, ids []string, src Sources, log *slog.Logger, onChange func(State)) *Session {
	if log == nil {
		log = slog.Default()
	}
	ctx, cancel := context.WithCancel(ctx)
	s := &Session{
		tracker:  NewTracker(ids, cfg.Band),
		scroll:   ScrollFlag{threshold: cfg.ScrollThreshold},
		layout:   Layout{breakpoint: cfg.CollapseWidth},
		onChange: onChange,
		log:      log,
		resetCh:  make(chan []string),
		cancel:   cancel,
		done:     make(chan struct{}),
	}
	s.scroll.Update(src.InitialScrollY)
	s.layout.Resize(src.InitialWidth)
	s.state.Store(&State{ShowTop: s.scroll.show})

	if src.Intersections == nil {
		log.Warn("intersection signal unavailable, active section will not update")
	}
	if src.Viewport == nil {
		log.Debug("viewport signal unavailable")
	}

	go s.run(ctx, src)
	return s
}

func (s *Session) run(ctx context.Context, src Sources) {
	defer close(s.done)

	inter, scroll, viewport, nav := src.Intersections, src.Scroll, src.Viewport, src.Nav
	for {
		changed := false
		select {
		case <-ctx.Done():
			return

		case ids := <-s.resetCh:
			prev := s.tracker.Active()
			s.tracker.Reset(ids)
			changed = prev != ""

		case b, ok := <-inter:
			if !ok {
				inter = nil
				continue
			}
			changed = s.tracker.Observe(b)

		case y, ok := <-scroll:
			if !ok {
				scroll = nil
				continue
			}
			changed = s.scroll.Update(y)

		case w, ok := <-viewport:
			if !ok {
				viewport = nil
				continue
			}
			changed = s.layout.Resize(w)

		case open, ok := <-nav:
			if !ok {
				nav = nil
				continue
			}
			changed = s.layout.SetOpen(open)
		}

		if changed {
			st := State{
				ActiveID: s.tracker.Active(),
				ShowTop:  s.scroll.show,
				NavOpen:  s.layout.open,
			}
			s.state.Store(&st)
			if s.onChange != nil {
				s.onChange(st)
			}
		}
	}
}

// State returns the latest state snapshot.
func (s *Session) State() State {
	return *s.state.Load()
}

// Reset swaps the tracked identifier set after the document set changed and
// clears the active section. It is a no-op once the session has stopped.
func (s *Session) Reset(ids []string) {
	select {
	case s.resetCh <- ids:
	case <-s.done:
	}
}

// Close stops the loop and waits for it to exit. Safe to call more than once.
func (s *Session) Close() {
	s.once.Do(s.cancel)
	<-s.done
}

// Done is closed once the session loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}
