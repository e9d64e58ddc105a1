package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/dgallion1/docdeck/internal/manifest"
	"github.com/dgallion1/docdeck/internal/navstate"
)

const sessionWriteTimeout = 10 * time.Second

// sessionMessage is the incoming websocket message format.
type sessionMessage struct {
	Type string `json:"type"` // "intersect", "scroll", "viewport" or "nav"

	// intersect
	Entries        []navstate.Entry `json:"entries,omitempty"`
	ViewportHeight float64          `json:"viewport_height,omitempty"`

	// scroll
	Y float64 `json:"y,omitempty"`

	// viewport: a preset id from the manifest, or a width in px
	Viewport string `json:"viewport,omitempty"`
	Width    int    `json:"width,omitempty"`

	// nav
	Open bool `json:"open,omitempty"`
}

// sessionReply is the outgoing websocket message format.
type sessionReply struct {
	Type      string          `json:"type"` // "state" or "error"
	SessionID string          `json:"session_id"`
	State     *navstate.State `json:"state,omitempty"`
	Error     string          `json:"error,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(s.cfg.AllowedOrigins, "*") || slices.Contains(s.cfg.AllowedOrigins, origin)
		},
	}
}

// navigableIDs returns every id the page can scroll to: mockup sections,
// built documents and their headings.
func (s *Server) navigableIDs() []string {
	var ids []string
	for _, sec := range s.site.Sections {
		if sec.Kind == manifest.KindMockup {
			ids = append(ids, sec.ID)
		}
	}
	return append(ids, s.store.AnchorIDs()...)
}

// handleSession runs one viewer's navigation session over a websocket.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("session: websocket upgrade", "error", err)
		return
	}
	defer conn.Close()

	sessionID := uuid.NewString()
	log := s.log.With("session_id", sessionID)

	// The hijacked request context outlives the connection; own the lifetime here.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	inter := make(chan navstate.Batch, 16)
	scroll := make(chan float64, 16)
	viewport := make(chan int, 4)
	nav := make(chan bool, 4)

	// Latest-value mailbox: the loop goroutine is the only producer.
	updates := make(chan navstate.State, 1)
	onChange := func(st navstate.State) {
		select {
		case <-updates:
		default:
		}
		updates <- st
	}

	sess := navstate.Start(ctx, s.nav, s.navigableIDs(), navstate.Sources{
		Intersections: inter,
		Scroll:        scroll,
		Viewport:      viewport,
		Nav:           nav,

		InitialScrollY: queryFloat(r, "scroll_y"),
		InitialWidth:   int(queryFloat(r, "width")),
	}, log, onChange)
	defer sess.Close()

	changes := s.broker.Subscribe()
	defer s.broker.Unsubscribe(changes)

	errs := make(chan string, 4)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeSession(ctx, conn, sessionID, sess, updates, errs, changes)
		// Unblock the reader if the writer gave up first.
		cancel()
		conn.Close()
	}()
	log.Info("session: opened")

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("session: websocket read", "error", err)
			}
			break
		}

		var msg sessionMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			send(ctx, errs, "invalid message format")
			continue
		}

		switch msg.Type {
		case "intersect":
			send(ctx, inter, navstate.Batch{Entries: msg.Entries, ViewportHeight: msg.ViewportHeight})
		case "scroll":
			send(ctx, scroll, msg.Y)
		case "viewport":
			width := msg.Width
			if msg.Viewport != "" {
				if preset := s.site.ViewportWidth(msg.Viewport); preset > 0 {
					width = preset
				}
			}
			send(ctx, viewport, width)
		case "nav":
			send(ctx, nav, msg.Open)
		default:
			send(ctx, errs, "unknown message type: "+msg.Type)
		}
	}

	cancel()
	<-writerDone
	log.Info("session: closed")
}

// writeSession owns all writes to conn.
func (s *Server) writeSession(ctx context.Context, conn *websocket.Conn, sessionID string, sess *navstate.Session, updates <-chan navstate.State, errs <-chan string, changes chan []byte) {
	write := func(reply sessionReply) bool {
		reply.SessionID = sessionID
		_ = conn.SetWriteDeadline(time.Now().Add(sessionWriteTimeout))
		if err := conn.WriteJSON(reply); err != nil {
			s.log.Warn("session: websocket write", "session_id", sessionID, "error", err)
			return false
		}
		return true
	}

	initial := sess.State()
	if !write(sessionReply{Type: "state", State: &initial}) {
		return
	}

	var docChanges <-chan []byte = changes
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-updates:
			if !write(sessionReply{Type: "state", State: &st}) {
				return
			}
		case msg := <-errs:
			if !write(sessionReply{Type: "error", Error: msg}) {
				return
			}
		case _, ok := <-docChanges:
			if !ok {
				docChanges = nil
				continue
			}
			sess.Reset(s.navigableIDs())
		}
	}
}

func send[T any](ctx context.Context, ch chan<- T, v T) {
	select {
	case ch <- v:
	case <-ctx.Done():
	}
}

// queryFloat parses an optional numeric query parameter; missing or malformed
// values read as zero.
func queryFloat(r *http.Request, key string) float64 {
	v, err := strconv.ParseFloat(r.URL.Query().Get(key), 64)
	if err != nil {
		return 0
	}
	return v
}
