package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"

	"github.com/dgallion1/docdeck/internal/config"
	"github.com/dgallion1/docdeck/internal/doctree"
	"github.com/dgallion1/docdeck/internal/docstore"
	"github.com/dgallion1/docdeck/internal/manifest"
	"github.com/dgallion1/docdeck/internal/navstate"
	"github.com/dgallion1/docdeck/internal/parser"
	"github.com/dgallion1/docdeck/internal/pipeline"
	"github.com/dgallion1/docdeck/internal/render"
	"github.com/dgallion1/docdeck/internal/sse"
)

const siteYAML = `
title: Review
sections:
  - id: adaptive-grid
    kind: mockup
    title: Adaptive grid
    show_viewport: true
  - id: design
    file: design.md
    subtitle: Tokens
  - id: pending
    file: pending.md
    title: Pending
palettes:
  - id: warm
    name: Warm
    dark: "#1C1C1E"
    light: "#FAF9F7"
    accent: "#C05A3C"
    rows:
      - {role: Accent, hex: "#C05A3C", usage: Buttons}
projects:
  - {id: 1, title: HQ, meta: "Offices", ratio: landscape, color: "#2C3E50"}
`

const designMD = "# Design system\n\n## Colors\n\n### Accent\n\n## Type\n"

type testEnv struct {
	srv   *httptest.Server
	orch  *pipeline.Orchestrator
	store *docstore.Store
}

func eventually(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func newTestEnv(t *testing.T, apiKey string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "design.md"), []byte(designMD), 0o644); err != nil {
		t.Fatal(err)
	}
	site, err := manifest.Parse([]byte(siteYAML))
	if err != nil {
		t.Fatalf("manifest: %v", err)
	}

	cfg := config.Config{
		DocsDir:          dir,
		APIKey:           apiKey,
		AllowedOrigins:   []string{"*"},
		WorkerCount:      1,
		MaxQueueSize:     10,
		MaxSourceBytes:   1 << 20,
		JobTTL:           time.Hour,
		ScrollThreshold:  400,
		CollapseWidth:    900,
		BandTopMargin:    0.45,
		BandBottomMargin: 0.45,
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	renderer := render.New(render.WithHighlightStyle(""))
	store := docstore.New([]string{"adaptive-grid", "design", "pending"})
	stats := pipeline.NewRenderStats(time.Hour)
	broker := sse.NewBroker(time.Minute)

	orch := pipeline.NewOrchestrator(cfg, site, parser.Config{Markdown: renderer}, store, stats, log)
	orch.SetListener(func(ev pipeline.Event) {
		broker.Publish(sse.Event{Type: string(ev.Type), Data: ev})
	})
	orch.Start(context.Background())

	srv := httptest.NewServer(NewServer(orch, store, renderer, stats, broker, log, cfg))
	t.Cleanup(func() {
		srv.Close()
		orch.Stop()
		broker.Close()
	})

	job, err := orch.Rebuild("design", false)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	eventually(t, 2*time.Second, func() bool { return job.Snapshot().Status == pipeline.StatusCompleted })
	return &testEnv{srv: srv, orch: orch, store: store}
}

func getJSON(t *testing.T, url string, want int, out any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s: expected %d, got %d: %s", url, want, resp.StatusCode, body)
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode: %v", err)
		}
	}
}

func post(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, "")
	var body map[string]string
	getJSON(t, env.srv.URL+"/health", http.StatusOK, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestSite(t *testing.T) {
	env := newTestEnv(t, "")
	var body struct {
		Title    string `json:"title"`
		Sections []struct {
			ID      string          `json:"id"`
			Title   string          `json:"title"`
			Kind    string          `json:"kind"`
			Ready   bool            `json:"ready"`
			Outline []doctree.Group `json:"outline"`
		} `json:"sections"`
		Viewports []manifest.Viewport `json:"viewports"`
		Palettes  []manifest.Palette  `json:"palettes"`
		Projects  []manifest.Project  `json:"projects"`
	}
	getJSON(t, env.srv.URL+"/api/site", http.StatusOK, &body)

	if body.Title != "Review" || len(body.Sections) != 3 {
		t.Fatalf("unexpected site: %+v", body)
	}
	design := body.Sections[1]
	if design.Title != "Design system" || !design.Ready {
		t.Errorf("expected built design section titled from its document, got %+v", design)
	}
	if len(design.Outline) != 2 || design.Outline[0].ID != "design-colors" {
		t.Errorf("unexpected outline: %+v", design.Outline)
	}
	if pending := body.Sections[2]; pending.Ready || pending.Outline == nil {
		t.Errorf("expected unbuilt section with empty outline, got %+v", pending)
	}
	if len(body.Viewports) != 4 || len(body.Palettes) != 1 || len(body.Projects) != 1 {
		t.Errorf("unexpected data tables: %d viewports, %d palettes, %d projects", len(body.Viewports), len(body.Palettes), len(body.Projects))
	}
}

func TestDocuments(t *testing.T) {
	env := newTestEnv(t, "")

	var list struct {
		Documents []documentSummary `json:"documents"`
	}
	getJSON(t, env.srv.URL+"/api/documents", http.StatusOK, &list)
	if len(list.Documents) != 1 || list.Documents[0].ID != "design" || list.Documents[0].Headings != 3 {
		t.Fatalf("unexpected documents: %+v", list.Documents)
	}

	var doc doctree.Document
	getJSON(t, env.srv.URL+"/api/documents/design", http.StatusOK, &doc)
	if !strings.Contains(doc.HTML, `id="design-accent"`) {
		t.Errorf("expected anchored html, got %q", doc.HTML)
	}

	var outline struct {
		Outline []doctree.Group `json:"outline"`
	}
	getJSON(t, env.srv.URL+"/api/documents/design/outline", http.StatusOK, &outline)
	want := []doctree.Group{
		{Heading: doctree.Heading{ID: "design-colors", Level: 2, Text: "Colors", Line: 3}, Children: []doctree.Heading{
			{ID: "design-accent", Level: 3, Text: "Accent", Line: 5},
		}},
		{Heading: doctree.Heading{ID: "design-type", Level: 2, Text: "Type", Line: 7}, Children: []doctree.Heading{}},
	}
	if diff := cmp.Diff(want, outline.Outline); diff != "" {
		t.Errorf("outline mismatch (-want +got):\n%s", diff)
	}

	var headings struct {
		Headings []doctree.Heading `json:"headings"`
	}
	getJSON(t, env.srv.URL+"/api/documents/design/headings", http.StatusOK, &headings)
	if len(headings.Headings) != 3 {
		t.Errorf("expected 3 headings, got %d", len(headings.Headings))
	}

	getJSON(t, env.srv.URL+"/api/documents/pending", http.StatusNotFound, nil)
	getJSON(t, env.srv.URL+"/api/documents/nope/outline", http.StatusNotFound, nil)
}

func TestRebuildAndStatus(t *testing.T) {
	env := newTestEnv(t, "")

	resp := post(t, env.srv.URL+"/api/documents/design/rebuild", "", "")
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", resp.StatusCode)
	}
	var accepted struct {
		JobID   string `json:"job_id"`
		PollURL string `json:"poll_url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		t.Fatal(err)
	}

	eventually(t, 2*time.Second, func() bool {
		var snap pipeline.JobSnapshot
		getJSON(t, env.srv.URL+accepted.PollURL, http.StatusOK, &snap)
		return snap.Status == pipeline.StatusCompleted
	})

	if resp := post(t, env.srv.URL+"/api/documents/adaptive-grid/rebuild", "", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for mockup section, got %d", resp.StatusCode)
	}
	if resp := post(t, env.srv.URL+"/api/documents/design/rebuild?force=maybe", "", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad force flag, got %d", resp.StatusCode)
	}
	getJSON(t, env.srv.URL+"/api/builds/unknown/status", http.StatusNotFound, nil)
}

func TestAuth(t *testing.T) {
	env := newTestEnv(t, "secret")

	if resp := post(t, env.srv.URL+"/api/render", "", `{"source":"## A"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", resp.StatusCode)
	}
	if resp := post(t, env.srv.URL+"/api/render", "wrong", `{"source":"## A"}`); resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", resp.StatusCode)
	}
	if resp := post(t, env.srv.URL+"/api/render", "secret", `{"source":"## A"}`); resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 with token, got %d", resp.StatusCode)
	}
	// Reads stay public.
	getJSON(t, env.srv.URL+"/api/site", http.StatusOK, nil)
}

func TestRender(t *testing.T) {
	env := newTestEnv(t, "")

	resp := post(t, env.srv.URL+"/api/render", "", `{"source":"# T\n## Overview\n### Scope\n## Overview","prefix":"doc"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Title    string            `json:"title"`
		HTML     string            `json:"html"`
		Headings []doctree.Heading `json:"headings"`
		Outline  []doctree.Group   `json:"outline"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Title != "T" {
		t.Errorf("expected title %q, got %q", "T", body.Title)
	}
	var ids []string
	for _, h := range body.Headings {
		ids = append(ids, h.ID)
		if !strings.Contains(body.HTML, `id="`+h.ID+`"`) {
			t.Errorf("expected html to carry %q", h.ID)
		}
	}
	if diff := cmp.Diff([]string{"doc-overview", "doc-scope", "doc-overview-2"}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if len(body.Outline) != 2 {
		t.Errorf("expected 2 groups, got %d", len(body.Outline))
	}

	if resp := post(t, env.srv.URL+"/api/render", "", `{"source":"x","prefix":"Not A Slug"}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad prefix, got %d", resp.StatusCode)
	}
	if resp := post(t, env.srv.URL+"/api/render", "", `{`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for bad json, got %d", resp.StatusCode)
	}
}

func TestRenderStats(t *testing.T) {
	env := newTestEnv(t, "")
	var body struct {
		Documents int                    `json:"documents"`
		Stats     pipeline.StatsSnapshot `json:"stats"`
	}
	getJSON(t, env.srv.URL+"/api/stats/render", http.StatusOK, &body)
	if body.Documents != 1 || body.Stats.Count != 1 {
		t.Errorf("expected one document and one sample, got %d and %d", body.Documents, body.Stats.Count)
	}
}

func dialSession(t *testing.T, env *testEnv) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/session"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readReply(t *testing.T, conn *websocket.Conn) sessionReply {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var reply sessionReply
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("read: %v", err)
	}
	return reply
}

func TestSession(t *testing.T) {
	env := newTestEnv(t, "")
	conn := dialSession(t, env)

	initial := readReply(t, conn)
	if initial.Type != "state" || initial.SessionID == "" || initial.State == nil {
		t.Fatalf("unexpected initial reply: %+v", initial)
	}
	if *initial.State != (navstate.State{}) {
		t.Errorf("expected zero initial state, got %+v", *initial.State)
	}

	steps := []struct {
		msg  sessionMessage
		want navstate.State
	}{
		{sessionMessage{Type: "scroll", Y: 500}, navstate.State{ShowTop: true}},
		{sessionMessage{Type: "intersect", ViewportHeight: 1000, Entries: []navstate.Entry{
			{ID: "design-colors", Top: 400, Bottom: 600},
		}}, navstate.State{ActiveID: "design-colors", ShowTop: true}},
		{sessionMessage{Type: "viewport", Viewport: "mobile"}, navstate.State{ActiveID: "design-colors", ShowTop: true}},
		{sessionMessage{Type: "nav", Open: true}, navstate.State{ActiveID: "design-colors", ShowTop: true, NavOpen: true}},
		{sessionMessage{Type: "viewport", Viewport: "desktop"}, navstate.State{ActiveID: "design-colors", ShowTop: true}},
	}
	for i, step := range steps {
		if err := conn.WriteJSON(step.msg); err != nil {
			t.Fatalf("step %d: write: %v", i, err)
		}
		// Messages that change nothing produce no reply; the next
		// change carries the accumulated state.
		if i == 2 {
			continue
		}
		reply := readReply(t, conn)
		if diff := cmp.Diff(step.want, *reply.State); diff != "" {
			t.Errorf("step %d: state mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestSession_InitialScrollFromQuery(t *testing.T) {
	env := newTestEnv(t, "")
	url := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/ws/session?scroll_y=900&width=1280"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readReply(t, conn)
	if initial.State == nil || !initial.State.ShowTop {
		t.Errorf("expected back-to-top shown at start, got %+v", initial.State)
	}
}

func TestSession_Errors(t *testing.T) {
	env := newTestEnv(t, "")
	conn := dialSession(t, env)
	readReply(t, conn)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("{")); err != nil {
		t.Fatal(err)
	}
	if reply := readReply(t, conn); reply.Type != "error" || reply.Error != "invalid message format" {
		t.Errorf("unexpected reply: %+v", reply)
	}

	if err := conn.WriteJSON(sessionMessage{Type: "zoom"}); err != nil {
		t.Fatal(err)
	}
	if reply := readReply(t, conn); reply.Type != "error" || !strings.Contains(reply.Error, "zoom") {
		t.Errorf("unexpected reply: %+v", reply)
	}
}

func TestSession_ResetOnDocumentChange(t *testing.T) {
	env := newTestEnv(t, "")
	conn := dialSession(t, env)
	readReply(t, conn)

	msg := sessionMessage{Type: "intersect", ViewportHeight: 1000, Entries: []navstate.Entry{
		{ID: "adaptive-grid", Top: 0, Bottom: 1000},
	}}
	if err := conn.WriteJSON(msg); err != nil {
		t.Fatal(err)
	}
	if reply := readReply(t, conn); reply.State.ActiveID != "adaptive-grid" {
		t.Fatalf("expected adaptive-grid active, got %+v", reply.State)
	}

	if !env.orch.Remove("design") {
		t.Fatal("expected design to be removed")
	}
	if reply := readReply(t, conn); reply.State.ActiveID != "" {
		t.Errorf("expected active section cleared after reset, got %q", reply.State.ActiveID)
	}
}
