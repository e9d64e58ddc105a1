package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/docdeck/internal/doctree"
	"github.com/dgallion1/docdeck/internal/manifest"
	"github.com/dgallion1/docdeck/internal/slug"
	"github.com/dgallion1/docdeck/internal/toc"
)

type siteSection struct {
	manifest.Section
	Outline []doctree.Group `json:"outline"`
	Ready   bool            `json:"ready"`
}

// handleSite returns everything the page shell needs to lay itself out.
func (s *Server) handleSite(w http.ResponseWriter, r *http.Request) {
	sections := make([]siteSection, 0, len(s.site.Sections))
	for _, sec := range s.site.Sections {
		out := siteSection{Section: sec, Outline: []doctree.Group{}}
		if sec.Kind == manifest.KindDocument {
			if doc := s.store.Get(sec.ID); doc != nil {
				out.Ready = true
				out.Outline = nonNilOutline(doc.Outline)
				if out.Title == "" {
					out.Title = doc.Title
				}
			}
		} else {
			out.Ready = true
		}
		sections = append(sections, out)
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"title":     s.site.Title,
		"sections":  sections,
		"viewports": s.site.Viewports,
		"palettes":  s.site.Palettes,
		"projects":  s.site.Projects,
	})
}

type documentSummary struct {
	ID          string       `json:"id"`
	File        string       `json:"file"`
	Title       string       `json:"title"`
	Subtitle    string       `json:"subtitle,omitempty"`
	Kind        doctree.Kind `json:"kind"`
	Headings    int          `json:"headings"`
	ContentHash string       `json:"content_hash"`
	BuiltAt     time.Time    `json:"built_at"`
}

// handleListDocuments lists the built documents in page order.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs := s.store.List()
	out := make([]documentSummary, 0, len(docs))
	for _, d := range docs {
		out = append(out, documentSummary{
			ID:          d.ID,
			File:        d.File,
			Title:       d.Title,
			Subtitle:    d.Subtitle,
			Kind:        d.Kind,
			Headings:    len(d.Headings),
			ContentHash: d.ContentHash,
			BuiltAt:     d.BuiltAt,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"documents": out})
}

func (s *Server) documentOr404(w http.ResponseWriter, r *http.Request) *doctree.Document {
	docID := chi.URLParam(r, "docID")
	doc := s.store.Get(docID)
	if doc == nil {
		jsonError(w, "document not found: "+docID, http.StatusNotFound)
	}
	return doc
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	doc := s.documentOr404(w, r)
	if doc == nil {
		return
	}
	out := *doc
	out.Headings = nonNilHeadings(out.Headings)
	out.Outline = nonNilOutline(out.Outline)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

func (s *Server) handleGetOutline(w http.ResponseWriter, r *http.Request) {
	doc := s.documentOr404(w, r)
	if doc == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":  doc.ID,
		"outline": nonNilOutline(doc.Outline),
	})
}

func (s *Server) handleGetHeadings(w http.ResponseWriter, r *http.Request) {
	doc := s.documentOr404(w, r)
	if doc == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"doc_id":   doc.ID,
		"headings": nonNilHeadings(doc.Headings),
	})
}

type renderRequest struct {
	Source string `json:"source"`
	Prefix string `json:"prefix"`
}

// handleRender renders ad hoc Markdown without storing it, for previews.
func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxSourceBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxSourceBytes)
	}
	var req renderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			jsonError(w, "source exceeds max size", http.StatusRequestEntityTooLarge)
			return
		}
		jsonError(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Prefix != "" && slug.Slugify(req.Prefix) != req.Prefix {
		jsonError(w, "prefix must already be a slug", http.StatusBadRequest)
		return
	}

	start := time.Now()
	res, err := s.renderer.Render([]byte(req.Source), req.Prefix)
	if err != nil {
		jsonError(w, "render failed: "+err.Error(), http.StatusUnprocessableEntity)
		return
	}
	if s.stats != nil {
		s.stats.Record(doctree.KindMarkdown, time.Since(start))
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"title":    toc.FirstTitle(req.Source, ""),
		"html":     res.HTML,
		"headings": nonNilHeadings(res.Headings),
		"outline":  nonNilOutline(toc.GroupHeadings(res.Headings)),
	})
}

func nonNilHeadings(h []doctree.Heading) []doctree.Heading {
	if h == nil {
		return []doctree.Heading{}
	}
	return h
}

func nonNilOutline(g []doctree.Group) []doctree.Group {
	if g == nil {
		return []doctree.Group{}
	}
	return g
}
