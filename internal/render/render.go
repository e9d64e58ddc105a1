// Package render converts Markdown to HTML with heading anchors taken from
// toc.ExtractHeadings.
package render

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/dgallion1/docdeck/internal/doctree"
	"github.com/dgallion1/docdeck/internal/toc"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting/v2"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var (
	prefixKey   = parser.NewContextKey()
	headingsKey = parser.NewContextKey()
)

// Renderer wraps a configured goldmark instance. It is safe for concurrent use;
// all per-document state lives in the parser context of a single Render call.
type Renderer struct {
	md goldmark.Markdown
}

// Option tweaks the goldmark setup.
type Option func(*options)

type options struct {
	highlightStyle string
}

// WithHighlightStyle selects the chroma style used for fenced code. An empty
// style disables highlighting.
func WithHighlightStyle(style string) Option {
	return func(o *options) { o.highlightStyle = style }
}

// New builds a Renderer with GFM enabled and raw HTML disabled.
func New(opts ...Option) *Renderer {
	o := options{highlightStyle: "github"}
	for _, opt := range opts {
		opt(&o)
	}

	exts := []goldmark.Extender{extension.GFM}
	if o.highlightStyle != "" {
		exts = append(exts, highlighting.NewHighlighting(
			highlighting.WithStyle(o.highlightStyle),
		))
	}

	md := goldmark.New(
		goldmark.WithExtensions(exts...),
		goldmark.WithParserOptions(
			parser.WithASTTransformers(util.Prioritized(&anchorTransformer{}, 100)),
		),
	)
	return &Renderer{md: md}
}

// Result is one rendered document. Headings lists exactly the headings that
// received an anchor in HTML, in document order.
type Result struct {
	HTML     string
	Headings []doctree.Heading
}

// Render converts source to HTML. Heading ids come from toc.ExtractHeadings
// and are matched to goldmark headings by source line, so the sidebar and the
// anchors are one list. Extracted headings that goldmark does not render as
// headings (inside HTML blocks, for instance) are dropped from the result. An
// empty prefix leaves headings without ids.
func (r *Renderer) Render(source []byte, prefix string) (*Result, error) {
	byLine := make(map[int]doctree.Heading)
	for _, h := range toc.ExtractHeadings(string(source), prefix) {
		byLine[h.Line] = h
	}

	pc := parser.NewContext()
	pc.Set(prefixKey, prefix)
	pc.Set(headingsKey, byLine)

	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf, parser.WithContext(pc)); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}
	anchored, _ := pc.Get(headingsKey).([]doctree.Heading)
	return &Result{HTML: buf.String(), Headings: anchored}, nil
}

// anchorTransformer copies extracted ids onto the matching heading nodes and
// replaces the line map in the context with the headings it anchored.
type anchorTransformer struct{}

func (t *anchorTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	prefix, _ := pc.Get(prefixKey).(string)
	byLine, _ := pc.Get(headingsKey).(map[int]doctree.Heading)

	src := reader.Source()
	lines := newLineIndex(src)
	var anchored []doctree.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		if h.Lines().Len() == 0 {
			return ast.WalkSkipChildren, nil
		}
		rec, found := byLine[lines.lineOf(h.Lines().At(0).Start)]
		if !found || rec.Level != h.Level {
			return ast.WalkSkipChildren, nil
		}
		if prefix == "" {
			rec.ID = ""
		} else {
			h.SetAttributeString("id", []byte(rec.ID))
		}
		anchored = append(anchored, rec)
		return ast.WalkSkipChildren, nil
	})
	pc.Set(headingsKey, anchored)
}

// lineIndex maps byte offsets to 1-based line numbers.
type lineIndex []int

func newLineIndex(src []byte) lineIndex {
	starts := lineIndex{0}
	for i, c := range src {
		if c == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (l lineIndex) lineOf(offset int) int {
	return sort.Search(len(l), func(i int) bool { return l[i] > offset })
}
