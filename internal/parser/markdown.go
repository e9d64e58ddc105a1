package parser

import (
	"io"
	"sync"

	"github.com/dgallion1/docdeck/internal/doctree"
	"github.com/dgallion1/docdeck/internal/render"
	"github.com/dgallion1/docdeck/internal/toc"
)

var defaultRenderer = sync.OnceValue(func() *render.Renderer { return render.New() })

// MarkdownParser handles Markdown files. Headings come from the same render
// pass that anchors the HTML.
type MarkdownParser struct {
	Renderer *render.Renderer // nil uses a default renderer
}

func (p *MarkdownParser) Parse(r io.Reader, filename, prefix string) (*doctree.Document, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	rd := p.Renderer
	if rd == nil {
		rd = defaultRenderer()
	}
	res, err := rd.Render(src, prefix)
	if err != nil {
		return nil, err
	}

	return &doctree.Document{
		Title:    toc.FirstTitle(string(src), titleFromFilename(filename)),
		Kind:     doctree.KindMarkdown,
		HTML:     res.HTML,
		Headings: res.Headings,
	}, nil
}
