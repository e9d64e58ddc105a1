package parser

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/dgallion1/docdeck/internal/doctree"
	"github.com/dgallion1/docdeck/internal/slug"
	pdflib "github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// PDFParser handles PDF files. Bookmarks become headings; page text is served
// preformatted. It tries the Go library first, then falls back to pdftotext
// if available (no bookmarks in that case).
type PDFParser struct {
	FallbackPdftotext bool
}

func (p *PDFParser) Parse(r io.Reader, filename, prefix string) (*doctree.Document, error) {
	// ledongthuc/pdf requires a ReadSeeker+size, so we write to a temp file.
	tmp, err := os.CreateTemp("", "docdeck-pdf-*.pdf")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	text, outline, err := extractPDF(tmpPath)
	if err != nil && p.FallbackPdftotext {
		text, err = extractPdftotext(tmpPath)
	}
	if err != nil {
		return nil, fmt.Errorf("extract pdf text: %w", err)
	}

	out := &doctree.Document{
		Title: titleFromFilename(filename),
		Kind:  doctree.KindPDF,
	}

	var (
		body    strings.Builder
		counter slug.Counter
	)
	for _, e := range outline {
		h := doctree.Heading{Level: e.level, Text: e.title}
		if prefix != "" {
			h.ID = counter.Anchor(prefix, e.title)
			fmt.Fprintf(&body, "<h%d id=\"%s\">%s</h%d>\n", e.level, html.EscapeString(h.ID), html.EscapeString(e.title), e.level)
		} else {
			fmt.Fprintf(&body, "<h%d>%s</h%d>\n", e.level, html.EscapeString(e.title), e.level)
		}
		out.Headings = append(out.Headings, h)
	}

	for i, page := range splitPages(text) {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		fmt.Fprintf(&body, "<section class=\"pdf-page\" data-page=\"%d\"><pre>%s</pre></section>\n", i+1, html.EscapeString(page))
	}
	out.HTML = body.String()
	return out, nil
}

type pdfEntry struct {
	level int
	title string
}

func extractPDF(path string) (string, []pdfEntry, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	var buf strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		if i > 1 {
			buf.WriteString("\f") // Form feed as page separator.
		}
		buf.WriteString(text)
	}
	return buf.String(), flattenOutline(reader.Outline().Child, 0), nil
}

// flattenOutline maps bookmark depth 0/1/2+ to heading levels 2/3/4.
func flattenOutline(nodes []pdflib.Outline, depth int) []pdfEntry {
	var out []pdfEntry
	for _, n := range nodes {
		if t := strings.TrimSpace(n.Title); t != "" {
			out = append(out, pdfEntry{level: min(depth+2, 4), title: t})
		}
		out = append(out, flattenOutline(n.Child, depth+1)...)
	}
	return out
}

func extractPdftotext(path string) (string, error) {
	cmd := exec.Command("pdftotext", "-layout", path, "-")
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w", err)
	}
	return string(out), nil
}

func splitPages(text string) []string {
	return strings.Split(text, "\f")
}
