package parser

import (
	"strings"
	"testing"
)

func TestHTMLParser_AnchorsHeadings(t *testing.T) {
	input := `<html><head><title>Design System</title><style>p{}</style></head>
<body>
<h1>Design System</h1>
<h2>Colors</h2><p>Palette notes.</p>
<h3 id="old">Accent <em>terracotta</em></h3>
<h2>Colors</h2>
<h5>Too deep</h5>
<script>alert(1)</script>
</body></html>`

	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader(input), "design.html", "design")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "Design System" {
		t.Errorf("expected title %q, got %q", "Design System", doc.Title)
	}

	want := []struct {
		id    string
		level int
		text  string
	}{
		{"design-colors", 2, "Colors"},
		{"design-accent-terracotta", 3, "Accent terracotta"},
		{"design-colors-2", 2, "Colors"},
	}
	if len(doc.Headings) != len(want) {
		t.Fatalf("expected %d headings, got %d", len(want), len(doc.Headings))
	}
	for i, w := range want {
		h := doc.Headings[i]
		if h.ID != w.id || h.Level != w.level || h.Text != w.text {
			t.Errorf("heading %d: expected %+v, got %+v", i, w, h)
		}
		if !strings.Contains(doc.HTML, `id="`+w.id+`"`) {
			t.Errorf("expected html to carry id %q", w.id)
		}
	}
	if strings.Contains(doc.HTML, `id="old"`) {
		t.Error("expected existing heading id to be replaced")
	}
	if strings.Contains(doc.HTML, "<script") {
		t.Error("expected script to be dropped")
	}
	if strings.Contains(doc.HTML, "<body") {
		t.Error("expected only body content to be rendered")
	}
}

func TestHTMLParser_NoTitleUsesFilename(t *testing.T) {
	p := &HTMLParser{}
	doc, err := p.Parse(strings.NewReader("<p>hello</p>"), "notes.htm", "notes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Title)
	}
	if len(doc.Headings) != 0 {
		t.Errorf("expected no headings, got %d", len(doc.Headings))
	}
}
