package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docdeck/internal/render"
)

func TestMarkdownParser_HeadingsAndAnchors(t *testing.T) {
	input := `# Анализ конкурентов

Intro text.

## Overview

Overview content.

### Штаб-квартира Microsoft

Details.

## Overview

Again.
`
	p := &MarkdownParser{Renderer: render.New(render.WithHighlightStyle(""))}
	doc, err := p.Parse(strings.NewReader(input), "competitors_analysis.md", "competitors")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "Анализ конкурентов" {
		t.Errorf("expected title %q, got %q", "Анализ конкурентов", doc.Title)
	}
	if len(doc.Headings) != 3 {
		t.Fatalf("expected 3 headings, got %d", len(doc.Headings))
	}

	wantIDs := []string{"competitors-overview", "competitors-штаб-квартира-microsoft", "competitors-overview-2"}
	for i, id := range wantIDs {
		if doc.Headings[i].ID != id {
			t.Errorf("heading %d: expected id %q, got %q", i, id, doc.Headings[i].ID)
		}
		if !strings.Contains(doc.HTML, `id="`+id+`"`) {
			t.Errorf("expected rendered html to contain anchor %q", id)
		}
	}
	if doc.Headings[1].Level != 3 {
		t.Errorf("expected level 3, got %d", doc.Headings[1].Level)
	}
}

func TestMarkdownParser_NoHeadings(t *testing.T) {
	input := `Just some plain text.

Another paragraph here.`

	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(input), "plain.md", "plain")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Headings) != 0 {
		t.Errorf("expected no headings, got %d", len(doc.Headings))
	}
	if !strings.Contains(doc.HTML, "Another paragraph here.") {
		t.Errorf("expected html to contain second paragraph, got %q", doc.HTML)
	}
}

func TestMarkdownParser_EmptyInput(t *testing.T) {
	p := &MarkdownParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.md", "empty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Headings) != 0 {
		t.Errorf("expected 0 headings for empty input, got %d", len(doc.Headings))
	}
}

func TestMarkdownParser_TitleFallback(t *testing.T) {
	tests := []struct {
		filename string
		want     string
	}{
		{"readme.md", "readme"},
		{"notes.markdown", "notes"},
		{"docs/design_system.md", "design_system"},
	}
	p := &MarkdownParser{}
	for _, tt := range tests {
		doc, err := p.Parse(strings.NewReader("text"), tt.filename, "x")
		if err != nil {
			t.Fatalf("unexpected error for %s: %v", tt.filename, err)
		}
		if doc.Title != tt.want {
			t.Errorf("filename=%q: expected title %q, got %q", tt.filename, tt.want, doc.Title)
		}
	}
}

func TestForFile(t *testing.T) {
	for _, name := range []string{"a.md", "a.MARKDOWN", "a.html", "a.htm", "a.docx", "a.pdf", "a.txt", "a.csv"} {
		if _, err := ForFile(name, Config{}); err != nil {
			t.Errorf("%s: unexpected error: %v", name, err)
		}
		if !IsSupportedExtension(name) {
			t.Errorf("%s: expected supported extension", name)
		}
	}
	if _, err := ForFile("a.jsx", Config{}); err == nil {
		t.Error("expected error for unsupported extension")
	}
	if IsSupportedExtension("a.exe") {
		t.Error("expected .exe to be unsupported")
	}
}

func TestMarkdownParser_SidebarMatchesAnchors(t *testing.T) {
	inputs := []string{
		"## Foo\n## #\n## !!!\n",
		"<div>\n## Hidden\n</div>\n\n## Hidden\n",
	}
	p := &MarkdownParser{Renderer: render.New(render.WithHighlightStyle(""))}
	for _, input := range inputs {
		doc, err := p.Parse(strings.NewReader(input), "doc.md", "doc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := strings.Count(doc.HTML, ` id="`); got != len(doc.Headings) {
			t.Errorf("%q: expected %d anchors, got %d", input, len(doc.Headings), got)
		}
		for _, h := range doc.Headings {
			if !strings.Contains(doc.HTML, `id="`+h.ID+`"`) {
				t.Errorf("%q: heading %q has no anchor in %s", input, h.ID, doc.HTML)
			}
		}
	}
}
