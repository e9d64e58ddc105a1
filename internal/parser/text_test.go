package parser

import (
	"strings"
	"testing"

	"github.com/dgallion1/docdeck/internal/doctree"
	pdflib "github.com/ledongthuc/pdf"
)

func TestTextParser_BasicParagraphSplitting(t *testing.T) {
	input := "First paragraph line one.\nFirst paragraph line two.\n\nSecond <paragraph>.\n\n\n\nThird paragraph."
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(input), "notes.txt", "notes")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Title != "notes" {
		t.Errorf("expected title %q, got %q", "notes", doc.Title)
	}
	if n := strings.Count(doc.HTML, "<p>"); n != 3 {
		t.Fatalf("expected 3 paragraphs, got %d in %q", n, doc.HTML)
	}
	if !strings.Contains(doc.HTML, "line one.<br>\nFirst") {
		t.Errorf("expected line break inside first paragraph, got %q", doc.HTML)
	}
	if !strings.Contains(doc.HTML, "Second &lt;paragraph&gt;.") {
		t.Errorf("expected escaped text, got %q", doc.HTML)
	}
	if len(doc.Headings) != 0 {
		t.Errorf("expected no headings, got %d", len(doc.Headings))
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	doc, err := p.Parse(strings.NewReader(""), "empty.txt", "empty")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.HTML != "" {
		t.Errorf("expected empty html, got %q", doc.HTML)
	}
}

func TestCSVParser_Table(t *testing.T) {
	input := "role,hex,usage\nAccent,#C05A3C,Buttons\nBorder,#E5E2DD\n"
	p := &CSVParser{}
	doc, err := p.Parse(strings.NewReader(input), "palette.csv", "palette")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Kind != doctree.KindCSV {
		t.Errorf("expected kind %q, got %q", doctree.KindCSV, doc.Kind)
	}
	if n := strings.Count(doc.HTML, "<th>"); n != 3 {
		t.Errorf("expected 3 header cells, got %d", n)
	}
	if n := strings.Count(doc.HTML, "<tr>"); n != 3 {
		t.Errorf("expected 3 rows, got %d", n)
	}
}

func TestFlattenOutline(t *testing.T) {
	outline := []pdflib.Outline{
		{Title: "Intro", Child: []pdflib.Outline{
			{Title: "Scope", Child: []pdflib.Outline{
				{Title: "Deep", Child: []pdflib.Outline{{Title: "Deeper"}}},
			}},
		}},
		{Title: "  "},
		{Title: "Summary"},
	}
	got := flattenOutline(outline, 0)
	want := []pdfEntry{{2, "Intro"}, {3, "Scope"}, {4, "Deep"}, {4, "Deeper"}, {2, "Summary"}}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d: expected %+v, got %+v", i, want[i], got[i])
		}
	}
}
