package parser

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dgallion1/docdeck/internal/doctree"
	"github.com/dgallion1/docdeck/internal/slug"
	"github.com/fumiama/go-docx"
	"golang.org/x/net/html"
)

// DOCXParser handles .docx files. Heading styles become heading elements;
// the first Heading 1 becomes the title.
type DOCXParser struct{}

func (p *DOCXParser) Parse(r io.Reader, filename, prefix string) (*doctree.Document, error) {
	// go-docx needs a ReadSeeker+size, so write to temp file.
	tmp, err := os.CreateTemp("", "docdeck-docx-*.docx")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	size, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp file: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("seek temp file: %w", err)
	}

	doc, err := docx.Parse(tmp, size)
	tmp.Close()
	if err != nil {
		return nil, fmt.Errorf("parse docx: %w", err)
	}

	out := &doctree.Document{
		Title: titleFromFilename(filename),
		Kind:  doctree.KindDOCX,
	}

	var (
		body     strings.Builder
		counter  slug.Counter
		hasTitle bool
	)
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := docxParagraphText(para)
		if text == "" {
			continue
		}

		level := docxHeadingLevel(para)
		switch {
		case level == 0:
			fmt.Fprintf(&body, "<p>%s</p>\n", html.EscapeString(text))
		case level == 1:
			if !hasTitle {
				out.Title = text
				hasTitle = true
			}
			fmt.Fprintf(&body, "<h1>%s</h1>\n", html.EscapeString(text))
		case level <= 4:
			h := doctree.Heading{Level: level, Text: text}
			if prefix != "" {
				h.ID = counter.Anchor(prefix, text)
				fmt.Fprintf(&body, "<h%d id=\"%s\">%s</h%d>\n", level, html.EscapeString(h.ID), html.EscapeString(text), level)
			} else {
				fmt.Fprintf(&body, "<h%d>%s</h%d>\n", level, html.EscapeString(text), level)
			}
			out.Headings = append(out.Headings, h)
		default:
			fmt.Fprintf(&body, "<h%d>%s</h%d>\n", level, html.EscapeString(text), level)
		}
	}
	out.HTML = body.String()
	return out, nil
}

func docxHeadingLevel(para *docx.Paragraph) int {
	if para.Properties == nil || para.Properties.Style == nil {
		return 0
	}
	style := strings.ToLower(strings.ReplaceAll(para.Properties.Style.Val, " ", ""))
	if !strings.HasPrefix(style, "heading") || len(style) != len("heading")+1 {
		return 0
	}
	n := int(style[len(style)-1] - '0')
	if n < 1 || n > 6 {
		return 0
	}
	return n
}

func docxParagraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return strings.TrimSpace(buf.String())
}
