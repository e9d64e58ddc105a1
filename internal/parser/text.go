package parser

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docdeck/internal/doctree"
	"golang.org/x/net/html"
)

// TextParser handles plain text files. Plain text has no headings, so the
// document gets an empty outline.
type TextParser struct{}

func (p *TextParser) Parse(r io.Reader, filename, prefix string) (*doctree.Document, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var paragraphs []string
	var current strings.Builder

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			if current.Len() > 0 {
				paragraphs = append(paragraphs, current.String())
				current.Reset()
			}
		} else {
			if current.Len() > 0 {
				current.WriteString("\n")
			}
			current.WriteString(line)
		}
	}
	if current.Len() > 0 {
		paragraphs = append(paragraphs, current.String())
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	var body strings.Builder
	for _, para := range paragraphs {
		fmt.Fprintf(&body, "<p>%s</p>\n", strings.ReplaceAll(html.EscapeString(para), "\n", "<br>\n"))
	}

	return &doctree.Document{
		Title: titleFromFilename(filename),
		Kind:  doctree.KindText,
		HTML:  body.String(),
	}, nil
}
