// Package toc derives sidebar tables of contents from Markdown source.
package toc

import (
	"regexp"
	"strings"

	"github.com/dgallion1/docdeck/internal/doctree"
	"github.com/dgallion1/docdeck/internal/slug"
)

var (
	headingLine = regexp.MustCompile(`^(#{2,4})\s+(.+)$`)
	titleLine   = regexp.MustCompile(`^#[ \t]+(.+)$`)
	closingSeq  = regexp.MustCompile(`(^|[ \t])#+$`)
)

// ExtractHeadings scans Markdown source line by line and returns its level
// 2..4 ATX headings in source order. Identifiers are prefix-namespaced slugs
// disambiguated by a counter local to this call. Lines inside fenced code
// blocks or raw HTML blocks are ignored, and a closing run of # is dropped
// from the text.
func ExtractHeadings(source, prefix string) []doctree.Heading {
	var (
		headings []doctree.Heading
		counter  slug.Counter
		blocks   blockScanner
	)

	for i, line := range splitLines(source) {
		if blocks.skip(line) {
			continue
		}
		m := headingLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := headingText(m[2])
		if text == "" {
			continue
		}
		headings = append(headings, doctree.Heading{
			ID:    counter.Anchor(prefix, text),
			Level: len(m[1]),
			Text:  text,
			Line:  i + 1,
		})
	}
	return headings
}

// FirstTitle returns the text of the first level-1 heading, or fallback.
func FirstTitle(source, fallback string) string {
	var blocks blockScanner
	for _, line := range splitLines(source) {
		if blocks.skip(line) {
			continue
		}
		if m := titleLine.FindStringSubmatch(line); m != nil {
			if t := headingText(m[1]); t != "" {
				return t
			}
		}
	}
	return fallback
}

// headingText trims an ATX heading's content and drops its closing sequence.
func headingText(raw string) string {
	text := strings.TrimSpace(raw)
	return strings.TrimSpace(closingSeq.ReplaceAllString(text, ""))
}

// blockScanner skips lines that belong to fenced code or raw HTML blocks.
type blockScanner struct {
	fence fenceState
	html  htmlBlockState
}

func (b *blockScanner) skip(line string) bool {
	if b.html.open {
		return b.html.consume(line)
	}
	if b.fence.consume(line) {
		b.html.endParagraph()
		return true
	}
	return b.html.consume(line)
}

func splitLines(source string) []string {
	lines := strings.Split(source, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// fenceState tracks whether the scanner is inside a ``` or ~~~ block.
type fenceState struct {
	char byte
	size int
}

// consume reports whether line belongs to a fenced block (fence lines included).
func (f *fenceState) consume(line string) bool {
	char, size, rest := fenceOf(line)
	if f.size == 0 {
		if size == 0 {
			return false
		}
		f.char, f.size = char, size
		return true
	}
	if char == f.char && size >= f.size && strings.TrimSpace(rest) == "" {
		f.char, f.size = 0, 0
	}
	return true
}

// fenceOf detects an opening/closing code fence: up to three spaces of
// indentation, then three or more backticks or tildes.
func fenceOf(line string) (byte, int, string) {
	indent := 0
	for indent < len(line) && indent < 3 && line[indent] == ' ' {
		indent++
	}
	line = line[indent:]
	if len(line) < 3 || (line[0] != '`' && line[0] != '~') {
		return 0, 0, ""
	}
	c := line[0]
	n := 0
	for n < len(line) && line[n] == c {
		n++
	}
	if n < 3 {
		return 0, 0, ""
	}
	return c, n, line[n:]
}
