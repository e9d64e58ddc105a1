package toc

import (
	"regexp"
	"strings"
)

// HTML block start conditions, after up to three spaces of indentation. A
// Markdown renderer passes these lines through as raw HTML, so a "## x" line
// inside one is not a heading.
var (
	htmlRawOpen   = regexp.MustCompile(`(?i)^<(script|pre|style|textarea)(\s|>|$)`)
	htmlBlockOpen = regexp.MustCompile(`(?i)^</?(address|article|aside|base|basefont|blockquote|body|caption|center|col|colgroup|dd|details|dialog|dir|div|dl|dt|fieldset|figcaption|figure|footer|form|frame|frameset|h[1-6]|head|header|hr|html|iframe|legend|li|link|main|menu|menuitem|nav|noframes|ol|optgroup|option|p|param|section|summary|table|tbody|td|tfoot|th|thead|title|tr|track|ul)(\s|/?>|$)`)
	htmlLoneTag   = regexp.MustCompile(`^(?:<[A-Za-z][A-Za-z0-9-]*(?:\s+[A-Za-z_:][A-Za-z0-9_.:-]*(?:\s*=\s*(?:[^"'=<>` + "`" + `\s]+|'[^']*'|"[^"]*"))?)*\s*/?>|</[A-Za-z][A-Za-z0-9-]*\s*>)\s*$`)
	htmlDecl      = regexp.MustCompile(`^<![A-Za-z]`)
	atxLine       = regexp.MustCompile(`^ {0,3}#{1,6}([ \t]|$)`)
)

// htmlBlockState tracks whether the scanner is inside a raw HTML block.
type htmlBlockState struct {
	end         string // terminator substring, "" means the block ends at a blank line
	open        bool
	inParagraph bool // previous line continues a paragraph
}

// consume reports whether line belongs to an HTML block. Callers feed every
// line not already claimed by a fenced code block.
func (s *htmlBlockState) consume(line string) bool {
	if s.open {
		if s.end == "" {
			if strings.TrimSpace(line) == "" {
				s.open = false
				s.inParagraph = false
				return false
			}
			return true
		}
		if strings.Contains(strings.ToLower(line), s.end) {
			s.open = false
		}
		return true
	}

	if strings.TrimSpace(line) == "" {
		s.inParagraph = false
		return false
	}

	trimmed := trimIndent(line)
	end, ok := htmlStart(trimmed, s.inParagraph)
	if !ok {
		s.inParagraph = !atxLine.MatchString(line)
		return false
	}
	s.inParagraph = false
	// Terminator on the opening line closes the block at once.
	if end != "" && strings.Contains(strings.ToLower(trimmed[1:]), end) {
		return true
	}
	s.open, s.end = true, end
	return true
}

// endParagraph marks a line that closes any open paragraph.
func (s *htmlBlockState) endParagraph() { s.inParagraph = false }

func htmlStart(line string, inParagraph bool) (string, bool) {
	if !strings.HasPrefix(line, "<") {
		return "", false
	}
	switch {
	case htmlRawOpen.MatchString(line):
		m := htmlRawOpen.FindStringSubmatch(line)
		return "</" + strings.ToLower(m[1]) + ">", true
	case strings.HasPrefix(line, "<!--"):
		return "-->", true
	case strings.HasPrefix(line, "<?"):
		return "?>", true
	case strings.HasPrefix(line, "<![CDATA["):
		return "]]>", true
	case htmlDecl.MatchString(line):
		return ">", true
	case htmlBlockOpen.MatchString(line):
		return "", true
	case !inParagraph && htmlLoneTag.MatchString(line):
		return "", true
	}
	return "", false
}

func trimIndent(line string) string {
	n := 0
	for n < len(line) && n < 3 && line[n] == ' ' {
		n++
	}
	return line[n:]
}
