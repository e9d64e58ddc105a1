// Package slug turns heading text into anchor identifiers.
//
// Slugify is pure. Counter carries the per-pass disambiguation state and is
// shared by every place that assigns heading anchors, so sidebar links and
// rendered ids always agree.
package slug

import (
	"regexp"
	"strconv"
	"strings"
)

// FallbackBase replaces a base slug that came out empty (text made only of
// punctuation, emoji and the like).
const FallbackBase = "section"

// Anything outside ASCII letters, digits and the Cyrillic block.
var disallowed = regexp.MustCompile(`[^a-z0-9\x{0400}-\x{04FF}]+`)

// Slugify converts heading text to a lowercase, hyphen-separated token.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = disallowed.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Counter disambiguates repeated slugs within one extraction or render pass.
// The zero value is ready to use. A Counter must not be shared between passes.
type Counter struct {
	counts map[string]int
	issued map[string]bool
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Next returns the slug for the next heading with the given text. The first
// occurrence of a base gets the base itself, the Nth gets base-{N+1}. A
// candidate already issued earlier in the pass is skipped, so results are
// pairwise distinct.
func (c *Counter) Next(text string) string {
	if c.counts == nil {
		c.counts = make(map[string]int)
		c.issued = make(map[string]bool)
	}

	base := Slugify(text)
	if base == "" {
		base = FallbackBase
	}

	n := c.counts[base]
	s := numbered(base, n)
	for c.issued[s] {
		n++
		s = numbered(base, n)
	}
	c.counts[base] = n + 1
	c.issued[s] = true
	return s
}

// Anchor returns Next(text) namespaced by prefix.
func (c *Counter) Anchor(prefix, text string) string {
	s := c.Next(text)
	if prefix == "" {
		return s
	}
	return prefix + "-" + s
}

func numbered(base string, n int) string {
	if n == 0 {
		return base
	}
	return base + "-" + strconv.Itoa(n+1)
}
