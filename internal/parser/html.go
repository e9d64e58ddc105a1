package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docdeck/internal/doctree"
	"github.com/dgallion1/docdeck/internal/slug"
	"golang.org/x/net/html"
)

// HTMLParser handles HTML files. It anchors h2..h4 in place and serves the
// body content without scripts or styles.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename, prefix string) (*doctree.Document, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	out := &doctree.Document{
		Title: titleFromFilename(filename),
		Kind:  doctree.KindHTML,
	}
	if title := findTitle(doc); title != "" {
		out.Title = title
	}

	root := findBody(doc)
	if root == nil {
		root = doc
	}

	var (
		counter slug.Counter
		drop    []*html.Node
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript":
				drop = append(drop, n)
				return
			}
			if level := headingLevel(n.Data); level >= 2 && level <= 4 {
				text := textContent(n)
				if text != "" {
					h := doctree.Heading{Level: level, Text: text}
					if prefix != "" {
						h.ID = counter.Anchor(prefix, text)
						setAttr(n, "id", h.ID)
					}
					out.Headings = append(out.Headings, h)
				}
				return // Heading text already extracted.
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)

	for _, n := range drop {
		n.Parent.RemoveChild(n)
	}

	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, fmt.Errorf("render html: %w", err)
		}
	}
	out.HTML = strings.TrimSpace(buf.String())
	return out, nil
}

func headingLevel(tag string) int {
	switch tag {
	case "h1":
		return 1
	case "h2":
		return 2
	case "h3":
		return 3
	case "h4":
		return 4
	case "h5":
		return 5
	case "h6":
		return 6
	}
	return 0
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Namespace == "" && n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.Join(strings.Fields(buf.String()), " ")
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}
