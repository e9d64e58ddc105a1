package toc

import "github.com/dgallion1/docdeck/internal/doctree"

// GroupHeadings folds a flat heading list into a two-level outline. A level-2
// heading opens a group; deeper headings join the open group's children in
// order. A deeper heading seen before any level-2 heading opens a group of its
// own so nothing is dropped.
func GroupHeadings(headings []doctree.Heading) []doctree.Group {
	var (
		groups  []doctree.Group
		current = -1
	)
	for _, h := range headings {
		if h.Level == 2 || current < 0 {
			groups = append(groups, doctree.Group{Heading: h, Children: []doctree.Heading{}})
			current = len(groups) - 1
			continue
		}
		groups[current].Children = append(groups[current].Children, h)
	}
	return groups
}
