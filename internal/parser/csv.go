package parser

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/docdeck/internal/doctree"
	"golang.org/x/net/html"
)

// CSVParser renders a CSV file as a single table. The first row is the header.
type CSVParser struct{}

func (p *CSVParser) Parse(r io.Reader, filename, prefix string) (*doctree.Document, error) {
	reader := csv.NewReader(r)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}

	out := &doctree.Document{
		Title: titleFromFilename(filename),
		Kind:  doctree.KindCSV,
	}
	if len(records) == 0 {
		return out, nil
	}

	var body strings.Builder
	body.WriteString("<table>\n<thead><tr>")
	for _, h := range records[0] {
		fmt.Fprintf(&body, "<th>%s</th>", html.EscapeString(h))
	}
	body.WriteString("</tr></thead>\n<tbody>\n")
	for _, row := range records[1:] {
		body.WriteString("<tr>")
		for _, cell := range row {
			fmt.Fprintf(&body, "<td>%s</td>", html.EscapeString(cell))
		}
		body.WriteString("</tr>\n")
	}
	body.WriteString("</tbody>\n</table>\n")

	out.HTML = body.String()
	return out, nil
}
