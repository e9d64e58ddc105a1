package doctree

import "time"

// Kind identifies the source format a document was built from.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindHTML     Kind = "html"
	KindDOCX     Kind = "docx"
	KindPDF      Kind = "pdf"
	KindText     Kind = "text"
	KindCSV      Kind = "csv"
)

// Heading is one anchored heading of a document (levels 2..4).
type Heading struct {
	ID    string `json:"id"`
	Level int    `json:"level"`
	Text  string `json:"text"`
	Line  int    `json:"line,omitempty"` // 1-based source line (0 if N/A)
}

// Group is a top-level outline entry with its flattened sub-headings.
type Group struct {
	Heading
	Children []Heading `json:"children"`
}

// Document is a rendered document ready to be served.
type Document struct {
	ID       string    `json:"id"`    // Section id, also the anchor prefix
	File     string    `json:"file"`  // Source filename
	Title    string    `json:"title"` // From the first H1/<title>, or the manifest
	Subtitle string    `json:"subtitle,omitempty"`
	Kind     Kind      `json:"kind"`
	HTML     string    `json:"html"`
	Headings []Heading `json:"headings"`
	Outline  []Group   `json:"outline"`

	ContentHash string    `json:"content_hash"`
	BuiltAt     time.Time `json:"built_at"`
}
