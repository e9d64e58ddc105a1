// Package manifest loads the YAML description of the review site: its
// sections, the viewport presets of the preview simulator and the mockup data
// tables (palettes, sample projects).
package manifest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"
)

// Section kinds.
const (
	KindDocument = "document"
	KindMockup   = "mockup"
)

var (
	anchorID = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	hexColor = regexp.MustCompile(`^#(?:[0-9A-Fa-f]{3}|[0-9A-Fa-f]{6})$`)
)

// Manifest is the site definition.
type Manifest struct {
	Title     string     `yaml:"title" json:"title"`
	Sections  []Section  `yaml:"sections" json:"sections"`
	Viewports []Viewport `yaml:"viewports" json:"viewports"`
	Palettes  []Palette  `yaml:"palettes" json:"palettes"`
	Projects  []Project  `yaml:"projects" json:"projects"`

	dir string
}

// Section is one top-level block of the page. Document sections point at a
// file; mockup sections render client-side from the data tables.
type Section struct {
	ID           string `yaml:"id" json:"id"`
	File         string `yaml:"file" json:"file"`
	Title        string `yaml:"title" json:"title"`
	Subtitle     string `yaml:"subtitle" json:"subtitle,omitempty"`
	Kind         string `yaml:"kind" json:"kind"`
	ShowViewport bool   `yaml:"show_viewport" json:"show_viewport"`
}

// Viewport is a preview-frame width preset. Width 0 means fluid.
type Viewport struct {
	ID    string `yaml:"id" json:"id"`
	Label string `yaml:"label" json:"label"`
	Width int    `yaml:"width" json:"width"`
}

// Palette is a selectable colour scheme of the moodboard.
type Palette struct {
	ID          string       `yaml:"id" json:"id"`
	Name        string       `yaml:"name" json:"name"`
	Subtitle    string       `yaml:"subtitle" json:"subtitle,omitempty"`
	Dark        string       `yaml:"dark" json:"dark"`
	Light       string       `yaml:"light" json:"light"`
	Accent      string       `yaml:"accent" json:"accent"`
	AccentHover string       `yaml:"accent_hover" json:"accent_hover,omitempty"`
	NoteLabel   string       `yaml:"note_label" json:"note_label,omitempty"`
	Note        string       `yaml:"note" json:"note,omitempty"`
	Rows        []PaletteRow `yaml:"rows" json:"rows"`
}

// PaletteRow documents one colour role.
type PaletteRow struct {
	Role  string `yaml:"role" json:"role"`
	Hex   string `yaml:"hex" json:"hex"`
	Usage string `yaml:"usage" json:"usage"`
}

// Project is a sample card of the adaptive photo grid.
type Project struct {
	ID    int    `yaml:"id" json:"id"`
	Title string `yaml:"title" json:"title"`
	Meta  string `yaml:"meta" json:"meta"`
	Ratio string `yaml:"ratio" json:"ratio"`
	Color string `yaml:"color" json:"color"`
}

// DefaultViewports are used when the manifest lists none.
func DefaultViewports() []Viewport {
	return []Viewport{
		{ID: "fluid", Label: "Fluid"},
		{ID: "desktop", Label: "Desktop", Width: 1200},
		{ID: "tablet", Label: "Tablet", Width: 768},
		{ID: "mobile", Label: "Mobile", Width: 390},
	}
}

// Load reads a manifest file, expanding ${VAR} references first.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	m.dir = filepath.Dir(path)
	return m, nil
}

// Parse decodes and validates manifest YAML.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &m); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if len(m.Viewports) == 0 {
		m.Viewports = DefaultViewports()
	}
	for i := range m.Sections {
		if m.Sections[i].Kind == "" {
			m.Sections[i].Kind = KindDocument
		}
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks field constraints and cross-entry uniqueness.
func (m *Manifest) Validate() error {
	if err := validation.ValidateStruct(m,
		validation.Field(&m.Sections, validation.Required),
	); err != nil {
		return err
	}

	seen := make(map[string]bool, len(m.Sections))
	for i := range m.Sections {
		s := &m.Sections[i]
		if err := s.Validate(); err != nil {
			return fmt.Errorf("section %d: %w", i, err)
		}
		if seen[s.ID] {
			return fmt.Errorf("section %d: duplicate id %q", i, s.ID)
		}
		seen[s.ID] = true
	}
	for i := range m.Viewports {
		v := &m.Viewports[i]
		if err := validation.ValidateStruct(v,
			validation.Field(&v.ID, validation.Required),
			validation.Field(&v.Label, validation.Required),
			validation.Field(&v.Width, validation.Min(0)),
		); err != nil {
			return fmt.Errorf("viewport %d: %w", i, err)
		}
	}
	for i := range m.Palettes {
		if err := m.Palettes[i].Validate(); err != nil {
			return fmt.Errorf("palette %d: %w", i, err)
		}
	}
	for i := range m.Projects {
		p := &m.Projects[i]
		if err := validation.ValidateStruct(p,
			validation.Field(&p.Title, validation.Required),
			validation.Field(&p.Ratio, validation.Required, validation.In("landscape", "portrait", "square")),
			validation.Field(&p.Color, validation.Match(hexColor)),
		); err != nil {
			return fmt.Errorf("project %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks a single section.
func (s *Section) Validate() error {
	err := validation.ValidateStruct(s,
		validation.Field(&s.ID, validation.Required, validation.Match(anchorID)),
		validation.Field(&s.Kind, validation.Required, validation.In(KindDocument, KindMockup)),
		validation.Field(&s.Title, validation.When(s.Kind == KindMockup, validation.Required)),
		validation.Field(&s.File, validation.When(s.Kind == KindDocument, validation.Required)),
	)
	if err != nil {
		return err
	}
	if s.Kind == KindDocument && filepath.IsAbs(s.File) {
		return errors.New("file: must be relative to the docs directory")
	}
	return nil
}

// Validate checks a palette and its rows.
func (p *Palette) Validate() error {
	if err := validation.ValidateStruct(p,
		validation.Field(&p.ID, validation.Required),
		validation.Field(&p.Name, validation.Required),
		validation.Field(&p.Dark, validation.Match(hexColor)),
		validation.Field(&p.Light, validation.Match(hexColor)),
		validation.Field(&p.Accent, validation.Required, validation.Match(hexColor)),
		validation.Field(&p.AccentHover, validation.Match(hexColor)),
	); err != nil {
		return err
	}
	for i := range p.Rows {
		r := &p.Rows[i]
		if err := validation.ValidateStruct(r,
			validation.Field(&r.Role, validation.Required),
			validation.Field(&r.Hex, validation.Required, validation.Match(hexColor)),
		); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

// Dir is the directory the manifest was loaded from ("" for Parse).
func (m *Manifest) Dir() string {
	return m.dir
}

// Section returns the section with the given id.
func (m *Manifest) Section(id string) (Section, bool) {
	for _, s := range m.Sections {
		if s.ID == id {
			return s, true
		}
	}
	return Section{}, false
}

// Documents returns the document sections in page order.
func (m *Manifest) Documents() []Section {
	var docs []Section
	for _, s := range m.Sections {
		if s.Kind == KindDocument {
			docs = append(docs, s)
		}
	}
	return docs
}

// SectionForFile maps a docs-relative file path to its section.
func (m *Manifest) SectionForFile(rel string) (Section, bool) {
	rel = filepath.ToSlash(filepath.Clean(rel))
	for _, s := range m.Sections {
		if s.Kind == KindDocument && filepath.ToSlash(filepath.Clean(s.File)) == rel {
			return s, true
		}
	}
	return Section{}, false
}

// ViewportWidth returns the preset width for id; unknown ids are fluid (0).
func (m *Manifest) ViewportWidth(id string) int {
	for _, v := range m.Viewports {
		if v.ID == id {
			return v.Width
		}
	}
	return 0
}
