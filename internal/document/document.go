// Package document defines the indexed document model: the per-document
// record, the heading-tree Section nodes, content blocks, and the Field sum
// type shared by the parser, the store, and the snippet extractor.
package document

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Field identifies a searchable column of a document record.
type Field string

const (
	FieldTitle Field = "title"
	FieldH1    Field = "h1"
	FieldH2    Field = "h2"
	FieldH3    Field = "h3"
	FieldH4    Field = "h4"
	FieldH5    Field = "h5"
	FieldH6    Field = "h6"
	FieldBody  Field = "body"

	// FieldHeadings is a query-only pseudo field that addresses all six
	// heading levels at once. It never appears on a stored record.
	FieldHeadings Field = "headings"
)

// SnippetFieldOrder is the fixed order in which the snippet extractor
// visits fields.
var SnippetFieldOrder = []Field{
	FieldTitle, FieldH1, FieldH2, FieldH3, FieldH4, FieldH5, FieldH6, FieldBody,
}

// headingFields maps depth 1..6 to the corresponding field.
var headingFields = [...]Field{FieldH1, FieldH2, FieldH3, FieldH4, FieldH5, FieldH6}

// HeadingField returns the field for a heading depth (1..6).
func HeadingField(depth int) (Field, error) {
	if depth < 1 || depth > 6 {
		return "", fmt.Errorf("heading depth out of range: %d", depth)
	}
	return headingFields[depth-1], nil
}

// HeadingDepth returns the heading level of f (1..6), or 0 when f is not a
// heading field.
func (f Field) HeadingDepth() int {
	for i, hf := range headingFields {
		if f == hf {
			return i + 1
		}
	}
	return 0
}

// Column returns the raw column name of f in the persistent store.
func (f Field) Column() string { return string(f) }

// NormalizedColumn returns the indexed column name of f.
func (f Field) NormalizedColumn() string { return string(f) + "_normalized" }

// IsQueryField reports whether name is accepted as a field prefix in the
// public query language.
func IsQueryField(name string) bool {
	switch Field(name) {
	case FieldTitle, FieldH1, FieldH2, FieldH3, FieldH4, FieldH5, FieldH6,
		FieldHeadings, FieldBody:
		return true
	}
	return false
}

// SectionType is the kind of a Section node.
type SectionType string

const (
	SectionH1 SectionType = "h1"
	SectionH2 SectionType = "h2"
	SectionH3 SectionType = "h3"
	SectionH4 SectionType = "h4"
	SectionH5 SectionType = "h5"
	SectionH6 SectionType = "h6"

	// SectionBody is the synthetic root that owns content appearing before
	// the first heading.
	SectionBody SectionType = "body"
)

// HeadingSectionType returns the section type for a heading depth (1..6).
func HeadingSectionType(depth int) SectionType {
	return SectionType(headingFields[depth-1])
}

// BlockType is the kind of a content block.
type BlockType string

const (
	BlockParagraph BlockType = "paragraph"
	BlockList      BlockType = "list"
	BlockCode      BlockType = "code"
)

// Position is a half-open byte range [Start, End) within the raw Markdown.
type Position struct {
	Start int `json:"start_offset"`
	End   int `json:"end_offset"`
}

// Contains reports whether the byte offset off falls inside the range.
func (p Position) Contains(off int) bool { return off >= p.Start && off < p.End }

// ContentBlock is a paragraph, list, or code block attached to a section.
type ContentBlock struct {
	Type     BlockType `json:"type"`
	Text     string    `json:"text"`
	Position Position  `json:"position"`
	// Lang is the fence info string of a code block, empty otherwise.
	Lang string `json:"lang,omitempty"`
}

// Section is a node of the document's heading hierarchy, or the synthetic
// body root. Relations are stored as ids only; the tree is reconstructed on
// demand from the sections index.
type Section struct {
	ID          string         `json:"id"`
	Type        SectionType    `json:"type"`
	Depth       int            `json:"depth"`
	Text        string         `json:"text"`
	Position    Position       `json:"position"`
	ParentID    string         `json:"parent_id,omitempty"`
	ChildrenIDs []string       `json:"children_ids,omitempty"`
	Content     []ContentBlock `json:"content,omitempty"`
}

// Document is one stored record: the unit of indexing, identity, and
// re-indexing. Body holds the full original Markdown byte-for-byte; it is
// the substrate for every offset carried by sections and snippets.
type Document struct {
	// Path is the stable identity: an absolute filesystem path, or a
	// buffer:// identifier for in-memory input.
	Path string

	// Title is the text of the first h1. Headings[d-1] holds the
	// newline-joined texts of the remaining headings of depth d.
	Title    string
	Headings [6]string

	// Body is the full original Markdown.
	Body string

	// Normalized counterparts. Each is rune-for-rune aligned with its raw
	// field (see the normalizer package for the alignment policy).
	TitleNorm    string
	HeadingsNorm [6]string
	BodyNorm     string

	// Structure lists root section ids in document order. Sections is the
	// flat per-document index resolving every section id.
	Structure []string
	Sections  map[string]*Section

	Tags []string

	// MTime is the source file modification time in milliseconds, 0 for
	// in-memory input.
	MTime int64
}

// FieldPair returns the raw and normalized projections of f.
// FieldBody returns the full Markdown and its normalization.
func (d *Document) FieldPair(f Field) (raw, norm string) {
	switch f {
	case FieldTitle:
		return d.Title, d.TitleNorm
	case FieldBody:
		return d.Body, d.BodyNorm
	default:
		if depth := f.HeadingDepth(); depth > 0 {
			return d.Headings[depth-1], d.HeadingsNorm[depth-1]
		}
	}
	return "", ""
}

// Section resolves a section id, or nil.
func (d *Document) Section(id string) *Section {
	if id == "" || d.Sections == nil {
		return nil
	}
	return d.Sections[id]
}

// SectionsInOrder returns all sections sorted by their position in the raw
// Markdown. The synthetic body root, anchored at offset zero, sorts first.
func (d *Document) SectionsInOrder() []*Section {
	out := make([]*Section, 0, len(d.Sections))
	for _, s := range d.Sections {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position.Start != out[j].Position.Start {
			return out[i].Position.Start < out[j].Position.Start
		}
		return out[i].Depth < out[j].Depth
	})
	return out
}

// MarshalStructure serializes the root-id list for persistence.
func (d *Document) MarshalStructure() ([]byte, error) {
	return json.Marshal(d.Structure)
}

// MarshalSections serializes the flat section index for persistence.
func (d *Document) MarshalSections() ([]byte, error) {
	return json.Marshal(d.Sections)
}

// UnmarshalStructure restores the root-id list from its persisted form.
func (d *Document) UnmarshalStructure(data []byte) error {
	if len(data) == 0 {
		d.Structure = nil
		return nil
	}
	return json.Unmarshal(data, &d.Structure)
}

// UnmarshalSections restores the section index from its persisted form.
func (d *Document) UnmarshalSections(data []byte) error {
	if len(data) == 0 {
		d.Sections = map[string]*Section{}
		return nil
	}
	return json.Unmarshal(data, &d.Sections)
}
