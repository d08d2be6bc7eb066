// Package search turns ranked document hits into navigable snippets: it
// re-finds query terms inside each field, attributes every occurrence to
// the owning section, and exposes lazy traversal of the heading hierarchy.
package search

import (
	"strings"

	"github.com/searchmix/searchmix/internal/document"
)

// Resolver loads stored records on demand for lazy navigation. The index
// manager implements it backed by an LRU cache.
type Resolver interface {
	Record(path string) (*document.Document, error)
}

// Heading summarizes the section a snippet was attributed to.
type Heading struct {
	ID    string               `json:"id"`
	Type  document.SectionType `json:"type"`
	Text  string               `json:"text"`
	Depth int                  `json:"depth"`
}

// SectionSummary is a lightweight reference to a related section.
type SectionSummary struct {
	ID    string               `json:"id"`
	Type  document.SectionType `json:"type"`
	Text  string               `json:"text"`
	Depth int                  `json:"depth"`
}

// SectionDetails is the full view of one section with resolved relations.
type SectionDetails struct {
	ID           string                  `json:"id"`
	Type         document.SectionType    `json:"type"`
	Text         string                  `json:"text"`
	Depth        int                     `json:"depth"`
	Position     document.Position       `json:"position"`
	ContentCount int                     `json:"content_count"`
	Parent       *SectionSummary         `json:"parent,omitempty"`
	Children     []*SectionSummary       `json:"children,omitempty"`
	Content      []document.ContentBlock `json:"content,omitempty"`
}

// Snippet is one match occurrence plus its context window. It holds only
// ids and small strings; everything else is resolved lazily through the
// manager and cached on the snippet.
type Snippet struct {
	Text        string         `json:"text"`
	SectionType document.Field `json:"section_type"`
	Position    int            `json:"position"`

	DocumentPath  string   `json:"document_path"`
	DocumentTitle string   `json:"document_title"`
	Tags          []string `json:"tags,omitempty"`
	Rank          float64  `json:"rank"`

	SectionID    string   `json:"section_id,omitempty"`
	ParentID     string   `json:"parent_id,omitempty"`
	ChildrenIDs  []string `json:"children_ids,omitempty"`
	ContentCount int      `json:"content_count,omitempty"`
	Heading      *Heading `json:"heading,omitempty"`

	resolver Resolver
	doc      *document.Document
	docMiss  bool
}

// Bind attaches the resolver used for lazy lookups. Called once by the
// extractor; safe to call again to re-home a snippet.
func (s *Snippet) Bind(r Resolver) { s.resolver = r }

// bindDoc seeds the document cache so navigation on freshly extracted
// snippets needs no storage round trip.
func (s *Snippet) bindDoc(doc *document.Document) { s.doc = doc }

// documentRecord resolves and caches the backing record, or nil.
func (s *Snippet) documentRecord() *document.Document {
	if s.doc != nil || s.docMiss {
		return s.doc
	}
	if s.resolver == nil || s.DocumentPath == "" {
		s.docMiss = true
		return nil
	}
	doc, err := s.resolver.Record(s.DocumentPath)
	if err != nil || doc == nil {
		s.docMiss = true
		return nil
	}
	s.doc = doc
	return doc
}

// section resolves the snippet's own section, or nil.
func (s *Snippet) section() *document.Section {
	doc := s.documentRecord()
	if doc == nil {
		return nil
	}
	return doc.Section(s.SectionID)
}

// GetParent returns the owning section's parent, or nil.
func (s *Snippet) GetParent() *document.Section {
	doc := s.documentRecord()
	if doc == nil {
		return nil
	}
	return doc.Section(s.ParentID)
}

// GetChildren returns the child sections in document order.
func (s *Snippet) GetChildren() []*document.Section {
	doc := s.documentRecord()
	if doc == nil {
		return nil
	}
	children := make([]*document.Section, 0, len(s.ChildrenIDs))
	for _, id := range s.ChildrenIDs {
		if c := doc.Section(id); c != nil {
			children = append(children, c)
		}
	}
	return children
}

// GetChild returns the i-th child, or nil when out of range.
func (s *Snippet) GetChild(i int) *document.Section {
	children := s.GetChildren()
	if i < 0 || i >= len(children) {
		return nil
	}
	return children[i]
}

// GetContent returns the owning section's content blocks.
func (s *Snippet) GetContent() []document.ContentBlock {
	sec := s.section()
	if sec == nil {
		return nil
	}
	return sec.Content
}

// GetDetails returns the full section view with resolved parent and child
// summaries, or nil when the snippet has no section.
func (s *Snippet) GetDetails() *SectionDetails {
	doc := s.documentRecord()
	if doc == nil {
		return nil
	}
	sec := doc.Section(s.SectionID)
	if sec == nil {
		return nil
	}
	return Details(doc, sec)
}

// GetBreadcrumbs walks parent pointers to the root and returns the
// root-to-self path.
func (s *Snippet) GetBreadcrumbs() []*document.Section {
	doc := s.documentRecord()
	sec := s.section()
	if doc == nil || sec == nil {
		return nil
	}
	var path []*document.Section
	for cur := sec; cur != nil; cur = doc.Section(cur.ParentID) {
		path = append(path, cur)
	}
	// Reverse into root-to-self order.
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// GetBreadcrumbsText joins the breadcrumb texts with sep (default " > ").
func (s *Snippet) GetBreadcrumbsText(sep string) string {
	if sep == "" {
		sep = " > "
	}
	crumbs := s.GetBreadcrumbs()
	texts := make([]string, 0, len(crumbs))
	for _, c := range crumbs {
		if c.Text != "" {
			texts = append(texts, c.Text)
		}
	}
	return strings.Join(texts, sep)
}

// GetAncestorAtDepth walks parents until a section of depth d, or nil when
// no ancestor has that depth.
func (s *Snippet) GetAncestorAtDepth(d int) *document.Section {
	doc := s.documentRecord()
	if doc == nil {
		return nil
	}
	for cur := s.section(); cur != nil; cur = doc.Section(cur.ParentID) {
		if cur.Depth == d {
			return cur
		}
	}
	return nil
}

// GetSiblings returns the parent's other children; empty without a parent.
func (s *Snippet) GetSiblings() []*document.Section {
	doc := s.documentRecord()
	if doc == nil {
		return nil
	}
	parent := doc.Section(s.ParentID)
	if parent == nil {
		return nil
	}
	siblings := make([]*document.Section, 0, len(parent.ChildrenIDs))
	for _, id := range parent.ChildrenIDs {
		if id == s.SectionID {
			continue
		}
		if c := doc.Section(id); c != nil {
			siblings = append(siblings, c)
		}
	}
	return siblings
}

// HasParent reports whether the owning section has a parent.
func (s *Snippet) HasParent() bool { return s.ParentID != "" }

// HasChildren reports whether the owning section has children.
func (s *Snippet) HasChildren() bool { return len(s.ChildrenIDs) > 0 }

// HasContent reports whether the owning section has content blocks.
func (s *Snippet) HasContent() bool { return s.ContentCount > 0 }

// TextOptions selects the window of Range-mode extended text.
type TextOptions struct {
	// Length of the window in bytes (default 5000).
	Length int
	// Offset shifts the window start relative to the snippet position.
	Offset int
}

// GetText retrieves extended text. When the owning section has content
// blocks, the section is rendered as Markdown and options are ignored.
// Otherwise a window of the raw body around the snippet position is
// returned. Without a resolvable document, the snippet's own text.
func (s *Snippet) GetText(opts *TextOptions) string {
	doc := s.documentRecord()
	if doc == nil {
		return s.Text
	}

	if sec := s.section(); sec != nil && len(sec.Content) > 0 {
		return RenderSection(sec)
	}

	length := 5000
	offset := 0
	if opts != nil {
		if opts.Length > 0 {
			length = opts.Length
		}
		offset = opts.Offset
	}
	start := clamp(s.Position+offset, 0, len(doc.Body))
	end := clamp(s.Position+offset+length, 0, len(doc.Body))
	if end < start {
		end = start
	}
	return doc.Body[start:end]
}

// Details builds the full section view with resolved relations.
func Details(doc *document.Document, sec *document.Section) *SectionDetails {
	d := &SectionDetails{
		ID:           sec.ID,
		Type:         sec.Type,
		Text:         sec.Text,
		Depth:        sec.Depth,
		Position:     sec.Position,
		ContentCount: len(sec.Content),
		Content:      sec.Content,
	}
	if parent := doc.Section(sec.ParentID); parent != nil {
		d.Parent = summarize(parent)
	}
	for _, id := range sec.ChildrenIDs {
		if child := doc.Section(id); child != nil {
			d.Children = append(d.Children, summarize(child))
		}
	}
	return d
}

func summarize(sec *document.Section) *SectionSummary {
	return &SectionSummary{ID: sec.ID, Type: sec.Type, Text: sec.Text, Depth: sec.Depth}
}

// RenderSection renders a section back to Markdown: heading line, then each
// content block by type, blocks separated by blank lines.
func RenderSection(sec *document.Section) string {
	var parts []string
	if sec.Depth > 0 && sec.Text != "" {
		parts = append(parts, strings.Repeat("#", sec.Depth)+" "+sec.Text)
	}
	for _, block := range sec.Content {
		switch block.Type {
		case document.BlockCode:
			parts = append(parts, "```"+block.Lang+"\n"+block.Text+"\n```")
		default:
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
