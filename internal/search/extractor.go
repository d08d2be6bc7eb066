package search

import (
	"regexp"
	"strings"

	"github.com/searchmix/searchmix/internal/document"
	"github.com/searchmix/searchmix/internal/normalizer"
	"github.com/searchmix/searchmix/internal/query"
)

// Extractor re-finds query terms inside the fields of matched documents and
// emits snippets attributed to the owning sections.
type Extractor struct {
	// Length is the context window size in bytes (default 200).
	Length int
	// PerDoc caps the number of snippets per document (default 3).
	PerDoc int
}

// NewExtractor creates an extractor; zero values select the defaults.
func NewExtractor(length, perDoc int) *Extractor {
	if length <= 0 {
		length = 200
	}
	if perDoc <= 0 {
		perDoc = 3
	}
	return &Extractor{Length: length, PerDoc: perDoc}
}

// compiled pairs a term with its boundary regex.
type compiled struct {
	term query.Term
	re   *regexp.Regexp
}

// compileTerms builds the boundary regexes: exact word boundaries for plain
// terms, left boundary only for prefix terms.
func compileTerms(terms []query.Term) []compiled {
	out := make([]compiled, 0, len(terms))
	for _, t := range terms {
		pattern := `\b` + regexp.QuoteMeta(t.Text)
		if !t.Prefix {
			pattern += `\b`
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			continue
		}
		out = append(out, compiled{term: t, re: re})
	}
	return out
}

// Extract emits up to PerDoc snippets for one matched document. The
// original public query is scanned, not the rewritten one, because term
// re-matching works field-by-field and line-by-line.
func (e *Extractor) Extract(q string, doc *document.Document, rank float64, r Resolver) []*Snippet {
	terms := compileTerms(query.ExtractTerms(q))

	var snippets []*Snippet
	type key struct {
		field document.Field
		pos   int
	}
	emitted := map[key]bool{}

	emit := func(sn *Snippet) bool {
		k := key{field: sn.SectionType, pos: sn.Position}
		if emitted[k] {
			return len(snippets) < e.PerDoc
		}
		emitted[k] = true
		sn.DocumentPath = doc.Path
		sn.DocumentTitle = doc.Title
		sn.Tags = doc.Tags
		sn.Rank = rank
		sn.Bind(r)
		sn.bindDoc(doc)
		snippets = append(snippets, sn)
		return len(snippets) < e.PerDoc
	}

	ordered := doc.SectionsInOrder()

	for _, field := range document.SnippetFieldOrder {
		if len(snippets) >= e.PerDoc {
			break
		}
		raw, norm := doc.FieldPair(field)
		if raw == "" {
			continue
		}

		if depth := field.HeadingDepth(); depth > 0 {
			e.extractHeadingField(field, raw, norm, terms, doc, emit)
			continue
		}
		// Title and body use the context-window scan over the normalized
		// text, sliced back to raw through the alignment map.
		e.extractWindowField(field, raw, norm, terms, ordered, emit)
	}

	if len(snippets) == 0 {
		if sn := e.fallback(doc); sn != nil {
			emit(sn)
		}
	}
	return snippets
}

// extractHeadingField matches terms against individual heading lines. Raw
// and normalized projections split identically because normalization
// preserves newlines.
func (e *Extractor) extractHeadingField(
	field document.Field,
	raw, norm string,
	terms []compiled,
	doc *document.Document,
	emit func(*Snippet) bool,
) {
	rawLines := strings.Split(raw, "\n")
	normLines := strings.Split(norm, "\n")

	// Byte offset of each line within the raw projection.
	offsets := make([]int, len(rawLines))
	off := 0
	for i, line := range rawLines {
		offsets[i] = off
		off += len(line) + 1
	}

	for _, t := range terms {
		for i, normLine := range normLines {
			if i >= len(rawLines) {
				break
			}
			if !t.re.MatchString(normLine) {
				continue
			}
			sn := &Snippet{
				Text:        rawLines[i],
				SectionType: field,
				Position:    offsets[i],
			}
			if sec := findHeadingSection(doc, field, rawLines[i]); sec != nil {
				attachSection(sn, sec)
			}
			if !emit(sn) {
				return
			}
		}
	}
}

// extractWindowField scans the normalized field and slices context windows
// out of the raw counterpart.
func (e *Extractor) extractWindowField(
	field document.Field,
	raw, norm string,
	terms []compiled,
	ordered []*document.Section,
	emit func(*Snippet) bool,
) {
	align := normalizer.Align(raw, norm)

	for _, t := range terms {
		for _, loc := range t.re.FindAllStringIndex(norm, -1) {
			i := loc[0]
			start := i - e.Length/2
			if start < 0 {
				start = 0
			}
			end := start + e.Length
			if end > len(norm) {
				end = len(norm)
			}

			text := strings.TrimSpace(raw[align.Raw(start):align.Raw(end)])
			if start > 0 {
				text = "…" + text
			}
			if end < len(norm) {
				text += "…"
			}

			rawPos := align.Raw(i)
			sn := &Snippet{
				Text:        text,
				SectionType: field,
				Position:    rawPos,
			}
			if field == document.FieldBody {
				if sec := attributeBody(ordered, rawPos); sec != nil {
					attachSection(sn, sec)
				}
			} else if field == document.FieldTitle {
				// The title is the first h1; attribute to that section.
				if sec := findTitleSection(ordered, raw); sec != nil {
					attachSection(sn, sec)
				}
			}
			if !emit(sn) {
				return
			}
		}
	}
}

// fallback produces the single no-match snippet: the head of the body (or
// the title when the body is empty), attributed to the first root section.
func (e *Extractor) fallback(doc *document.Document) *Snippet {
	text := doc.Body
	field := document.FieldBody
	if strings.TrimSpace(text) == "" {
		text = doc.Title
		field = document.FieldTitle
	}
	if text == "" {
		return nil
	}
	text = firstRunes(text, e.Length)

	sn := &Snippet{
		Text:        strings.TrimSpace(text),
		SectionType: field,
	}
	if len(doc.Structure) > 0 {
		if sec := doc.Section(doc.Structure[0]); sec != nil {
			attachSection(sn, sec)
		}
	}
	return sn
}

// findHeadingSection locates the section of the field's level whose text
// equals the matched heading line, in document order.
func findHeadingSection(doc *document.Document, field document.Field, line string) *document.Section {
	want := document.SectionType(field)
	for _, sec := range doc.SectionsInOrder() {
		if sec.Type == want && sec.Text == line {
			return sec
		}
	}
	return nil
}

// findTitleSection locates the h1 section carrying the document title.
func findTitleSection(ordered []*document.Section, title string) *document.Section {
	for _, sec := range ordered {
		if sec.Type == document.SectionH1 && sec.Text == title {
			return sec
		}
	}
	return nil
}

// attributeBody finds the section owning a raw byte offset: first the
// section one of whose content blocks contains it, then the nearest section
// starting at or before it.
func attributeBody(ordered []*document.Section, rawPos int) *document.Section {
	for _, sec := range ordered {
		for _, block := range sec.Content {
			if block.Position.Contains(rawPos) {
				return sec
			}
		}
	}
	var best *document.Section
	for _, sec := range ordered {
		if sec.Position.Start <= rawPos {
			best = sec
		} else {
			break
		}
	}
	return best
}

func attachSection(sn *Snippet, sec *document.Section) {
	sn.SectionID = sec.ID
	sn.ParentID = sec.ParentID
	sn.ChildrenIDs = sec.ChildrenIDs
	sn.ContentCount = len(sec.Content)
	sn.Heading = &Heading{ID: sec.ID, Type: sec.Type, Text: sec.Text, Depth: sec.Depth}
}

// firstRunes returns the first n runes of s without splitting a codepoint.
func firstRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}
