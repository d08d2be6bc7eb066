// Package markdown parses Markdown into the document model: a heading tree,
// a flat section index, and the per-level field projections consumed by the
// store and the snippet extractor.
package markdown

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/searchmix/searchmix/internal/document"
	"github.com/searchmix/searchmix/internal/normalizer"
)

// Options configures structural parsing.
type Options struct {
	// IncludeCodeBlocks controls whether fenced and indented code blocks
	// become searchable body content. When false their byte ranges are
	// reported as mask spans instead.
	IncludeCodeBlocks bool
}

// Result is the structural projection of one Markdown document.
type Result struct {
	// Title is the text of the first h1. Headings[d-1] collects the texts
	// of the remaining depth-d headings, newline-joined.
	Title    string
	Headings [6]string

	// Structure lists root section ids in document order; Sections resolves
	// every id created during the parse.
	Structure []string
	Sections  map[string]*document.Section

	// CodeMasks are the byte ranges of code blocks excluded from indexing.
	// Empty when IncludeCodeBlocks is true.
	CodeMasks []normalizer.Span

	// HeadingMasks are the byte ranges of heading lines. Heading text is
	// indexed through the per-level projections, never through the body,
	// so these ranges are blanked out of the normalized body.
	HeadingMasks []normalizer.Span
}

// BodyMasks merges the heading and code mask spans, sorted by start, for
// the length-preserving normalization of the raw body.
func (r *Result) BodyMasks() []normalizer.Span {
	masks := make([]normalizer.Span, 0, len(r.HeadingMasks)+len(r.CodeMasks))
	masks = append(masks, r.HeadingMasks...)
	masks = append(masks, r.CodeMasks...)
	sort.Slice(masks, func(i, j int) bool { return masks[i].Start < masks[j].Start })
	return masks
}

// Parser builds structural projections from Markdown source.
type Parser struct {
	opts Options
}

// New creates a parser.
func New(opts Options) *Parser {
	return &Parser{opts: opts}
}

// walker holds the parse state for one document.
type walker struct {
	src  []byte
	opts Options
	res  *Result
	// stack of open heading sections, outermost first.
	stack []*document.Section
	// bodyRoot is the lazily created synthetic section owning content that
	// precedes the first heading.
	bodyRoot *document.Section
	nextID   int
	levels   [6][]string
	titleSet bool
}

// Parse builds the structural projection of source.
func (p *Parser) Parse(source []byte) *Result {
	w := &walker{
		src:  source,
		opts: p.opts,
		res: &Result{
			Sections: map[string]*document.Section{},
		},
	}

	parser := goldmark.DefaultParser()
	doc := parser.Parse(text.NewReader(source))

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := n.(type) {
		case *ast.Heading:
			w.heading(n)
			return ast.WalkSkipChildren, nil
		case *ast.List:
			w.list(n)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			w.paragraph(n)
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock:
			w.fencedCode(n)
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			w.indentedCode(n)
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	for i, texts := range w.levels {
		w.res.Headings[i] = strings.Join(texts, "\n")
	}
	return w.res
}

// newID assigns the next monotonic section id.
func (w *walker) newID() string {
	id := fmt.Sprintf("s%d", w.nextID)
	w.nextID++
	return id
}

// current returns the innermost open section, or nil before any heading.
func (w *walker) current() *document.Section {
	if len(w.stack) == 0 {
		return nil
	}
	return w.stack[len(w.stack)-1]
}

func (w *walker) heading(n *ast.Heading) {
	txt := strings.TrimSpace(string(n.Text(w.src)))
	if txt == "" {
		// Headings with no visible text produce no section.
		return
	}

	depth := n.Level
	pos := w.headingPosition(n)
	w.res.HeadingMasks = append(w.res.HeadingMasks, normalizer.Span{Start: pos.Start, End: pos.End})

	// Close sections at the same or a deeper level.
	for len(w.stack) > 0 && w.stack[len(w.stack)-1].Depth >= depth {
		w.stack = w.stack[:len(w.stack)-1]
	}

	sec := &document.Section{
		ID:       w.newID(),
		Type:     document.HeadingSectionType(depth),
		Depth:    depth,
		Text:     txt,
		Position: pos,
	}
	if parent := w.current(); parent != nil {
		sec.ParentID = parent.ID
		parent.ChildrenIDs = append(parent.ChildrenIDs, sec.ID)
	} else {
		w.res.Structure = append(w.res.Structure, sec.ID)
	}
	w.res.Sections[sec.ID] = sec
	w.stack = append(w.stack, sec)

	if depth == 1 && !w.titleSet {
		w.res.Title = txt
		w.titleSet = true
	} else {
		w.levels[depth-1] = append(w.levels[depth-1], txt)
	}
}

// headingPosition covers the heading syntax: from the start of the marker
// line through the end of the heading text.
func (w *walker) headingPosition(n *ast.Heading) document.Position {
	lines := n.Lines()
	if lines.Len() == 0 {
		return document.Position{}
	}
	first := lines.At(0)
	last := lines.At(lines.Len() - 1)
	return document.Position{
		Start: lineStart(w.src, first.Start),
		End:   last.Stop,
	}
}

func (w *walker) paragraph(n *ast.Paragraph) {
	txt := strings.TrimSpace(string(n.Text(w.src)))
	if txt == "" {
		return
	}
	w.attach(document.ContentBlock{
		Type:     document.BlockParagraph,
		Text:     txt,
		Position: segmentsPosition(n.Lines()),
	})
}

func (w *walker) list(n *ast.List) {
	var items []string
	for item := n.FirstChild(); item != nil; item = item.NextSibling() {
		if txt := strings.TrimSpace(string(item.Text(w.src))); txt != "" {
			items = append(items, txt)
		}
	}
	if len(items) == 0 {
		return
	}
	start, end, ok := nodeSpan(n)
	if !ok {
		return
	}
	w.attach(document.ContentBlock{
		Type:     document.BlockList,
		Text:     strings.Join(items, "\n"),
		Position: document.Position{Start: lineStart(w.src, start), End: end},
	})
}

func (w *walker) fencedCode(n *ast.FencedCodeBlock) {
	pos, ok := w.fencedPosition(n)
	if !ok {
		return
	}
	if !w.opts.IncludeCodeBlocks {
		w.res.CodeMasks = append(w.res.CodeMasks, normalizer.Span{Start: pos.Start, End: pos.End})
		return
	}
	w.attach(document.ContentBlock{
		Type:     document.BlockCode,
		Text:     linesText(w.src, n.Lines()),
		Position: pos,
		Lang:     string(n.Language(w.src)),
	})
}

func (w *walker) indentedCode(n *ast.CodeBlock) {
	lines := n.Lines()
	if lines.Len() == 0 {
		return
	}
	pos := segmentsPosition(lines)
	if !w.opts.IncludeCodeBlocks {
		w.res.CodeMasks = append(w.res.CodeMasks, normalizer.Span{Start: pos.Start, End: pos.End})
		return
	}
	w.attach(document.ContentBlock{
		Type:     document.BlockCode,
		Text:     linesText(w.src, lines),
		Position: pos,
	})
}

// fencedPosition covers the whole fenced block including both fence lines,
// so excluded code (and its info string) can be masked in one span.
func (w *walker) fencedPosition(n *ast.FencedCodeBlock) (document.Position, bool) {
	lines := n.Lines()
	var contentStart, contentStop int
	switch {
	case lines.Len() > 0:
		contentStart = lines.At(0).Start
		contentStop = lines.At(lines.Len() - 1).Stop
	case n.Info != nil:
		contentStart = n.Info.Segment.Stop
		contentStop = n.Info.Segment.Stop
	default:
		return document.Position{}, false
	}

	// The info string sits on the opening fence line; without one, the
	// fence is the line preceding the first content line.
	var start int
	if n.Info != nil {
		start = lineStart(w.src, n.Info.Segment.Start)
	} else {
		start = lineStart(w.src, prevLineOffset(w.src, contentStart))
	}

	return document.Position{Start: start, End: closingFenceEnd(w.src, contentStop)}, true
}

// attach adds a block to the innermost open section, creating the synthetic
// body root for content that precedes the first heading.
func (w *walker) attach(block document.ContentBlock) {
	owner := w.current()
	if owner == nil {
		if w.bodyRoot == nil {
			w.bodyRoot = &document.Section{
				ID:    w.newID(),
				Type:  document.SectionBody,
				Depth: 0,
			}
			w.res.Sections[w.bodyRoot.ID] = w.bodyRoot
			w.res.Structure = append([]string{w.bodyRoot.ID}, w.res.Structure...)
		}
		owner = w.bodyRoot
	}
	owner.Content = append(owner.Content, block)
}

// lineStart returns the byte offset of the start of the line containing off.
func lineStart(src []byte, off int) int {
	if off > len(src) {
		off = len(src)
	}
	for off > 0 && src[off-1] != '\n' {
		off--
	}
	return off
}

// prevLineOffset returns an offset on the line preceding the line that
// contains off, or off itself when there is none.
func prevLineOffset(src []byte, off int) int {
	start := lineStart(src, off)
	if start == 0 {
		return off
	}
	return start - 1
}

// closingFenceEnd extends from the end of the code content through the end
// of the closing fence line, if present.
func closingFenceEnd(src []byte, from int) int {
	rest := src[from:]
	i := 0
	for i < len(rest) && (rest[i] == ' ' || rest[i] == '\t') {
		i++
	}
	if i >= len(rest) || (rest[i] != '`' && rest[i] != '~') {
		return from
	}
	for i < len(rest) && rest[i] != '\n' {
		i++
	}
	if i < len(rest) {
		i++ // include the newline
	}
	return from + i
}

// segmentsPosition is the byte range covered by a block's line segments.
func segmentsPosition(lines *text.Segments) document.Position {
	if lines.Len() == 0 {
		return document.Position{}
	}
	return document.Position{
		Start: lines.At(0).Start,
		End:   lines.At(lines.Len() - 1).Stop,
	}
}

// linesText concatenates the raw text of a block's line segments.
func linesText(src []byte, lines *text.Segments) string {
	var b strings.Builder
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(src))
	}
	return strings.TrimRight(b.String(), "\n")
}

// nodeSpan finds the byte range covered by a node's descendants.
func nodeSpan(n ast.Node) (start, end int, ok bool) {
	start, end = -1, -1
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if c.Type() == ast.TypeBlock {
			if lines := c.Lines(); lines != nil && lines.Len() > 0 {
				if s := lines.At(0).Start; start == -1 || s < start {
					start = s
				}
				if e := lines.At(lines.Len() - 1).Stop; e > end {
					end = e
				}
			}
		}
		return ast.WalkContinue, nil
	})
	if start == -1 {
		return 0, 0, false
	}
	return start, end, true
}
