// Package query rewrites the public query language into the internal,
// field-addressed, normalized form the storage engine executes, and derives
// the term list the snippet extractor re-matches against document fields.
//
// The public language: bare terms, "quoted phrases", AND / OR / NOT
// (case-insensitive), parentheses, a trailing * for prefix matching, and
// field:value restrictions over title, h1..h6, headings, and body.
package query

import (
	"strings"

	"github.com/searchmix/searchmix/internal/document"
	"github.com/searchmix/searchmix/internal/normalizer"
)

// headingsColumns is the FTS5 column-set filter the pseudo field `headings`
// rewrites to.
const headingsColumns = "{h1_normalized h2_normalized h3_normalized h4_normalized h5_normalized h6_normalized}"

// Rewrite produces the internal query: field prefixes mapped to their
// normalized columns, bare terms and phrases accent/case folded, operators
// uppercased. Quoted spans are folded as a unit with the quotes retained.
func Rewrite(q string) string {
	tokens := tokenize(q)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, rewriteToken(tok))
	}
	return join(out)
}

// token kinds produced by tokenize.
type tokenKind int

const (
	tokenWord tokenKind = iota
	tokenPhrase
	tokenOpenParen
	tokenCloseParen
)

type token struct {
	kind tokenKind
	text string // phrase content without quotes, or the raw word
}

// tokenize splits q preserving quoted spans and parentheses as atomic
// tokens. An unterminated quote extends to the end of the input.
func tokenize(q string) []token {
	var tokens []token
	i := 0
	for i < len(q) {
		c := q[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '"':
			end := strings.IndexByte(q[i+1:], '"')
			if end < 0 {
				tokens = append(tokens, token{kind: tokenPhrase, text: q[i+1:]})
				i = len(q)
			} else {
				tokens = append(tokens, token{kind: tokenPhrase, text: q[i+1 : i+1+end]})
				i += end + 2
			}
		case c == '(':
			tokens = append(tokens, token{kind: tokenOpenParen})
			i++
		case c == ')':
			tokens = append(tokens, token{kind: tokenCloseParen})
			i++
		default:
			j := i
			for j < len(q) && !isBreak(q[j]) {
				j++
			}
			tokens = append(tokens, token{kind: tokenWord, text: q[i:j]})
			i = j
		}
	}
	return tokens
}

func isBreak(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '"' || c == '(' || c == ')'
}

func rewriteToken(tok token) string {
	switch tok.kind {
	case tokenOpenParen:
		return "("
	case tokenCloseParen:
		return ")"
	case tokenPhrase:
		return `"` + normalizer.Normalize(tok.text) + `"`
	}

	word := tok.text
	if isOperator(word) {
		return strings.ToUpper(word)
	}

	if field, value, ok := splitField(word); ok {
		col := rewriteField(field)
		if value == "" {
			// The value follows as a separate token ("title: foo" or a
			// quoted phrase); keep the prefix open.
			return col + ":"
		}
		return col + ":" + normalizeTerm(value)
	}

	if idx := strings.IndexByte(word, ':'); idx > 0 {
		// An unrecognized field prefix keeps its spelling; only the value
		// is folded.
		return word[:idx+1] + normalizeTerm(word[idx+1:])
	}

	return normalizeTerm(word)
}

// splitField recognizes field:value words over the public field set.
func splitField(word string) (field, value string, ok bool) {
	idx := strings.IndexByte(word, ':')
	if idx <= 0 {
		return "", "", false
	}
	field = strings.ToLower(word[:idx])
	if !document.IsQueryField(field) {
		return "", "", false
	}
	return field, word[idx+1:], true
}

func rewriteField(field string) string {
	if field == string(document.FieldHeadings) {
		return headingsColumns
	}
	return field + "_normalized"
}

// normalizeTerm folds a bare term, preserving a trailing prefix star.
func normalizeTerm(term string) string {
	prefix := strings.HasSuffix(term, "*")
	core := strings.TrimSuffix(term, "*")
	core = normalizer.Normalize(core)
	if prefix {
		return core + "*"
	}
	return core
}

func isOperator(word string) bool {
	return strings.EqualFold(word, "AND") ||
		strings.EqualFold(word, "OR") ||
		strings.EqualFold(word, "NOT")
}

// join assembles tokens, keeping an open field prefix attached to the token
// that follows it.
func join(tokens []string) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 && !strings.HasSuffix(tokens[i-1], ":") {
			b.WriteByte(' ')
		}
		b.WriteString(tok)
	}
	return b.String()
}

// Term is one query term the snippet extractor scans for.
type Term struct {
	Text string // normalized
	// Prefix marks a trailing-* term: the right-hand word boundary is
	// dropped when matching.
	Prefix bool
}

// ExtractTerms derives the snippet term list from the original (public)
// query: operators, parentheses, quotes, and field prefixes are stripped,
// phrases split on whitespace, and every remaining token folded. Tokens of
// a single character are dropped unless that would leave no terms at all
// (a one-letter query must still locate its matches).
func ExtractTerms(q string) []Term {
	var words []string
	for _, tok := range tokenize(q) {
		switch tok.kind {
		case tokenPhrase:
			words = append(words, strings.Fields(tok.text)...)
		case tokenWord:
			if isOperator(tok.text) {
				continue
			}
			word := tok.text
			if _, value, ok := splitField(word); ok {
				word = value
			}
			if word != "" {
				words = append(words, word)
			}
		}
	}

	terms := buildTerms(words, true)
	if len(terms) == 0 {
		terms = buildTerms(words, false)
	}
	return terms
}

func buildTerms(words []string, dropShort bool) []Term {
	var terms []Term
	seen := map[string]bool{}
	for _, w := range words {
		prefix := strings.HasSuffix(w, "*")
		core := strings.TrimSuffix(w, "*")
		if core == "" || (dropShort && len([]rune(core)) <= 1) {
			continue
		}
		norm := normalizer.Normalize(core)
		if seen[norm] {
			continue
		}
		seen[norm] = true
		terms = append(terms, Term{Text: norm, Prefix: prefix})
	}
	return terms
}
