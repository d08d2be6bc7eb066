// Package normalizer folds indexable text into its accent-insensitive,
// case-insensitive form.
//
// Alignment policy: Normalize maps every rune of the input to exactly one
// output rune (canonical decomposition, first non-mark codepoint, simple
// lowercase; a standalone combining mark becomes a space). Rune counts are
// therefore identical between a raw string and its normalization, and a
// byte-offset map between the two is recovered with Align. All normalized
// offsets handed to the snippet extractor go through that map before they
// touch raw text.
package normalizer

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Span is a half-open byte range [Start, End) within a raw string.
type Span struct {
	Start int
	End   int
}

// foldRune maps one rune to its folded form.
func foldRune(r rune) rune {
	if unicode.Is(unicode.Mn, r) {
		return ' '
	}
	if r < utf8.RuneSelf {
		// ASCII fast path: nothing to decompose.
		return unicode.ToLower(r)
	}
	for _, d := range norm.NFD.String(string(r)) {
		if !unicode.Is(unicode.Mn, d) {
			return unicode.ToLower(d)
		}
	}
	return ' '
}

// Normalize returns the folded form of s. It is pure and idempotent, and
// preserves the rune count of s.
func Normalize(s string) string {
	return strings.Map(foldRune, s)
}

// NormalizeMasked folds s while blanking every rune whose raw byte offset
// falls inside one of the masked spans. Masked regions stay out of the index
// and out of snippet matching without disturbing offset alignment. Spans
// must be sorted by Start and non-overlapping. Newlines survive masking so
// line structure stays intact.
func NormalizeMasked(s string, masks []Span) string {
	if len(masks) == 0 {
		return Normalize(s)
	}
	var b strings.Builder
	b.Grow(len(s))
	mi := 0
	for off, r := range s {
		for mi < len(masks) && off >= masks[mi].End {
			mi++
		}
		if mi < len(masks) && off >= masks[mi].Start && r != '\n' {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(foldRune(r))
	}
	return b.String()
}

// Alignment maps byte offsets in a normalized string back to byte offsets
// in the raw string it was folded from.
type Alignment struct {
	// normToRaw[i] is the raw byte offset of the rune covering normalized
	// byte i; the final entry is len(raw).
	normToRaw []int
}

// Align builds the offset map between a raw string and its normalization.
// The two must have equal rune counts, which Normalize guarantees.
func Align(raw, norm string) *Alignment {
	a := &Alignment{normToRaw: make([]int, 0, len(norm)+1)}
	rawOff := 0
	for _, nr := range norm {
		_, rawSize := utf8.DecodeRuneInString(raw[rawOff:])
		for i := 0; i < utf8.RuneLen(nr); i++ {
			a.normToRaw = append(a.normToRaw, rawOff)
		}
		rawOff += rawSize
	}
	a.normToRaw = append(a.normToRaw, rawOff)
	return a
}

// Raw converts a byte offset in the normalized string to the byte offset of
// the same logical position in the raw string. Offsets are clamped to the
// valid range.
func (a *Alignment) Raw(normOff int) int {
	if normOff < 0 {
		normOff = 0
	}
	if normOff >= len(a.normToRaw) {
		normOff = len(a.normToRaw) - 1
	}
	return a.normToRaw[normOff]
}
