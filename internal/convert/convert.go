// Package convert normalizes source formats to Markdown before indexing.
// Converters for Markdown, plain text, and SRT subtitles are built in;
// further formats (EPUB, PDF) plug into the registry through Register.
package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// Converter turns source bytes of one format family into Markdown text.
type Converter interface {
	// Convert transforms input to Markdown. A failure skips the file; it
	// never aborts a batch.
	Convert(ctx context.Context, input []byte) (string, error)

	// Extensions lists the file extensions (without dot) this converter
	// handles.
	Extensions() []string
}

// Registry dispatches converters by file extension.
type Registry struct {
	byExt map[string]Converter
}

// NewRegistry creates a registry with the built-in converters.
func NewRegistry() *Registry {
	r := &Registry{byExt: map[string]Converter{}}
	r.Register(&Markdown{})
	r.Register(&PlainText{})
	r.Register(&SRT{})
	return r
}

// Register adds a converter for all its extensions, replacing any previous
// registration.
func (r *Registry) Register(c Converter) {
	for _, ext := range c.Extensions() {
		r.byExt[strings.ToLower(ext)] = c
	}
}

// For returns the converter for a path's extension, or nil.
func (r *Registry) For(path string) Converter {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	return r.byExt[ext]
}

// Extensions returns every registered extension.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// Markdown passes Markdown sources through untouched.
type Markdown struct{}

// Convert implements Converter.
func (*Markdown) Convert(_ context.Context, input []byte) (string, error) {
	return string(input), nil
}

// Extensions implements Converter.
func (*Markdown) Extensions() []string { return []string{"md", "markdown"} }

// PlainText treats the whole file as body text.
type PlainText struct{}

// Convert implements Converter.
func (*PlainText) Convert(_ context.Context, input []byte) (string, error) {
	return string(input), nil
}

// Extensions implements Converter.
func (*PlainText) Extensions() []string { return []string{"txt"} }

// SRT converts SubRip subtitles: cue indices and timecode lines are
// dropped, consecutive cue texts become paragraphs.
type SRT struct{}

// Convert implements Converter.
func (*SRT) Convert(_ context.Context, input []byte) (string, error) {
	text := strings.ReplaceAll(string(input), "\r\n", "\n")
	blocks := strings.Split(text, "\n\n")

	var paragraphs []string
	for _, block := range blocks {
		lines := strings.Split(strings.TrimSpace(block), "\n")
		var kept []string
		for _, line := range lines {
			line = strings.TrimSpace(line)
			if line == "" || isCueIndex(line) || isTimecode(line) {
				continue
			}
			kept = append(kept, line)
		}
		if len(kept) > 0 {
			paragraphs = append(paragraphs, strings.Join(kept, " "))
		}
	}
	if len(paragraphs) == 0 {
		return "", fmt.Errorf("no subtitle text found")
	}
	return strings.Join(paragraphs, "\n\n") + "\n", nil
}

// Extensions implements Converter.
func (*SRT) Extensions() []string { return []string{"srt"} }

func isCueIndex(line string) bool {
	for _, c := range line {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isTimecode(line string) bool {
	return strings.Contains(line, "-->")
}
