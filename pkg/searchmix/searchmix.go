// Package searchmix is the public embeddable API: an accent-insensitive
// full-text index over Markdown documents with weighted BM25 ranking,
// section-aware snippets, and navigation into the heading hierarchy.
//
//	idx, err := searchmix.New(nil)
//	...
//	idx.Add(ctx, "./docs", searchmix.DefaultAddOptions())
//	res, err := idx.Search(ctx, "mediterraneo", searchmix.SearchOptions{Snippets: true})
package searchmix

import (
	"github.com/searchmix/searchmix/internal/config"
	"github.com/searchmix/searchmix/internal/convert"
	"github.com/searchmix/searchmix/internal/document"
	"github.com/searchmix/searchmix/internal/index"
	"github.com/searchmix/searchmix/internal/search"
	"github.com/searchmix/searchmix/internal/store"
)

// Index is the searchmix facade: add, search, retrieve, remove.
type Index = index.Manager

// Config configures an Index.
type Config = config.Config

// Weights are the per-field BM25 ranking weights.
type Weights = store.Weights

// Document is one stored record.
type Document = document.Document

// Section is a node of a document's heading hierarchy.
type Section = document.Section

// ContentBlock is a paragraph, list, or code block of a section.
type ContentBlock = document.ContentBlock

// Snippet is one search match with lazy navigation.
type Snippet = search.Snippet

// SectionDetails is the resolved view of one section.
type SectionDetails = search.SectionDetails

// TextOptions selects the Range-mode window of Snippet.GetText.
type TextOptions = search.TextOptions

// AddOptions controls indexing behavior.
type AddOptions = index.AddOptions

// SearchOptions controls a query.
type SearchOptions = index.SearchOptions

// SearchResult is a query's outcome.
type SearchResult = index.SearchResult

// GetOptions windows the body on Get.
type GetOptions = index.GetOptions

// Stats describes an index.
type Stats = index.Stats

// Converter adapts an additional source format to Markdown.
type Converter = convert.Converter

// Option customizes index construction.
type Option = index.Option

// New opens (or creates) the index described by cfg; nil selects the
// defaults (./db/searchmix.db, code blocks excluded, default weights).
func New(cfg *Config, opts ...Option) (*Index, error) {
	return index.New(cfg, opts...)
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config { return config.Default() }

// DefaultAddOptions returns the documented add defaults.
func DefaultAddOptions() AddOptions { return index.DefaultAddOptions() }

// WithConverter registers an extra format converter (EPUB, PDF, ...).
func WithConverter(c Converter) Option { return index.WithConverter(c) }
