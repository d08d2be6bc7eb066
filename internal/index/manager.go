// Package index is the searchmix facade: it orchestrates converters, the
// structural parser, the persistent store, and the snippet extractor behind
// one Manager with add / search / get / remove / stats operations.
package index

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/searchmix/searchmix/internal/config"
	"github.com/searchmix/searchmix/internal/convert"
	"github.com/searchmix/searchmix/internal/document"
	serr "github.com/searchmix/searchmix/internal/errors"
	"github.com/searchmix/searchmix/internal/markdown"
	"github.com/searchmix/searchmix/internal/normalizer"
	"github.com/searchmix/searchmix/internal/query"
	"github.com/searchmix/searchmix/internal/scanner"
	"github.com/searchmix/searchmix/internal/search"
	"github.com/searchmix/searchmix/internal/store"
)

// BufferScheme prefixes the synthesized identity of in-memory documents so
// they can never collide with filesystem paths.
const BufferScheme = "buffer://"

// mtimeToleranceMS absorbs filesystem timestamp quantization when deciding
// whether a file changed.
const mtimeToleranceMS = 1000

// recordCacheSize bounds the parsed-record cache backing lazy navigation.
const recordCacheSize = 128

// LanguageDetector is the external language-detection collaborator. When
// present, the detected code joins the document's tags.
type LanguageDetector interface {
	Detect(text string) (code string, ok bool)
}

// Manager is the index facade.
type Manager struct {
	cfg        *config.Config
	store      *store.Store
	converters *convert.Registry
	scanner    *scanner.Scanner
	parser     *markdown.Parser
	cache      *lru.Cache[string, *document.Document]
	detector   LanguageDetector
	logger     *slog.Logger
}

// Option customizes a Manager.
type Option func(*Manager)

// WithConverter registers an additional format converter (EPUB, PDF, ...).
func WithConverter(c convert.Converter) Option {
	return func(m *Manager) { m.converters.Register(c) }
}

// WithLanguageDetector installs the language-detection collaborator.
func WithLanguageDetector(d LanguageDetector) Option {
	return func(m *Manager) { m.detector = d }
}

// WithLogger replaces the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// New opens the index described by cfg. A nil cfg uses the defaults; a
// DBPath of ":memory:" opens an ephemeral index.
func New(cfg *config.Config, opts ...Option) (*Manager, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	dbPath := cfg.DBPath
	if dbPath == ":memory:" {
		dbPath = ""
	}
	st, err := store.New(dbPath, store.Config{Weights: cfg.Weights})
	if err != nil {
		return nil, err
	}

	cache, err := lru.New[string, *document.Document](recordCacheSize)
	if err != nil {
		_ = st.Close()
		return nil, serr.New(serr.ErrCodeInternal, "failed to create record cache", err)
	}

	m := &Manager{
		cfg:        cfg,
		store:      st,
		converters: convert.NewRegistry(),
		scanner:    scanner.New(),
		parser:     markdown.New(markdown.Options{IncludeCodeBlocks: cfg.IncludeCodeBlocks}),
		cache:      cache,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// AddOptions controls one add operation.
type AddOptions struct {
	// Tags label every document indexed by this call.
	Tags []string
	// Exclude holds glob patterns skipped during directory scans.
	Exclude []string
	// Recursive descends into subdirectories.
	Recursive bool
	// SkipExisting leaves already-indexed documents alone.
	SkipExisting bool
	// Update forces re-indexing of existing documents.
	Update bool
	// CheckModified re-indexes existing documents whose mtime moved by more
	// than one second.
	CheckModified bool
}

// DefaultAddOptions returns the documented defaults.
func DefaultAddOptions() AddOptions {
	return AddOptions{
		Exclude:       []string{"node_modules", ".git"},
		Recursive:     true,
		SkipExisting:  true,
		CheckModified: true,
	}
}

// AddResult summarizes one add operation.
type AddResult struct {
	Indexed int
	Skipped int
	Failed  int
}

// Add indexes a file or a directory tree. Per-file failures during a
// directory add are logged and skipped; failures on a single-file add are
// returned.
func (m *Manager) Add(ctx context.Context, input string, opts AddOptions) (*AddResult, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, serr.InputNotFound(input, err)
	}

	if info.IsDir() {
		return m.addDirectory(ctx, input, opts)
	}

	res := &AddResult{}
	if m.converters.For(input) == nil {
		return nil, serr.UnsupportedFormat(input)
	}
	indexed, err := m.indexFile(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	if indexed {
		res.Indexed++
	} else {
		res.Skipped++
	}
	return res, nil
}

// addDirectory scans, converts in parallel, and inserts sequentially in
// scan order so callers observe documents in a stable order.
func (m *Manager) addDirectory(ctx context.Context, dir string, opts AddOptions) (*AddResult, error) {
	candidates, err := m.scanner.Scan(dir, scanner.Options{
		Exclude:    opts.Exclude,
		Recursive:  opts.Recursive,
		Extensions: m.converters.Extensions(),
	})
	if err != nil {
		return nil, serr.InputNotFound(dir, err)
	}

	res := &AddResult{}

	// Decide which candidates need work before spending conversion time.
	var toIndex []string
	for _, path := range candidates {
		need, err := m.needsIndex(ctx, path, opts)
		if err != nil {
			m.logger.Warn("index_decision_failed",
				slog.String("path", path),
				slog.String("error", err.Error()))
			res.Failed++
			continue
		}
		if need {
			toIndex = append(toIndex, path)
		} else {
			res.Skipped++
		}
	}

	// Conversion and parsing are pure per file; run them on a bounded
	// group. Inserts below stay sequential in scan order.
	docs := make([]*document.Document, len(toIndex))
	errs := make([]error, len(toIndex))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, path := range toIndex {
		g.Go(func() error {
			docs[i], errs[i] = m.buildFromFile(gctx, path, opts.Tags)
			return nil
		})
	}
	_ = g.Wait()

	for i, path := range toIndex {
		if errs[i] != nil {
			m.logger.Warn("file_skipped",
				slog.String("path", path),
				slog.String("error", errs[i].Error()))
			res.Failed++
			continue
		}
		if err := m.store.Insert(ctx, docs[i]); err != nil {
			return res, err
		}
		m.cache.Remove(path)
		res.Indexed++
	}

	m.logger.Info("directory_indexed",
		slog.String("dir", dir),
		slog.Int("indexed", res.Indexed),
		slog.Int("skipped", res.Skipped),
		slog.Int("failed", res.Failed))
	return res, nil
}

// needsIndex applies the skip rules for an existing record.
func (m *Manager) needsIndex(ctx context.Context, path string, opts AddOptions) (bool, error) {
	has, err := m.store.Has(ctx, path)
	if err != nil {
		return false, err
	}
	if !has {
		return true, nil
	}
	if opts.Update {
		return true, nil
	}
	if opts.CheckModified {
		info, err := os.Stat(path)
		if err != nil {
			return false, err
		}
		current := info.ModTime().UnixMilli()
		stored, ok, err := m.store.MTime(ctx, path)
		if err != nil {
			return false, err
		}
		if !ok || stored == 0 || absDiff(stored, current) > mtimeToleranceMS {
			return true, nil
		}
		return false, nil
	}
	return !opts.SkipExisting, nil
}

// indexFile indexes one file, honoring the skip rules. Returns whether a
// write happened.
func (m *Manager) indexFile(ctx context.Context, path string, opts AddOptions) (bool, error) {
	need, err := m.needsIndex(ctx, path, opts)
	if err != nil {
		return false, err
	}
	if !need {
		m.logger.Debug("file_unchanged", slog.String("path", path))
		return false, nil
	}

	doc, err := m.buildFromFile(ctx, path, opts.Tags)
	if err != nil {
		return false, err
	}
	if err := m.store.Insert(ctx, doc); err != nil {
		return false, err
	}
	m.cache.Remove(path)
	return true, nil
}

// buildFromFile reads, converts, and parses one file into a record.
func (m *Manager) buildFromFile(ctx context.Context, path string, tags []string) (*document.Document, error) {
	conv := m.converters.For(path)
	if conv == nil {
		return nil, serr.UnsupportedFormat(path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, serr.InputNotFound(path, err)
	}
	md, err := conv.Convert(ctx, raw)
	if err != nil {
		return nil, serr.ConverterFailed(path, err)
	}

	var mtime int64
	if info, err := os.Stat(path); err == nil {
		mtime = info.ModTime().UnixMilli()
	}

	return m.buildDocument(path, md, tags, mtime), nil
}

// buildDocument projects Markdown text into a full record.
func (m *Manager) buildDocument(path, md string, tags []string, mtime int64) *document.Document {
	res := m.parser.Parse([]byte(md))

	doc := &document.Document{
		Path:      path,
		Title:     res.Title,
		Headings:  res.Headings,
		Body:      md,
		Structure: res.Structure,
		Sections:  res.Sections,
		Tags:      append([]string(nil), tags...),
		MTime:     mtime,
	}
	doc.TitleNorm = normalizer.Normalize(res.Title)
	for i := range res.Headings {
		doc.HeadingsNorm[i] = normalizer.Normalize(res.Headings[i])
	}
	doc.BodyNorm = normalizer.NormalizeMasked(md, res.BodyMasks())

	if m.detector != nil {
		if code, ok := m.detector.Detect(md); ok {
			doc.Tags = appendUnique(doc.Tags, code)
		}
	}
	return doc
}

// AddBytes indexes an in-memory Markdown buffer under a fresh buffer://
// identity and returns that identity.
func (m *Manager) AddBytes(ctx context.Context, content []byte, opts AddOptions) (string, error) {
	path := BufferScheme + uuid.NewString()
	doc := m.buildDocument(path, string(content), opts.Tags, 0)
	if err := m.store.Insert(ctx, doc); err != nil {
		return "", err
	}
	return path, nil
}

// SearchOptions controls one query.
type SearchOptions struct {
	// Limit caps returned documents (default 10).
	Limit int
	// MinScore keeps documents ranked at or better than this bm25 value.
	MinScore *float64
	// Tags restricts results to documents tagged with any of these;
	// untagged documents always pass.
	Tags []string
	// Snippets requests snippet extraction per matched document.
	Snippets bool
	// SnippetLength overrides the configured context window size.
	SnippetLength int
	// SnippetsPerDoc overrides the configured per-document snippet cap.
	SnippetsPerDoc int
	// Count requests the total match count before Limit.
	Count bool
}

// SearchResult is one query's outcome.
type SearchResult struct {
	Results []*search.Snippet `json:"results"`
	// TotalCount is the pre-limit match count, present when requested.
	TotalCount *int `json:"total_count,omitempty"`
	// TotalSnippets counts the snippets across all results.
	TotalSnippets int `json:"total_snippets"`
}

// Search rewrites and executes a query. With Snippets set, each matched
// document contributes its extracted snippets; otherwise one document-level
// result per match.
func (m *Manager) Search(ctx context.Context, q string, opts SearchOptions) (*SearchResult, error) {
	rewritten := query.Rewrite(q)
	m.logger.Debug("search",
		slog.String("query", q),
		slog.String("rewritten", rewritten))

	hits, total, err := m.store.Search(ctx, q, rewritten, store.SearchOptions{
		Limit:    opts.Limit,
		MinScore: opts.MinScore,
		Tags:     opts.Tags,
		Count:    opts.Count,
	})
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Results: []*search.Snippet{}, TotalCount: total}

	length := opts.SnippetLength
	if length <= 0 {
		length = m.cfg.Snippets.Length
	}
	perDoc := opts.SnippetsPerDoc
	if perDoc <= 0 {
		perDoc = m.cfg.Snippets.PerDocument
	}
	extractor := search.NewExtractor(length, perDoc)

	for _, hit := range hits {
		m.cache.Add(hit.Doc.Path, hit.Doc)
		if !opts.Snippets {
			sn := &search.Snippet{
				DocumentPath:  hit.Doc.Path,
				DocumentTitle: hit.Doc.Title,
				Tags:          hit.Doc.Tags,
				Rank:          hit.Rank,
			}
			sn.Bind(m)
			result.Results = append(result.Results, sn)
			continue
		}
		snippets := extractor.Extract(q, hit.Doc, hit.Rank, m)
		result.Results = append(result.Results, snippets...)
		result.TotalSnippets += len(snippets)
	}

	return result, nil
}

// GetOptions selects a body window on Get.
type GetOptions struct {
	// Position is the byte offset the window starts at.
	Position int
	// Length is the window size (default 5000).
	Length int
}

// Get returns the full stored record for path, or nil when unknown. With
// opts, the body is windowed to [Position, Position+Length).
func (m *Manager) Get(ctx context.Context, path string, opts *GetOptions) (*document.Document, error) {
	doc, err := m.store.Get(ctx, path)
	if err != nil || doc == nil {
		return nil, err
	}
	m.cache.Add(path, doc)

	if opts != nil {
		length := opts.Length
		if length <= 0 {
			length = 5000
		}
		start := clamp(opts.Position, 0, len(doc.Body))
		end := clamp(opts.Position+length, start, len(doc.Body))
		windowed := *doc
		windowed.Body = doc.Body[start:end]
		return &windowed, nil
	}
	return doc, nil
}

// GetMultiple returns all records whose path matches the glob pattern.
func (m *Manager) GetMultiple(ctx context.Context, pattern string) ([]*document.Document, error) {
	return m.store.GetGlob(ctx, pattern)
}

// GetHeadingByID returns the full section view for one heading id, or nil
// when either the document or the id is unknown.
func (m *Manager) GetHeadingByID(ctx context.Context, path, headingID string) (*search.SectionDetails, error) {
	doc, err := m.Get(ctx, path, nil)
	if err != nil || doc == nil {
		return nil, err
	}
	sec := doc.Section(headingID)
	if sec == nil {
		return nil, nil
	}
	return search.Details(doc, sec), nil
}

// HasDocument reports whether path is indexed.
func (m *Manager) HasDocument(ctx context.Context, path string) (bool, error) {
	return m.store.Has(ctx, path)
}

// RemoveDocument deletes one record by path.
func (m *Manager) RemoveDocument(ctx context.Context, path string) error {
	m.cache.Remove(path)
	return m.store.Delete(ctx, path)
}

// RemoveByTag deletes every record carrying tag; returns how many.
func (m *Manager) RemoveByTag(ctx context.Context, tag string) (int, error) {
	m.cache.Purge()
	return m.store.DeleteByTag(ctx, tag)
}

// Clear deletes every record.
func (m *Manager) Clear(ctx context.Context) error {
	m.cache.Purge()
	return m.store.Clear(ctx)
}

// Stats describes the index, optionally counting one tag's documents.
type Stats struct {
	DocumentCount int    `json:"document_count"`
	Path          string `json:"path,omitempty"`
	SizeBytes     int64  `json:"size_bytes,omitempty"`
	// TagCount is the number of documents carrying the requested tag.
	TagCount *int `json:"tag_count,omitempty"`
}

// GetStats returns index statistics.
func (m *Manager) GetStats(ctx context.Context, tag string) (*Stats, error) {
	st, err := m.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	out := &Stats{
		DocumentCount: st.DocumentCount,
		Path:          st.Path,
		SizeBytes:     st.SizeBytes,
	}
	if tag != "" {
		n, err := m.store.Count(ctx, tag)
		if err != nil {
			return nil, err
		}
		out.TagCount = &n
	}
	return out, nil
}

// Close releases the store. Idempotent.
func (m *Manager) Close() error {
	return m.store.Close()
}

// Record implements search.Resolver with the LRU record cache.
func (m *Manager) Record(path string) (*document.Document, error) {
	if doc, ok := m.cache.Get(path); ok {
		return doc, nil
	}
	doc, err := m.store.Get(context.Background(), path)
	if err != nil || doc == nil {
		return nil, err
	}
	m.cache.Add(path, doc)
	return doc, nil
}

// Extensions returns the file extensions the registered converters accept.
func (m *Manager) Extensions() []string {
	return m.converters.Extensions()
}

func absDiff(a, b int64) int64 {
	if a > b {
		return a - b
	}
	return b - a
}

func appendUnique(tags []string, tag string) []string {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return tags
		}
	}
	return append(tags, tag)
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

var _ search.Resolver = (*Manager)(nil)
