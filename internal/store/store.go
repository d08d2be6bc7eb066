// Package store persists document records in a single SQLite FTS5 virtual
// table and ranks queries with per-column weighted BM25. Raw field columns
// are stored UNINDEXED for retrieval; only the normalized columns are
// searchable. An auxiliary doc_paths table tracks identity and modification
// times for O(1) existence checks.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/searchmix/searchmix/internal/document"
	serr "github.com/searchmix/searchmix/internal/errors"
)

// Weights are the per-field BM25 weights applied at ranking time.
type Weights struct {
	Title float64 `yaml:"title" json:"title"`
	H1    float64 `yaml:"h1" json:"h1"`
	H2    float64 `yaml:"h2" json:"h2"`
	H3    float64 `yaml:"h3" json:"h3"`
	H4    float64 `yaml:"h4" json:"h4"`
	H5    float64 `yaml:"h5" json:"h5"`
	H6    float64 `yaml:"h6" json:"h6"`
	Body  float64 `yaml:"body" json:"body"`
}

// DefaultWeights returns the default field weighting: headings dominate
// body text, shallower headings dominate deeper ones.
func DefaultWeights() Weights {
	return Weights{Title: 10, H1: 9, H2: 7, H3: 5, H4: 3, H5: 2, H6: 1.5, Body: 1}
}

// Config configures the store.
type Config struct {
	Weights Weights
}

// SearchOptions are the storage-level query options.
type SearchOptions struct {
	// Limit caps the number of returned records.
	Limit int
	// MinScore keeps records whose rank is <= MinScore. FTS5 bm25() ranks
	// are negative with smaller meaning better, so this is an upper bound
	// on badness.
	MinScore *float64
	// Tags filters to records whose tag set intersects Tags. Untagged
	// records are treated as global and always pass the filter.
	Tags []string
	// Count requests the total number of matching records before Limit.
	Count bool
}

// Hit is one ranked record.
type Hit struct {
	Doc *document.Document
	// Rank is the raw weighted bm25() value: negative, smaller is better.
	Rank float64
}

// Stats describes the index.
type Stats struct {
	DocumentCount int
	SizeBytes     int64
	Path          string
}

// Store is the SQLite FTS5-backed document store.
// WAL mode allows concurrent readers while writes serialize on one
// connection.
type Store struct {
	mu      sync.RWMutex
	db      *sql.DB
	path    string
	weights Weights
	closed  bool
}

// column lists, in the FTS5 table's declaration order. bm25() weight
// positions follow this order exactly.
var rawColumns = []string{
	"path", "title", "h1", "h2", "h3", "h4", "h5", "h6", "body",
}

var normColumns = []string{
	"title_normalized", "h1_normalized", "h2_normalized", "h3_normalized",
	"h4_normalized", "h5_normalized", "h6_normalized", "body_normalized",
}

var blobColumns = []string{"collection", "structure", "sections_index", "mtime"}

// allColumns is the full select list for record hydration.
var allColumns = strings.Join(append(append(append([]string{}, rawColumns...), normColumns...), blobColumns...), ", ")

// validateIntegrity checks a SQLite file before opening. Returns nil when
// the file is absent (it will be created) or healthy.
func validateIntegrity(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return fmt.Errorf("cannot open for validation: %w", err)
	}
	defer db.Close()

	var result string
	if err := db.QueryRow("PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("database corrupted: %s", result)
	}

	var count int
	err = db.QueryRow(`SELECT COUNT(*) FROM sqlite_master
                       WHERE type='table' AND name='documents'`).Scan(&count)
	if err != nil {
		return fmt.Errorf("cannot query schema: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("FTS5 table 'documents' missing")
	}

	return nil
}

// New opens (or creates) a store at path. An empty path creates an
// in-memory store for testing.
func New(path string, cfg Config) (*Store, error) {
	if cfg.Weights == (Weights{}) {
		cfg.Weights = DefaultWeights()
	}

	var dsn string
	if path == "" {
		dsn = ":memory:"
	} else {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, serr.Storage(fmt.Sprintf("failed to create directory %s", dir), err)
		}

		if validErr := validateIntegrity(path); validErr != nil {
			slog.Warn("store_corrupted",
				slog.String("path", path),
				slog.String("error", validErr.Error()))

			// Auto-clear a corrupted index; it can always be rebuilt.
			if removeErr := os.Remove(path); removeErr != nil && !os.IsNotExist(removeErr) {
				return nil, serr.Storage(fmt.Sprintf("index corrupted at %s and cannot remove", path), removeErr)
			}
			_ = os.Remove(path + "-wal")
			_ = os.Remove(path + "-shm")

			slog.Info("store_cleared",
				slog.String("path", path),
				slog.String("reason", "corruption detected, please reindex"))
		}

		dsn = path + "?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, serr.Storage("failed to open database", err)
	}

	// Single writer prevents lock contention; WAL keeps readers unblocked.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// WAL mode must be set via PRAGMA for modernc.org/sqlite; DSN params
	// may be ignored.
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA cache_size = -65536",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, serr.Storage("failed to set pragma", err)
		}
	}

	s := &Store{
		db:      db,
		path:    path,
		weights: cfg.Weights,
	}

	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, serr.Storage("failed to initialize schema", err)
	}

	return s, nil
}

// initSchema creates the FTS5 virtual table and supporting tables.
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY
	);

	-- One row per document. Raw columns are stored for retrieval only;
	-- the *_normalized columns carry the searchable text.
	CREATE VIRTUAL TABLE IF NOT EXISTS documents USING fts5(
		path UNINDEXED,
		title UNINDEXED,
		h1 UNINDEXED,
		h2 UNINDEXED,
		h3 UNINDEXED,
		h4 UNINDEXED,
		h5 UNINDEXED,
		h6 UNINDEXED,
		body UNINDEXED,
		title_normalized,
		h1_normalized,
		h2_normalized,
		h3_normalized,
		h4_normalized,
		h5_normalized,
		h6_normalized,
		body_normalized,
		collection UNINDEXED,
		structure UNINDEXED,
		sections_index UNINDEXED,
		mtime UNINDEXED,
		tokenize='unicode61'
	);

	-- Identity and mtime lookups without scanning the virtual table.
	CREATE TABLE IF NOT EXISTS doc_paths (
		path TEXT PRIMARY KEY,
		mtime INTEGER NOT NULL DEFAULT 0
	);

	INSERT OR IGNORE INTO schema_version (version) VALUES (1);
	`

	_, err := s.db.Exec(schema)
	return err
}

// bm25Expr builds the weighted rank expression. Weight positions mirror the
// table's column order; unindexed columns get weight 0.
func (s *Store) bm25Expr() string {
	w := s.weights
	weights := make([]string, 0, len(rawColumns)+len(normColumns)+len(blobColumns))
	for range rawColumns {
		weights = append(weights, "0")
	}
	for _, fw := range []float64{w.Title, w.H1, w.H2, w.H3, w.H4, w.H5, w.H6, w.Body} {
		weights = append(weights, fmt.Sprintf("%g", fw))
	}
	for range blobColumns {
		weights = append(weights, "0")
	}
	return "bm25(documents, " + strings.Join(weights, ", ") + ")"
}

// tagFilter builds the tag predicate: records pass when untagged or when
// any of their tags is in the requested set.
func tagFilter(tags []string) (string, []any) {
	if len(tags) == 0 {
		return "", nil
	}
	placeholders := make([]string, len(tags))
	args := make([]any, len(tags))
	for i, t := range tags {
		placeholders[i] = "?"
		args[i] = t
	}
	cond := `(collection IS NULL OR collection = '' OR collection = '[]'
		OR EXISTS (SELECT 1 FROM json_each(collection) WHERE json_each.value IN (` +
		strings.Join(placeholders, ",") + `)))`
	return cond, args
}

// Insert stores doc, replacing any existing record with the same path.
// Delete and insert run in one transaction so re-indexing is atomic.
func (s *Store) Insert(ctx context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return serr.Storage("store is closed", nil)
	}

	tags := doc.Tags
	if tags == nil {
		// Untagged documents must persist as the empty array the tag
		// filter recognizes, never as JSON null.
		tags = []string{}
	}
	tagsJSON, err := json.Marshal(tags)
	if err != nil {
		return serr.Storage("failed to encode tags", err)
	}
	structureJSON, err := doc.MarshalStructure()
	if err != nil {
		return serr.Storage("failed to encode structure", err)
	}
	sectionsJSON, err := doc.MarshalSections()
	if err != nil {
		return serr.Storage("failed to encode sections index", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return serr.Storage("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	// FTS5 virtual tables don't support REPLACE; delete first.
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE path = ?`, doc.Path); err != nil {
		return serr.Storage("failed to delete existing document", err)
	}

	insert := `INSERT INTO documents (` + allColumns + `) VALUES (` +
		strings.TrimSuffix(strings.Repeat("?, ", len(rawColumns)+len(normColumns)+len(blobColumns)), ", ") + `)`
	args := []any{
		doc.Path, doc.Title,
		doc.Headings[0], doc.Headings[1], doc.Headings[2],
		doc.Headings[3], doc.Headings[4], doc.Headings[5],
		doc.Body,
		doc.TitleNorm,
		doc.HeadingsNorm[0], doc.HeadingsNorm[1], doc.HeadingsNorm[2],
		doc.HeadingsNorm[3], doc.HeadingsNorm[4], doc.HeadingsNorm[5],
		doc.BodyNorm,
		string(tagsJSON), string(structureJSON), string(sectionsJSON),
		doc.MTime,
	}
	if _, err := tx.ExecContext(ctx, insert, args...); err != nil {
		return serr.Storage("failed to insert document", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO doc_paths (path, mtime) VALUES (?, ?)`,
		doc.Path, doc.MTime); err != nil {
		return serr.Storage("failed to track document path", err)
	}

	if err := tx.Commit(); err != nil {
		return serr.Storage("failed to commit insert", err)
	}
	return nil
}

// Search runs the rewritten internal query and returns ranked hits.
// The second return value is the pre-limit match count when opts.Count is
// set, nil otherwise.
func (s *Store) Search(ctx context.Context, original, rewritten string, opts SearchOptions) ([]*Hit, *int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, nil, serr.Storage("store is closed", nil)
	}
	if strings.TrimSpace(rewritten) == "" {
		return []*Hit{}, zeroIfCounting(opts.Count), nil
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 10
	}

	cond := "1=1"
	var condArgs []any
	if opts.MinScore != nil {
		cond += " AND score <= ?"
		condArgs = append(condArgs, *opts.MinScore)
	}
	if tagCond, tagArgs := tagFilter(opts.Tags); tagCond != "" {
		cond += " AND " + tagCond
		condArgs = append(condArgs, tagArgs...)
	}

	inner := `SELECT ` + allColumns + `, ` + s.bm25Expr() + ` AS score
		FROM documents WHERE documents MATCH ?`

	querySQL := `SELECT ` + allColumns + `, score FROM (` + inner + `) WHERE ` + cond +
		` ORDER BY score LIMIT ?`
	queryArgs := append(append([]any{rewritten}, condArgs...), limit)

	rows, err := s.db.QueryContext(ctx, querySQL, queryArgs...)
	if err != nil {
		if isQuerySyntaxError(err) {
			return nil, nil, serr.QueryInvalid(original, rewritten, err)
		}
		return nil, nil, serr.Storage("search failed", err)
	}
	defer rows.Close()

	var hits []*Hit
	for rows.Next() {
		doc, rank, err := scanHit(rows)
		if err != nil {
			return nil, nil, serr.Storage("failed to scan result", err)
		}
		hits = append(hits, &Hit{Doc: doc, Rank: rank})
	}
	if err := rows.Err(); err != nil {
		return nil, nil, serr.Storage("failed reading results", err)
	}

	var total *int
	if opts.Count {
		countSQL := `SELECT COUNT(*) FROM (` + inner + `) WHERE ` + cond
		countArgs := append([]any{rewritten}, condArgs...)
		var n int
		if err := s.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&n); err != nil {
			if isQuerySyntaxError(err) {
				return nil, nil, serr.QueryInvalid(original, rewritten, err)
			}
			return nil, nil, serr.Storage("count failed", err)
		}
		total = &n
	}

	if hits == nil {
		hits = []*Hit{}
	}
	return hits, total, nil
}

func zeroIfCounting(count bool) *int {
	if !count {
		return nil
	}
	zero := 0
	return &zero
}

// isQuerySyntaxError recognizes FTS5 MATCH parse failures, including
// references to unknown columns from unrecognized field prefixes.
func isQuerySyntaxError(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "fts5") ||
		strings.Contains(msg, "syntax error") ||
		strings.Contains(msg, "no such column")
}

// Get returns the record for path, or nil when absent.
func (s *Store) Get(ctx context.Context, path string) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, serr.Storage("store is closed", nil)
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT `+allColumns+` FROM documents WHERE path = ? LIMIT 1`, path)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, serr.Storage("failed to load document", err)
	}
	return doc, nil
}

// GetGlob returns all records whose path matches the SQLite GLOB pattern,
// ordered by path.
func (s *Store) GetGlob(ctx context.Context, pattern string) ([]*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, serr.Storage("store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+allColumns+` FROM documents WHERE path GLOB ? ORDER BY path`, pattern)
	if err != nil {
		return nil, serr.Storage("glob query failed", err)
	}
	defer rows.Close()

	var docs []*document.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, serr.Storage("failed to scan document", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Has reports whether a record exists for path.
func (s *Store) Has(ctx context.Context, path string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false, serr.Storage("store is closed", nil)
	}

	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM doc_paths WHERE path = ?`, path).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, serr.Storage("existence check failed", err)
	}
	return true, nil
}

// MTime returns the stored modification time for path in milliseconds.
// ok is false when the path is unknown.
func (s *Store) MTime(ctx context.Context, path string) (mtime int64, ok bool, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, false, serr.Storage("store is closed", nil)
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT mtime FROM doc_paths WHERE path = ?`, path).Scan(&mtime)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, serr.Storage("mtime lookup failed", err)
	}
	return mtime, true, nil
}

// Delete removes the record for path. Removing an unknown path is a no-op.
func (s *Store) Delete(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return serr.Storage("store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return serr.Storage("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path); err != nil {
		return serr.Storage("failed to delete document", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM doc_paths WHERE path = ?`, path); err != nil {
		return serr.Storage("failed to delete path record", err)
	}

	if err := tx.Commit(); err != nil {
		return serr.Storage("failed to commit delete", err)
	}
	return nil
}

// DeleteByTag removes every record carrying tag and returns how many were
// removed.
func (s *Store) DeleteByTag(ctx context.Context, tag string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, serr.Storage("store is closed", nil)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT path FROM documents
		 WHERE EXISTS (SELECT 1 FROM json_each(collection) WHERE json_each.value = ?)`, tag)
	if err != nil {
		return 0, serr.Storage("tag lookup failed", err)
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			_ = rows.Close()
			return 0, serr.Storage("failed to scan path", err)
		}
		paths = append(paths, p)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return 0, serr.Storage("tag lookup failed", err)
	}
	_ = rows.Close()

	if len(paths) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, serr.Storage("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range paths {
		if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, p); err != nil {
			return 0, serr.Storage("failed to delete document", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM doc_paths WHERE path = ?`, p); err != nil {
			return 0, serr.Storage("failed to delete path record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, serr.Storage("failed to commit delete", err)
	}
	return len(paths), nil
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return serr.Storage("store is closed", nil)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return serr.Storage("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents`); err != nil {
		return serr.Storage("failed to clear documents", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM doc_paths`); err != nil {
		return serr.Storage("failed to clear path records", err)
	}

	if err := tx.Commit(); err != nil {
		return serr.Storage("failed to commit clear", err)
	}
	return nil
}

// Count returns the number of stored records, optionally restricted to one
// tag.
func (s *Store) Count(ctx context.Context, tag string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, serr.Storage("store is closed", nil)
	}

	var n int
	var err error
	if tag == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM doc_paths`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM documents
			 WHERE EXISTS (SELECT 1 FROM json_each(collection) WHERE json_each.value = ?)`, tag).Scan(&n)
	}
	if err != nil {
		return 0, serr.Storage("count failed", err)
	}
	return n, nil
}

// Stats returns index statistics.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	count, err := s.Count(ctx, "")
	if err != nil {
		return nil, err
	}
	st := &Stats{DocumentCount: count, Path: s.path}
	if s.path != "" {
		if info, err := os.Stat(s.path); err == nil {
			st.SizeBytes = info.Size()
		}
	}
	return st, nil
}

// Close checkpoints and closes the store. Idempotent.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.db != nil {
		_, _ = s.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
		return s.db.Close()
	}
	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for record hydration.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*document.Document, error) {
	doc, _, err := scanInto(row, false)
	return doc, err
}

func scanHit(row rowScanner) (*document.Document, float64, error) {
	return scanInto(row, true)
}

func scanInto(row rowScanner, withScore bool) (*document.Document, float64, error) {
	var (
		doc                            document.Document
		tagsJSON, structure, sections  string
		score                          float64
	)
	dest := []any{
		&doc.Path, &doc.Title,
		&doc.Headings[0], &doc.Headings[1], &doc.Headings[2],
		&doc.Headings[3], &doc.Headings[4], &doc.Headings[5],
		&doc.Body,
		&doc.TitleNorm,
		&doc.HeadingsNorm[0], &doc.HeadingsNorm[1], &doc.HeadingsNorm[2],
		&doc.HeadingsNorm[3], &doc.HeadingsNorm[4], &doc.HeadingsNorm[5],
		&doc.BodyNorm,
		&tagsJSON, &structure, &sections,
		&doc.MTime,
	}
	if withScore {
		dest = append(dest, &score)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, 0, err
	}

	if tagsJSON != "" {
		if err := json.Unmarshal([]byte(tagsJSON), &doc.Tags); err != nil {
			return nil, 0, fmt.Errorf("failed to decode tags: %w", err)
		}
	}
	if err := doc.UnmarshalStructure([]byte(structure)); err != nil {
		return nil, 0, fmt.Errorf("failed to decode structure: %w", err)
	}
	if err := doc.UnmarshalSections([]byte(sections)); err != nil {
		return nil, 0, fmt.Errorf("failed to decode sections index: %w", err)
	}
	return &doc, score, nil
}
