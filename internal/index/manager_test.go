package index

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/searchmix/searchmix/internal/config"
	"github.com/searchmix/searchmix/internal/document"
	serr "github.com/searchmix/searchmix/internal/errors"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	cfg := config.Default()
	cfg.DBPath = ":memory:"
	m, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = m.Close() })
	return m
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestManager_AddFileAndSearch(t *testing.T) {
	// Given: an indexed file with an accented title
	m := newTestManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "viaje.md", "# Viaje al Mediterráneo\n\nEl barco zarpó al amanecer.\n")

	res, err := m.Add(ctx, path, DefaultAddOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, res.Indexed)

	// When: searching the folded form
	out, err := m.Search(ctx, "mediterraneo", SearchOptions{Snippets: true, Count: true})
	require.NoError(t, err)

	// Then: one document, one title snippet with the accent preserved
	require.NotNil(t, out.TotalCount)
	assert.Equal(t, 1, *out.TotalCount)
	require.Len(t, out.Results, 1)
	sn := out.Results[0]
	assert.Equal(t, document.FieldTitle, sn.SectionType)
	assert.Contains(t, sn.Text, "Mediterráneo")
}

func TestManager_SecondAddSkipsUnchangedFile(t *testing.T) {
	// Given: a file indexed once
	m := newTestManager(t)
	ctx := context.Background()
	path := writeFile(t, t.TempDir(), "a.md", "# Uno\n\ncontenido\n")

	first, err := m.Add(ctx, path, DefaultAddOptions())
	require.NoError(t, err)
	assert.Equal(t, 1, first.Indexed)

	// When: added again with no modification
	second, err := m.Add(ctx, path, DefaultAddOptions())
	require.NoError(t, err)

	// Then: the second call writes nothing
	assert.Equal(t, 0, second.Indexed)
	assert.Equal(t, 1, second.Skipped)

	has, err := m.HasDocument(ctx, path)
	require.NoError(t, err)
	assert.True(t, has)
}

func TestManager_UpdateForcesReindex(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := writeFile(t, dir, "a.md", "# Old Title\n\nbody\n")

	_, err := m.Add(ctx, path, DefaultAddOptions())
	require.NoError(t, err)

	writeFile(t, dir, "a.md", "# Fresh Title\n\nbody\n")
	opts := DefaultAddOptions()
	opts.Update = true
	res, err := m.Add(ctx, path, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Indexed)

	doc, err := m.Get(ctx, path, nil)
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, "Fresh Title", doc.Title)
}

func TestManager_FieldRestrictionSelectsByColumn(t *testing.T) {
	// Given: alpha in D1's body and in D2's title
	m := newTestManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	d1 := writeFile(t, dir, "d1.md", "# something\n\nalpha beta\n")
	d2 := writeFile(t, dir, "d2.md", "# alpha\n\ngamma\n")

	for _, p := range []string{d1, d2} {
		_, err := m.Add(ctx, p, DefaultAddOptions())
		require.NoError(t, err)
	}

	// When: restricting the query to the title field
	out, err := m.Search(ctx, "title:alpha", SearchOptions{Snippets: true})
	require.NoError(t, err)

	// Then: exactly D2 is returned
	require.NotEmpty(t, out.Results)
	for _, sn := range out.Results {
		assert.Equal(t, d2, sn.DocumentPath)
	}
}

func TestManager_TagFilterKeepsUntaggedDocuments(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	dir := t.TempDir()

	u := writeFile(t, dir, "u.md", "# tema común\n\nnada\n")
	a := writeFile(t, dir, "a.md", "# tema común\n\nnada\n")
	b := writeFile(t, dir, "b.md", "# tema común\n\nnada\n")

	_, err := m.Add(ctx, u, DefaultAddOptions())
	require.NoError(t, err)
	optsX := DefaultAddOptions()
	optsX.Tags = []string{"x"}
	_, err = m.Add(ctx, a, optsX)
	require.NoError(t, err)
	optsY := DefaultAddOptions()
	optsY.Tags = []string{"y"}
	_, err = m.Add(ctx, b, optsY)
	require.NoError(t, err)

	out, err := m.Search(ctx, "tema", SearchOptions{Tags: []string{"x"}})
	require.NoError(t, err)

	paths := map[string]bool{}
	for _, sn := range out.Results {
		paths[sn.DocumentPath] = true
	}
	assert.True(t, paths[u])
	assert.True(t, paths[a])
	assert.False(t, paths[b])
}

func TestManager_AddDirectoryWithExcludes(t *testing.T) {
	// Given: a tree with excluded directories and unsupported files
	m := newTestManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "keep.md", "# Keep\n\nkept content\n")
	writeFile(t, dir, "sub/also.md", "# Also\n\nmore content\n")
	writeFile(t, dir, "node_modules/skip.md", "# Skip\n\nignored\n")
	writeFile(t, dir, "image.png", "not really an image")

	res, err := m.Add(ctx, dir, DefaultAddOptions())
	require.NoError(t, err)

	// Then: only the two markdown files are indexed
	assert.Equal(t, 2, res.Indexed)
	assert.Equal(t, 0, res.Failed)

	stats, err := m.GetStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)
}

func TestManager_AddMissingInputFails(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Add(context.Background(), "/does/not/exist", DefaultAddOptions())
	require.Error(t, err)
	assert.True(t, serr.HasCode(err, serr.ErrCodeInputNotFound))
}

func TestManager_AddUnsupportedSingleFileFails(t *testing.T) {
	m := newTestManager(t)
	path := writeFile(t, t.TempDir(), "binary.png", "data")
	_, err := m.Add(context.Background(), path, DefaultAddOptions())
	require.Error(t, err)
	assert.True(t, serr.HasCode(err, serr.ErrCodeUnsupportedFormat))
}

func TestManager_DirectoryAddSkipsFailedConversions(t *testing.T) {
	// Given: an SRT file with no usable text next to a good file
	m := newTestManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	writeFile(t, dir, "good.md", "# Good\n\nfine\n")
	writeFile(t, dir, "broken.srt", "1\n00:00:01,000 --> 00:00:02,000\n")

	res, err := m.Add(ctx, dir, DefaultAddOptions())
	require.NoError(t, err)

	assert.Equal(t, 1, res.Indexed)
	assert.Equal(t, 1, res.Failed)
}

func TestManager_AddBytesUsesBufferScheme(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	path, err := m.AddBytes(ctx, []byte("# Buffered\n\nin memory content\n"), AddOptions{})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(path, BufferScheme))

	// Two buffers never collide.
	other, err := m.AddBytes(ctx, []byte("# Another\n\nbuffer\n"), AddOptions{})
	require.NoError(t, err)
	assert.NotEqual(t, path, other)

	out, err := m.Search(ctx, "buffered", SearchOptions{Snippets: true})
	require.NoError(t, err)
	require.NotEmpty(t, out.Results)
	assert.Equal(t, path, out.Results[0].DocumentPath)
}

func TestManager_GetWindowsBody(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	body := "# T\n\n" + strings.Repeat("0123456789", 20)
	path, err := m.AddBytes(ctx, []byte(body), AddOptions{})
	require.NoError(t, err)

	doc, err := m.Get(ctx, path, &GetOptions{Position: 6, Length: 10})
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, body[6:16], doc.Body)

	// And: the full record is untouched by windowing
	full, err := m.Get(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, body, full.Body)
}

func TestManager_GetUnknownPathReturnsNil(t *testing.T) {
	m := newTestManager(t)
	doc, err := m.Get(context.Background(), "/missing.md", nil)
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestManager_GetMultipleByGlob(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.md", "# A\n\nx\n")
	writeFile(t, dir, "b.txt", "plain text here\n")

	_, err := m.Add(ctx, dir, DefaultAddOptions())
	require.NoError(t, err)

	docs, err := m.GetMultiple(ctx, filepath.Join(dir, "*.md"))
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, a, docs[0].Path)
}

func TestManager_GetHeadingByID(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	path, err := m.AddBytes(ctx, []byte("# Root\n\n## Inner\n\nparagraph here\n"), AddOptions{})
	require.NoError(t, err)

	doc, err := m.Get(ctx, path, nil)
	require.NoError(t, err)
	require.NotNil(t, doc)

	var innerID string
	for id, sec := range doc.Sections {
		if sec.Text == "Inner" {
			innerID = id
		}
	}
	require.NotEmpty(t, innerID)

	details, err := m.GetHeadingByID(ctx, path, innerID)
	require.NoError(t, err)
	require.NotNil(t, details)
	assert.Equal(t, "Inner", details.Text)
	assert.Equal(t, 1, details.ContentCount)
	require.NotNil(t, details.Parent)
	assert.Equal(t, "Root", details.Parent.Text)

	// Unknown ids return nil without error.
	missing, err := m.GetHeadingByID(ctx, path, "s999")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestManager_RemoveByTagAndClear(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	opts := AddOptions{Tags: []string{"drafts"}}
	_, err := m.AddBytes(ctx, []byte("# D1\n\nx\n"), opts)
	require.NoError(t, err)
	_, err = m.AddBytes(ctx, []byte("# D2\n\nx\n"), opts)
	require.NoError(t, err)
	keep, err := m.AddBytes(ctx, []byte("# K\n\nx\n"), AddOptions{Tags: []string{"final"}})
	require.NoError(t, err)

	n, err := m.RemoveByTag(ctx, "drafts")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	has, err := m.HasDocument(ctx, keep)
	require.NoError(t, err)
	assert.True(t, has)

	require.NoError(t, m.Clear(ctx))
	stats, err := m.GetStats(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)
}

func TestManager_RemoveDocument(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	path, err := m.AddBytes(ctx, []byte("# Gone\n\nsoon\n"), AddOptions{})
	require.NoError(t, err)

	require.NoError(t, m.RemoveDocument(ctx, path))
	has, err := m.HasDocument(ctx, path)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestManager_SearchEmptyIndex(t *testing.T) {
	m := newTestManager(t)
	out, err := m.Search(context.Background(), "anything", SearchOptions{Count: true, Snippets: true})
	require.NoError(t, err)
	assert.Empty(t, out.Results)
	require.NotNil(t, out.TotalCount)
	assert.Equal(t, 0, *out.TotalCount)
	assert.Equal(t, 0, out.TotalSnippets)
}

func TestManager_SearchInvalidQuery(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	_, err := m.AddBytes(ctx, []byte("# A\n\nx\n"), AddOptions{})
	require.NoError(t, err)

	_, err = m.Search(ctx, "unknownfield:value", SearchOptions{})
	require.Error(t, err)
	assert.True(t, serr.HasCode(err, serr.ErrCodeQueryInvalid))
}

func TestManager_GetStatsWithTag(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	_, err := m.AddBytes(ctx, []byte("# A\n\nx\n"), AddOptions{Tags: []string{"x"}})
	require.NoError(t, err)
	_, err = m.AddBytes(ctx, []byte("# B\n\nx\n"), AddOptions{})
	require.NoError(t, err)

	stats, err := m.GetStats(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)
	require.NotNil(t, stats.TagCount)
	assert.Equal(t, 1, *stats.TagCount)
}

func TestManager_LanguageDetectorTagsDocuments(t *testing.T) {
	cfg := config.Default()
	cfg.DBPath = ":memory:"
	m, err := New(cfg, WithLanguageDetector(stubDetector{code: "es"}))
	require.NoError(t, err)
	defer func() { _ = m.Close() }()

	ctx := context.Background()
	path, err := m.AddBytes(ctx, []byte("# Hola\n\nbuenos días\n"), AddOptions{Tags: []string{"manual"}})
	require.NoError(t, err)

	doc, err := m.Get(ctx, path, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"manual", "es"}, doc.Tags)
}

type stubDetector struct{ code string }

func (d stubDetector) Detect(string) (string, bool) { return d.code, true }
