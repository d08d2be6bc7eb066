package scanner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func names(paths []string, root string) []string {
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		rel, _ := filepath.Rel(root, p)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

func TestScan_FiltersByExtension(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.md")
	write(t, dir, "b.txt")
	write(t, dir, "c.png")

	paths, err := New().Scan(dir, Options{Recursive: true, Extensions: []string{"md", "txt"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.md", "b.txt"}, names(paths, dir))
}

func TestScan_ExcludesDirectoriesAtAnyDepth(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "keep.md")
	write(t, dir, "node_modules/skip.md")
	write(t, dir, "deep/node_modules/also.md")
	write(t, dir, "deep/fine.md")

	paths, err := New().Scan(dir, Options{
		Recursive:  true,
		Exclude:    []string{"node_modules"},
		Extensions: []string{"md"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"keep.md", "deep/fine.md"}, names(paths, dir))
}

func TestScan_ExcludeGlobOnFiles(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "keep.md")
	write(t, dir, "draft-notes.md")

	paths, err := New().Scan(dir, Options{
		Recursive:  true,
		Exclude:    []string{"draft-*"},
		Extensions: []string{"md"},
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"keep.md"}, names(paths, dir))
}

func TestScan_NonRecursiveStaysAtTopLevel(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "top.md")
	write(t, dir, "sub/nested.md")

	paths, err := New().Scan(dir, Options{Recursive: false, Extensions: []string{"md"}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"top.md"}, names(paths, dir))
}

func TestScan_MissingRootFails(t *testing.T) {
	_, err := New().Scan("/does/not/exist", Options{Extensions: []string{"md"}})
	assert.Error(t, err)
}

func TestScan_FileRootFails(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "a.md")
	_, err := New().Scan(filepath.Join(dir, "a.md"), Options{Extensions: []string{"md"}})
	assert.Error(t, err)
}
