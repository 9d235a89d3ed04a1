package docs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/officewatch/internal/docs"
)

func TestScan(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	dir := filepath.Join(project, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))

	for _, name := range []string{"zeta.md", "alpha.md", "README.MD", "notes.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	scanner := &docs.FSScanner{}
	out, err := scanner.Scan(project)
	require.NoError(t, err)

	// Markdown only, case-insensitive extension, directories skipped, sorted.
	require.Len(t, out, 3)
	assert.Equal(t, "README.MD", out[0].Name)
	assert.Equal(t, "alpha.md", out[1].Name)
	assert.Equal(t, "zeta.md", out[2].Name)
	assert.Equal(t, filepath.Join(dir, "alpha.md"), out[1].Path)
	assert.Positive(t, out[0].ModifiedAt)
}

func TestScanAbsentDir(t *testing.T) {
	t.Parallel()

	scanner := &docs.FSScanner{}
	out, err := scanner.Scan(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestScanEmptyProjectDir(t *testing.T) {
	t.Parallel()

	scanner := &docs.FSScanner{}
	out, err := scanner.Scan("")
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestScanCustomSubdir(t *testing.T) {
	t.Parallel()

	project := t.TempDir()
	dir := filepath.Join(project, "plans")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plan.md"), []byte("x"), 0o644))

	scanner := &docs.FSScanner{Subdir: "plans"}
	out, err := scanner.Scan(project)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "plan.md", out[0].Name)
}
