// Package docs supplies the document list merged into the office projection.
package docs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gosuda/officewatch/internal/projection"
)

// Scanner lists the project documents shown on the dashboard.
type Scanner interface {
	Scan(projectDir string) ([]projection.Document, error)
}

// FSScanner scans a subdirectory of the project for markdown documents.
type FSScanner struct {
	// Subdir is the directory under the project root to scan, "docs" by
	// default. An absent directory yields an empty list, not an error.
	Subdir string
}

// Scan implements Scanner. Results are sorted by name for stable output.
func (s *FSScanner) Scan(projectDir string) ([]projection.Document, error) {
	if projectDir == "" {
		return nil, nil
	}

	subdir := s.Subdir
	if subdir == "" {
		subdir = "docs"
	}
	dir := filepath.Join(projectDir, subdir)

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("docs.FSScanner.Scan: %w", err)
	}

	var out []projection.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(strings.ToLower(entry.Name()), ".md") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		out = append(out, projection.Document{
			Name:       entry.Name(),
			Path:       filepath.Join(dir, entry.Name()),
			ModifiedAt: info.ModTime().UnixMilli(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
