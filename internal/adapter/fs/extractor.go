// Package fs reads bar chart exports from the local filesystem.
package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/couchcryptid/ebird-barchart/internal/domain"
)

// exportExt is the extension eBird gives bar chart downloads.
const exportExt = ".txt"

// Extractor implements pipeline.Extractor for files on disk.
type Extractor struct{}

// NewExtractor creates a filesystem extractor.
func NewExtractor() *Extractor { return &Extractor{} }

// Extract reads one export. The stem is the base name without its extension.
func (e *Extractor) Extract(ctx context.Context, path string) (domain.RawFile, error) {
	if err := ctx.Err(); err != nil {
		return domain.RawFile{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.RawFile{}, fmt.Errorf("read %s: %w", path, err)
	}
	return domain.RawFile{Path: path, Stem: Stem(path), Text: string(data)}, nil
}

// Stem returns the base name of path without its extension.
func Stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Expand resolves command-line arguments to export paths. Files are kept as
// given; directories are walked recursively for *.txt files. The result is
// sorted and free of duplicates.
func Expand(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), exportExt) {
				paths = append(paths, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", arg, err)
		}
	}
	slices.Sort(paths)
	return slices.Compact(paths), nil
}
