// Package catalog loads whole resources from YAML seed files and imports them
// through the content service.
package catalog

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is a seed together with where it came from.
type File struct {
	Path string
	Seed Seed
}

// Load reads every .yaml or .yml seed under rootDir, in path order. Files
// that do not parse, or that describe no resource, are skipped with a
// warning.
func Load(rootDir string) ([]File, error) {
	var files []File
	err := filepath.WalkDir(rootDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(path) {
			return nil
		}

		seed, err := LoadFile(path)
		if err != nil {
			slog.Warn("skipping invalid seed file", "path", path, "error", err)
			return nil
		}
		if seed.Resource.Title == "" {
			return nil
		}
		files = append(files, File{Path: path, Seed: seed})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading seeds from %s: %w", rootDir, err)
	}

	slices.SortFunc(files, func(a, b File) int { return strings.Compare(a.Path, b.Path) })
	slog.Info("seeds loaded", "dir", rootDir, "files", len(files))
	return files, nil
}

// LoadFile parses a single seed file.
func LoadFile(path string) (Seed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Seed{}, err
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return Seed{}, fmt.Errorf("parsing %s: %w", path, err)
	}
	return seed, nil
}

func isYAML(path string) bool {
	return strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml")
}
