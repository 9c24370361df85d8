package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"calibboard/internal"
)

// SourcesFromPaths reads each file into a Source named after its base name.
func SourcesFromPaths(paths []string) ([]internal.Source, error) {
	out := make([]internal.Source, 0, len(paths))
	for _, p := range paths {
		blob, err := os.ReadFile(p) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		out = append(out, internal.Source{Name: filepath.Base(p), Content: blob})
	}
	return out, nil
}

// SupportedFiles lists visible regular files in dir that the registry can decode,
// sorted by name so load order is stable.
func SupportedFiles(dir string, registry *Registry) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		// Office lock files share the extension of the workbook they guard.
		if !e.Type().IsRegular() || strings.HasPrefix(name, "~$") || strings.HasPrefix(name, ".") {
			continue
		}
		if !registry.Accepts(name) {
			continue
		}
		out = append(out, filepath.Join(dir, name))
	}
	sort.Strings(out)
	return out, nil
}
