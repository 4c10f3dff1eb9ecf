package absolutify

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// CollectDocuments expands root into the list of markdown documents to
// process. A regular file is returned as-is; a directory is scanned with
// the glob pattern. Files whose name contains exclude are dropped, which
// keeps previously generated output files out of later runs.
func CollectDocuments(root, pattern, exclude string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", root, err)
	}
	if !info.IsDir() {
		return []string{root}, nil
	}

	matches, err := doublestar.Glob(os.DirFS(root), pattern, doublestar.WithNoFollow())
	if err != nil {
		return nil, fmt.Errorf("glob pattern '%s': %w", pattern, err)
	}

	var files []string
	for _, match := range matches {
		if exclude != "" && strings.Contains(filepath.Base(match), exclude) {
			continue
		}
		files = append(files, filepath.Join(root, match))
	}
	sort.Strings(files)
	return files, nil
}
