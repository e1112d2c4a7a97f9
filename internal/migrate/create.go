package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var nameSanitizeRe = regexp.MustCompile(`[^a-z0-9]+`)

// CreateFiles writes an empty migration stub for each dialect under baseDir,
// numbered one past the highest version already on disk. Returns the paths
// written.
func CreateFiles(baseDir, name string) ([]string, error) {
	slug := strings.Trim(nameSanitizeRe.ReplaceAllString(strings.ToLower(name), "_"), "_")
	if slug == "" {
		return nil, fmt.Errorf("migration name %q is empty after sanitizing", name)
	}

	next := 1
	for _, dialect := range []string{"sqlite", "postgres"} {
		entries, err := os.ReadDir(filepath.Join(baseDir, dialect))
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		for _, e := range entries {
			m := filenameRe.FindStringSubmatch(e.Name())
			if m == nil {
				continue
			}
			if v, err := strconv.Atoi(m[1]); err == nil && v >= next {
				next = v + 1
			}
		}
	}

	filename := fmt.Sprintf("%03d_%s.sql", next, slug)
	stub := fmt.Sprintf("-- %s\n-- Statements must be separated by semicolons.\n", filename)

	var paths []string
	for _, dialect := range []string{"sqlite", "postgres"} {
		dir := filepath.Join(baseDir, dialect)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
		path := filepath.Join(dir, filename)
		if err := os.WriteFile(path, []byte(stub), 0o644); err != nil {
			return nil, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
