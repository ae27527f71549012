package migration

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
)

// Load reads every {version}_{name}.{up|down}.sql file in dir of fsys and
// returns the migrations sorted by version. A version without an up file is an error;
// the down file is optional.
func Load(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory %s: %w", dir, err)
	}

	byVersion := make(map[string]*Migration)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		version, rest, ok := strings.Cut(entry.Name(), "_")
		if !ok {
			continue
		}

		name, found := strings.CutSuffix(rest, ".up.sql")
		if !found {
			if name, found = strings.CutSuffix(rest, ".down.sql"); !found {
				continue
			}
		}

		m, exists := byVersion[version]
		if !exists {
			byVersion[version] = &Migration{Version: version, Name: name}
			continue
		}
		if m.Name != name {
			return nil, fmt.Errorf("migration %s has mismatched names %q and %q", version, m.Name, name)
		}
	}

	for _, m := range byVersion {
		up, err := fs.ReadFile(fsys, path.Join(dir, FileName(m.Version, m.Name, "up")))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read up migration %s: %w", m.Version, err)
		}
		down, err := fs.ReadFile(fsys, path.Join(dir, FileName(m.Version, m.Name, "down")))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read down migration %s: %w", m.Version, err)
		}
		m.UpSQL, m.DownSQL = string(up), string(down)
	}

	migrations := make([]Migration, 0, len(byVersion))
	for _, m := range byVersion {
		if strings.TrimSpace(m.UpSQL) == "" {
			return nil, fmt.Errorf("migration %s_%s has no up SQL", m.Version, m.Name)
		}
		migrations = append(migrations, *m)
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return migrations, nil
}

// Statements splits migration SQL into individual statements.
// This is a simple implementation that splits on semicolons after dropping
// full-line comments; statements must not embed semicolons in literals.
func Statements(sql string) []string {
	lines := strings.Split(sql, "\n")
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		cleaned = append(cleaned, line)
	}

	var result []string
	for _, stmt := range strings.Split(strings.Join(cleaned, "\n"), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			result = append(result, stmt)
		}
	}

	return result
}
