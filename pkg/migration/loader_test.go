package migration

import (
	"testing"
	"testing/fstest"

	"github.com/marshallshelly/cinema-seed/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_SortsAndPairs(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/20240201000000_add_index.up.sql":   {Data: []byte("CREATE INDEX a ON t (x);")},
		"pg/20240101000000_create.up.sql":      {Data: []byte("CREATE TABLE t (x INT);")},
		"pg/20240101000000_create.down.sql":    {Data: []byte("DROP TABLE t;")},
		"pg/README.md":                         {Data: []byte("ignored")},
		"pg/nounderscore.up.sql":               {Data: []byte("ignored")},
		"pg/20240301000000_other.sql":          {Data: []byte("ignored")},
		"pg/nested/20240401000000_skip.up.sql": {Data: []byte("ignored")},
	}

	got, err := Load(fsys, "pg")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "20240101000000", got[0].Version)
	assert.Equal(t, "create", got[0].Name)
	assert.Equal(t, "CREATE TABLE t (x INT);", got[0].UpSQL)
	assert.Equal(t, "DROP TABLE t;", got[0].DownSQL)

	assert.Equal(t, "20240201000000", got[1].Version)
	assert.Equal(t, "add_index", got[1].Name)
	assert.Equal(t, "CREATE INDEX a ON t (x);", got[1].UpSQL)
	assert.Empty(t, got[1].DownSQL)
}

func TestLoad_RequiresUpSQL(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/20240101000000_create.down.sql": {Data: []byte("DROP TABLE t;")},
	}

	_, err := Load(fsys, "pg")
	assert.ErrorContains(t, err, "has no up SQL")
}

func TestLoad_MismatchedNames(t *testing.T) {
	fsys := fstest.MapFS{
		"pg/20240101000000_create.up.sql":  {Data: []byte("CREATE TABLE t (x INT);")},
		"pg/20240101000000_other.down.sql": {Data: []byte("DROP TABLE t;")},
	}

	_, err := Load(fsys, "pg")
	assert.ErrorContains(t, err, "mismatched names")
}

func TestLoad_MissingDirectory(t *testing.T) {
	_, err := Load(fstest.MapFS{}, "nope")
	assert.Error(t, err)
}

func TestLoad_EmbeddedSchemas(t *testing.T) {
	for _, dir := range []string{migrations.Postgres, migrations.SQLite} {
		t.Run(dir, func(t *testing.T) {
			got, err := Load(migrations.FS, dir)
			require.NoError(t, err)
			require.NotEmpty(t, got)

			first := got[0]
			assert.Equal(t, "create_cinema_tables", first.Name)
			assert.NotEmpty(t, first.DownSQL)

			up := Statements(first.UpSQL)
			joined := ""
			for _, s := range up {
				joined += s + "\n"
			}
			for _, table := range []string{"users", "movie_details", "directors", "categories", "movies", "category_and_movies"} {
				assert.Contains(t, joined, "CREATE TABLE IF NOT EXISTS "+table+" ")
			}
			assert.Contains(t, joined, "ON DELETE SET NULL")
		})
	}
}

func TestStatements(t *testing.T) {
	sql := `
-- leading comment
CREATE TABLE a (id INT);

  -- indented comment
CREATE TABLE b (
    id INT
);
;
`
	got := Statements(sql)
	require.Len(t, got, 2)
	assert.Equal(t, "CREATE TABLE a (id INT)", got[0])
	assert.Contains(t, got[1], "CREATE TABLE b (")
}

func TestFileName(t *testing.T) {
	assert.Equal(t, "20240101000000_create_cinema_tables.up.sql", FileName("20240101000000", "create_cinema_tables", "up"))

	// Load reads back whatever FileName produces.
	fsys := fstest.MapFS{
		"pg/" + FileName("20240501000000", "add_ratings", "up"):   {Data: []byte("ALTER TABLE movies ADD COLUMN rating INT;")},
		"pg/" + FileName("20240501000000", "add_ratings", "down"): {Data: []byte("ALTER TABLE movies DROP COLUMN rating;")},
	}
	got, err := Load(fsys, "pg")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "add_ratings", got[0].Name)
	assert.Equal(t, "ALTER TABLE movies ADD COLUMN rating INT;", got[0].UpSQL)
	assert.Equal(t, "ALTER TABLE movies DROP COLUMN rating;", got[0].DownSQL)
}
