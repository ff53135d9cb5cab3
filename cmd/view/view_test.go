package view

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/endorses/gridsync/internal/pkg/table"
	"github.com/endorses/gridsync/internal/pkg/tablefile"
)

const fixture = `title: Files
columns:
  - id: name
    title: Name
  - id: size
    title: Size
    type: number
rows:
  - id: a
    cells: [alpha, 10]
  - id: b
    cells: [beta, 20]
`

func writeFixture(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "table.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixture), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeFixture(t)

	f, tbl, err := load(path, table.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, "Files", f.Title)
	assert.Equal(t, 2, tbl.RowCount())

	_, _, err = load(filepath.Join(t.TempDir(), "missing.yaml"), table.DefaultOptions())
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSaver(t *testing.T) {
	path := writeFixture(t)
	_, tbl, err := load(path, table.DefaultOptions())
	require.NoError(t, err)

	write := saver(path, "Files")(tbl)

	// Changes after the snapshot are not written
	tbl.DeleteRowsByID("a")
	require.NoError(t, write())

	saved, err := tablefile.Load(path)
	require.NoError(t, err)
	require.Len(t, saved.Rows, 2)
	assert.Equal(t, "a", saved.Rows[0].ID)
}

func TestTableOptions(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	viper.Set("tui.virtual", false)
	viper.Set("tui.row_height", 0)

	opts := tableOptions(ViewCmd)
	assert.False(t, opts.Virtual)
	assert.Equal(t, 1, opts.RowHeight)
	assert.True(t, opts.MultiSelect)
}
