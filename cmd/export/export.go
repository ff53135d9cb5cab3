package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/endorses/gridsync/internal/pkg/cmdutil"
	"github.com/endorses/gridsync/internal/pkg/output"
	"github.com/endorses/gridsync/internal/pkg/table"
	"github.com/endorses/gridsync/internal/pkg/table/filters"
	"github.com/endorses/gridsync/internal/pkg/tableadapter"
	"github.com/endorses/gridsync/internal/pkg/tablefile"
)

var ExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Print a table file as adapter JSON",
	Long: `Load a YAML table file, optionally filter and sort it, and print the
result in the JSON form a server sends for a table adapter.

Output is indented on a terminal and compact when piped.

Examples:
  gridsync export -f table.yaml
  gridsync export -f table.yaml --query "size:>10" --sort -size`,
	RunE: runExport,
}

var (
	exportFile  string
	exportQuery string
	exportSort  []string
	exportOut   string
)

func runExport(cmd *cobra.Command, args []string) error {
	path := cmdutil.GetStringConfig("view.file", exportFile)
	if err := cmdutil.RequireString("file", "view.file", path); err != nil {
		return err
	}
	f, err := tablefile.Load(path)
	if err != nil {
		return err
	}
	t, err := f.Table(table.DefaultOptions())
	if err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	data, err := Export(t, exportQuery, exportSort)
	if err != nil {
		return err
	}

	if exportOut == "" || exportOut == "-" {
		return output.PrintJSON(data)
	}
	out, err := os.Create(exportOut) // #nosec G304 - path given by the user
	if err != nil {
		return fmt.Errorf("create %s: %w", exportOut, err)
	}
	defer out.Close()
	return write(out, data)
}

func write(w io.Writer, data tableadapter.Data) error {
	return output.WriteJSON(w, data, true)
}

// Export applies query and the sort columns to t and describes the
// accepted rows. A sort column prefixed with "-" sorts descending.
func Export(t *table.Table, query string, sortColumns []string) (tableadapter.Data, error) {
	if query != "" {
		f, err := filters.Parse(query, t.Columns())
		if err != nil {
			return tableadapter.Data{}, err
		}
		if err := t.AddFilter(f); err != nil {
			return tableadapter.Data{}, err
		}
		t.ApplyFilters()
	}

	for i, spec := range sortColumns {
		dir := table.Ascending
		id := spec
		if rest, ok := strings.CutPrefix(spec, "-"); ok {
			dir, id = table.Descending, rest
		}
		col := t.Column(id)
		if col == nil {
			return tableadapter.Data{}, fmt.Errorf("sort: %w: %s", filters.ErrUnknownColumn, id)
		}
		t.Sort(col, dir, i > 0, false)
	}

	multiSelect, checkable, sortEnabled := t.MultiSelect(), t.Checkable(), t.SortEnabled()
	data := tableadapter.Data{
		Columns:     tableadapter.DescribeColumns(t.Columns()),
		MultiSelect: &multiSelect,
		Checkable:   &checkable,
		SortEnabled: &sortEnabled,
	}
	for _, r := range t.FilteredRows() {
		rd := table.RowData{
			ID:       r.ID,
			ParentID: r.ParentID,
			Cells:    r.Cells,
			Checked:  r.Checked,
		}
		if !r.Expanded {
			rd.Expanded = new(bool)
		}
		if !r.Enabled {
			rd.Enabled = new(bool)
		}
		data.Rows = append(data.Rows, rd)
	}
	for _, r := range t.SelectedRows() {
		data.SelectedIDs = append(data.SelectedIDs, r.ID)
	}
	return data, nil
}

func init() {
	ExportCmd.Flags().StringVarP(&exportFile, "file", "f", "", "table file to export (YAML)")
	ExportCmd.Flags().StringVarP(&exportQuery, "query", "q", "", "filter query, e.g. 'name:foo AND size:>10'")
	ExportCmd.Flags().StringSliceVarP(&exportSort, "sort", "s", nil, "sort columns by id; prefix with - for descending")
	ExportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "write to file instead of stdout")
}
