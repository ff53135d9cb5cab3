// Package tablefile reads and writes table fixtures in YAML. A fixture holds
// the columns, rows and flags of one table and is what `gridsync view`
// renders without a server.
package tablefile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/endorses/gridsync/internal/pkg/table"
	"github.com/endorses/gridsync/internal/pkg/tableadapter"
)

// dateLayouts are tried in order for date column cells given as strings
var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"}

// File is the YAML form of a table
type File struct {
	Title       string                    `yaml:"title,omitempty"`
	Columns     []tableadapter.ColumnData `yaml:"columns"`
	Rows        []Row                     `yaml:"rows,omitempty"`
	MultiSelect *bool                     `yaml:"multi_select,omitempty"`
	MultiCheck  *bool                     `yaml:"multi_check,omitempty"`
	Checkable   *bool                     `yaml:"checkable,omitempty"`
	SortEnabled *bool                     `yaml:"sort_enabled,omitempty"`
	Selected    []string                  `yaml:"selected,omitempty"`
}

// Row is one fixture row. Cells are scalars or {value, text} maps.
type Row struct {
	ID       string `yaml:"id,omitempty"`
	Parent   string `yaml:"parent,omitempty"`
	Checked  bool   `yaml:"checked,omitempty"`
	Expanded *bool  `yaml:"expanded,omitempty"`
	Enabled  *bool  `yaml:"enabled,omitempty"`
	Cells    []any  `yaml:"cells"`
}

// Load reads a fixture from path. A leading ~/ is expanded.
func Load(path string) (*File, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	// #nosec G304 -- path is chosen by the user on the command line
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read table file: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if f.Title == "" {
		f.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return f, nil
}

// Parse decodes a fixture
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse table YAML: %w", err)
	}
	if len(f.Columns) == 0 {
		return nil, fmt.Errorf("table has no columns")
	}
	return &f, nil
}

// Data converts the fixture to table adapter data. Cells of date columns
// given as strings are parsed to time.Time.
func (f *File) Data() (tableadapter.Data, error) {
	data := tableadapter.Data{
		Columns:     f.Columns,
		Rows:        make([]table.RowData, 0, len(f.Rows)),
		MultiSelect: f.MultiSelect,
		MultiCheck:  f.MultiCheck,
		Checkable:   f.Checkable,
		SortEnabled: f.SortEnabled,
		SelectedIDs: f.Selected,
	}
	for i, r := range f.Rows {
		if len(r.Cells) > len(f.Columns) {
			return tableadapter.Data{}, fmt.Errorf("row %d (%s): %d cells for %d columns", i, r.ID, len(r.Cells), len(f.Columns))
		}
		rd := table.RowData{
			ID:       r.ID,
			ParentID: r.Parent,
			Checked:  r.Checked,
			Expanded: r.Expanded,
			Enabled:  r.Enabled,
			Cells:    make([]table.Cell, len(r.Cells)),
		}
		for j, raw := range r.Cells {
			cell, err := toCell(raw, f.Columns[j].Type)
			if err != nil {
				return tableadapter.Data{}, fmt.Errorf("row %d (%s) column %s: %w", i, r.ID, f.Columns[j].ID, err)
			}
			rd.Cells[j] = cell
		}
		data.Rows = append(data.Rows, rd)
	}
	return data, nil
}

// Table builds a table from the fixture on top of base options
func (f *File) Table(base table.Options) (*table.Table, error) {
	data, err := f.Data()
	if err != nil {
		return nil, err
	}
	return tableadapter.NewTable(data, base)
}

func toCell(raw any, columnType string) (table.Cell, error) {
	var c table.Cell
	switch v := raw.(type) {
	case map[string]any:
		c.Value = v["value"]
		if text, ok := v["text"]; ok {
			s, ok := text.(string)
			if !ok {
				return c, fmt.Errorf("cell text must be a string, got %T", text)
			}
			c.Text = s
		}
	default:
		c.Value = v
	}
	if columnType == tableadapter.TypeDate {
		if s, ok := c.Value.(string); ok {
			t, err := parseDate(s)
			if err != nil {
				return c, err
			}
			c.Value = t
		}
	}
	return c, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}

// FromTable captures the current columns, rows, check, expansion and
// selection state of t. Rows keep the table's canonical order.
func FromTable(title string, t *table.Table) *File {
	multiSelect, checkable, sortEnabled := t.MultiSelect(), t.Checkable(), t.SortEnabled()
	f := &File{
		Title:       title,
		Columns:     tableadapter.DescribeColumns(t.Columns()),
		Rows:        make([]Row, 0, t.RowCount()),
		MultiSelect: &multiSelect,
		Checkable:   &checkable,
		SortEnabled: &sortEnabled,
	}
	for _, r := range t.Rows() {
		row := Row{
			ID:      r.ID,
			Parent:  r.ParentID,
			Checked: r.Checked,
			Cells:   make([]any, len(r.Cells)),
		}
		if !r.Expanded {
			row.Expanded = new(bool)
		}
		if !r.Enabled {
			row.Enabled = new(bool)
		}
		for i, c := range r.Cells {
			if c.Text != "" {
				row.Cells[i] = map[string]any{"value": c.Value, "text": c.Text}
				continue
			}
			row.Cells[i] = c.Value
		}
		f.Rows = append(f.Rows, row)
	}
	for _, r := range t.SelectedRows() {
		f.Selected = append(f.Selected, r.ID)
	}
	return f
}

// Save writes f to path, replacing the file atomically
func Save(path string, f *File) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal table YAML: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create table directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".table-*.yaml")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write table file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write table file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace table file: %w", err)
	}
	return nil
}
