package output

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
)

// TableFormatter formats data as an aligned text table.
type TableFormatter struct {
	NoHeaders bool
}

// Format implements Formatter. It accepts a *Table directly; anything
// else is normalised to decoded JSON first.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	switch t := data.(type) {
	case nil:
		return nil
	case *Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	case Table:
		return t.RenderWithOptions(w, f.NoHeaders)
	}

	generic, err := normalize(data)
	if err != nil {
		return err
	}

	var table *Table
	switch v := generic.(type) {
	case map[string]any:
		table = objectToTable(v)
	case []any:
		table = arrayToTable(v)
	default:
		_, err := fmt.Fprintln(w, formatCell(v))
		return err
	}
	return table.RenderWithOptions(w, f.NoHeaders)
}

// objectToTable renders one object as sorted KEY/VALUE rows.
func objectToTable(obj map[string]any) *Table {
	flat := make(map[string]any)
	flatten("", obj, flat)

	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	table := &Table{Headers: []string{"KEY", "VALUE"}}
	for _, k := range keys {
		table.AddRow(k, formatCell(flat[k]))
	}
	return table
}

// arrayToTable renders an array of objects with one column per key of the
// first element. Arrays of scalars become a single VALUE column.
func arrayToTable(items []any) *Table {
	if len(items) == 0 {
		return &Table{}
	}

	first, ok := items[0].(map[string]any)
	if !ok {
		table := &Table{Headers: []string{"VALUE"}}
		for _, item := range items {
			table.AddRow(formatCell(item))
		}
		return table
	}

	columns := make([]string, 0, len(first))
	for k := range first {
		columns = append(columns, k)
	}
	sort.Strings(columns)

	table := &Table{}
	for _, c := range columns {
		table.Headers = append(table.Headers, strings.ToUpper(c))
	}
	for _, item := range items {
		obj, _ := item.(map[string]any)
		row := make([]string, len(columns))
		for i, c := range columns {
			row[i] = formatCell(obj[c])
		}
		table.AddRow(row...)
	}
	return table
}

// flatten joins nested object keys with dots.
func flatten(prefix string, obj map[string]any, out map[string]any) {
	for k, v := range obj {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok && len(nested) > 0 {
			flatten(key, nested, out)
			continue
		}
		out[key] = v
	}
}

// formatCell renders a decoded JSON value for a table cell.
func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case string:
		if x == "" {
			return "-"
		}
		return x
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', 2, 64)
	case bool:
		return strconv.FormatBool(x)
	case []any:
		if len(x) == 0 {
			return "-"
		}
		return fmt.Sprintf("[%d items]", len(x))
	case map[string]any:
		if len(x) == 0 {
			return "-"
		}
		return fmt.Sprintf("{%d keys}", len(x))
	default:
		return fmt.Sprintf("%v", x)
	}
}

// Table represents tabular data.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Render renders the table to the writer.
func (t *Table) Render(w io.Writer) error {
	return t.RenderWithOptions(w, false)
}

// RenderWithOptions renders the table, optionally without the header row.
func (t *Table) RenderWithOptions(w io.Writer, noHeaders bool) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	if !noHeaders && len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}

	return tw.Flush()
}

// AddRow adds a row to the table.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}
