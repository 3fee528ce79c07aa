package output

import (
	"bytes"
	"strings"
	"testing"
)

func renderTable(t *testing.T, f *TableFormatter, data any) []string {
	t.Helper()
	var buf bytes.Buffer
	if err := f.Format(&buf, data); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	out := strings.TrimRight(buf.String(), "\n")
	if out == "" {
		return nil
	}
	lines := strings.Split(out, "\n")
	for i := range lines {
		lines[i] = strings.Join(strings.Fields(lines[i]), " ")
	}
	return lines
}

func TestTableFormatter_Table(t *testing.T) {
	table := &Table{
		Headers: []string{"NAME", "VALUE"},
		Rows:    [][]string{{"key1", "value1"}},
	}

	got := renderTable(t, &TableFormatter{}, table)
	want := []string{"NAME VALUE", "key1 value1"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}

	got = renderTable(t, &TableFormatter{NoHeaders: true}, *table)
	if len(got) != 1 || got[0] != "key1 value1" {
		t.Errorf("NoHeaders lines = %q", got)
	}
}

func TestTableFormatter_Object(t *testing.T) {
	data := map[string]any{
		"state":            "listening",
		"events_processed": float64(12),
		"last_error":       "",
		"outcomes":         map[string]any{"persisted": float64(3), "empty": float64(1)},
	}

	got := renderTable(t, &TableFormatter{}, data)
	want := []string{
		"KEY VALUE",
		"events_processed 12",
		"last_error -",
		"outcomes.empty 1",
		"outcomes.persisted 3",
		"state listening",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestTableFormatter_Array(t *testing.T) {
	data := []any{
		map[string]any{"id": "01A", "persisted_at": "2026-01-01T00:00:00Z", "conversation_turns": []any{1, 2}},
		map[string]any{"id": "01B", "persisted_at": "2026-01-02T00:00:00Z", "conversation_turns": []any{}},
	}

	got := renderTable(t, &TableFormatter{}, data)
	want := []string{
		"CONVERSATION_TURNS ID PERSISTED_AT",
		"[2 items] 01A 2026-01-01T00:00:00Z",
		"- 01B 2026-01-02T00:00:00Z",
	}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Errorf("lines = %q, want %q", got, want)
	}
}

func TestTableFormatter_ScalarsAndStructs(t *testing.T) {
	if got := renderTable(t, &TableFormatter{}, []string{"a", "b"}); strings.Join(got, "|") != "VALUE|a|b" {
		t.Errorf("scalar array = %q", got)
	}
	if got := renderTable(t, &TableFormatter{}, "hello"); len(got) != 1 || got[0] != "hello" {
		t.Errorf("scalar = %q", got)
	}
	if got := renderTable(t, &TableFormatter{}, nil); got != nil {
		t.Errorf("nil = %q", got)
	}
	if got := renderTable(t, &TableFormatter{}, []any{}); got != nil {
		t.Errorf("empty array = %q", got)
	}

	data := struct {
		SessionID string `json:"session_id"`
	}{"abc"}
	if got := renderTable(t, &TableFormatter{}, data); strings.Join(got, "|") != "KEY VALUE|session_id abc" {
		t.Errorf("struct = %q", got)
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "-"},
		{"", "-"},
		{"x", "x"},
		{float64(3), "3"},
		{1.5, "1.50"},
		{true, "true"},
		{[]any{}, "-"},
		{map[string]any{"a": 1}, "{1 keys}"},
		{7, "7"},
	}

	for _, tt := range tests {
		if got := formatCell(tt.in); got != tt.want {
			t.Errorf("formatCell(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
