package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// YAMLFormatter formats data as YAML.
//
// Values are normalised through JSON first so that json tags and
// json.RawMessage payloads render the same way they do with --output json.
type YAMLFormatter struct{}

// Format implements Formatter.
func (f *YAMLFormatter) Format(w io.Writer, data any) error {
	generic, err := normalize(data)
	if err != nil {
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(generic); err != nil {
		return err
	}
	return enc.Close()
}

// normalize converts data to plain maps, slices and scalars.
func normalize(data any) (any, error) {
	switch data.(type) {
	case nil, map[string]any, []any, string, float64, bool:
		return data, nil
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return generic, nil
}
