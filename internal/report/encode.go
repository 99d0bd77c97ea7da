package report

import (
	"encoding/json"
	"fmt"

	"github.com/studiowebux/todoload/internal/filter"
	"gopkg.in/yaml.v3"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Encode serializes v as json or yaml. When query is set it is applied as
// a JMESPath expression to the JSON form of v first.
func Encode(v any, format, query string) ([]byte, error) {
	if query != "" {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("failed to encode for query: %w", err)
		}
		var data interface{}
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("failed to decode for query: %w", err)
		}
		result, err := filter.Search(data, query)
		if err != nil {
			return nil, err
		}
		v = result
	}

	switch format {
	case FormatJSON, "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return nil, err
		}
		return append(data, '\n'), nil
	case FormatYAML:
		return yaml.Marshal(v)
	default:
		return nil, fmt.Errorf("unsupported output format: %s (use json or yaml)", format)
	}
}
