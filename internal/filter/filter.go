package filter

import (
	"fmt"

	"github.com/jmespath/go-jmespath"
)

// Search applies a JMESPath expression to decoded JSON data
// (maps, slices and scalars as produced by encoding/json)
func Search(data interface{}, expression string) (interface{}, error) {
	jp, err := jmespath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid JMESPath expression '%s': %w", expression, err)
	}

	result, err := jp.Search(data)
	if err != nil {
		return nil, fmt.Errorf("JMESPath search failed: %w", err)
	}
	return result, nil
}

// IsValidJMESPath checks if an expression is valid JMESPath syntax
func IsValidJMESPath(expression string) bool {
	_, err := jmespath.Compile(expression)
	return err == nil
}
