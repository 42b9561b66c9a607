package helm

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// RenderValues expands a flat map of dotted keys into nested YAML, the form
// a values file expects:
//
//	{"mariadb.auth.database": "wordpress"} → mariadb: {auth: {database: wordpress}}
//
// A key that is both a leaf and a prefix of another key is a conflict.
func RenderValues(values map[string]string) ([]byte, error) {
	root := make(map[string]any)

	for key, raw := range values {
		segments := strings.Split(key, ".")
		node := root
		for i, segment := range segments {
			if segment == "" {
				return nil, fmt.Errorf("invalid values key: %q", key)
			}
			if i == len(segments)-1 {
				if _, exists := node[segment]; exists {
					return nil, fmt.Errorf("conflicting values key: %q", key)
				}
				node[segment] = coerceValue(raw)
				continue
			}

			child, exists := node[segment]
			if !exists {
				next := make(map[string]any)
				node[segment] = next
				node = next
				continue
			}
			next, ok := child.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("conflicting values key: %q", key)
			}
			node = next
		}
	}

	data, err := yaml.Marshal(root)
	if err != nil {
		return nil, fmt.Errorf("failed to render values: %w", err)
	}
	return data, nil
}
