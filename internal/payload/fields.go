// Package payload flattens structured chunk payloads into key/value fields.
// Private text chunks often smuggle configuration; naming the keys lets
// reports say what a payload holds without dumping its values.
package payload

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Field is one scalar in a structured payload, keyed by its dotted path.
type Field struct {
	Key   string
	Value string
}

// Fields extracts scalar fields from a payload of the given kind, as
// reported by validate.StructuredKind. Unknown kinds return nil.
func Fields(kind string, b []byte) []Field {
	switch kind {
	case "json":
		return JSONFields(b)
	case "yaml":
		return YAMLFields(b)
	}
	return nil
}

// JSONFields decodes b and flattens objects into dotted paths. Array
// elements share their parent's path. Invalid JSON returns nil.
func JSONFields(b []byte) []Field {
	var root any
	if err := json.Unmarshal(b, &root); err != nil {
		return nil
	}

	var out []Field
	var walk func(v any, path []string)
	walk = func(v any, path []string) {
		switch t := v.(type) {
		case map[string]any:
			// map order is random; sort for stable output
			keys := make([]string, 0, len(t))
			for k := range t {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(t[k], append(path, k))
			}
		case []any:
			for _, c := range t {
				walk(c, path)
			}
		default:
			if len(path) > 0 {
				out = append(out, Field{Key: strings.Join(path, "."), Value: scalarString(t)})
			}
		}
	}
	walk(root, nil)
	return out
}

// YAMLFields walks the yaml.v3 node tree and flattens mapping scalars into
// dotted paths. Invalid YAML returns nil.
func YAMLFields(b []byte) []Field {
	var root yaml.Node
	if err := yaml.Unmarshal(b, &root); err != nil {
		return nil
	}

	var out []Field
	var walk func(n *yaml.Node, path []string)
	walk = func(n *yaml.Node, path []string) {
		switch n.Kind {
		case yaml.DocumentNode:
			for _, c := range n.Content {
				walk(c, path)
			}
		case yaml.MappingNode:
			for i := 0; i+1 < len(n.Content); i += 2 {
				walk(n.Content[i+1], append(path, n.Content[i].Value))
			}
		case yaml.SequenceNode:
			for _, c := range n.Content {
				walk(c, path)
			}
		case yaml.ScalarNode:
			if len(path) > 0 {
				out = append(out, Field{Key: strings.Join(path, "."), Value: n.Value})
			}
		}
	}
	walk(&root, nil)
	return out
}

func scalarString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	case nil:
		return ""
	}
	return ""
}

// words that mark a key as credential-shaped
var sensitiveWords = []string{
	"pass",
	"secret",
	"token",
	"credential",
	"api_key",
	"apikey",
	"private_key",
	"access_key",
	"auth",
}

// SensitiveKeys returns, in input order, the keys whose names suggest
// credentials. Matching is case-insensitive on the full dotted path.
func SensitiveKeys(fields []Field) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, f := range fields {
		k := strings.ToLower(f.Key)
		for _, w := range sensitiveWords {
			if strings.Contains(k, w) {
				if _, dup := seen[f.Key]; !dup {
					seen[f.Key] = struct{}{}
					out = append(out, f.Key)
				}
				break
			}
		}
	}
	return out
}
