package validation

import (
	"encoding/json"
	"fmt"
	"strings"
)

// schemaDoc is the subset of JSON Schema the engine understands: type,
// required, properties, and items, applied recursively.
type schemaDoc struct {
	Type       string                `json:"type"`
	Required   []string              `json:"required"`
	Properties map[string]*schemaDoc `json:"properties"`
	Items      *schemaDoc            `json:"items"`
}

// evaluateJSONSchema checks the output against a JSON-Schema-like document.
// Invalid output JSON and invalid schema JSON yield distinct messages.
func evaluateJSONSchema(output, schema string) string {
	var doc interface{}
	if err := json.Unmarshal([]byte(stripCodeFence(output)), &doc); err != nil {
		return "Output is not valid JSON"
	}

	var parsed schemaDoc
	if err := json.Unmarshal([]byte(schema), &parsed); err != nil {
		return "Invalid JSON schema"
	}

	failures := checkSchema(doc, &parsed, "$")
	if len(failures) == 0 {
		return ""
	}
	return fmt.Sprintf("Output does not match schema: %s", strings.Join(failures, "; "))
}

func checkSchema(value interface{}, schema *schemaDoc, path string) []string {
	var failures []string
	if schema == nil {
		return nil
	}

	if schema.Type != "" && !matchesType(value, schema.Type) {
		return []string{fmt.Sprintf("%s: expected %s", path, schema.Type)}
	}

	if obj, ok := value.(map[string]interface{}); ok {
		for _, name := range schema.Required {
			if _, present := obj[name]; !present {
				failures = append(failures, fmt.Sprintf("%s: missing required property %q", path, name))
			}
		}
		for name, propSchema := range schema.Properties {
			prop, present := obj[name]
			if !present {
				continue
			}
			failures = append(failures, checkSchema(prop, propSchema, path+"."+name)...)
		}
	}

	if arr, ok := value.([]interface{}); ok && schema.Items != nil {
		for i, item := range arr {
			failures = append(failures, checkSchema(item, schema.Items, fmt.Sprintf("%s[%d]", path, i))...)
		}
	}

	return failures
}

func matchesType(value interface{}, schemaType string) bool {
	switch schemaType {
	case "object":
		_, ok := value.(map[string]interface{})
		return ok
	case "array":
		_, ok := value.([]interface{})
		return ok
	case "string":
		_, ok := value.(string)
		return ok
	case "number":
		_, ok := value.(float64)
		return ok
	case "integer":
		n, ok := value.(float64)
		return ok && n == float64(int64(n))
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "null":
		return value == nil
	default:
		return true
	}
}
