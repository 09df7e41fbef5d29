package llm

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// cleanModelJSON strips Markdown fences and any chatter around the JSON value.
func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = strings.TrimSpace(s[:idx])
	}

	open := strings.IndexAny(s, "[{")
	if open == -1 {
		return s
	}
	closer := "]"
	if s[open] == '{' {
		closer = "}"
	}
	if end := strings.LastIndex(s, closer); end > open {
		s = s[open : end+1]
	}
	return strings.TrimSpace(s)
}

// decodeArray parses raw model output that should be a JSON array.
// A single object is accepted as a one-element array.
func decodeArray(raw string) ([]interface{}, error) {
	var parsed interface{}
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	switch v := parsed.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		return []interface{}{v}, nil
	default:
		return nil, fmt.Errorf("top-level value is %T, want array", parsed)
	}
}

// decodeObject parses raw model output that should be a JSON object.
func decodeObject(raw string) (map[string]interface{}, error) {
	var parsed interface{}
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &parsed); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	switch v := parsed.(type) {
	case map[string]interface{}:
		return v, nil
	case []interface{}:
		if len(v) > 0 {
			if obj, ok := v[0].(map[string]interface{}); ok {
				return obj, nil
			}
		}
	}
	return nil, fmt.Errorf("top-level value is %T, want object", parsed)
}

func getStringField(m map[string]interface{}, key string, required bool) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return "", fmt.Errorf("missing required field %q", key)
		}
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string", key, v)
	}
	s = strings.TrimSpace(s)
	if required && s == "" {
		return "", fmt.Errorf("required field %q is empty", key)
	}
	return s, nil
}

// getOptionalStringField never fails; wrong types read as empty.
func getOptionalStringField(m map[string]interface{}, key string) string {
	s, err := getStringField(m, key, false)
	if err != nil {
		return ""
	}
	return s
}

// getFloat64Field accepts JSON numbers and numeric strings such as "1,050.00".
func getFloat64Field(m map[string]interface{}, key string, required bool) (float64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		if required {
			return 0, fmt.Errorf("missing required field %q", key)
		}
		return 0, nil
	}
	switch val := v.(type) {
	case float64:
		return val, nil
	case string:
		clean := strings.NewReplacer(",", "", " ", "").Replace(val)
		f, err := strconv.ParseFloat(clean, 64)
		if err != nil {
			return 0, fmt.Errorf("field %q is %q, want number", key, val)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("field %q has type %T, want number", key, v)
	}
}

func getOptionalFloat64Field(m map[string]interface{}, key string) (*float64, error) {
	if v, ok := m[key]; !ok || v == nil {
		return nil, nil
	}
	f, err := getFloat64Field(m, key, true)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
