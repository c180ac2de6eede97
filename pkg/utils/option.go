package utils

import (
	"fmt"
	"strings"
)

// Option is a loose provider configuration bag. Keys are dotted paths such as
// "listen.language" or "listen.model"; values come from request payloads or
// service configuration, so accessors normalise the dynamic types.
type Option map[string]interface{}

// GetString returns the value at key as a string.
func (o Option) GetString(key string) (string, error) {
	v, ok := o[key]
	if !ok {
		return "", fmt.Errorf("option %q not found", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("option %q is not a string", key)
	}
	return s, nil
}

// GetBool returns the value at key as a bool.
func (o Option) GetBool(key string) (bool, error) {
	v, ok := o[key]
	if !ok {
		return false, fmt.Errorf("option %q not found", key)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("option %q is not a bool", key)
	}
	return b, nil
}

// GetInt returns the value at key as an int, accepting the numeric types
// JSON decoding produces.
func (o Option) GetInt(key string) (int, error) {
	v, ok := o[key]
	if !ok {
		return 0, fmt.Errorf("option %q not found", key)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	}
	return 0, fmt.Errorf("option %q is not a number", key)
}

// GetStrings returns the value at key as a string slice. It accepts a native
// slice, a []interface{} of strings, or the bracketed form "[a b c]".
func (o Option) GetStrings(key string) ([]string, error) {
	v, ok := o[key]
	if !ok {
		return nil, fmt.Errorf("option %q not found", key)
	}
	switch vl := v.(type) {
	case []string:
		return vl, nil
	case []interface{}:
		out := make([]string, 0, len(vl))
		for _, item := range vl {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out, nil
	case string:
		trimmed := strings.TrimSpace(vl)
		trimmed = strings.TrimPrefix(trimmed, "[")
		trimmed = strings.TrimSuffix(trimmed, "]")
		return strings.Fields(trimmed), nil
	}
	return nil, fmt.Errorf("option %q is not a string list", key)
}
