package utils

import (
	"testing"
)

func TestOptionGetString(t *testing.T) {
	tests := []struct {
		name     string
		opts     Option
		key      string
		expected string
		wantErr  bool
	}{
		{"present", Option{"listen.language": "en-US"}, "listen.language", "en-US", false},
		{"missing", Option{}, "listen.language", "", true},
		{"wrong type", Option{"listen.language": 42}, "listen.language", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.opts.GetString(tt.key)
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, result)
			}
		})
	}
}

func TestOptionGetBool(t *testing.T) {
	opts := Option{"listen.vad_events": true, "listen.model": "nova"}
	if b, err := opts.GetBool("listen.vad_events"); err != nil || !b {
		t.Errorf("expected true, got %v (%v)", b, err)
	}
	if _, err := opts.GetBool("listen.model"); err == nil {
		t.Error("expected error for non-bool value")
	}
	if _, err := opts.GetBool("absent"); err == nil {
		t.Error("expected error for absent key")
	}
}

func TestOptionGetInt(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected int
		wantErr  bool
	}{
		{"int", 7, 7, false},
		{"int64", int64(9), 9, false},
		{"json float", float64(120), 120, false},
		{"string", "120", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Option{"k": tt.value}
			result, err := opts.GetInt("k")
			if (err != nil) != tt.wantErr {
				t.Fatalf("unexpected error state: %v", err)
			}
			if result != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, result)
			}
		})
	}
}

func TestOptionGetStrings(t *testing.T) {
	tests := []struct {
		name     string
		value    interface{}
		expected []string
	}{
		{"native slice", []string{"a", "b"}, []string{"a", "b"}},
		{"interface slice", []interface{}{"hello", "world"}, []string{"hello", "world"}},
		{"bracketed string", "[hello world]", []string{"hello", "world"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := Option{"k": tt.value}
			result, err := opts.GetStrings("k")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(result) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, result)
			}
			for i := range result {
				if result[i] != tt.expected[i] {
					t.Errorf("index %d: expected %q, got %q", i, tt.expected[i], result[i])
				}
			}
		})
	}
}
