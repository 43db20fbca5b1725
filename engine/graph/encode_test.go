package graph

import (
	"errors"
	"testing"

	"github.com/contextgraph/context-graph/engine/domain"
)

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		input string
		want  int64
		ok    bool
	}{
		{"42", 42, true},
		{"entity_42", 42, true},
		{"chunk_7", 7, true},
		{" 42 ", 42, true},
		{"844424930131969", 844424930131969, true},
		{"abc", 0, false},
		{"entity_", 0, false},
		{"", 0, false},
		{"42.5", 0, false},
	}
	for _, tt := range tests {
		got, err := NormalizeID(tt.input)
		if tt.ok != (err == nil) {
			t.Errorf("NormalizeID(%q) err = %v, want ok=%v", tt.input, err, tt.ok)
			continue
		}
		if !tt.ok && !errors.Is(err, domain.ErrInvalidID) {
			t.Errorf("NormalizeID(%q) error should wrap ErrInvalidID, got %v", tt.input, err)
		}
		if got != tt.want {
			t.Errorf("NormalizeID(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{"Component", "Component"},
		{[]any{"Component", "Extra"}, "Component"},
		{[]any{}, "Unknown"},
		{nil, "Unknown"},
		{"", "Unknown"},
		{42, "Unknown"},
	}
	for _, tt := range tests {
		if got := NormalizeLabel(tt.input); got != tt.want {
			t.Errorf("NormalizeLabel(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestEncodeValue(t *testing.T) {
	tests := []struct {
		input any
		want  string
	}{
		{"hello", "'hello'"},
		{"it's", `'it\'s'`},
		{`back\slash`, `'back\\slash'`},
		{true, "true"},
		{false, "false"},
		{42, "42"},
		{int64(42), "42"},
		{float64(42), "42"},
		{3.14, "3.14"},
		{[]any{"a", "b"}, `'["a","b"]'`},
		{map[string]any{"k": 1}, `'{"k":1}'`},
	}
	for _, tt := range tests {
		if got := EncodeValue(tt.input); got != tt.want {
			t.Errorf("EncodeValue(%v) = %s, want %s", tt.input, got, tt.want)
		}
	}
}

func TestEncodeMap(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		want  string
	}{
		{"empty", nil, "{}"},
		{"sorted keys", map[string]any{"b": 2, "a": "x"}, "{a: 'x', b: 2}"},
		{"nil dropped", map[string]any{"a": 1, "b": nil}, "{a: 1}"},
		{"key cleaned", map[string]any{"a-b": 1}, "{a_b: 1}"},
		{"bad key dropped", map[string]any{"1bad": 1, "ok": 2}, "{ok: 2}"},
	}
	for _, tt := range tests {
		if got := EncodeMap(tt.input); got != tt.want {
			t.Errorf("%s: EncodeMap = %s, want %s", tt.name, got, tt.want)
		}
	}
}
