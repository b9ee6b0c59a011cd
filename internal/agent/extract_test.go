package agent

import "testing"

func TestExtractJSONObject(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{`{"a":1}`, `{"a":1}`, true},
		{`prose {"a":{"b":2}} trailing {"c":3}`, `{"a":{"b":2}}`, true},
		{`{"s":"brace } inside"}`, `{"s":"brace } inside"}`, true},
		{`{"s":"escaped \" quote }"}`, `{"s":"escaped \" quote }"}`, true},
		{`no json here`, "", false},
		{`{"unterminated": true`, "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractJSONObject(tt.in)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ExtractJSONObject(%q) = %q,%v want %q,%v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
