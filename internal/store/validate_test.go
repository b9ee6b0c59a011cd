package store

import (
	"strings"
	"testing"
)

func TestValidateUserID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"empty", "", false},
		{"slack", "U024BE7LH", false},
		{"max_length", strings.Repeat("a", 255), false},
		{"too_long", strings.Repeat("a", 256), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateUserID(tt.id)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateUserID(%d chars) error = %v, wantErr %v", len(tt.id), err, tt.wantErr)
			}
		})
	}
}

func TestValidateFactText(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantErr bool
	}{
		{"normal", "a tea ceremony instructor from Kyoto", false},
		{"blank", "   ", true},
		{"max_runes", strings.Repeat("茶", MaxFactLength), false},
		{"too_long", strings.Repeat("x", MaxFactLength+1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFactText(tt.text)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFactText error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPersonLabel(t *testing.T) {
	p := Person{SubjectID: "U1"}
	if p.Label() != "U1" {
		t.Errorf("expected subject id fallback, got %q", p.Label())
	}
	p.Handle = "alice"
	if p.Label() != "alice" {
		t.Errorf("expected handle, got %q", p.Label())
	}
	p.DisplayName = "Alice Chen"
	if p.Label() != "Alice Chen" {
		t.Errorf("expected display name, got %q", p.Label())
	}
}
