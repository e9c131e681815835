package errors

import (
	"strings"
	"testing"
)

func TestValidateNodeID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"uuid", "3f2b8c1e-9a4d-4e7b-8f10-2c5d6e7f8a9b", false},
		{"slug", "exercise", false},
		{"legacy numeric", "42", false},

		{"empty", "", true},
		{"too long", strings.Repeat("x", MaxNodeIDLength+1), true},
		{"space", "blood flow", true},
		{"newline", "a\nb", true},
		{"null byte", "a\x00b", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNodeID(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateNodeID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidNode) {
				t.Errorf("ValidateNodeID(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidNode)
			}
		})
	}
}

func TestValidateLabel(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"plain", "Regular aerobic exercise", false},
		{"multi-line", "Line one\nLine two", false},
		{"unicode", "Schlafqualität", false},

		{"tab", "a\tb", true},
		{"invalid utf8", "\xff\xfe", true},
		{"too long", strings.Repeat("x", MaxLabelLength+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateLabel(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidateLabel(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateTitle(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"empty", "", false},
		{"plain", "Exercise and memory", false},
		{"control", "a\x01b", true},
		{"too long", strings.Repeat("t", MaxTitleLength+1), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateTitle(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidateTitle(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateProjectID(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"uuid", "3f2b8c1e-9a4d-4e7b-8f10-2c5d6e7f8a9b", false},
		{"slug", "sleep_study", false},

		{"empty", "", true},
		{"traversal", "../etc", true},
		{"slash", "a/b", true},
		{"leading dash", "-x", true},
		{"too long", strings.Repeat("p", 65), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidateProjectID(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidateProjectID(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidatePath(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"simple", "diagram.json", false},
		{"nested", "exports/diagram.svg", false},

		{"empty", "", true},
		{"absolute", "/etc/passwd", true},
		{"traversal", "../secret", true},
		{"backslash", "a\\b", true},
		{"control", "a\x01b", true},
		{"too long", strings.Repeat("a", 501), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := ValidatePath(tt.input); (err != nil) != tt.wantErr {
				t.Errorf("ValidatePath(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateURL(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"https://enrich.example.com/v1", false},
		{"http://localhost:8000", false},
		{"", true},
		{"ftp://example.com", true},
		{"localhost:8000", true},
	}
	for _, tt := range tests {
		if err := ValidateURL(tt.input); (err != nil) != tt.wantErr {
			t.Errorf("ValidateURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
		}
	}
}
