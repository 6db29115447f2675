package errors

import (
	"testing"
)

func TestValidateStreamURL(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"https", "https://example.com/api/events", false},
		{"http with port", "http://localhost:8080/api/events", false},

		{"empty", "", true},
		{"ftp", "ftp://example.com", true},
		{"file", "file:///etc/passwd", true},
		{"no host", "http:///api/events", true},
		{"control char", "http://host/\x01", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStreamURL(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateStreamURL(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if err != nil && !Is(err, ErrCodeInvalidURL) {
				t.Errorf("ValidateStreamURL(%q) code = %v, want %v", tt.input, GetCode(err), ErrCodeInvalidURL)
			}
		})
	}
}

func TestValidateListenAddr(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"port only", ":8080", false},
		{"host and port", "127.0.0.1:8080", false},

		{"empty", "", true},
		{"missing port", "localhost", true},
		{"empty port", "localhost:", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateListenAddr(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateListenAddr(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}

func TestValidateFormats(t *testing.T) {
	supported := []string{"json", "dot", "svg"}
	tests := []struct {
		name    string
		input   []string
		wantErr bool
	}{
		{"single", []string{"svg"}, false},
		{"several", []string{"json", "dot"}, false},
		{"with spaces", []string{" svg"}, false},

		{"none", nil, true},
		{"unknown", []string{"pdf"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateFormats(tt.input, supported...)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateFormats(%v) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
		})
	}
}
