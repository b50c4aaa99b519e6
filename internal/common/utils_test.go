package common

import "testing"

func TestValidateSeed(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"plain", "https://example.com/courses", "https://example.com/courses", false},
		{"whitespace and comma", "  https://example.com/courses?cat=cs, ", "https://example.com/courses?cat=cs", false},
		{"markdown link", "[catalog](https://example.com/list)", "https://example.com/list", false},
		{"with port", "http://127.0.0.1:8080/list", "http://127.0.0.1:8080/list", false},
		{"empty", "   ", "", true},
		{"no scheme", "example.com/courses", "", true},
		{"ftp", "ftp://example.com/courses", "", true},
		{"space", "https://example.com/my courses", "", true},
		{"braces in host", "https://example.com{}/x", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateSeed(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateSeed(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ValidateSeed(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
