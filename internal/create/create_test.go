package create

import (
	"bytes"
	"strings"
	"testing"
)

func TestConfirm(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"empty input defaults to yes", "\n", true},
		{"explicit yes", "y\n", true},
		{"spelled out yes", "YES\n", true},
		{"no", "n\n", false},
		{"spelled out no", "No\n", false},
		{"garbage re-asks until answered", "maybe\nn\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			got, err := Confirm(strings.NewReader(tt.input), &out, "Create it now?")
			if err != nil {
				t.Fatalf("Confirm() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Confirm(%q) = %v, want %v", tt.input, got, tt.want)
			}
			if !strings.Contains(out.String(), "[Y/n]") {
				t.Errorf("prompt missing default hint: %q", out.String())
			}
		})
	}
}

func TestConfirmReAsks(t *testing.T) {
	var out bytes.Buffer
	if _, err := Confirm(strings.NewReader("what\ny\n"), &out, "Create it now?"); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if n := strings.Count(out.String(), "[Y/n]"); n != 2 {
		t.Errorf("question asked %d times, want 2: %q", n, out.String())
	}
}

func TestConfirmEOF(t *testing.T) {
	var out bytes.Buffer
	if _, err := Confirm(strings.NewReader(""), &out, "Create it now?"); err == nil {
		t.Error("Confirm() with closed input returned no error")
	}
}
