package flags

import (
	"os"
	"path/filepath"
	"testing"
)

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("LAMPY_TEST_DIR", "/tmp/lampy")

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"~", home},
		{"~/keys/key.json", filepath.Join(home, "keys", "key.json")},
		{"/abs/./path/", "/abs/path"},
		{"$LAMPY_TEST_DIR/journal", "/tmp/lampy/journal"},
		{"rel/../file", "file"},
	}
	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNewApp(t *testing.T) {
	app := NewApp("0123456789abcdef", "20260101", "test tool")
	if app.Usage != "test tool" {
		t.Fatalf("usage = %q", app.Usage)
	}
	if want := "0.3.0-unstable-01234567-20260101"; app.Version != want {
		t.Fatalf("version = %q, want %q", app.Version, want)
	}
}
