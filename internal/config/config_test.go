package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Optimize.Quality != 80 {
		t.Errorf("default quality = %d, want 80", cfg.Optimize.Quality)
	}
	if cfg.EPUB.Version != "3.0" {
		t.Errorf("default epub version = %q, want 3.0", cfg.EPUB.Version)
	}
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `
[optimize]
max_width = 800
quality = 60

[epub]
version = "2.0"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Optimize.MaxWidth != 800 {
		t.Errorf("max_width = %d, want 800", cfg.Optimize.MaxWidth)
	}
	if cfg.Optimize.MaxHeight != 1600 {
		t.Errorf("max_height = %d, want default 1600", cfg.Optimize.MaxHeight)
	}
	if cfg.Optimize.Quality != 60 {
		t.Errorf("quality = %d, want 60", cfg.Optimize.Quality)
	}
	if cfg.EPUB.Version != "2.0" {
		t.Errorf("epub version = %q, want 2.0", cfg.EPUB.Version)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"quality", "[optimize]\nquality = 0\n", "quality"},
		{"version", "[epub]\nversion = \"1.0\"\n", "version"},
		{"syntax", "not toml at all [", "parse"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.body), 0o644); err != nil {
				t.Fatal(err)
			}
			_, err := Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Errorf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}
