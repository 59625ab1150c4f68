package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultDataDir(t *testing.T) {
	tests := []struct {
		name     string
		setupEnv func()
		expected string
	}{
		{
			name: "XDG_DATA_HOME override",
			setupEnv: func() {
				os.Setenv("XDG_DATA_HOME", "/custom/data")
			},
			expected: "/custom/data/flodiag",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			originalXDG := os.Getenv("XDG_DATA_HOME")
			t.Cleanup(func() {
				if originalXDG != "" {
					os.Setenv("XDG_DATA_HOME", originalXDG)
				} else {
					os.Unsetenv("XDG_DATA_HOME")
				}
			})

			tt.setupEnv()

			if result := DefaultDataDir(); result != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, result)
			}
		})
	}
}

func TestDefaultDataDirNoHome(t *testing.T) {
	originalHome := os.Getenv("HOME")
	os.Unsetenv("HOME")
	t.Cleanup(func() {
		if originalHome != "" {
			os.Setenv("HOME", originalHome)
		}
	})

	if result := DefaultDataDir(); result != "./data" {
		t.Errorf("Expected fallback to './data', got %s", result)
	}
}

func TestDefaultDataDirCrossPlatform(t *testing.T) {
	result := DefaultDataDir()
	if result == "" {
		t.Fatal("DefaultDataDir should not return empty string")
	}
	if !filepath.IsAbs(result) && !strings.HasPrefix(result, "./") {
		t.Errorf("DefaultDataDir should return absolute path or start with ./, got %s", result)
	}
	if result != "./data" && !strings.HasSuffix(result, "flodiag") {
		t.Errorf("DefaultDataDir should end in flodiag, got %s", result)
	}
}

func TestFindIn(t *testing.T) {
	empty := t.TempDir()
	withYAML := t.TempDir()
	yamlPath := filepath.Join(withYAML, "FLODIAG_DIAGNOSTICS.yaml")
	if err := os.WriteFile(yamlPath, []byte("logDirectory: x\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	withBoth := t.TempDir()
	jsonPath := filepath.Join(withBoth, "FLODIAG_DIAGNOSTICS.json")
	for _, p := range []string{jsonPath, filepath.Join(withBoth, "FLODIAG_DIAGNOSTICS.yaml")} {
		if err := os.WriteFile(p, []byte("{}"), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	if got := findIn([]string{empty}); got != "" {
		t.Fatalf("expected no config, got %s", got)
	}
	if got := findIn([]string{empty, withYAML}); got != yamlPath {
		t.Fatalf("got %s want %s", got, yamlPath)
	}
	if got := findIn([]string{withBoth}); got != jsonPath {
		t.Fatalf("json should win, got %s", got)
	}
}

func TestIsDir(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		expected bool
	}{
		{name: "existing directory", path: ".", expected: true},
		{name: "non-existent path", path: "/non/existent/path/that/does/not/exist", expected: false},
		{name: "file instead of directory", path: os.Args[0], expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := isDir(tt.path); result != tt.expected {
				t.Errorf("isDir(%s) = %v, expected %v", tt.path, result, tt.expected)
			}
		})
	}
}
