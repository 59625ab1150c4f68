package config

import (
	"os"
	"path/filepath"
)

// ConfigFileNames are the file names FindConfigFile looks for, in order.
var ConfigFileNames = []string{"FLODIAG_DIAGNOSTICS.json", "FLODIAG_DIAGNOSTICS.yaml", "FLODIAG_DIAGNOSTICS.yml"}

// FindConfigFile returns the first diagnostics config file found in the
// working directory, then in the executable's directory. It returns "" when
// there is none.
func FindConfigFile() string {
	var dirs []string
	if wd, err := os.Getwd(); err == nil {
		dirs = append(dirs, wd)
	}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	return findIn(dirs)
}

func findIn(dirs []string) string {
	for _, dir := range dirs {
		for _, name := range ConfigFileNames {
			p := filepath.Join(dir, name)
			if st, err := os.Stat(p); err == nil && !st.IsDir() {
				return p
			}
		}
	}
	return ""
}

// DefaultDataDir returns the default data directory (archive catalog) based
// on the host OS. It prefers standard locations when available and falls
// back to a dotdir in the user's home directory.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./data"
	}

	// XDG (Linux) override
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "flodiag")
	}

	// macOS: ~/Library/Application Support/flodiag
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "flodiag")
	}

	// Windows: %USERPROFILE%/AppData/Local/flodiag
	if isDir(filepath.Join(homeDir, "AppData")) {
		return filepath.Join(homeDir, "AppData", "Local", "flodiag")
	}

	return filepath.Join(homeDir, ".flodiag")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
