package common

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Version variables injected at build time via ldflags
var (
	Version   = "dev"
	Build     = "unknown"
	GitCommit = "unknown"
)

// GetVersion returns the semantic version string
func GetVersion() string {
	return Version
}

// GetBuild returns the build timestamp
func GetBuild() string {
	return Build
}

// GetGitCommit returns the short git commit hash
func GetGitCommit() string {
	return GitCommit
}

// GetFullVersion returns a formatted version string with all build info
func GetFullVersion() string {
	return fmt.Sprintf("folio %s (build: %s, commit: %s)", Version, Build, GitCommit)
}

// LoadVersionFromFile fills in build info from a .version file next to the
// binary. Values are only applied where ldflags left the defaults in place.
func LoadVersionFromFile() {
	exe, err := os.Executable()
	if err != nil {
		return
	}
	f, err := os.Open(filepath.Join(filepath.Dir(exe), ".version"))
	if err != nil {
		return
	}
	defer f.Close()

	applyVersionInfo(parseVersionFile(f))
}

// parseVersionFile reads "key: value" lines, skipping blanks and # comments.
func parseVersionFile(r io.Reader) map[string]string {
	info := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		info[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	return info
}

func applyVersionInfo(info map[string]string) {
	if v, ok := info["version"]; ok && Version == "dev" {
		Version = v
	}
	if v, ok := info["build"]; ok && Build == "unknown" {
		Build = v
	}
	if v, ok := info["commit"]; ok && GitCommit == "unknown" {
		GitCommit = v
	}
}
