package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

// SanitizeHostname replaces characters unsafe for filesystem paths.
// Allows alphanumeric, dots, and hyphens. Replaces everything else with
// underscore.
func SanitizeHostname(hostname string) string {
	re := regexp.MustCompile(`[^a-zA-Z0-9.\-]+`)
	return re.ReplaceAllString(hostname, "_")
}

// ReportPath generates a consistent file path for an exported report.
// Format: {baseDir}/{hostname}_{YYYYMMDD}_{HHMMSS}.md
func ReportPath(baseDir string, hostname string, startedAt time.Time) string {
	name := fmt.Sprintf("%s_%s.md", SanitizeHostname(hostname), startedAt.Format("20060102_150405"))
	return filepath.Join(baseDir, name)
}

// EnsureDir creates a directory and all parent directories if they don't
// exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ResolveReportPath expands a report destination. A path naming an
// existing directory receives a generated {hostname}_{timestamp}.md file
// inside it; any other path is used as given after its parent directory
// is created.
func ResolveReportPath(path, hostname string, startedAt time.Time) (string, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return ReportPath(path, hostname, startedAt), nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := EnsureDir(dir); err != nil {
			return "", fmt.Errorf("storage: creating report directory %s: %w", dir, err)
		}
	}
	return path, nil
}
