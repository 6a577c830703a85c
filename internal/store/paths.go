package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the on-disk layout under one data directory.
type Paths struct {
	ProjectsFile  string
	AttendanceDir string
	UploadDir     string
}

// NewPaths derives the layout from dataDir.
func NewPaths(dataDir string) Paths {
	if dataDir == "" {
		dataDir = "."
	}
	return Paths{
		ProjectsFile:  filepath.Join(dataDir, "projects.json"),
		AttendanceDir: filepath.Join(dataDir, "attendance"),
		UploadDir:     filepath.Join(dataDir, "uploads"),
	}
}

// Ensure creates the directories of the layout.
func (p Paths) Ensure() error {
	for _, dir := range []string{filepath.Dir(p.ProjectsFile), p.AttendanceDir, p.UploadDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// AttendanceFile is the entry list of one project.
func (p Paths) AttendanceFile(projectID string) string {
	return filepath.Join(p.AttendanceDir, projectID+".json")
}

// UploadFile is the spreadsheet of one project. The extension is fixed
// regardless of the uploaded format.
func (p Paths) UploadFile(projectID string) string {
	return filepath.Join(p.UploadDir, projectID+".xlsx")
}

// Writable reports whether the data directory accepts new files.
func (p Paths) Writable() bool {
	f, err := os.CreateTemp(p.AttendanceDir, ".writable-*")
	if err != nil {
		return false
	}
	name := f.Name()
	f.Close()
	return os.Remove(name) == nil
}
