package riskmap

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// MarkerFilenames are the recognized configuration filenames, checked in
// order at a workspace root (and at ancestor directories during
// resolution).
var MarkerFilenames = []string{".riskmap.yaml", ".riskmap.yml", "riskmap.yaml"}

// fileSource reads a marker file from the workspace root. It is the
// first and cheapest source variant.
type fileSource struct {
	fs afero.Fs
}

func newFileSource(fs afero.Fs) *fileSource {
	return &fileSource{fs: fs}
}

func (s *fileSource) Name() string { return "file" }

func (s *fileSource) Load(_ context.Context, ws Workspace) (*ConfigEntry, error) {
	path, ok := FindMarker(s.fs, ws.Root)
	if !ok {
		return nil, nil
	}

	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	entry, err := ParseMarker(data, path)
	if err != nil {
		// Malformed content is a miss for this variant, not an error
		// surfaced to the caller.
		return nil, err
	}
	return entry, nil
}

// FindMarker returns the path of the first recognized marker filename
// present in dir.
func FindMarker(fs afero.Fs, dir string) (string, bool) {
	for _, name := range MarkerFilenames {
		path := filepath.Join(dir, name)
		if info, err := fs.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// ParseMarker decodes a marker document into an immutable ConfigEntry.
func ParseMarker(data []byte, sourcePath string) (*ConfigEntry, error) {
	var entry ConfigEntry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("parse %s: %w", sourcePath, err)
	}
	if entry.Identifier == "" {
		return nil, fmt.Errorf("parse %s: missing identifier", sourcePath)
	}
	entry.SourcePath = sourcePath
	entry.LoadedAt = time.Now()
	return &entry, nil
}
