package console

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DownloadName is the fixed file name of the downloaded document.
	DownloadName = "README.md"
	// DownloadContentType marks the artifact as markdown text.
	DownloadContentType = "text/markdown"
)

// Artifact is a downloadable copy of the result document.
type Artifact struct {
	Name        string
	ContentType string
	Data        []byte
}

// Download materializes the current result document. It fails with
// ErrNoDocument when there is none, so an empty file is never produced.
func (c *Console) Download() (Artifact, error) {
	c.mu.Lock()
	readme := c.readme
	c.mu.Unlock()

	if readme == "" {
		return Artifact{}, ErrNoDocument
	}
	return Artifact{
		Name:        DownloadName,
		ContentType: DownloadContentType,
		Data:        []byte(readme),
	}, nil
}

// SaveArtifact writes a into dir and returns the final path. The data goes to
// a temporary file first and is renamed into place, so a failure never leaves
// a partial README behind.
func SaveArtifact(dir string, a Artifact) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	dest := filepath.Join(dir, a.Name)
	tmp := dest + ".part"

	f, err := os.Create(tmp)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(a.Data); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return "", err
	}
	return dest, nil
}
