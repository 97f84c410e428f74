// This file packs project directories into ZIP uploads and sniffs the
// content type of files the user attaches.

package archive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mholt/archives"
	"github.com/vrsandeep/readme-console/internal/models"
)

const (
	zipContentType    = "application/zip"
	binaryContentType = "application/octet-stream"
)

// PackDir zips dir recursively. Entries are rooted under the directory's own
// name so the backend can guess the project name from the first folder.
func PackDir(ctx context.Context, dir string) (models.Upload, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return models.Upload{}, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return models.Upload{}, err
	}
	if !info.IsDir() {
		return models.Upload{}, fmt.Errorf("%s is not a directory", dir)
	}

	name := filepath.Base(abs)
	files, err := archives.FilesFromDisk(ctx, nil, map[string]string{abs: name})
	if err != nil {
		return models.Upload{}, fmt.Errorf("failed to collect files from %s: %w", dir, err)
	}

	var buf bytes.Buffer
	if err := (archives.Zip{}).Archive(ctx, &buf, files); err != nil {
		return models.Upload{}, fmt.Errorf("failed to build zip archive: %w", err)
	}
	return models.Upload{Name: name + ".zip", Data: buf.Bytes()}, nil
}

// DetectContentType identifies an upload by its bytes, not its name.
func DetectContentType(data []byte) string {
	if len(data) == 0 {
		return binaryContentType
	}
	format, _, err := archives.Identify(context.Background(), "", bytes.NewReader(data))
	if err != nil {
		return binaryContentType
	}
	if format.Extension() == ".zip" {
		return zipContentType
	}
	return binaryContentType
}
