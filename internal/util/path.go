package util

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ValidateOutputDir checks that files can be written into dir. A missing
// directory is fine as long as its nearest existing ancestor is writable;
// nothing is left behind on disk either way.
func ValidateOutputDir(dir string) error {
	if dir == "" {
		return errors.New("output directory cannot be empty")
	}
	dir = filepath.Clean(dir)

	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("output path exists but is not a directory: %s", dir)
		}
		if err := checkWritePermission(dir); err != nil {
			return fmt.Errorf("no write permission for output directory: %w", err)
		}
		return nil
	case os.IsNotExist(err):
		return checkCanCreate(dir)
	default:
		return fmt.Errorf("cannot access output directory: %w", err)
	}
}

// checkWritePermission tries to create and remove a temporary file in dir.
func checkWritePermission(dir string) error {
	f, err := os.CreateTemp(dir, ".readme-console-*")
	if err != nil {
		return err
	}
	f.Close()
	return os.Remove(f.Name())
}

// checkCanCreate walks up to the first existing ancestor of dir and checks
// that it is a writable directory.
func checkCanCreate(dir string) error {
	parent := filepath.Dir(dir)
	for {
		info, err := os.Stat(parent)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("parent path exists but is not a directory: %s", parent)
			}
			if err := checkWritePermission(parent); err != nil {
				return fmt.Errorf("no write permission for parent directory: %w", err)
			}
			return nil
		}
		if !os.IsNotExist(err) {
			return fmt.Errorf("cannot access parent directory: %w", err)
		}
		next := filepath.Dir(parent)
		if next == parent {
			return fmt.Errorf("no existing parent directory for %s", dir)
		}
		parent = next
	}
}
