// utils/atomicfile.go
package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ibis-project/ibis-examples/models"
)

// WriteFileAtomic creates destPath by streaming write into a temporary file in
// the same directory and renaming it into place once write and close succeed.
// On any failure the temporary file is removed and destPath is left untouched,
// so a file's presence means it was written completely.
func WriteFileAtomic(destPath string, write func(w io.Writer) error) (err error) {
	dir := filepath.Dir(destPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("%w: failed to create directory %s: %w", models.ErrFilesystem, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(destPath)+".*.part")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary file for %s: %w", models.ErrFilesystem, destPath, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	if err = write(tmp); err != nil {
		return err
	}
	// Some writers close their sink themselves.
	if cerr := tmp.Close(); cerr != nil && !errors.Is(cerr, os.ErrClosed) {
		return fmt.Errorf("%w: failed to close %s: %w", models.ErrFilesystem, tmpPath, cerr)
	}
	// CreateTemp opens 0600; match what os.Create would have produced.
	if err = os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("%w: failed to set mode on %s: %w", models.ErrFilesystem, tmpPath, err)
	}
	if err = os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("%w: failed to move %s into place: %w", models.ErrFilesystem, destPath, err)
	}
	return nil
}

// Exists reports whether path is present on disk. Only presence is checked,
// not completeness.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("%w: failed to stat %s: %w", models.ErrFilesystem, path, err)
}
