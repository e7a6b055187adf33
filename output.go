package pdf2pptx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/sirupsen/logrus"

	"github.com/tsawler/pdf2pptx/pptx"
)

// ErrOutputLocked is returned when another conversion is writing the same
// output file.
var ErrOutputLocked = errors.New("output file is locked by another conversion")

// writeOutput writes p to path through a temporary file in the same
// directory, holding path+".lock" for the duration. The lock file stays
// behind: removing it would let a waiter lock the old inode while a newcomer
// locks a new one. A failed write leaves any existing file untouched.
func writeOutput(path string, p *pptx.Presentation, logger logrus.FieldLogger) error {
	lockPath := path + ".lock"
	fileLock := flock.New(lockPath)
	locked, err := fileLock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire output lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("%w: %s", ErrOutputLocked, path)
	}
	defer func() {
		if err := fileLock.Unlock(); err != nil {
			logger.WithError(err).Warn("Failed to release output lock")
		}
	}()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary output: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if err := pptx.Write(tmp, p); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write deck: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to flush deck: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close deck: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("failed to set deck permissions: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move deck into place: %w", err)
	}
	committed = true
	return nil
}
