//go:build !linux

package capture

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/soocke/herbscan/domain/scan"
)

// Probe reports whether the device path exists and is accessible.
func Probe(path string) error {
	f, err := os.Open(path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return fmt.Errorf("open %s: %w", path, scan.ErrDeviceNotFound)
		case errors.Is(err, fs.ErrPermission):
			return fmt.Errorf("open %s: %w", path, scan.ErrPermissionDenied)
		default:
			return fmt.Errorf("open %s: %w", path, err)
		}
	}
	return f.Close()
}
