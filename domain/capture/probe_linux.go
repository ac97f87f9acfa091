//go:build linux

package capture

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/soocke/herbscan/domain/scan"
)

// Probe opens the device node non-blocking and maps the errno to the scan
// error taxonomy. A nil return means the node can be opened.
func Probe(path string) error {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return classifyErrno(path, err)
	}
	_ = unix.Close(fd)
	return nil
}

func classifyErrno(path string, err error) error {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return fmt.Errorf("open %s: %w", path, err)
	}
	switch errno {
	case unix.EACCES, unix.EPERM:
		return fmt.Errorf("open %s: %v: %w", path, errno, scan.ErrPermissionDenied)
	case unix.ENOENT, unix.ENODEV, unix.ENXIO:
		return fmt.Errorf("open %s: %v: %w", path, errno, scan.ErrDeviceNotFound)
	case unix.EBUSY:
		return fmt.Errorf("open %s: %v: %w", path, errno, scan.ErrDeviceBusy)
	default:
		return fmt.Errorf("open %s: %w", path, errno)
	}
}
