//go:build !gocv

package capture

import (
	"context"
	"fmt"

	"github.com/soocke/herbscan/domain/scan"
)

// OpenCamera is the opener used when the binary is built without the gocv
// tag. The device exists but this build has no backend to stream from it.
func OpenCamera(_ context.Context, dev Device, _, _ int) (scan.Stream, error) {
	return nil, fmt.Errorf("%s: camera backend not compiled in (build with -tags gocv): %w",
		dev.Path, scan.ErrDeviceNotFound)
}
