package scan

import (
	"context"
	"errors"
	"fmt"
)

// Platform errors. Device and surface implementations wrap these so the
// session can classify failures with errors.Is.
var (
	ErrPermissionDenied   = errors.New("camera permission denied")
	ErrDeviceNotFound     = errors.New("no capture device found")
	ErrDeviceBusy         = errors.New("capture device busy")
	ErrOverconstrained    = errors.New("camera constraints unsatisfiable")
	ErrSurfaceUnavailable = errors.New("rendering surface unavailable")
	ErrSurfaceTimeout     = errors.New("first frame timeout")
	ErrDecoderInit        = errors.New("decoder init failed")
	ErrNotFound           = errors.New("no barcode found")
)

// ErrorKind classifies a session failure.
type ErrorKind int

const (
	KindUnclassified ErrorKind = iota
	KindPermissionDenied
	KindDeviceNotFound
	KindDeviceBusy
	KindSurfaceTimeout
	KindMountFailure
	KindDecoderInitFailure
)

func (k ErrorKind) String() string {
	switch k {
	case KindPermissionDenied:
		return "permission_denied"
	case KindDeviceNotFound:
		return "device_not_found"
	case KindDeviceBusy:
		return "device_busy"
	case KindSurfaceTimeout:
		return "surface_timeout"
	case KindMountFailure:
		return "mount_failure"
	case KindDecoderInitFailure:
		return "decoder_init_failure"
	default:
		return "unclassified"
	}
}

// Kinds lists every ErrorKind, in declaration order.
var Kinds = []ErrorKind{
	KindUnclassified, KindPermissionDenied, KindDeviceNotFound, KindDeviceBusy,
	KindSurfaceTimeout, KindMountFailure, KindDecoderInitFailure,
}

// ErrorDetail is the classified failure reported through OnError.
type ErrorDetail struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (d ErrorDetail) Error() string { return d.Message }

func (d ErrorDetail) Unwrap() error { return d.Err }

// Retryable reports whether retrying without operator action on the
// hardware can succeed.
func (d ErrorDetail) Retryable() bool { return d.Kind != KindDeviceNotFound }

const (
	msgPermissionDenied = "Camera permission denied. Please allow camera access and try again."
	msgDeviceNotFound   = "No camera found on this device."
	msgDeviceBusy       = "Camera is in use by another app. Please close other camera apps."
	msgSurfaceTimeout   = "Camera took too long to start. Please reload and try again."
	msgMountFailure     = "Camera interface failed to load. Please reload and try again."
	msgDecoderInit      = "Barcode decoder could not be started."
)

// Classify maps an acquisition or decoder error to an ErrorDetail.
func Classify(err error) ErrorDetail {
	if err == nil {
		return ErrorDetail{}
	}
	var detail ErrorDetail
	if errors.As(err, &detail) {
		return detail
	}
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return ErrorDetail{Kind: KindPermissionDenied, Message: msgPermissionDenied, Err: err}
	case errors.Is(err, ErrDeviceNotFound):
		return ErrorDetail{Kind: KindDeviceNotFound, Message: msgDeviceNotFound, Err: err}
	case errors.Is(err, ErrDeviceBusy):
		return ErrorDetail{Kind: KindDeviceBusy, Message: msgDeviceBusy, Err: err}
	case errors.Is(err, ErrSurfaceTimeout), errors.Is(err, context.DeadlineExceeded):
		return ErrorDetail{Kind: KindSurfaceTimeout, Message: msgSurfaceTimeout, Err: err}
	case errors.Is(err, ErrSurfaceUnavailable):
		return ErrorDetail{Kind: KindMountFailure, Message: msgMountFailure, Err: err}
	case errors.Is(err, ErrDecoderInit):
		return ErrorDetail{Kind: KindDecoderInitFailure, Message: msgDecoderInit, Err: err}
	default:
		return ErrorDetail{Kind: KindUnclassified, Message: err.Error(), Err: err}
	}
}

// panicError converts a recovered panic value into an error.
func panicError(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("scan worker panic: %w", err)
	}
	return fmt.Errorf("scan worker panic: %v", r)
}
