package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/soocke/herbscan/domain/scan"
)

// DevicePrefix is the node name prefix of video capture devices.
const DevicePrefix = "video"

// Opener opens dev at the requested resolution. Zero width/height means no
// preference. It returns an error wrapping scan.ErrOverconstrained when the
// device cannot deliver a requested resolution.
type Opener func(ctx context.Context, dev Device, width, height int) (scan.Stream, error)

// Devices implements scan.MediaDevices over the video device nodes in a
// directory.
type Devices struct {
	dir    string
	rear   string
	open   Opener
	probe  func(path string) error
	logger *slog.Logger
}

// NewDevices returns camera devices rooted at dir. rear names the node
// treated as the rear-facing camera; when empty every device qualifies.
func NewDevices(dir, rear string, open Opener, logger *slog.Logger) *Devices {
	if open == nil {
		open = OpenCamera
	}
	return &Devices{dir: dir, rear: rear, open: open, probe: Probe, logger: logger}
}

// List returns the device nodes in dir ordered by index.
func (d *Devices) List() ([]Device, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", d.dir, err)
	}
	var out []Device
	for _, e := range entries {
		name := e.Name()
		if !strings.HasPrefix(name, DevicePrefix) {
			continue
		}
		idx, err := strconv.Atoi(strings.TrimPrefix(name, DevicePrefix))
		if err != nil {
			idx = -1
		}
		out = append(out, Device{
			Name:  name,
			Path:  filepath.Join(d.dir, name),
			Index: idx,
			Rear:  d.rear != "" && name == filepath.Base(d.rear),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Index != out[j].Index {
			return out[i].Index < out[j].Index
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

// ProbeAll checks every listed device.
func (d *Devices) ProbeAll() ([]ProbeStatus, error) {
	devs, err := d.List()
	if err != nil {
		return nil, err
	}
	out := make([]ProbeStatus, 0, len(devs))
	for _, dev := range devs {
		out = append(out, ProbeStatus{Device: dev, Err: d.probe(dev.Path)})
	}
	return out, nil
}

// RequestStream implements scan.MediaDevices.
func (d *Devices) RequestStream(ctx context.Context, c scan.Constraints) (scan.Stream, error) {
	devs, err := d.List()
	if err != nil {
		return nil, err
	}
	if len(devs) == 0 {
		return nil, fmt.Errorf("%s: %w", d.dir, scan.ErrDeviceNotFound)
	}

	candidates := devs
	if c.Facing == scan.FacingRear && d.rear != "" {
		candidates = nil
		for _, dev := range devs {
			if dev.Rear {
				candidates = append(candidates, dev)
			}
		}
		if len(candidates) == 0 {
			return nil, fmt.Errorf("rear device %s not present: %w", d.rear, scan.ErrOverconstrained)
		}
	}

	var firstErr error
	for _, dev := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := d.probe(dev.Path); err != nil {
			if d.logger != nil {
				d.logger.Debug("device probe failed", "device", dev.Path, "error", err)
			}
			firstErr = preferErr(firstErr, err)
			continue
		}
		st, err := openWithContext(ctx, d.open, dev, c.Width, c.Height)
		if err == nil {
			return st, nil
		}
		if ctx.Err() != nil {
			return nil, err
		}
		if d.logger != nil {
			d.logger.Debug("device open failed", "device", dev.Path, "error", err)
		}
		firstErr = preferErr(firstErr, err)
	}
	return nil, firstErr
}

// preferErr keeps the most informative error across candidates: a
// constraint failure outranks device errors so the session can fall back.
func preferErr(cur, next error) error {
	if cur == nil {
		return next
	}
	if errors.Is(next, scan.ErrOverconstrained) && !errors.Is(cur, scan.ErrOverconstrained) {
		return next
	}
	return cur
}

// openWithContext runs open and abandons it when ctx ends first. A stream
// that arrives after that is stopped.
func openWithContext(ctx context.Context, open Opener, dev Device, width, height int) (scan.Stream, error) {
	type result struct {
		st  scan.Stream
		err error
	}
	ch := make(chan result, 1)
	go func() {
		st, err := open(ctx, dev, width, height)
		ch <- result{st, err}
	}()
	select {
	case r := <-ch:
		return r.st, r.err
	case <-ctx.Done():
		go func() {
			if r := <-ch; r.st != nil {
				_ = r.st.Stop()
			}
		}()
		return nil, ctx.Err()
	}
}
