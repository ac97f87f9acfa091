package scan

import (
	"errors"
	"time"
)

// decodeLoop runs one decode pass per tick until a payload is found or the
// cycle is cancelled. Passes are strictly sequential.
func (s *Session) decodeLoop(c *cycle, surface Surface, dec Decoder) {
	ticker := time.NewTicker(c.opts.PassInterval)
	defer ticker.Stop()
	decoding := false
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
		}
		if c.ctx.Err() != nil {
			return
		}
		frame := surface.Frame()
		if frame == nil {
			continue
		}
		if !decoding {
			if !s.advance(c, PhaseDecoding) {
				return
			}
			decoding = true
		}
		res, err := dec.Decode(frame)
		s.stats.passes.Add(1)
		if err != nil {
			if !errors.Is(err, ErrNotFound) && s.logger != nil {
				s.logger.Debug("decode pass error", "error", err, "cycle", c.id)
			}
			continue
		}
		s.succeed(c, res)
		return
	}
}
