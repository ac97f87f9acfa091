package images

import (
	"bytes"
	"image"
	"image/color"
	"image/png"

	"golang.org/x/image/draw"
)

// EncodePNG encodes an image to PNG bytes. Errors are ignored and may return an empty slice.
func EncodePNG(img image.Image) []byte {
	if img == nil {
		return nil
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	_ = enc.Encode(&buf, img)
	return buf.Bytes()
}

// FitSize returns the largest size with the aspect ratio of (w, h) that fits
// within maxW x maxH. Sizes that already fit are returned unchanged.
func FitSize(w, h, maxW, maxH int) (int, int) {
	if w <= 0 || h <= 0 {
		return 0, 0
	}
	if maxW < 1 {
		maxW = 1
	}
	if maxH < 1 {
		maxH = 1
	}
	if w <= maxW && h <= maxH {
		return w, h
	}
	ratio := float64(maxW) / float64(w)
	if r := float64(maxH) / float64(h); r < ratio {
		ratio = r
	}
	newW := int(float64(w)*ratio + 0.5)
	newH := int(float64(h)*ratio + 0.5)
	if newW < 1 {
		newW = 1
	}
	if newH < 1 {
		newH = 1
	}
	return newW, newH
}

// ScaleToFit returns a new RGBA copy of src scaled to fit within maxW x maxH
// preserving aspect ratio. The result never aliases src, so callers may draw
// on it.
func ScaleToFit(src image.Image, maxW, maxH int) *image.RGBA {
	if src == nil {
		return nil
	}
	b := src.Bounds()
	w, h := FitSize(b.Dx(), b.Dy(), maxW, maxH)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	if w == b.Dx() && h == b.Dy() {
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
		return dst
	}
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// ReticleColor is the outline colour of the scan region overlay.
var ReticleColor = color.RGBA{R: 0x10, G: 0xb9, B: 0x81, A: 0xff}

// DrawReticle outlines r on img with corner brackets of the given stroke
// width, the way a camera scanner marks its scan region.
func DrawReticle(img *image.RGBA, r image.Rectangle, stroke int) {
	if img == nil {
		return
	}
	r = r.Intersect(img.Bounds())
	if r.Empty() {
		return
	}
	if stroke < 1 {
		stroke = 1
	}
	arm := r.Dx() / 5
	if a := r.Dy() / 5; a < arm {
		arm = a
	}
	if arm < stroke {
		arm = stroke
	}
	fill := image.NewUniform(ReticleColor)
	corners := []image.Point{r.Min, {r.Max.X - arm, r.Min.Y}, {r.Min.X, r.Max.Y - arm}, {r.Max.X - arm, r.Max.Y - arm}}
	for i, c := range corners {
		// horizontal arm on the outer edge, vertical arm on the outer side
		hy := c.Y
		if i >= 2 {
			hy = r.Max.Y - stroke
		}
		vx := c.X
		if i%2 == 1 {
			vx = r.Max.X - stroke
		}
		draw.Draw(img, image.Rect(c.X, hy, c.X+arm, hy+stroke).Intersect(r), fill, image.Point{}, draw.Src)
		draw.Draw(img, image.Rect(vx, c.Y, vx+stroke, c.Y+arm).Intersect(r), fill, image.Point{}, draw.Src)
	}
}
