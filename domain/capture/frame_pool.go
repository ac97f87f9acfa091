package capture

import (
	"image"
	"image/draw"
	"sync"
)

// Reusable RGBA buffers for short-lived crops. Decode passes crop the scan
// region on every tick; pooling keeps those copies from churning the heap.
// Frames published by a surface are never pooled since consumers may hold
// them for an unknown time.

var framePool sync.Pool // stores *image.RGBA

// AcquireFrame returns a reusable RGBA image with bounds rect. The returned
// Pix length exactly matches rect area * 4, and Stride is width*4. Pixel
// contents are undefined.
func AcquireFrame(rect image.Rectangle) *image.RGBA {
	w, h := rect.Dx(), rect.Dy()
	if w <= 0 || h <= 0 {
		return &image.RGBA{Rect: rect}
	}
	needed := w * h * 4
	var img *image.RGBA
	if v := framePool.Get(); v != nil {
		img = v.(*image.RGBA)
	}
	if img == nil || cap(img.Pix) < needed {
		img = &image.RGBA{Pix: make([]byte, needed), Stride: w * 4, Rect: rect}
	} else {
		img.Stride = w * 4
		img.Rect = rect
		img.Pix = img.Pix[:needed]
	}
	return img
}

// RecycleFrame returns the frame to the pool. The caller must not touch it
// afterwards.
func RecycleFrame(img *image.RGBA) {
	if img == nil || img.Pix == nil {
		return
	}
	framePool.Put(img)
}

// ReticleRect returns the centred square scan region of b whose side is
// ratio times the shorter edge. It is clamped to b and at least 1x1.
func ReticleRect(b image.Rectangle, ratio float64) image.Rectangle {
	if b.Empty() {
		return b
	}
	if ratio <= 0 || ratio > 1 {
		ratio = 1
	}
	short := b.Dx()
	if b.Dy() < short {
		short = b.Dy()
	}
	size := int(float64(short)*ratio + 0.5)
	if size < 1 {
		size = 1
	}
	cx := b.Min.X + b.Dx()/2
	cy := b.Min.Y + b.Dy()/2
	r := image.Rect(cx-size/2, cy-size/2, cx-size/2+size, cy-size/2+size)
	return r.Intersect(b)
}

// CropFrame copies region r of src into a pooled zero-origin RGBA. Release
// the result with RecycleFrame.
func CropFrame(src image.Image, r image.Rectangle) *image.RGBA {
	r = r.Intersect(src.Bounds())
	dst := AcquireFrame(image.Rect(0, 0, r.Dx(), r.Dy()))
	if r.Empty() {
		return dst
	}
	draw.Draw(dst, dst.Bounds(), src, r.Min, draw.Src)
	return dst
}
