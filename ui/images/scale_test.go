package images

import (
	"image"
	"image/color"
	"testing"
)

func TestFitSize(t *testing.T) {
	cases := []struct {
		w, h, maxW, maxH int
		wantW, wantH     int
	}{
		{1280, 720, 400, 225, 400, 225},
		{640, 480, 400, 225, 300, 225},
		{100, 50, 400, 225, 100, 50},
		{0, 10, 400, 225, 0, 0},
		{3000, 10, 10, 10, 10, 1},
	}
	for _, c := range cases {
		gw, gh := FitSize(c.w, c.h, c.maxW, c.maxH)
		if gw != c.wantW || gh != c.wantH {
			t.Fatalf("FitSize(%d,%d,%d,%d) = %dx%d, want %dx%d", c.w, c.h, c.maxW, c.maxH, gw, gh, c.wantW, c.wantH)
		}
	}
}

func TestScaleToFit_NeverAliases(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 10, 10))
	src.SetRGBA(3, 3, color.RGBA{R: 255, A: 255})
	out := ScaleToFit(src, 100, 100)
	if out.Bounds().Dx() != 10 || out.Bounds().Dy() != 10 {
		t.Fatalf("unexpected size %v", out.Bounds())
	}
	out.SetRGBA(3, 3, color.RGBA{G: 255, A: 255})
	if src.RGBAAt(3, 3).R != 255 {
		t.Fatal("ScaleToFit must copy small sources")
	}

	big := image.NewRGBA(image.Rect(0, 0, 800, 600))
	scaled := ScaleToFit(big, 400, 225)
	if scaled.Bounds().Dx() != 300 || scaled.Bounds().Dy() != 225 {
		t.Fatalf("unexpected scaled size %v", scaled.Bounds())
	}
}

func TestDrawReticle_MarksCornersOnly(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 100, 100))
	r := image.Rect(20, 20, 80, 80)
	DrawReticle(img, r, 2)
	if img.RGBAAt(20, 20) != ReticleColor || img.RGBAAt(79, 79) != ReticleColor {
		t.Fatal("expected corners to be marked")
	}
	if img.RGBAAt(50, 20) == ReticleColor {
		t.Fatal("edge midpoints stay clear")
	}
	if img.RGBAAt(50, 50) == ReticleColor {
		t.Fatal("centre must stay clear")
	}
	DrawReticle(nil, r, 2)
	DrawReticle(img, image.Rectangle{}, 2)
}

func TestEncodePNG(t *testing.T) {
	if EncodePNG(nil) != nil {
		t.Fatal("nil image encodes to nil")
	}
	b := EncodePNG(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	if len(b) < 8 || string(b[1:4]) != "PNG" {
		t.Fatalf("not a png: %v", b)
	}
}
