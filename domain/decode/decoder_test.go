package decode

import (
	"image"
	"image/color"
	"image/draw"
	"testing"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soocke/herbscan/config"
	"github.com/soocke/herbscan/domain/scan"
)

func matrixImage(t *testing.T, m *gozxing.BitMatrix) *image.Gray {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, m.GetWidth(), m.GetHeight()))
	for y := 0; y < m.GetHeight(); y++ {
		for x := 0; x < m.GetWidth(); x++ {
			if m.Get(x, y) {
				img.SetGray(x, y, color.Gray{Y: 0})
			} else {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func qrImage(t *testing.T, text string) *image.Gray {
	t.Helper()
	m, err := qrcode.NewQRCodeWriter().Encode(text, gozxing.BarcodeFormat_QR_CODE, 200, 200, nil)
	require.NoError(t, err)
	return matrixImage(t, m)
}

func code128Image(t *testing.T, text string) *image.Gray {
	t.Helper()
	m, err := oned.NewCode128Writer().Encode(text, gozxing.BarcodeFormat_CODE_128, 300, 80, nil)
	require.NoError(t, err)
	return matrixImage(t, m)
}

// onCanvas pastes symbol onto a white RGBA canvas at offset.
func onCanvas(symbol image.Image, w, h int, at image.Point) *image.RGBA {
	canvas := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(canvas, canvas.Bounds(), image.White, image.Point{}, draw.Src)
	r := symbol.Bounds().Add(at)
	draw.Draw(canvas, r, symbol, symbol.Bounds().Min, draw.Src)
	return canvas
}

func TestDecode_QR(t *testing.T) {
	dec, err := New([]scan.Format{scan.FormatQR}, Options{})
	require.NoError(t, err)
	res, err := dec.Decode(qrImage(t, "SMP-00123"))
	require.NoError(t, err)
	assert.Equal(t, scan.Result{Text: "SMP-00123", Format: scan.FormatQR}, res)
}

func TestDecode_Code128(t *testing.T) {
	dec, err := New(nil, Options{})
	require.NoError(t, err)
	res, err := dec.Decode(code128Image(t, "SMP-00777"))
	require.NoError(t, err)
	assert.Equal(t, "SMP-00777", res.Text)
	assert.Equal(t, scan.FormatCode128, res.Format)
}

func TestDecode_RegionFirst(t *testing.T) {
	dec, err := New([]scan.Format{scan.FormatQR}, Options{RegionRatio: 0.6})
	require.NoError(t, err)

	centred := onCanvas(qrImage(t, "SMP-CENTRE"), 640, 480, image.Pt(220, 140))
	res, err := dec.Decode(centred)
	require.NoError(t, err)
	assert.Equal(t, "SMP-CENTRE", res.Text)

	// outside the scan region the full-frame pass still finds it
	corner := onCanvas(qrImage(t, "SMP-CORNER"), 640, 480, image.Pt(0, 0))
	res, err = dec.Decode(corner)
	require.NoError(t, err)
	assert.Equal(t, "SMP-CORNER", res.Text)
}

func TestDecode_Miss(t *testing.T) {
	dec, err := New(nil, Options{TryHarder: true, RegionRatio: 0.5})
	require.NoError(t, err)
	blank := onCanvas(image.NewGray(image.Rect(0, 0, 0, 0)), 320, 240, image.Point{})
	_, err = dec.Decode(blank)
	assert.ErrorIs(t, err, scan.ErrNotFound)

	_, err = dec.Decode(nil)
	assert.ErrorIs(t, err, scan.ErrNotFound)
}

func TestNew_RejectsUnknownFormat(t *testing.T) {
	_, err := New([]scan.Format{"aztec"}, Options{})
	assert.ErrorIs(t, err, scan.ErrDecoderInit)
}

func TestFactory(t *testing.T) {
	f := Factory(Options{})
	dec, err := f([]scan.Format{scan.FormatQR, scan.FormatQR, scan.FormatEAN8})
	require.NoError(t, err)
	assert.Len(t, dec.(*Decoder).readers, 2)
}

func TestFormatTablesCoverDefaults(t *testing.T) {
	for _, f := range scan.DefaultFormats {
		bf, ok := toZXing[f]
		require.True(t, ok, f)
		assert.Equal(t, f, fromZXing[bf])
		assert.NotNil(t, newReader(f), f)
	}
}

func TestTuning_FactoryReadsCurrentOptions(t *testing.T) {
	tuning := NewTuning(Options{})
	f := tuning.Factory()

	dec, err := f([]scan.Format{scan.FormatQR})
	require.NoError(t, err)
	_, hard := dec.(*Decoder).hints[gozxing.DecodeHintType_TRY_HARDER]
	assert.False(t, hard)

	tuning.Store(Options{TryHarder: true, RegionRatio: 0.5})
	dec, err = f([]scan.Format{scan.FormatQR})
	require.NoError(t, err)
	assert.Equal(t, true, dec.(*Decoder).hints[gozxing.DecodeHintType_TRY_HARDER])
	assert.Equal(t, 0.5, dec.(*Decoder).region())
}

func TestTuning_RegionFollowsLiveDecoder(t *testing.T) {
	// symbol in the corner, outside a centred half-size region
	frame := onCanvas(qrImage(t, "SMP-CORNER"), 800, 600, image.Pt(0, 0))
	tuning := NewTuning(Options{RegionRatio: 1})
	dec, err := tuning.Factory()([]scan.Format{scan.FormatQR})
	require.NoError(t, err)

	tuning.Store(Options{RegionRatio: 0.4})
	assert.Equal(t, 0.4, dec.(*Decoder).region())
	res, err := dec.Decode(frame)
	require.NoError(t, err, "full frame pass still runs after the region misses")
	assert.Equal(t, "SMP-CORNER", res.Text)
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.TryHarder = true
	cfg.ScanRegionRatio = 0.7
	assert.Equal(t, Options{TryHarder: true, RegionRatio: 0.7}, FromConfig(cfg))
}
