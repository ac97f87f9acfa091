// Package decode adapts gozxing readers to the scan.Decoder contract.
package decode

import (
	"errors"
	"fmt"
	"image"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/soocke/herbscan/domain/capture"
	"github.com/soocke/herbscan/domain/scan"
)

// Options tune the decoder.
type Options struct {
	// TryHarder trades speed for accuracy on every reader.
	TryHarder bool
	// RegionRatio is the side of the centred scan region relative to the
	// shorter frame edge. The region is tried before the full frame; zero
	// or one disables the region pass.
	RegionRatio float64
}

type namedReader struct {
	format scan.Format
	reader gozxing.Reader
}

// Decoder runs the configured readers over a frame until one succeeds.
type Decoder struct {
	readers []namedReader
	hints   map[gozxing.DecodeHintType]interface{}
	region  func() float64
}

var errNoFormats = errors.New("no supported formats requested")

// New builds a decoder for formats. Unknown format names fail with
// scan.ErrDecoderInit.
func New(formats []scan.Format, opts Options) (*Decoder, error) {
	if len(formats) == 0 {
		formats = scan.DefaultFormats
	}
	hints := map[gozxing.DecodeHintType]interface{}{}
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}
	possible := make([]gozxing.BarcodeFormat, 0, len(formats))
	ratio := opts.RegionRatio
	d := &Decoder{hints: hints, region: func() float64 { return ratio }}
	seen := map[scan.Format]bool{}
	for _, f := range formats {
		if seen[f] {
			continue
		}
		seen[f] = true
		bf, ok := toZXing[f]
		if !ok {
			return nil, fmt.Errorf("%w: unknown format %q", scan.ErrDecoderInit, f)
		}
		possible = append(possible, bf)
		d.readers = append(d.readers, namedReader{format: f, reader: newReader(f)})
	}
	if len(d.readers) == 0 {
		return nil, fmt.Errorf("%w: %v", scan.ErrDecoderInit, errNoFormats)
	}
	hints[gozxing.DecodeHintType_POSSIBLE_FORMATS] = possible
	return d, nil
}

// Factory returns a scan.DecoderFactory bound to opts.
func Factory(opts Options) scan.DecoderFactory {
	return func(formats []scan.Format) (scan.Decoder, error) {
		return New(formats, opts)
	}
}

// Decode implements scan.Decoder. A frame with no recognisable symbol
// yields scan.ErrNotFound.
func (d *Decoder) Decode(img image.Image) (scan.Result, error) {
	if img == nil {
		return scan.Result{}, scan.ErrNotFound
	}
	b := img.Bounds()
	if b.Empty() {
		return scan.Result{}, scan.ErrNotFound
	}
	if ratio := d.region(); ratio > 0 && ratio < 1 {
		region := capture.CropFrame(img, capture.ReticleRect(b, ratio))
		res, err := d.decodeImage(region)
		capture.RecycleFrame(region)
		if err == nil || !errors.Is(err, scan.ErrNotFound) {
			return res, err
		}
	}
	return d.decodeImage(img)
}

func (d *Decoder) decodeImage(img image.Image) (scan.Result, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return scan.Result{}, fmt.Errorf("binarize: %w", err)
	}
	for _, nr := range d.readers {
		res, err := nr.reader.Decode(bmp, d.hints)
		nr.reader.Reset()
		if err != nil {
			if isMiss(err) {
				continue
			}
			return scan.Result{}, err
		}
		format, ok := fromZXing[res.GetBarcodeFormat()]
		if !ok {
			format = nr.format
		}
		return scan.Result{Text: res.GetText(), Format: format}, nil
	}
	return scan.Result{}, scan.ErrNotFound
}

// isMiss reports whether err is a reader's ordinary "nothing here" answer.
// Checksum and format failures on a partial symbol count as misses too.
func isMiss(err error) bool {
	var notFound gozxing.NotFoundException
	var checksum gozxing.ChecksumException
	var format gozxing.FormatException
	return errors.As(err, &notFound) || errors.As(err, &checksum) || errors.As(err, &format)
}

func newReader(f scan.Format) gozxing.Reader {
	switch f {
	case scan.FormatQR:
		return qrcode.NewQRCodeReader()
	case scan.FormatCode128:
		return oned.NewCode128Reader()
	case scan.FormatCode39:
		return oned.NewCode39Reader()
	case scan.FormatCode93:
		return oned.NewCode93Reader()
	case scan.FormatEAN13:
		return oned.NewEAN13Reader()
	case scan.FormatEAN8:
		return oned.NewEAN8Reader()
	case scan.FormatUPCA:
		return oned.NewUPCAReader()
	case scan.FormatUPCE:
		return oned.NewUPCEReader()
	}
	return nil
}

var toZXing = map[scan.Format]gozxing.BarcodeFormat{
	scan.FormatQR:      gozxing.BarcodeFormat_QR_CODE,
	scan.FormatCode128: gozxing.BarcodeFormat_CODE_128,
	scan.FormatCode39:  gozxing.BarcodeFormat_CODE_39,
	scan.FormatCode93:  gozxing.BarcodeFormat_CODE_93,
	scan.FormatEAN13:   gozxing.BarcodeFormat_EAN_13,
	scan.FormatEAN8:    gozxing.BarcodeFormat_EAN_8,
	scan.FormatUPCA:    gozxing.BarcodeFormat_UPC_A,
	scan.FormatUPCE:    gozxing.BarcodeFormat_UPC_E,
}

var fromZXing = func() map[gozxing.BarcodeFormat]scan.Format {
	m := make(map[gozxing.BarcodeFormat]scan.Format, len(toZXing))
	for k, v := range toZXing {
		m[v] = k
	}
	return m
}()
