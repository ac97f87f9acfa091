package view

import (
	"image"

	"github.com/soocke/herbscan/ui/images"

	//lint:ignore ST1001 Dot import is intentional for concise Tk widget DSL builders.
	. "modernc.org/tk9.0"
)

// Preview shows the live camera frame with the scan region overlay.
type Preview interface {
	UpdatePreview(img image.Image)
	Reset()
}

type preview struct {
	label     *LabelWidget
	prevPhoto *Img // disposed before replacement so old pixel data is freed
}

const (
	placeholderW = 400
	placeholderH = 225
)

// NewPreview creates the preview label at row, spanning the given columns.
func NewPreview(row, columns int) Preview {
	photo := NewPhoto(Data(placeholderPNG()))
	lbl := Label(Image(photo), Borderwidth(1), Relief("sunken"))
	Grid(lbl, Row(row), Column(0), Columnspan(columns), Sticky("we"), Padx("0.4m"), Pady("0.4m"))
	return &preview{label: lbl, prevPhoto: photo}
}

func placeholderPNG() []byte {
	return images.EncodePNG(image.NewRGBA(image.Rect(0, 0, placeholderW, placeholderH)))
}

// UpdatePreview expects an image already scaled for display.
func (v *preview) UpdatePreview(img image.Image) {
	if v.label == nil || img == nil {
		return
	}
	v.replace(images.EncodePNG(img))
}

func (v *preview) Reset() {
	if v.label == nil {
		return
	}
	v.replace(placeholderPNG())
}

func (v *preview) replace(pngBytes []byte) {
	if v.prevPhoto != nil {
		v.prevPhoto.Delete()
	}
	v.prevPhoto = NewPhoto(Data(pngBytes))
	v.label.Configure(Image(v.prevPhoto))
}
