package preview

import (
	"fmt"
	"image"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"github.com/gosimple/slug"
	"github.com/mazznoer/csscolorparser"
	"go.uber.org/zap"
	"golang.org/x/image/font/basicfont"

	"ncss/host"
)

// Options control preview rendering.
type Options struct {
	Width  int     // canvas width in px
	Height int     // canvas height, 0 - fit content
	Scale  float64 // final image scale factor, 0 or 1 - no scaling
}

// Render lays out and paints view tree.
func Render(v *host.View, opts Options, log *zap.Logger) (image.Image, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if v == nil {
		return nil, fmt.Errorf("nothing to preview")
	}
	if opts.Width <= 0 {
		return nil, fmt.Errorf("invalid preview width %d", opts.Width)
	}

	root := Layout(v, float64(opts.Width))
	height := opts.Height
	if height <= 0 {
		height = int(math.Ceil(root.H))
	}
	img := Paint(root, opts.Width, height)

	if opts.Scale > 0 && opts.Scale != 1 {
		img = Scale(img, opts.Scale)
	}
	log.Debug("Preview rendered", zap.Int("width", img.Bounds().Dx()), zap.Int("height", img.Bounds().Dy()))
	return img, nil
}

// Paint draws boxes on a white canvas: background-color fills the box,
// border-color (border-width, default 1px) outlines it and color is used for
// the label.
func Paint(root *Box, width, height int) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	root.Walk(func(b *Box) {
		if c, ok := b.Style.Color("background-color"); ok {
			setColor(dc, c)
			dc.DrawRectangle(b.X, b.Y, b.W, b.H)
			dc.Fill()
		}

		border, ok := b.Style.Color("border-color")
		if !ok {
			border = csscolorparser.Color{R: 0.6, G: 0.6, B: 0.6, A: 1}
		}
		if w := length(b.Style, "border-width", 1); w > 0 {
			setColor(dc, border)
			dc.SetLineWidth(w)
			dc.DrawRectangle(b.X, b.Y, b.W, b.H)
			dc.Stroke()
		}

		text, ok := b.Style.Color("color")
		if !ok {
			text = csscolorparser.Color{A: 1}
		}
		setColor(dc, text)
		dc.DrawString(b.Label(), b.X+b.Padding, b.Y+b.Padding+13)
	})
	return dc.Image()
}

func setColor(dc *gg.Context, c csscolorparser.Color) {
	dc.SetRGBA(c.R, c.G, c.B, c.A)
}

// Scale resizes image by factor.
func Scale(img image.Image, factor float64) image.Image {
	w := int(math.Round(float64(img.Bounds().Dx()) * factor))
	h := int(math.Round(float64(img.Bounds().Dy()) * factor))
	if w <= 0 || h <= 0 {
		return img
	}
	return imaging.Resize(img, w, h, imaging.Lanczos)
}

// WritePNG encodes image as PNG.
func WritePNG(w io.Writer, img image.Image) error {
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("unable to encode preview: %w", err)
	}
	return nil
}

// OutputName derives preview file name from source file name.
func OutputName(source string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	name := slug.Make(base)
	if name == "" {
		name = "preview"
	}
	return name + ".png"
}
