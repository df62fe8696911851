package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// Invert modes for PreprocessOptions.
const (
	InvertAuto   = "auto"
	InvertAlways = "always"
	InvertNever  = "never"
)

// PreprocessOptions tunes crop normalization before OCR.
type PreprocessOptions struct {
	Enabled bool `yaml:"enabled" json:"enabled"`

	// MinHeight upscales shorter crops; Tesseract struggles with tiny glyphs.
	MinHeight int `yaml:"min_height" json:"min_height"`

	// Contrast is passed to bild's adjust.Contrast, in [-1,1]. Zero skips.
	Contrast float64 `yaml:"contrast" json:"contrast"`

	// Invert is one of InvertAuto, InvertAlways, InvertNever.
	Invert string `yaml:"invert" json:"invert"`

	// Threshold binarizes at this gray level when in 1..255. Zero skips.
	Threshold int `yaml:"threshold" json:"threshold"`
}

// DefaultPreprocess returns the settings used for seven-segment displays.
func DefaultPreprocess() PreprocessOptions {
	return PreprocessOptions{
		Enabled:   true,
		MinHeight: 48,
		Contrast:  0.3,
		Invert:    InvertAuto,
	}
}

// Polarity describes the display's digit and background brightness.
type Polarity int

const (
	// DarkOnLight is an LCD-style display: dark segments on a pale panel.
	DarkOnLight Polarity = iota
	// LightOnDark is an LED/VFD display: lit segments on a dark panel.
	LightOnDark
)

func (p Polarity) String() string {
	if p == LightOnDark {
		return "light-on-dark"
	}
	return "dark-on-light"
}

// DetectPolarity samples the border of img, which is assumed to be panel
// background, and compares its mean CIE L* lightness to the midpoint.
func DetectPolarity(img image.Image) Polarity {
	b := img.Bounds()
	if b.Empty() {
		return DarkOnLight
	}

	var sum float64
	var n int
	sample := func(x, y int) {
		c, ok := colorful.MakeColor(img.At(x, y))
		if !ok {
			return
		}
		l, _, _ := c.Lab()
		sum += l
		n++
	}

	stepX := max(1, b.Dx()/32)
	stepY := max(1, b.Dy()/32)
	for x := b.Min.X; x < b.Max.X; x += stepX {
		sample(x, b.Min.Y)
		sample(x, b.Max.Y-1)
	}
	for y := b.Min.Y; y < b.Max.Y; y += stepY {
		sample(b.Min.X, y)
		sample(b.Max.X-1, y)
	}

	if n == 0 || sum/float64(n) >= 0.5 {
		return DarkOnLight
	}
	return LightOnDark
}

// Preprocess returns a grayscale, dark-on-light version of img tuned for
// Tesseract according to opts.
func Preprocess(img image.Image, opts PreprocessOptions) image.Image {
	src := img
	if opts.MinHeight > 0 && src.Bounds().Dy() > 0 && src.Bounds().Dy() < opts.MinHeight {
		src = imaging.Resize(src, 0, opts.MinHeight, imaging.Lanczos)
	}

	var out image.Image = effect.Grayscale(src)
	if opts.Contrast != 0 {
		out = adjust.Contrast(out, opts.Contrast)
	}

	switch opts.Invert {
	case InvertAlways:
		out = effect.Invert(out)
	case InvertNever:
	default:
		if DetectPolarity(src) == LightOnDark {
			out = effect.Invert(out)
		}
	}

	if opts.Threshold > 0 && opts.Threshold < 256 {
		return segment.Threshold(out, uint8(opts.Threshold))
	}
	return out
}
