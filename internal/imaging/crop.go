package imaging

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
)

// JPEGQuality is the quality used for saved crops.
const JPEGQuality = 90

// ErrEmptyCrop is returned when a crop rectangle has no area inside the image.
var ErrEmptyCrop = errors.New("crop region is empty")

// Rect is a crop rectangle in source-image pixels.
type Rect struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge (exclusive)
	Y2 int `json:"y2"` // Bottom edge (exclusive)
}

// Normalize orders the corners so X1 <= X2 and Y1 <= Y2.
func (r Rect) Normalize() Rect {
	if r.X1 > r.X2 {
		r.X1, r.X2 = r.X2, r.X1
	}
	if r.Y1 > r.Y2 {
		r.Y1, r.Y2 = r.Y2, r.Y1
	}
	return r
}

// Clamp trims r to bounds.
func (r Rect) Clamp(bounds image.Rectangle) Rect {
	r.X1 = clamp(r.X1, bounds.Min.X, bounds.Max.X)
	r.X2 = clamp(r.X2, bounds.Min.X, bounds.Max.X)
	r.Y1 = clamp(r.Y1, bounds.Min.Y, bounds.Max.Y)
	r.Y2 = clamp(r.Y2, bounds.Min.Y, bounds.Max.Y)
	return r
}

// Empty reports whether r has no area.
func (r Rect) Empty() bool {
	return r.X2 <= r.X1 || r.Y2 <= r.Y1
}

// Image converts r to an image.Rectangle.
func (r Rect) Image() image.Rectangle {
	return image.Rect(r.X1, r.Y1, r.X2, r.Y2)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Crop cuts r out of img after normalizing and clamping it.
func Crop(img image.Image, r Rect) (*image.NRGBA, Rect, error) {
	r = r.Normalize().Clamp(img.Bounds())
	if r.Empty() {
		return nil, r, fmt.Errorf("%w: (%d,%d)-(%d,%d)", ErrEmptyCrop, r.X1, r.Y1, r.X2, r.Y2)
	}
	return imaging.Crop(img, r.Image()), r, nil
}

// CropOptions controls where and how a crop is saved.
type CropOptions struct {
	// CacheDir receives the JPEG. It is created with mode 0700.
	CacheDir string

	// Label names the field the crop holds, e.g. "time".
	Label string

	// Preprocess is applied to the crop before saving when Enabled.
	Preprocess PreprocessOptions
}

// CropResult describes a saved crop.
type CropResult struct {
	Label  string `json:"label"`
	Path   string `json:"path"`
	URI    string `json:"uri"`
	Rect   Rect   `json:"rect"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// CropToCache crops img, optionally preprocesses it, and writes it to the
// cache directory as a quality-90 JPEG.
func CropToCache(img image.Image, r Rect, opts CropOptions) (*CropResult, error) {
	cropped, r, err := Crop(img, r)
	if err != nil {
		return nil, err
	}

	var out image.Image = cropped
	if opts.Preprocess.Enabled {
		out = Preprocess(cropped, opts.Preprocess)
	}

	if err := os.MkdirAll(opts.CacheDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	label := sanitizeLabel(opts.Label)
	path := filepath.Join(opts.CacheDir, fmt.Sprintf("cropped_%s_%s.jpg", label, uuid.NewString()))
	if err := imaging.Save(out, path, imaging.JPEGQuality(JPEGQuality)); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to save cropped %s: %w", label, err)
	}

	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		os.Remove(path)
		return nil, fmt.Errorf("failed to save cropped %s correctly (empty file)", label)
	}

	bounds := out.Bounds()
	return &CropResult{
		Label:  opts.Label,
		Path:   path,
		URI:    FileURI(path),
		Rect:   r,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
	}, nil
}

func sanitizeLabel(label string) string {
	label = strings.ToLower(strings.TrimSpace(label))
	if label == "" {
		return "area"
	}
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			return r
		}
		return '_'
	}, label)
}
