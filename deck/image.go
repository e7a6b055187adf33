package deck

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	// Formats a rasterizer may be configured to emit.
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/tsawler/pdf2pptx/pptx"
)

// DefaultMaxDimension bounds the longer side of a slide picture in pixels.
const DefaultMaxDimension = 4096

// ErrUnknownImageFormat is returned for files no registered decoder reads.
var ErrUnknownImageFormat = errors.New("unknown image format")

// Image is a slide picture held in memory.
type Image struct {
	Data   []byte
	Format string // pptx.FormatPNG or pptx.FormatJPEG
	Width  int
	Height int
}

// LoadImage reads an image file into memory. PNG and JPEG files within
// maxDim are kept byte for byte; other formats are re-encoded as PNG and
// larger images are scaled down so the longer side is maxDim. A maxDim of
// zero or less disables scaling.
func LoadImage(path string, maxDim int) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, err
	}
	return NormalizeImage(data, maxDim)
}

// NormalizeImage is LoadImage for data already in memory.
func NormalizeImage(data []byte, maxDim int) (Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("%w: %v", ErrUnknownImageFormat, err)
	}

	oversized := maxDim > 0 && (cfg.Width > maxDim || cfg.Height > maxDim)
	if !oversized {
		switch format {
		case "png":
			return Image{Data: data, Format: pptx.FormatPNG, Width: cfg.Width, Height: cfg.Height}, nil
		case "jpeg":
			return Image{Data: data, Format: pptx.FormatJPEG, Width: cfg.Width, Height: cfg.Height}, nil
		}
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return Image{}, fmt.Errorf("decoding %s image: %w", format, err)
	}
	if oversized {
		src = scaleDown(src, maxDim)
	}

	var buf bytes.Buffer
	if format == "jpeg" {
		err = jpeg.Encode(&buf, src, &jpeg.Options{Quality: 90})
	} else {
		format = "png"
		err = png.Encode(&buf, src)
	}
	if err != nil {
		return Image{}, fmt.Errorf("encoding %s image: %w", format, err)
	}
	b := src.Bounds()
	return Image{Data: buf.Bytes(), Format: format, Width: b.Dx(), Height: b.Dy()}, nil
}

// scaleDown fits img into a maxDim square, keeping its aspect ratio.
func scaleDown(img image.Image, maxDim int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w >= h {
		h = max(1, h*maxDim/w)
		w = maxDim
	} else {
		w = max(1, w*maxDim/h)
		h = maxDim
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
