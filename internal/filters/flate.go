package filters

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"io"
)

// Params represents decode parameters from PDF stream dictionaries.
// Common parameters include Predictor, Columns, Colors, and BitsPerComponent.
type Params map[string]interface{}

// FlateDecode decompresses Flate (zlib/deflate) compressed data and undoes
// the predictor named in params, if any.
func FlateDecode(data []byte, params Params) ([]byte, error) {
	decompressed, err := zlibDecompress(data)
	if err != nil {
		return nil, fmt.Errorf("zlib decompression failed: %w", err)
	}

	predictor := getIntParam(params, "Predictor", 1)
	switch {
	case predictor == 1:
		return decompressed, nil
	case predictor == 2:
		return applyTIFFPredictor2(decompressed, params)
	case predictor >= 10 && predictor <= 15:
		return applyPNGPredictor(decompressed, params)
	}
	return nil, fmt.Errorf("unsupported predictor: %d", predictor)
}

// zlibDecompress inflates data. A truncated stream still yields whatever
// was recovered before the error, as long as something was.
func zlibDecompress(data []byte) ([]byte, error) {
	reader, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create zlib reader: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		if buf.Len() > 0 && err == io.ErrUnexpectedEOF {
			return buf.Bytes(), nil
		}
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	maxColors  = 32
	maxRowSize = 1 << 24
)

func rowGeometry(params Params) (bytesPerPixel, rowSize int, err error) {
	columns := getIntParam(params, "Columns", 1)
	colors := getIntParam(params, "Colors", 1)
	bpc := getIntParam(params, "BitsPerComponent", 8)
	if bpc != 8 {
		return 0, 0, fmt.Errorf("predictor only supports 8 bits per component, got %d", bpc)
	}
	if columns < 1 || colors < 1 || colors > maxColors || columns > maxRowSize/colors {
		return 0, 0, fmt.Errorf("invalid predictor geometry: columns=%d colors=%d", columns, colors)
	}
	return colors, columns * colors, nil
}

// applyTIFFPredictor2 predicts each sample from the sample to its left.
func applyTIFFPredictor2(data []byte, params Params) ([]byte, error) {
	bpp, rowSize, err := rowGeometry(params)
	if err != nil {
		return nil, err
	}
	if len(data)%rowSize != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize)
	}

	out := make([]byte, len(data))
	copy(out, data)
	for rowStart := 0; rowStart < len(out); rowStart += rowSize {
		for i := rowStart + bpp; i < rowStart+rowSize; i++ {
			out[i] += out[i-bpp]
		}
	}
	return out, nil
}

// applyPNGPredictor undoes PNG row filtering. Every row carries its own
// filter-type byte (0=None, 1=Sub, 2=Up, 3=Average, 4=Paeth).
func applyPNGPredictor(data []byte, params Params) ([]byte, error) {
	bpp, rowSize, err := rowGeometry(params)
	if err != nil {
		return nil, err
	}
	if len(data)%(rowSize+1) != 0 {
		return nil, fmt.Errorf("data size %d is not a multiple of row size %d", len(data), rowSize+1)
	}

	rows := len(data) / (rowSize + 1)
	out := make([]byte, rows*rowSize)
	prev := make([]byte, rowSize)
	for row := 0; row < rows; row++ {
		in := data[row*(rowSize+1)+1 : (row+1)*(rowSize+1)]
		cur := out[row*rowSize : (row+1)*rowSize]
		filter := data[row*(rowSize+1)]

		for i := range in {
			var left, upLeft byte
			if i >= bpp {
				left = cur[i-bpp]
				upLeft = prev[i-bpp]
			}
			up := prev[i]

			var predicted byte
			switch filter {
			case 0:
			case 1:
				predicted = left
			case 2:
				predicted = up
			case 3:
				predicted = byte((int(left) + int(up)) / 2)
			case 4:
				predicted = paethPredictor(left, up, upLeft)
			default:
				return nil, fmt.Errorf("unknown PNG filter type %d in row %d", filter, row)
			}
			cur[i] = in[i] + predicted
		}
		prev = cur
	}
	return out, nil
}

// paethPredictor selects the neighbour (left, above, or upper-left) closest
// to the linear prediction a+b-c.
func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa, pb, pc := abs(p-int(a)), abs(p-int(b)), abs(p-int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func getIntParam(params Params, key string, defaultValue int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return defaultValue
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
