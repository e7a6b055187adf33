package filters

import (
	"bytes"
	"compress/zlib"
	"testing"
)

// zlibCompress compresses data for testing
func zlibCompress(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// TestFlateDecode tests zlib decompression with and without predictor 1
func TestFlateDecode(t *testing.T) {
	original := []byte("Hello, World! This is test data for FlateDecode.")

	for _, params := range []Params{nil, {"Predictor": 1}} {
		decoded, err := FlateDecode(zlibCompress(original), params)
		if err != nil {
			t.Fatalf("FlateDecode(%v) failed: %v", params, err)
		}
		if !bytes.Equal(decoded, original) {
			t.Errorf("FlateDecode(%v) = %q, want %q", params, decoded, original)
		}
	}
}

// TestPNGPredictors tests each PNG row filter type
func TestPNGPredictors(t *testing.T) {
	tests := []struct {
		name   string
		params Params
		input  []byte
		want   []byte
	}{
		{
			name:   "none",
			params: Params{"Predictor": 10, "Columns": 3},
			input:  []byte{0, 1, 2, 3, 0, 4, 5, 6},
			want:   []byte{1, 2, 3, 4, 5, 6},
		},
		{
			name:   "sub",
			params: Params{"Predictor": 11, "Columns": 3},
			input:  []byte{1, 1, 1, 1, 1, 4, 1, 1},
			want:   []byte{1, 2, 3, 4, 5, 6},
		},
		{
			name:   "up",
			params: Params{"Predictor": 12, "Columns": 3},
			input:  []byte{2, 1, 2, 3, 2, 3, 3, 3},
			want:   []byte{1, 2, 3, 4, 5, 6},
		},
		{
			// row 2: 4 + (0+1)/2 = 4, 5 + (4+2)/2 = 8
			name:   "average",
			params: Params{"Predictor": 13, "Columns": 2},
			input:  []byte{0, 1, 2, 3, 4, 5},
			want:   []byte{1, 2, 4, 8},
		},
		{
			// first row Paeth degenerates to Sub
			name:   "paeth",
			params: Params{"Predictor": 14, "Columns": 3},
			input:  []byte{4, 1, 1, 1},
			want:   []byte{1, 2, 3},
		},
		{
			// xref stream layout: W [1 2 1], Up filter
			name:   "xref stream rows",
			params: Params{"Predictor": 12, "Columns": 4},
			input:  []byte{2, 1, 0, 15, 0, 2, 0, 0, 10, 0},
			want:   []byte{1, 0, 15, 0, 1, 0, 25, 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FlateDecode(zlibCompress(tt.input), tt.params)
			if err != nil {
				t.Fatalf("FlateDecode failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// TestTIFFPredictor2 tests horizontal differencing with two colors
func TestTIFFPredictor2(t *testing.T) {
	params := Params{"Predictor": 2, "Columns": 3, "Colors": 2}
	input := []byte{10, 20, 1, 1, 1, 1}

	got, err := FlateDecode(zlibCompress(input), params)
	if err != nil {
		t.Fatalf("FlateDecode failed: %v", err)
	}
	want := []byte{10, 20, 11, 21, 12, 22}
	if !bytes.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

// TestPaethPredictor tests neighbour selection
func TestPaethPredictor(t *testing.T) {
	tests := []struct {
		a, b, c, want byte
	}{
		{0, 0, 0, 0},
		{10, 20, 10, 20},
		{20, 10, 10, 20},
		{10, 10, 20, 10},
		{100, 50, 75, 75},
	}
	for _, tt := range tests {
		if got := paethPredictor(tt.a, tt.b, tt.c); got != tt.want {
			t.Errorf("paethPredictor(%d, %d, %d) = %d, want %d", tt.a, tt.b, tt.c, got, tt.want)
		}
	}
}

// TestGetIntParam tests numeric parameter lookup
func TestGetIntParam(t *testing.T) {
	params := Params{"A": 5, "B": int64(6), "C": 7.0, "D": "x"}
	for key, want := range map[string]int{"A": 5, "B": 6, "C": 7, "D": 99, "missing": 99} {
		if got := getIntParam(params, key, 99); got != want {
			t.Errorf("getIntParam(%q) = %d, want %d", key, got, want)
		}
	}
	if got := getIntParam(nil, "A", 1); got != 1 {
		t.Errorf("getIntParam(nil) = %d, want 1", got)
	}
}

// TestFlateDecodeErrors tests invalid input and unsupported parameters
func TestFlateDecodeErrors(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		params Params
	}{
		{"invalid zlib", []byte("not zlib data"), nil},
		{"unsupported predictor", zlibCompress([]byte{1, 2}), Params{"Predictor": 7}},
		{"wrong bits per component", zlibCompress([]byte{0, 1}), Params{"Predictor": 12, "BitsPerComponent": 4}},
		{"wrong row size", zlibCompress([]byte{0, 1, 2}), Params{"Predictor": 12, "Columns": 3}},
		{"unknown row filter", zlibCompress([]byte{9, 1}), Params{"Predictor": 12}},
		{"oversized row", zlibCompress([]byte{0, 1}), Params{"Predictor": 12, "Columns": 2147483647, "Colors": 4}},
		{"too many colors", zlibCompress([]byte{0, 1}), Params{"Predictor": 2, "Colors": 1000}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := FlateDecode(tt.data, tt.params); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

// TestZlibDecompressTruncated tests that a missing checksum keeps the data
func TestZlibDecompressTruncated(t *testing.T) {
	original := bytes.Repeat([]byte("slide notes "), 200)
	compressed := zlibCompress(original)

	got, err := zlibDecompress(compressed[:len(compressed)-4])
	if err != nil {
		t.Fatalf("zlibDecompress failed: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Errorf("got %d bytes, want %d", len(got), len(original))
	}
}
