package filters

import (
	"bytes"
	"testing"
)

// TestASCIIHexDecode tests hex decoding edge cases
func TestASCIIHexDecode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"basic", "48656C6C6F>", []byte("Hello")},
		{"whitespace", "48 65\n6C\t6C 6F>", []byte("Hello")},
		{"odd digits", "414>", []byte{0x41, 0x40}},
		{"no end marker", "4142", []byte("AB")},
		{"data after marker", "41>ZZ", []byte("A")},
		{"lower case", "6a6b>", []byte("jk")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ASCIIHexDecode([]byte(tt.input))
			if err != nil {
				t.Fatalf("ASCIIHexDecode failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

// TestASCIIHexDecodeInvalidChar tests rejection of non-hex characters
func TestASCIIHexDecodeInvalidChar(t *testing.T) {
	if _, err := ASCIIHexDecode([]byte("4G>")); err == nil {
		t.Error("expected error for invalid hex digit")
	}
}

// TestASCII85Decode tests Ascii85 decoding edge cases
func TestASCII85Decode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"basic", "87cURD]i,\"Ebo80~>", []byte("Hello World")},
		{"zero group", "z~>", []byte{0, 0, 0, 0}},
		{"whitespace", "87cU\nRD]i,\n\"Ebo80~>", []byte("Hello World")},
		{"prefix", "<~87cURD]i,\"Ebo80~>", []byte("Hello World")},
		{"no end marker", "87cURD]i,\"Ebo80", []byte("Hello World")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ASCII85Decode([]byte(tt.input))
			if err != nil {
				t.Fatalf("ASCII85Decode failed: %v", err)
			}
			if !bytes.Equal(got, tt.want) {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

// TestASCII85DecodeInvalidChar tests rejection of characters outside ! to u
func TestASCII85DecodeInvalidChar(t *testing.T) {
	if _, err := ASCII85Decode([]byte("87c{~>")); err == nil {
		t.Error("expected error for invalid character")
	}
}

// TestIsWhitespace tests PDF whitespace classification
func TestIsWhitespace(t *testing.T) {
	for _, c := range []byte{' ', '\t', '\r', '\n', '\f', 0} {
		if !isWhitespace(c) {
			t.Errorf("isWhitespace(%q) = false, want true", c)
		}
	}
	for _, c := range []byte{'a', '0', '<', '~'} {
		if isWhitespace(c) {
			t.Errorf("isWhitespace(%q) = true, want false", c)
		}
	}
}
