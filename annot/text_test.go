package annot

import (
	"errors"
	"testing"
)

// TestDecodeText tests the supported text string encodings
func TestDecodeText(t *testing.T) {
	tests := []struct {
		name    string
		raw     []byte
		legacy  bool
		want    string
		wantErr bool
	}{
		{"ascii", []byte("Speaker notes"), false, "Speaker notes", false},
		{"utf8", []byte("caf\xc3\xa9"), false, "café", false},
		{"utf8 bom", []byte("\xef\xbb\xbfhi"), false, "hi", false},
		{"utf16be", []byte{0xfe, 0xff, 0x00, 'H', 0x00, 'i', 0x00, 0xe9}, false, "Hié", false},
		{"utf16le", []byte{0xff, 0xfe, 'H', 0x00, 'i', 0x00}, false, "Hi", false},
		{"latin without fallback", []byte("caf\xe9"), false, "", true},
		{"latin with fallback", []byte("caf\xe9"), true, "café", false},
		{"cp1252 quotes", []byte("\x93quoted\x94"), true, "“quoted”", false},
		{"empty", nil, false, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeText(tt.raw, tt.legacy)
			if tt.wantErr {
				if !errors.Is(err, ErrUndecodableText) {
					t.Fatalf("error = %v, want ErrUndecodableText", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("DecodeText() = %q, want %q", got, tt.want)
			}
		})
	}
}
