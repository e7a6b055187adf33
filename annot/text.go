package annot

import (
	"bytes"
	"errors"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// ErrUndecodableText is returned for /Contents bytes that are neither
// UTF-16 with a byte order mark nor valid UTF-8.
var ErrUndecodableText = errors.New("undecodable annotation text")

var (
	bomUTF16BE = []byte{0xfe, 0xff}
	bomUTF16LE = []byte{0xff, 0xfe}
	bomUTF8    = []byte{0xef, 0xbb, 0xbf}
)

// DecodeText converts the raw bytes of a PDF text string to UTF-8. With
// legacy set, bytes that are not UTF-8 are read as Windows-1252 instead of
// failing.
func DecodeText(raw []byte, legacy bool) (string, error) {
	switch {
	case bytes.HasPrefix(raw, bomUTF16BE):
		return decodeWith(unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM), raw)
	case bytes.HasPrefix(raw, bomUTF16LE):
		return decodeWith(unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), raw)
	case bytes.HasPrefix(raw, bomUTF8):
		raw = raw[len(bomUTF8):]
	}

	if utf8.Valid(raw) {
		return string(raw), nil
	}
	if legacy {
		return decodeWith(charmap.Windows1252, raw)
	}
	return "", ErrUndecodableText
}

func decodeWith(enc encoding.Encoding, raw []byte) (string, error) {
	out, err := enc.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUndecodableText, err)
	}
	return string(out), nil
}
