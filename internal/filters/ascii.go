package filters

import (
	"bytes"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
)

// ASCIIHexDecode decodes ASCII hexadecimal data. Whitespace is ignored,
// '>' ends the data and an odd final digit is padded with 0.
func ASCIIHexDecode(data []byte) ([]byte, error) {
	if i := bytes.IndexByte(data, '>'); i >= 0 {
		data = data[:i]
	}
	digits := stripWhitespace(data)
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, hex.DecodedLen(len(digits)))
	if _, err := hex.Decode(out, digits); err != nil {
		return nil, fmt.Errorf("ASCIIHexDecode: %w", err)
	}
	return out, nil
}

// ASCII85Decode decodes Ascii85 data, accepting an optional "<~" prefix
// and stopping at the "~>" end-of-data marker.
func ASCII85Decode(data []byte) ([]byte, error) {
	data = stripWhitespace(data)
	data = bytes.TrimPrefix(data, []byte("<~"))
	if i := bytes.Index(data, []byte("~>")); i >= 0 {
		data = data[:i]
	}
	out := make([]byte, 4*len(data)/5+4)
	n, _, err := ascii85.Decode(out, data, true)
	if err != nil {
		return nil, fmt.Errorf("ASCII85Decode: %w", err)
	}
	return out[:n], nil
}

func stripWhitespace(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for _, c := range data {
		if !isWhitespace(c) {
			out = append(out, c)
		}
	}
	return out
}

// isWhitespace reports whether c is a PDF whitespace character.
func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == '\f' || c == 0
}
