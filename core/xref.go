package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
)

// XRefKind classifies a cross-reference entry.
type XRefKind int

const (
	XRefFree       XRefKind = iota // free entry; revokes older definitions
	XRefInUse                      // object stored at a byte offset
	XRefCompressed                 // object stored inside an object stream
)

func (k XRefKind) String() string {
	switch k {
	case XRefFree:
		return "free"
	case XRefInUse:
		return "in-use"
	case XRefCompressed:
		return "compressed"
	}
	return "unknown"
}

// XRefEntry represents a single cross-reference entry
type XRefEntry struct {
	Number     int
	Generation int
	Kind       XRefKind
	Offset     int64 // byte offset (XRefInUse)

	// XRefCompressed only: the object stream holding the object and the
	// object's index within it.
	StreamNumber int
	StreamIndex  int
}

// Ref returns the object ID the entry describes.
func (e XRefEntry) Ref() IndirectRef {
	return IndirectRef{Number: e.Number, Generation: e.Generation}
}

// XRefSection is one cross-reference section: a classic table or a
// cross-reference stream, with its entries in file order and its trailer.
type XRefSection struct {
	Offset  int64
	Entries []XRefEntry
	Trailer Dict
	Stream  bool // section was a cross-reference stream
}

// ErrNoXRef is returned when no startxref marker can be found.
var ErrNoXRef = errors.New("startxref not found")

// startXRefWindow is how far from EOF the startxref keyword is searched.
const startXRefWindow = 1024

// XRefParser parses PDF cross-reference sections from random-access input.
type XRefParser struct {
	reader io.ReaderAt
	size   int64
}

// NewXRefParser creates a new XRef parser over size bytes of r.
func NewXRefParser(r io.ReaderAt, size int64) *XRefParser {
	return &XRefParser{reader: r, size: size}
}

// FindXRef returns the byte offset named by the last startxref keyword.
// PDFs end with "startxref\n<offset>\n%%EOF".
func (x *XRefParser) FindXRef() (int64, error) {
	readSize := int64(startXRefWindow)
	if x.size < readSize {
		readSize = x.size
	}
	buf := make([]byte, readSize)
	n, err := x.reader.ReadAt(buf, x.size-readSize)
	if err != nil && err != io.EOF {
		return 0, fmt.Errorf("failed to read startxref area: %w", err)
	}
	buf = buf[:n]

	idx := bytes.LastIndex(buf, []byte("startxref"))
	if idx == -1 {
		return 0, ErrNoXRef
	}

	lexer := NewLexer(bytes.NewReader(buf[idx+len("startxref"):]))
	tok, err := lexer.NextToken()
	if err != nil {
		return 0, fmt.Errorf("invalid startxref: %w", err)
	}
	if tok.Type != TokenInteger {
		return 0, fmt.Errorf("invalid startxref offset %v", tok)
	}
	offset, err := strconv.ParseInt(string(tok.Value), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid xref offset: %w", err)
	}
	if offset < 0 || offset >= x.size {
		return 0, fmt.Errorf("xref offset %d outside file of %d bytes", offset, x.size)
	}
	return offset, nil
}

// ParseXRef parses the section at offset, which may be either a classic
// "xref" table or a cross-reference stream object.
func (x *XRefParser) ParseXRef(offset int64) (*XRefSection, error) {
	if offset < 0 || offset >= x.size {
		return nil, fmt.Errorf("xref offset %d outside file of %d bytes", offset, x.size)
	}
	parser := NewParser(io.NewSectionReader(x.reader, offset, x.size-offset))
	parser.SetMaxStreamLength(x.size - offset)

	tok, err := parser.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.IsKeyword("xref") {
		section, err := x.parseTable(parser)
		if err != nil {
			return nil, err
		}
		section.Offset = offset
		return section, nil
	}
	parser.UnreadToken(tok)

	obj, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, fmt.Errorf("expected xref table or stream at %d: %w", offset, err)
	}
	stream, ok := obj.Object.(*Stream)
	if !ok {
		return nil, fmt.Errorf("object at %d is %v, not an xref stream", offset, obj.Object.Type())
	}
	section, err := ParseXRefStream(stream)
	if err != nil {
		return nil, err
	}
	section.Offset = offset
	return section, nil
}

// parseTable parses the subsections following the "xref" keyword.
// Format per subsection: "first count" then count lines of
// "nnnnnnnnnn ggggg n|f".
func (x *XRefParser) parseTable(parser *Parser) (*XRefSection, error) {
	section := &XRefSection{}
	for {
		tok, err := parser.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.IsKeyword("trailer") {
			obj, err := parser.ParseObject()
			if err != nil {
				return nil, fmt.Errorf("failed to parse trailer: %w", err)
			}
			trailer, ok := obj.(Dict)
			if !ok {
				return nil, fmt.Errorf("trailer is not a dictionary, got %v", obj.Type())
			}
			section.Trailer = trailer
			return section, nil
		}
		if tok.Type == TokenEOF {
			return nil, fmt.Errorf("xref table missing trailer")
		}

		first, err := tokenInt(tok)
		if err != nil {
			return nil, fmt.Errorf("invalid subsection header: %w", err)
		}
		countTok, err := parser.NextToken()
		if err != nil {
			return nil, err
		}
		count, err := tokenInt(countTok)
		if err != nil {
			return nil, fmt.Errorf("invalid subsection count: %w", err)
		}

		for i := 0; i < count; i++ {
			entry, err := parseTableEntry(parser)
			if err != nil {
				return nil, fmt.Errorf("xref entry %d: %w", first+i, err)
			}
			entry.Number = first + i
			section.Entries = append(section.Entries, entry)
		}
	}
}

func parseTableEntry(parser *Parser) (XRefEntry, error) {
	var fields [2]int64
	for i := range fields {
		tok, err := parser.NextToken()
		if err != nil {
			return XRefEntry{}, err
		}
		if tok.Type != TokenInteger {
			return XRefEntry{}, fmt.Errorf("expected integer, got %v", tok)
		}
		if fields[i], err = strconv.ParseInt(string(tok.Value), 10, 64); err != nil {
			return XRefEntry{}, err
		}
	}
	flag, err := parser.NextToken()
	if err != nil {
		return XRefEntry{}, err
	}

	entry := XRefEntry{Offset: fields[0], Generation: int(fields[1])}
	switch {
	case flag.IsKeyword("n"):
		entry.Kind = XRefInUse
	case flag.IsKeyword("f"):
		entry.Kind = XRefFree
		entry.Offset = 0
	default:
		return XRefEntry{}, fmt.Errorf("invalid in-use flag %v", flag)
	}
	return entry, nil
}

// ParseXRefStream decodes a cross-reference stream (Type /XRef).
func ParseXRefStream(stream *Stream) (*XRefSection, error) {
	if name, _ := stream.Dict.GetName("Type"); name != "XRef" {
		return nil, fmt.Errorf("stream is not an xref stream, got type %v", stream.Dict.Get("Type"))
	}

	widths, err := xrefWidths(stream.Dict)
	if err != nil {
		return nil, err
	}
	index, err := xrefIndex(stream.Dict)
	if err != nil {
		return nil, err
	}

	data, err := stream.Decode()
	if err != nil {
		return nil, fmt.Errorf("failed to decode xref stream: %w", err)
	}

	rowSize := widths[0] + widths[1] + widths[2]
	if rowSize == 0 {
		return nil, fmt.Errorf("xref stream has empty /W")
	}
	section := &XRefSection{Trailer: stream.Dict, Stream: true}
	pos := 0
	for i := 0; i+1 < len(index); i += 2 {
		first, count := index[i], index[i+1]
		for j := 0; j < count; j++ {
			if pos+rowSize > len(data) {
				return nil, fmt.Errorf("xref stream truncated at object %d", first+j)
			}
			row := data[pos : pos+rowSize]
			pos += rowSize

			kind := int64(1)
			if widths[0] > 0 {
				kind = beInt(row[:widths[0]])
			}
			f2 := beInt(row[widths[0] : widths[0]+widths[1]])
			f3 := beInt(row[widths[0]+widths[1]:])

			entry := XRefEntry{Number: first + j}
			switch kind {
			case 0:
				entry.Kind = XRefFree
				entry.Generation = int(f3)
			case 1:
				entry.Kind = XRefInUse
				entry.Offset = f2
				entry.Generation = int(f3)
			case 2:
				entry.Kind = XRefCompressed
				entry.StreamNumber = int(f2)
				entry.StreamIndex = int(f3)
			default:
				// Unknown types are null references.
				continue
			}
			section.Entries = append(section.Entries, entry)
		}
	}
	return section, nil
}

func xrefWidths(dict Dict) ([3]int, error) {
	var widths [3]int
	arr, ok := dict.GetArray("W")
	if !ok || len(arr) != 3 {
		return widths, fmt.Errorf("xref stream has invalid /W: %v", dict.Get("W"))
	}
	for i, obj := range arr {
		w, ok := obj.(Int)
		if !ok || w < 0 || w > 8 {
			return widths, fmt.Errorf("xref stream has invalid /W: %v", arr)
		}
		widths[i] = int(w)
	}
	return widths, nil
}

func xrefIndex(dict Dict) ([]int, error) {
	arr, ok := dict.GetArray("Index")
	if !ok {
		size, ok := dict.GetInt("Size")
		if !ok || size < 0 {
			return nil, fmt.Errorf("xref stream missing /Size")
		}
		return []int{0, int(size)}, nil
	}
	if len(arr)%2 != 0 {
		return nil, fmt.Errorf("xref stream /Index has odd length %d", len(arr))
	}
	index := make([]int, len(arr))
	for i, obj := range arr {
		n, ok := obj.(Int)
		if !ok || n < 0 {
			return nil, fmt.Errorf("xref stream has invalid /Index: %v", arr)
		}
		index[i] = int(n)
	}
	return index, nil
}

// beInt decodes a big-endian unsigned integer.
func beInt(b []byte) int64 {
	var v int64
	for _, c := range b {
		v = v<<8 | int64(c)
	}
	return v
}

func tokenInt(tok *Token) (int, error) {
	if tok.Type != TokenInteger {
		return 0, fmt.Errorf("expected integer, got %v", tok)
	}
	n, err := strconv.Atoi(string(tok.Value))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, fmt.Errorf("negative value %d", n)
	}
	return n, nil
}

// ParseAllXRefs parses the section named by startxref and every section it
// chains to, newest first. A hybrid file's /XRefStm section follows the
// table that names it, before that table's /Prev. Offsets already visited
// end the chain.
//
// On error the sections parsed so far are returned along with it.
func (x *XRefParser) ParseAllXRefs() ([]*XRefSection, error) {
	start, err := x.FindXRef()
	if err != nil {
		return nil, err
	}

	var sections []*XRefSection
	visited := make(map[int64]bool)
	next := []int64{start}
	for len(next) > 0 {
		offset := next[0]
		next = next[1:]
		if visited[offset] {
			continue
		}
		visited[offset] = true

		section, err := x.ParseXRef(offset)
		if err != nil {
			return sections, fmt.Errorf("xref section at %d: %w", offset, err)
		}
		sections = append(sections, section)

		var follow []int64
		if stm, ok := section.Trailer.GetInt("XRefStm"); ok && !section.Stream {
			follow = append(follow, int64(stm))
		}
		if prev, ok := section.Trailer.GetInt("Prev"); ok {
			follow = append(follow, int64(prev))
		}
		next = append(follow, next...)
	}
	return sections, nil
}

var objHeader = regexp.MustCompile(`(\d+)[ \t\r\n\f\x00]+(\d+)[ \t\r\n\f\x00]+obj\b`)

// ScanObjects rebuilds a single section by scanning data for "N G obj"
// headers. Later definitions of a number override earlier ones, matching
// incremental-update order. The trailer is the last "trailer" dictionary
// in the data, or nil when there is none.
func ScanObjects(data []byte) *XRefSection {
	latest := make(map[int]XRefEntry)
	for _, m := range objHeader.FindAllSubmatchIndex(data, -1) {
		// The header must start a token.
		if m[0] > 0 && !isWhitespace(data[m[0]-1]) && !isDelimiter(data[m[0]-1]) {
			continue
		}
		num, err1 := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		latest[num] = XRefEntry{Number: num, Generation: gen, Kind: XRefInUse, Offset: int64(m[0])}
	}

	section := &XRefSection{Entries: make([]XRefEntry, 0, len(latest))}
	for _, entry := range latest {
		section.Entries = append(section.Entries, entry)
	}
	sort.Slice(section.Entries, func(i, j int) bool {
		return section.Entries[i].Number < section.Entries[j].Number
	})

	if idx := bytes.LastIndex(data, []byte("trailer")); idx >= 0 {
		parser := NewParser(bytes.NewReader(data[idx+len("trailer"):]))
		if obj, err := parser.ParseObject(); err == nil {
			section.Trailer, _ = obj.(Dict)
		}
	}
	return section
}
