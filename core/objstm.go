package core

import (
	"bytes"
	"fmt"
	"sync"
)

// ObjectStream represents a PDF object stream (Type /ObjStm). Objects in
// it are addressed by their index in the stream header; the header and
// the decoded data are parsed once, on first access.
type ObjectStream struct {
	stream *Stream
	n      int
	first  int

	once    sync.Once
	err     error
	decoded []byte
	numbers []int // object number per index
	offsets []int // offset per index, relative to first
}

// NewObjectStream creates an ObjectStream from a Stream object.
// The stream must have Type /ObjStm and the /N and /First entries.
func NewObjectStream(stream *Stream) (*ObjectStream, error) {
	if stream == nil {
		return nil, fmt.Errorf("stream is nil")
	}
	if name, _ := stream.Dict.GetName("Type"); name != "ObjStm" {
		return nil, fmt.Errorf("stream is not an object stream, got type: %v", stream.Dict.Get("Type"))
	}
	n, ok := stream.Dict.GetInt("N")
	if !ok || n < 0 {
		return nil, fmt.Errorf("object stream has invalid /N: %v", stream.Dict.Get("N"))
	}
	first, ok := stream.Dict.GetInt("First")
	if !ok || first < 0 {
		return nil, fmt.Errorf("object stream has invalid /First: %v", stream.Dict.Get("First"))
	}
	return &ObjectStream{stream: stream, n: int(n), first: int(first)}, nil
}

// N returns the number of objects stored in the stream.
func (os *ObjectStream) N() int {
	return os.n
}

func (os *ObjectStream) decode() error {
	os.once.Do(func() {
		decoded, err := os.stream.Decode()
		if err != nil {
			os.err = fmt.Errorf("failed to decode object stream: %w", err)
			return
		}
		if os.first > len(decoded) {
			os.err = fmt.Errorf("/First %d exceeds decoded length %d", os.first, len(decoded))
			return
		}
		os.decoded = decoded
		os.err = os.parseHeader()
	})
	return os.err
}

// parseHeader reads N pairs of "objNum offset" preceding /First.
func (os *ObjectStream) parseHeader() error {
	// Each pair takes at least four bytes ("1 0 ").
	if os.n > (os.first+1)/4 {
		return fmt.Errorf("/N %d does not fit in a %d byte header", os.n, os.first)
	}
	parser := NewParser(bytes.NewReader(os.decoded[:os.first]))
	os.numbers = make([]int, 0, os.n)
	os.offsets = make([]int, 0, os.n)
	for i := 0; i < os.n; i++ {
		var pair [2]int
		for j := range pair {
			obj, err := parser.ParseObject()
			if err != nil {
				return fmt.Errorf("object stream header pair %d: %w", i, err)
			}
			v, ok := obj.(Int)
			if !ok || v < 0 {
				return fmt.Errorf("object stream header pair %d: not a non-negative integer: %v", i, obj)
			}
			pair[j] = int(v)
		}
		os.numbers = append(os.numbers, pair[0])
		os.offsets = append(os.offsets, pair[1])
	}
	return nil
}

// ObjectAt parses the object at index (0-based, header order) and returns
// it with its object number.
func (os *ObjectStream) ObjectAt(index int) (Object, int, error) {
	if err := os.decode(); err != nil {
		return nil, 0, err
	}
	if index < 0 || index >= len(os.offsets) {
		return nil, 0, fmt.Errorf("index %d out of range [0, %d)", index, len(os.offsets))
	}

	// Only one object is parsed, so the data after start needs no bound.
	offset := os.offsets[index]
	if offset >= len(os.decoded)-os.first {
		return nil, 0, fmt.Errorf("object %d offset %d exceeds decoded length %d", index, offset, len(os.decoded)-os.first)
	}
	start := os.first + offset

	obj, err := NewParser(bytes.NewReader(os.decoded[start:])).ParseObject()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to parse object at index %d: %w", index, err)
	}
	return obj, os.numbers[index], nil
}

// ObjectNumbers returns the object numbers stored in the stream, in header
// order.
func (os *ObjectStream) ObjectNumbers() ([]int, error) {
	if err := os.decode(); err != nil {
		return nil, err
	}
	return append([]int(nil), os.numbers...), nil
}
