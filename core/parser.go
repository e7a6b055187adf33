package core

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// ReferenceResolver is an interface for resolving indirect references.
// This allows the parser to resolve indirect stream lengths when needed.
type ReferenceResolver interface {
	ResolveReference(ref IndirectRef) (Object, error)
}

// MaxNesting bounds how deeply arrays and dictionaries may nest.
const MaxNesting = 512

// ErrNestingTooDeep is returned for objects nested deeper than MaxNesting.
var ErrNestingTooDeep = errors.New("object nesting too deep")

// Parser parses PDF objects from an io.Reader using a Lexer for tokenization.
// Tokens are pulled lazily so that the lexer is never ahead of the "stream"
// keyword when binary data follows.
type Parser struct {
	lexer    *Lexer
	pending  []*Token // pushed-back tokens, last one is returned first
	resolver ReferenceResolver
	nesting  int
	maxData  int64 // 0 means no bound on stream /Length
}

// NewParser creates a new PDF parser for the given reader.
func NewParser(r io.Reader) *Parser {
	return &Parser{lexer: NewLexer(r)}
}

// SetReferenceResolver sets the reference resolver for the parser.
// This is needed to resolve indirect stream lengths.
func (p *Parser) SetReferenceResolver(resolver ReferenceResolver) {
	p.resolver = resolver
}

// SetMaxStreamLength bounds the /Length a stream may claim, usually by the
// bytes left in the input. Longer streams are delimited by "endstream".
func (p *Parser) SetMaxStreamLength(n int64) {
	p.maxData = n
}

// NextToken returns the next non-comment token.
func (p *Parser) NextToken() (*Token, error) {
	if n := len(p.pending); n > 0 {
		tok := p.pending[n-1]
		p.pending = p.pending[:n-1]
		return tok, nil
	}
	for {
		tok, err := p.lexer.NextToken()
		if err != nil {
			return nil, err
		}
		if tok.Type != TokenComment {
			return tok, nil
		}
	}
}

// UnreadToken pushes tok back so the next call to NextToken returns it.
func (p *Parser) UnreadToken(tok *Token) {
	p.pending = append(p.pending, tok)
}

// ParseObject parses and returns the next PDF object from the input.
// It handles all PDF object types: null, boolean, integer, real, string,
// name, array, dictionary, and indirect references.
func (p *Parser) ParseObject() (Object, error) {
	tok, err := p.NextToken()
	if err != nil {
		return nil, err
	}
	return p.parseFrom(tok)
}

func (p *Parser) parseFrom(tok *Token) (Object, error) {
	switch tok.Type {
	case TokenEOF:
		return nil, io.EOF
	case TokenKeyword:
		switch string(tok.Value) {
		case "null":
			return Null{}, nil
		case "true":
			return Bool(true), nil
		case "false":
			return Bool(false), nil
		}
		return nil, fmt.Errorf("unexpected keyword %q at position %d", tok.Value, tok.Pos)
	case TokenInteger:
		return p.parseNumber(tok)
	case TokenReal:
		val, err := strconv.ParseFloat(string(tok.Value), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid real number %q: %w", tok.Value, err)
		}
		return Real(val), nil
	case TokenString:
		return String(tok.Value), nil
	case TokenName:
		return Name(tok.Value), nil
	case TokenArrayStart, TokenDictStart:
		if p.nesting >= MaxNesting {
			return nil, fmt.Errorf("%w: more than %d levels at position %d", ErrNestingTooDeep, MaxNesting, tok.Pos)
		}
		p.nesting++
		defer func() { p.nesting-- }()
		if tok.Type == TokenArrayStart {
			return p.parseArray()
		}
		return p.parseDict()
	}
	return nil, fmt.Errorf("unexpected token %v at position %d", tok.Type, tok.Pos)
}

// parseNumber parses an integer or an indirect reference ("num gen R").
func (p *Parser) parseNumber(first *Token) (Object, error) {
	num, err := strconv.ParseInt(string(first.Value), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid integer %q: %w", first.Value, err)
	}

	second, err := p.NextToken()
	if err != nil {
		return nil, err
	}
	if second.Type != TokenInteger {
		p.UnreadToken(second)
		return Int(num), nil
	}
	third, err := p.NextToken()
	if err != nil {
		return nil, err
	}
	if third.IsKeyword("R") {
		gen, err := strconv.ParseInt(string(second.Value), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid generation %q: %w", second.Value, err)
		}
		return IndirectRef{Number: int(num), Generation: int(gen)}, nil
	}
	p.UnreadToken(third)
	p.UnreadToken(second)
	return Int(num), nil
}

// parseArray parses the remainder of "[obj1 obj2 ...]".
func (p *Parser) parseArray() (Object, error) {
	arr := Array{}
	for {
		tok, err := p.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenArrayEnd:
			return arr, nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected EOF in array")
		}
		obj, err := p.parseFrom(tok)
		if err != nil {
			return nil, fmt.Errorf("error parsing array element: %w", err)
		}
		arr = append(arr, obj)
	}
}

// parseDict parses the remainder of "<< /Key value ... >>".
func (p *Parser) parseDict() (Object, error) {
	dict := make(Dict)
	for {
		tok, err := p.NextToken()
		if err != nil {
			return nil, err
		}
		switch tok.Type {
		case TokenDictEnd:
			return dict, nil
		case TokenEOF:
			return nil, fmt.Errorf("unexpected EOF in dictionary")
		case TokenName:
		default:
			return nil, fmt.Errorf("expected name for dictionary key, got %v at position %d", tok.Type, tok.Pos)
		}
		key := string(tok.Value)

		value, err := p.ParseObject()
		if err != nil {
			return nil, fmt.Errorf("error parsing dictionary value for key '%s': %w", key, err)
		}
		// A null value is equivalent to an absent entry.
		if _, isNull := value.(Null); isNull {
			continue
		}
		dict[key] = value
	}
}

// ParseIndirectObject parses an indirect object definition.
// Format: "num gen obj <object> endobj" or "num gen obj <dict> stream ... endstream endobj"
func (p *Parser) ParseIndirectObject() (*IndirectObject, error) {
	ref, err := p.parseObjectHeader()
	if err != nil {
		return nil, err
	}

	obj, err := p.ParseObject()
	if err != nil {
		return nil, fmt.Errorf("error parsing indirect object value: %w", err)
	}

	tok, err := p.NextToken()
	if err != nil {
		return nil, err
	}
	if tok.IsKeyword("stream") {
		dict, ok := obj.(Dict)
		if !ok {
			return nil, fmt.Errorf("stream must follow a dictionary")
		}
		if obj, err = p.parseStream(dict); err != nil {
			return nil, fmt.Errorf("error parsing stream: %w", err)
		}
		if tok, err = p.NextToken(); err != nil {
			return nil, err
		}
	}

	if !tok.IsKeyword("endobj") {
		return nil, fmt.Errorf("expected 'endobj' keyword, got %v", tok)
	}

	return &IndirectObject{Ref: ref, Object: obj}, nil
}

func (p *Parser) parseObjectHeader() (IndirectRef, error) {
	var nums [2]int64
	for i := range nums {
		tok, err := p.NextToken()
		if err != nil {
			return IndirectRef{}, err
		}
		if tok.Type != TokenInteger {
			return IndirectRef{}, fmt.Errorf("expected object header integer, got %v", tok)
		}
		if nums[i], err = strconv.ParseInt(string(tok.Value), 10, 64); err != nil {
			return IndirectRef{}, fmt.Errorf("invalid object header: %w", err)
		}
	}
	tok, err := p.NextToken()
	if err != nil {
		return IndirectRef{}, err
	}
	if !tok.IsKeyword("obj") {
		return IndirectRef{}, fmt.Errorf("expected 'obj' keyword, got %v", tok)
	}
	return IndirectRef{Number: int(nums[0]), Generation: int(nums[1])}, nil
}

var errNoLength = errors.New("no usable /Length")

// parseStream reads stream data after the "stream" keyword. When /Length is
// missing or cannot be resolved the data is delimited by "endstream".
func (p *Parser) parseStream(dict Dict) (*Stream, error) {
	if err := p.lexer.SkipStreamEOL(); err != nil {
		return nil, fmt.Errorf("failed to skip EOL after stream keyword: %w", err)
	}

	length, err := p.streamLength(dict)
	if err != nil {
		data, scanErr := p.lexer.ReadUntil([]byte("endstream"))
		if scanErr != nil {
			return nil, fmt.Errorf("%v; scanning for endstream: %w", err, scanErr)
		}
		data = bytes.TrimSuffix(data, []byte("\n"))
		data = bytes.TrimSuffix(data, []byte("\r"))
		return &Stream{Dict: dict, Data: data}, nil
	}

	data, err := p.lexer.ReadBytes(length)
	if err != nil {
		return nil, fmt.Errorf("failed to read stream data: %w", err)
	}
	tok, err := p.NextToken()
	if err != nil {
		return nil, err
	}
	if !tok.IsKeyword("endstream") {
		return nil, fmt.Errorf("expected 'endstream' keyword, got %v", tok)
	}
	return &Stream{Dict: dict, Data: data}, nil
}

func (p *Parser) streamLength(dict Dict) (int, error) {
	var length Object = dict.Get("Length")
	if ref, ok := length.(IndirectRef); ok {
		if p.resolver == nil {
			return 0, fmt.Errorf("%w: indirect length without resolver", errNoLength)
		}
		resolved, err := p.resolver.ResolveReference(ref)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", errNoLength, err)
		}
		length = resolved
	}
	n, ok := length.(Int)
	if !ok || n < 0 {
		return 0, fmt.Errorf("%w: %v", errNoLength, length)
	}
	if p.maxData > 0 && int64(n) > p.maxData {
		return 0, fmt.Errorf("%w: %d exceeds the %d bytes available", errNoLength, n, p.maxData)
	}
	return int(n), nil
}
