package core

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
)

// TokenType represents the type of token
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenComment
	TokenKeyword    // true, false, null, obj, endobj, stream, R, xref, trailer ...
	TokenInteger    // 123
	TokenReal       // 3.14
	TokenString     // (hello) or <68656C6C6F>, already unescaped
	TokenName       // /Type, without the slash
	TokenArrayStart // [
	TokenArrayEnd   // ]
	TokenDictStart  // <<
	TokenDictEnd    // >>
)

var tokenTypeNames = [...]string{
	TokenEOF:        "EOF",
	TokenComment:    "Comment",
	TokenKeyword:    "Keyword",
	TokenInteger:    "Integer",
	TokenReal:       "Real",
	TokenString:     "String",
	TokenName:       "Name",
	TokenArrayStart: "ArrayStart",
	TokenArrayEnd:   "ArrayEnd",
	TokenDictStart:  "DictStart",
	TokenDictEnd:    "DictEnd",
}

func (t TokenType) String() string {
	if t < 0 || int(t) >= len(tokenTypeNames) {
		return "Unknown"
	}
	return tokenTypeNames[t]
}

// Token represents a lexical token
type Token struct {
	Type  TokenType
	Value []byte
	Pos   int64 // Offset of the first byte of the token
}

// IsKeyword reports whether the token is the given keyword.
func (t *Token) IsKeyword(kw string) bool {
	return t != nil && t.Type == TokenKeyword && string(t.Value) == kw
}

func (t *Token) String() string {
	if t == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%v(%q)@%d", t.Type, t.Value, t.Pos)
}

// Lexer performs lexical analysis of PDF content
type Lexer struct {
	reader *bufio.Reader
	pos    int64
}

// NewLexer creates a new lexer reading from r
func NewLexer(r io.Reader) *Lexer {
	return &Lexer{reader: bufio.NewReader(r)}
}

// Pos returns the number of bytes consumed so far.
func (l *Lexer) Pos() int64 {
	return l.pos
}

// NextToken returns the next token from the input. Whitespace is skipped;
// comments are returned as TokenComment so callers may ignore them.
func (l *Lexer) NextToken() (*Token, error) {
	if err := l.skipWhitespace(); err != nil {
		return nil, err
	}

	start := l.pos
	b, err := l.peek()
	if err == io.EOF {
		return &Token{Type: TokenEOF, Pos: start}, nil
	}
	if err != nil {
		return nil, err
	}

	switch {
	case b == '%':
		return l.readComment()
	case b == '[':
		l.readByte()
		return &Token{Type: TokenArrayStart, Value: []byte{'['}, Pos: start}, nil
	case b == ']':
		l.readByte()
		return &Token{Type: TokenArrayEnd, Value: []byte{']'}, Pos: start}, nil
	case b == '{' || b == '}':
		l.readByte()
		return &Token{Type: TokenKeyword, Value: []byte{b}, Pos: start}, nil
	case b == '(':
		return l.readString()
	case b == '<':
		if next, _ := l.reader.Peek(2); len(next) == 2 && next[1] == '<' {
			l.skip(2)
			return &Token{Type: TokenDictStart, Value: []byte("<<"), Pos: start}, nil
		}
		return l.readHexString()
	case b == '>':
		if next, _ := l.reader.Peek(2); len(next) == 2 && next[1] == '>' {
			l.skip(2)
			return &Token{Type: TokenDictEnd, Value: []byte(">>"), Pos: start}, nil
		}
		return nil, fmt.Errorf("unexpected '>' at position %d", start)
	case b == '/':
		return l.readName()
	case b == ')':
		return nil, fmt.Errorf("unbalanced ')' at position %d", start)
	}

	word := l.readRegular()
	if isNumber(word) {
		if bytes.IndexByte(word, '.') >= 0 {
			return &Token{Type: TokenReal, Value: word, Pos: start}, nil
		}
		return &Token{Type: TokenInteger, Value: word, Pos: start}, nil
	}
	return &Token{Type: TokenKeyword, Value: word, Pos: start}, nil
}

// SkipStreamEOL consumes the end-of-line marker that must follow the
// "stream" keyword (LF or CRLF; a lone CR is tolerated).
func (l *Lexer) SkipStreamEOL() error {
	// Some writers put spaces before the EOL.
	for {
		b, err := l.peek()
		if err != nil {
			return err
		}
		if b != ' ' && b != '\t' {
			break
		}
		l.readByte()
	}
	b, err := l.peek()
	if err != nil {
		return err
	}
	switch b {
	case '\n':
		l.readByte()
	case '\r':
		l.readByte()
		if next, err := l.peek(); err == nil && next == '\n' {
			l.readByte()
		}
	}
	return nil
}

// ReadBytes reads exactly n raw bytes. The buffer grows with the data
// actually read, so n may come from untrusted input.
func (l *Lexer) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative byte count %d", n)
	}
	buf, err := io.ReadAll(io.LimitReader(l.reader, int64(n)))
	l.pos += int64(len(buf))
	if err != nil {
		return nil, fmt.Errorf("read %d of %d bytes: %w", len(buf), n, err)
	}
	if len(buf) < n {
		return nil, fmt.Errorf("read %d of %d bytes: %w", len(buf), n, io.ErrUnexpectedEOF)
	}
	return buf, nil
}

// ReadUntil reads raw bytes through marker and returns the bytes before
// it. It returns io.ErrUnexpectedEOF when the marker never appears.
func (l *Lexer) ReadUntil(marker []byte) ([]byte, error) {
	var data []byte
	for {
		b, err := l.readByte()
		if err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		data = append(data, b)
		if bytes.HasSuffix(data, marker) {
			return data[:len(data)-len(marker)], nil
		}
	}
}

func (l *Lexer) readByte() (byte, error) {
	b, err := l.reader.ReadByte()
	if err != nil {
		return 0, err
	}
	l.pos++
	return b, nil
}

func (l *Lexer) peek() (byte, error) {
	b, err := l.reader.Peek(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (l *Lexer) skip(n int) {
	discarded, _ := l.reader.Discard(n)
	l.pos += int64(discarded)
}

func (l *Lexer) skipWhitespace() error {
	for {
		b, err := l.peek()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if !isWhitespace(b) {
			return nil
		}
		l.readByte()
	}
}

func (l *Lexer) readComment() (*Token, error) {
	start := l.pos
	l.readByte() // %
	var value []byte
	for {
		b, err := l.peek()
		if err != nil || b == '\n' || b == '\r' {
			break
		}
		l.readByte()
		value = append(value, b)
	}
	return &Token{Type: TokenComment, Value: value, Pos: start}, nil
}

// readRegular reads a run of regular (non-whitespace, non-delimiter) bytes.
func (l *Lexer) readRegular() []byte {
	var word []byte
	for {
		b, err := l.peek()
		if err != nil || isWhitespace(b) || isDelimiter(b) {
			return word
		}
		l.readByte()
		word = append(word, b)
	}
}

// readString reads a literal string, handling nested parentheses, escapes
// and line continuations.
func (l *Lexer) readString() (*Token, error) {
	start := l.pos
	l.readByte() // (
	var value []byte
	depth := 1
	for {
		b, err := l.readByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated string starting at %d", start)
		}
		switch b {
		case '(':
			depth++
			value = append(value, b)
		case ')':
			depth--
			if depth == 0 {
				return &Token{Type: TokenString, Value: value, Pos: start}, nil
			}
			value = append(value, b)
		case '\\':
			esc, err := l.readByte()
			if err != nil {
				return nil, fmt.Errorf("unterminated string starting at %d", start)
			}
			value = l.appendEscape(value, esc)
		case '\r':
			// CR and CRLF inside a literal both mean LF.
			if next, err := l.peek(); err == nil && next == '\n' {
				l.readByte()
			}
			value = append(value, '\n')
		default:
			value = append(value, b)
		}
	}
}

func (l *Lexer) appendEscape(value []byte, esc byte) []byte {
	switch esc {
	case 'n':
		return append(value, '\n')
	case 'r':
		return append(value, '\r')
	case 't':
		return append(value, '\t')
	case 'b':
		return append(value, '\b')
	case 'f':
		return append(value, '\f')
	case '\r':
		if next, err := l.peek(); err == nil && next == '\n' {
			l.readByte()
		}
		return value
	case '\n':
		return value
	}
	if isOctalDigit(esc) {
		code := int(esc - '0')
		for i := 0; i < 2; i++ {
			next, err := l.peek()
			if err != nil || !isOctalDigit(next) {
				break
			}
			l.readByte()
			code = code*8 + int(next-'0')
		}
		return append(value, byte(code))
	}
	// \( \) \\ and unknown escapes yield the character itself.
	return append(value, esc)
}

// readHexString reads <...> and returns the decoded bytes.
func (l *Lexer) readHexString() (*Token, error) {
	start := l.pos
	l.readByte() // <
	var value []byte
	var hi byte
	odd := false
	for {
		b, err := l.readByte()
		if err != nil {
			return nil, fmt.Errorf("unterminated hex string starting at %d", start)
		}
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		if !isHexDigit(b) {
			return nil, fmt.Errorf("invalid hex digit %q at position %d", b, l.pos-1)
		}
		if odd {
			value = append(value, hi<<4|hexValue(b))
		} else {
			hi = hexValue(b)
		}
		odd = !odd
	}
	if odd {
		value = append(value, hi<<4)
	}
	return &Token{Type: TokenString, Value: value, Pos: start}, nil
}

// readName reads /Name, decoding #xx escapes.
func (l *Lexer) readName() (*Token, error) {
	start := l.pos
	l.readByte() // /
	raw := l.readRegular()
	value := make([]byte, 0, len(raw))
	for i := 0; i < len(raw); i++ {
		if raw[i] == '#' && i+2 < len(raw) && isHexDigit(raw[i+1]) && isHexDigit(raw[i+2]) {
			value = append(value, hexValue(raw[i+1])<<4|hexValue(raw[i+2]))
			i += 2
			continue
		}
		value = append(value, raw[i])
	}
	return &Token{Type: TokenName, Value: value, Pos: start}, nil
}

func isNumber(word []byte) bool {
	if len(word) == 0 {
		return false
	}
	i := 0
	if word[0] == '+' || word[0] == '-' {
		i++
	}
	digits, dots := 0, 0
	for ; i < len(word); i++ {
		switch {
		case isDigit(word[i]):
			digits++
		case word[i] == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

func isWhitespace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r' || b == '\f' || b == 0
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isDigit(b byte) bool      { return b >= '0' && b <= '9' }
func isOctalDigit(b byte) bool { return b >= '0' && b <= '7' }

func isHexDigit(b byte) bool {
	return isDigit(b) || (b >= 'a' && b <= 'f') || (b >= 'A' && b <= 'F')
}

func hexValue(b byte) byte {
	switch {
	case isDigit(b):
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}
