// Package testpdf builds small synthetic PDF files for tests. The builder
// tracks byte offsets so cross-reference sections always point where the
// caller intends, including deliberately wrong places.
package testpdf

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"strings"
)

type entryKind int

const (
	kindFree entryKind = iota
	kindInUse
	kindCompressed
)

type entry struct {
	num, gen int
	kind     entryKind
	offset   int64
	stream   int
	index    int
}

// Member is an object stored inside an object stream.
type Member struct {
	Number int
	Body   string
}

// Builder accumulates PDF bytes and pending cross-reference entries.
// Every Section or StreamSection call writes the pending entries and
// chains to the previous section through /Prev.
type Builder struct {
	buf       bytes.Buffer
	pending   []entry
	prev      int64
	startXRef int64
	maxNum    int
}

// New starts a PDF with a version header and a binary comment line.
func New() *Builder {
	b := &Builder{prev: -1, startXRef: -1}
	b.buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")
	return b
}

// Offset returns the number of bytes written so far.
func (b *Builder) Offset() int64 {
	return int64(b.buf.Len())
}

func (b *Builder) note(e entry) {
	if e.num > b.maxNum {
		b.maxNum = e.num
	}
	b.pending = append(b.pending, e)
}

// Object writes "num gen obj body endobj" and records an in-use entry.
func (b *Builder) Object(num, gen int, body string) *Builder {
	b.note(entry{num: num, gen: gen, kind: kindInUse, offset: b.Offset()})
	fmt.Fprintf(&b.buf, "%d %d obj\n%s\nendobj\n", num, gen, body)
	return b
}

// Stream writes a stream object with a direct /Length. dict is the inner
// dictionary content without the angle brackets.
func (b *Builder) Stream(num, gen int, dict string, data []byte) *Builder {
	b.note(entry{num: num, gen: gen, kind: kindInUse, offset: b.Offset()})
	fmt.Fprintf(&b.buf, "%d %d obj\n<< %s /Length %d >>\nstream\n", num, gen, dict, len(data))
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
	return b
}

// Raw appends bytes without recording any entry.
func (b *Builder) Raw(s string) *Builder {
	b.buf.WriteString(s)
	return b
}

// Free records a free entry for num.
func (b *Builder) Free(num, gen int) *Builder {
	b.note(entry{num: num, gen: gen, kind: kindFree})
	return b
}

// EntryAt records an in-use entry pointing at an arbitrary offset.
func (b *Builder) EntryAt(num, gen int, offset int64) *Builder {
	b.note(entry{num: num, gen: gen, kind: kindInUse, offset: offset})
	return b
}

// ObjectStream writes a Flate-compressed /ObjStm numbered num holding
// members, and records a compressed entry for each member. Compressed
// entries can only be expressed by cross-reference streams.
func (b *Builder) ObjectStream(num int, members ...Member) *Builder {
	var header, body strings.Builder
	for i, m := range members {
		fmt.Fprintf(&header, "%d %d ", m.Number, body.Len())
		body.WriteString(m.Body)
		body.WriteString("\n")
		b.note(entry{num: m.Number, kind: kindCompressed, stream: num, index: i})
	}
	data := []byte(header.String() + body.String())
	first := header.Len()
	return b.Stream(num, 0, fmt.Sprintf("/Type /ObjStm /N %d /First %d /Filter /FlateDecode", len(members), first), deflate(data))
}

func (b *Builder) takePending() []entry {
	entries := b.pending
	b.pending = nil
	return entries
}

func (b *Builder) trailerExtras() string {
	s := fmt.Sprintf(" /Size %d", b.maxNum+1)
	if b.prev >= 0 {
		s += fmt.Sprintf(" /Prev %d", b.prev)
	}
	return s
}

// Section writes a classic xref table of the pending entries, one
// subsection per entry in the order recorded, followed by a trailer built
// from the given dictionary content plus /Size and /Prev.
func (b *Builder) Section(trailer string) *Builder {
	offset := b.Offset()
	b.buf.WriteString("xref\n")
	for _, e := range b.takePending() {
		flag, off := "n", e.offset
		if e.kind == kindFree {
			flag, off = "f", 0
		}
		fmt.Fprintf(&b.buf, "%d 1\n%010d %05d %s \n", e.num, off, e.gen, flag)
	}
	fmt.Fprintf(&b.buf, "trailer\n<< %s%s >>\n", trailer, b.trailerExtras())
	b.prev, b.startXRef = offset, offset
	return b
}

// StreamSection writes the pending entries, plus an entry for itself, as a
// cross-reference stream object numbered num.
func (b *Builder) StreamSection(num int, trailer string) *Builder {
	offset := b.writeXRefStream(num, trailer+b.trailerExtrasWith(num))
	b.prev, b.startXRef = offset, offset
	return b
}

// XRefStm writes the pending entries as a cross-reference stream outside
// the /Prev chain and returns its offset, for use as a hybrid file's
// /XRefStm value.
func (b *Builder) XRefStm(num int) int64 {
	return b.writeXRefStream(num, fmt.Sprintf(" /Size %d", max(b.maxNum, num)+1))
}

func (b *Builder) trailerExtrasWith(num int) string {
	if num > b.maxNum {
		b.maxNum = num
	}
	return b.trailerExtras()
}

func (b *Builder) writeXRefStream(num int, trailer string) int64 {
	offset := b.Offset()
	entries := append(b.takePending(), entry{num: num, kind: kindInUse, offset: offset})

	var rows bytes.Buffer
	var index []string
	for _, e := range entries {
		index = append(index, fmt.Sprintf("%d 1", e.num))
		switch e.kind {
		case kindFree:
			rows.Write([]byte{0, 0, 0, 0, 0, byte(e.gen >> 8), byte(e.gen)})
		case kindInUse:
			rows.Write([]byte{1, byte(e.offset >> 24), byte(e.offset >> 16), byte(e.offset >> 8), byte(e.offset), byte(e.gen >> 8), byte(e.gen)})
		case kindCompressed:
			rows.Write([]byte{2, byte(e.stream >> 24), byte(e.stream >> 16), byte(e.stream >> 8), byte(e.stream), byte(e.index >> 8), byte(e.index)})
		}
	}

	data := deflate(rows.Bytes())
	fmt.Fprintf(&b.buf, "%d 0 obj\n<< /Type /XRef /W [1 4 2] /Index [%s] /Filter /FlateDecode /Length %d %s >>\nstream\n",
		num, strings.Join(index, " "), len(data), trailer)
	b.buf.Write(data)
	b.buf.WriteString("\nendstream\nendobj\n")
	return offset
}

// SetStartXRef overrides the offset written after startxref.
func (b *Builder) SetStartXRef(offset int64) *Builder {
	b.startXRef = offset
	return b
}

// Bytes returns the document terminated by startxref and %%EOF. Without
// any section the startxref offset is 0.
func (b *Builder) Bytes() []byte {
	out := bytes.NewBuffer(append([]byte(nil), b.buf.Bytes()...))
	fmt.Fprintf(out, "startxref\n%d\n%%%%EOF\n", max(b.startXRef, 0))
	return out.Bytes()
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// Deck writes a conventional document: catalog 1, page tree 2, and the
// pages numbered from 3, each page's annotations following it. notes maps
// a 1-based page number to the comment text attached to that page; pages
// without notes get no annotation.
func Deck(pageCount int, notes map[int]string) []byte {
	b := New()
	kids := make([]string, 0, pageCount)
	num := 3
	type pageObjs struct {
		page  int
		annot int
	}
	var layout []pageObjs
	for page := 1; page <= pageCount; page++ {
		p := pageObjs{page: num}
		num++
		if _, ok := notes[page]; ok {
			p.annot = num
			num++
		}
		layout = append(layout, p)
		kids = append(kids, fmt.Sprintf("%d 0 R", p.page))
	}

	b.Object(1, 0, "<< /Type /Catalog /Pages 2 0 R >>")
	b.Object(2, 0, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pageCount))
	for i, p := range layout {
		annots := ""
		if p.annot != 0 {
			annots = fmt.Sprintf(" /Annots [%d 0 R]", p.annot)
		}
		b.Object(p.page, 0, fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792]%s >>", annots))
		if p.annot != 0 {
			b.Object(p.annot, 0, fmt.Sprintf("<< /Type /Annot /Subtype /Text /Name /Comment /Rect [0 0 20 20] /P %d 0 R /Contents (%s) >>",
				p.page, EscapeString(notes[i+1])))
		}
	}
	return b.Section("/Root 1 0 R").Bytes()
}

// EscapeString escapes s for use inside a literal string.
func EscapeString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}
