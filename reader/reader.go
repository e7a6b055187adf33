package reader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"regexp"
	"strconv"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/tsawler/pdf2pptx/core"
	"github.com/tsawler/pdf2pptx/internal/logging"
)

var (
	// ErrMalformedDocument is returned when no usable cross-reference
	// structure can be found.
	ErrMalformedDocument = errors.New("malformed PDF document")

	// ErrObjectNotFound is returned for IDs with no locatable object: unknown
	// numbers, free entries and generation mismatches.
	ErrObjectNotFound = errors.New("object not found")

	// ErrCorruptObject is returned when an object's bytes cannot be parsed
	// into the object the cross-reference entry promised.
	ErrCorruptObject = errors.New("corrupt object")
)

// ObjectError reports a failure to resolve one object.
type ObjectError struct {
	Ref core.IndirectRef
	Err error
}

func (e *ObjectError) Error() string {
	return fmt.Sprintf("object %v: %v", e.Ref, e.Err)
}

func (e *ObjectError) Unwrap() error {
	return e.Err
}

func objectError(ref core.IndirectRef, kind error, format string, args ...any) *ObjectError {
	return &ObjectError{Ref: ref, Err: fmt.Errorf("%w: %s", kind, fmt.Sprintf(format, args...))}
}

// maxResolveDepth bounds nested loads: indirect stream lengths and object
// streams are themselves resolved through the store.
const maxResolveDepth = 8

// headerWindow is how far into the file the %PDF- header is searched.
const headerWindow = 1024

// PDFVersion represents a PDF version
type PDFVersion struct {
	Major int
	Minor int
}

// String returns the version as a string (e.g., "1.7")
func (v PDFVersion) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Option configures a Reader.
type Option func(*Reader)

// WithRepair enables or disables rebuilding the cross-reference data by
// scanning for object headers when the trailer chain is unusable. It is
// enabled by default.
func WithRepair(enabled bool) Option {
	return func(r *Reader) {
		r.repair = enabled
	}
}

// WithLogger sets the logger used for recoverable problems.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(r *Reader) {
		r.logger = logging.OrDiscard(logger)
	}
}

type cached struct {
	obj core.Object
	err error
}

// Reader is a read-only store of the indirect objects of one PDF. Objects
// are parsed on first use and cached, failures included. It is safe for
// concurrent use.
type Reader struct {
	ra     io.ReaderAt
	size   int64
	closer io.Closer
	repair bool
	logger logrus.FieldLogger

	version  PDFVersion
	sections []*core.XRefSection
	trailer  core.Dict
	entries  map[int]core.XRefEntry // first-seen entry per object number
	ids      []core.IndirectRef     // in-use IDs in enumeration order
	repaired bool

	mu         sync.Mutex
	cache      map[core.IndirectRef]cached
	objStreams map[int]*core.ObjectStream
	loading    map[core.IndirectRef]bool
}

// Open opens a PDF file and returns a Reader
func Open(filename string, opts ...Option) (*Reader, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to get file info: %w", err)
	}

	r, err := NewReader(file, info.Size(), opts...)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.closer = file
	return r, nil
}

// FromBytes returns a Reader over an in-memory PDF.
func FromBytes(data []byte, opts ...Option) (*Reader, error) {
	return NewReader(bytes.NewReader(data), int64(len(data)), opts...)
}

// NewReader reads the cross-reference sections of the size-byte PDF in ra.
// Objects are not parsed until they are resolved.
func NewReader(ra io.ReaderAt, size int64, opts ...Option) (*Reader, error) {
	r := &Reader{
		ra:         ra,
		size:       size,
		repair:     true,
		logger:     logging.Discard(),
		entries:    make(map[int]core.XRefEntry),
		cache:      make(map[core.IndirectRef]cached),
		objStreams: make(map[int]*core.ObjectStream),
		loading:    make(map[core.IndirectRef]bool),
	}
	for _, opt := range opts {
		opt(r)
	}

	if size <= 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedDocument)
	}

	version, err := r.parseHeader()
	if err != nil {
		r.logger.WithError(err).Debug("no PDF header")
	}
	r.version = version

	if err := r.loadSections(); err != nil {
		return nil, err
	}
	r.index()
	if len(r.ids) == 0 {
		return nil, fmt.Errorf("%w: no objects in cross-reference data", ErrMalformedDocument)
	}
	if r.repaired && !r.trailer.Has("Root") {
		r.findCatalog()
	}
	return r, nil
}

var versionPattern = regexp.MustCompile(`%PDF-(\d+)\.(\d+)`)

// parseHeader finds %PDF-x.y near the start of the file.
func (r *Reader) parseHeader() (PDFVersion, error) {
	n := min(r.size, headerWindow)
	buf := make([]byte, n)
	read, err := r.ra.ReadAt(buf, 0)
	if err != nil && err != io.EOF {
		return PDFVersion{}, fmt.Errorf("failed to read header: %w", err)
	}
	m := versionPattern.FindSubmatch(buf[:read])
	if m == nil {
		return PDFVersion{}, fmt.Errorf("invalid PDF header")
	}
	major, _ := strconv.Atoi(string(m[1]))
	minor, _ := strconv.Atoi(string(m[2]))
	return PDFVersion{Major: major, Minor: minor}, nil
}

// loadSections parses the trailer chain, falling back to a scan of object
// headers when repair is enabled and the chain is broken.
func (r *Reader) loadSections() error {
	sections, err := core.NewXRefParser(r.ra, r.size).ParseAllXRefs()
	r.sections = sections
	if err == nil {
		return nil
	}
	if !r.repair {
		if len(sections) == 0 {
			return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		r.logger.WithError(err).Warn("ignoring unreadable cross-reference section")
		return nil
	}

	r.logger.WithError(err).Warn("cross-reference data is damaged, scanning for objects")
	data := make([]byte, r.size)
	n, readErr := r.ra.ReadAt(data, 0)
	if readErr != nil && readErr != io.EOF {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, readErr)
	}
	scanned := core.ScanObjects(data[:n])
	if len(scanned.Entries) == 0 && len(sections) == 0 {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	// Parsed sections keep priority; the scan only fills gaps.
	r.sections = append(r.sections, scanned)
	r.repaired = true
	return nil
}

// trailerOnly lists cross-reference stream keys that describe the stream
// itself rather than the document.
var trailerOnly = map[string]bool{
	"Type": true, "W": true, "Index": true, "Filter": true, "DecodeParms": true,
	"Length": true, "Prev": true, "XRefStm": true,
}

// index builds the first-seen entry table, the enumeration order and the
// merged trailer. Sections are newest first, so the first sighting of a
// number is its most recent definition; a free entry seen first revokes
// every older one.
func (r *Reader) index() {
	r.trailer = make(core.Dict)
	for _, section := range r.sections {
		for _, entry := range section.Entries {
			if _, seen := r.entries[entry.Number]; seen {
				continue
			}
			r.entries[entry.Number] = entry
			if entry.Kind != core.XRefFree {
				r.ids = append(r.ids, entry.Ref())
			}
		}
		for key, value := range section.Trailer {
			if !trailerOnly[key] && !r.trailer.Has(key) {
				r.trailer[key] = value
			}
		}
	}
}

// findCatalog supplies /Root for a repaired file whose trailer was lost.
func (r *Reader) findCatalog() {
	for _, ref := range r.ids {
		obj, err := r.Resolve(ref)
		if err != nil {
			continue
		}
		if dict, ok := obj.(core.Dict); ok {
			if name, _ := dict.GetName("Type"); name == "Catalog" {
				r.trailer["Root"] = ref
				r.logger.WithField("object", ref.String()).Info("recovered document catalog")
				return
			}
		}
	}
}

// Close closes the underlying file, if the Reader opened one.
func (r *Reader) Close() error {
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}

// Version returns the PDF version from the file header, or the zero value
// when the header is missing.
func (r *Reader) Version() PDFVersion {
	return r.version
}

// Trailer returns the merged trailer dictionary: for every key, the value
// from the newest section that defines it.
func (r *Reader) Trailer() core.Dict {
	return r.trailer
}

// Sections returns the cross-reference sections, newest first. A section
// rebuilt by repair comes last.
func (r *Reader) Sections() []*core.XRefSection {
	return r.sections
}

// Size returns the length of the document in bytes.
func (r *Reader) Size() int64 {
	return r.size
}

// Repaired reports whether object headers had to be scanned.
func (r *Reader) Repaired() bool {
	return r.repaired
}

// Encrypted reports whether the trailer names an /Encrypt dictionary.
// String values of encrypted documents cannot be read.
func (r *Reader) Encrypted() bool {
	return r.trailer.Has("Encrypt")
}

// ObjectIDs yields every in-use object ID exactly once, in enumeration
// order: section by section, newest first, entries in section order.
func (r *Reader) ObjectIDs() iter.Seq[core.IndirectRef] {
	return func(yield func(core.IndirectRef) bool) {
		for _, ref := range r.ids {
			if !yield(ref) {
				return
			}
		}
	}
}

// Resolve returns the object with the given ID. Indirect references inside
// the result are left as they are. Failures are *ObjectError values
// wrapping ErrObjectNotFound or ErrCorruptObject and affect no other
// object.
func (r *Reader) Resolve(ref core.IndirectRef) (core.Object, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ref, 0)
}

// load resolves ref with r.mu held.
func (r *Reader) load(ref core.IndirectRef, depth int) (core.Object, error) {
	if c, ok := r.cache[ref]; ok {
		return c.obj, c.err
	}
	if depth > maxResolveDepth {
		return nil, objectError(ref, ErrCorruptObject, "resolution nested deeper than %d", maxResolveDepth)
	}
	if r.loading[ref] {
		return nil, objectError(ref, ErrCorruptObject, "object refers to itself while loading")
	}
	r.loading[ref] = true
	defer delete(r.loading, ref)

	obj, err := r.fetch(ref, depth)
	if err != nil {
		r.logger.WithError(err).WithField("object", ref.String()).Debug("failed to resolve object")
		r.cache[ref] = cached{err: err}
		return nil, err
	}
	r.cache[ref] = cached{obj: obj}
	return obj, nil
}

func (r *Reader) fetch(ref core.IndirectRef, depth int) (core.Object, error) {
	entry, ok := r.entries[ref.Number]
	if !ok {
		return nil, objectError(ref, ErrObjectNotFound, "no cross-reference entry")
	}

	switch entry.Kind {
	case core.XRefFree:
		return nil, objectError(ref, ErrObjectNotFound, "entry is free")

	case core.XRefCompressed:
		if ref.Generation != 0 {
			return nil, objectError(ref, ErrObjectNotFound, "compressed objects have generation 0")
		}
		return r.fetchCompressed(ref, entry, depth)
	}

	if entry.Generation != ref.Generation {
		return nil, objectError(ref, ErrObjectNotFound, "current generation is %d", entry.Generation)
	}
	if entry.Offset < 0 || entry.Offset >= r.size {
		return nil, objectError(ref, ErrCorruptObject, "offset %d outside file of %d bytes", entry.Offset, r.size)
	}

	parser := core.NewParser(io.NewSectionReader(r.ra, entry.Offset, r.size-entry.Offset))
	parser.SetMaxStreamLength(r.size - entry.Offset)
	parser.SetReferenceResolver(lengthResolver{r: r, depth: depth + 1})
	indirect, err := parser.ParseIndirectObject()
	if err != nil {
		return nil, objectError(ref, ErrCorruptObject, "at offset %d: %v", entry.Offset, err)
	}
	if indirect.Ref != ref {
		return nil, objectError(ref, ErrCorruptObject, "offset %d holds object %v", entry.Offset, indirect.Ref)
	}
	return indirect.Object, nil
}

func (r *Reader) fetchCompressed(ref core.IndirectRef, entry core.XRefEntry, depth int) (core.Object, error) {
	objStm, ok := r.objStreams[entry.StreamNumber]
	if !ok {
		streamRef := core.IndirectRef{Number: entry.StreamNumber}
		obj, err := r.load(streamRef, depth+1)
		if err != nil {
			return nil, objectError(ref, ErrCorruptObject, "object stream %d: %v", entry.StreamNumber, err)
		}
		stream, isStream := obj.(*core.Stream)
		if !isStream {
			return nil, objectError(ref, ErrCorruptObject, "object %d is not a stream", entry.StreamNumber)
		}
		objStm, err = core.NewObjectStream(stream)
		if err != nil {
			return nil, objectError(ref, ErrCorruptObject, "object stream %d: %v", entry.StreamNumber, err)
		}
		r.objStreams[entry.StreamNumber] = objStm
	}

	obj, num, err := objStm.ObjectAt(entry.StreamIndex)
	if err != nil {
		return nil, objectError(ref, ErrCorruptObject, "object stream %d: %v", entry.StreamNumber, err)
	}
	if num != ref.Number {
		return nil, objectError(ref, ErrCorruptObject, "object stream %d slot %d holds object %d", entry.StreamNumber, entry.StreamIndex, num)
	}
	return obj, nil
}

// lengthResolver resolves indirect /Length values while r.mu is held.
type lengthResolver struct {
	r     *Reader
	depth int
}

func (l lengthResolver) ResolveReference(ref core.IndirectRef) (core.Object, error) {
	return l.r.load(ref, l.depth)
}
