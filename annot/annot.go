package annot

import (
	"fmt"
	"iter"
	"maps"
	"slices"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/tsawler/pdf2pptx/core"
	"github.com/tsawler/pdf2pptx/internal/logging"
	"github.com/tsawler/pdf2pptx/pages"
)

// CommentMap maps a 1-based page number to the comment text attached to it.
type CommentMap map[int]string

// Pages returns the page numbers in the map, ascending.
func (m CommentMap) Pages() []int {
	return slices.Sorted(maps.Keys(m))
}

// Mode selects how a comment is assigned to a page.
type Mode int

const (
	// ModeTraversal numbers a comment as the page after the pages seen so
	// far in object enumeration order. Documents that lay out each
	// annotation right after its page get the following page number.
	ModeTraversal Mode = iota

	// ModePageRef places a comment through its /P entry or the /Annots
	// array that lists it, and falls back to ModeTraversal numbering.
	ModePageRef
)

func (m Mode) String() string {
	if m == ModePageRef {
		return "page-ref"
	}
	return "traversal"
}

// ParseMode parses "traversal" or "page-ref".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "traversal":
		return ModeTraversal, nil
	case "page-ref", "pageref":
		return ModePageRef, nil
	}
	return 0, fmt.Errorf("unknown notes mode %q", s)
}

// Source is an object store the extractor can walk. *reader.Reader
// satisfies it.
type Source interface {
	pages.Document
	ObjectIDs() iter.Seq[core.IndirectRef]
}

// encrypted is implemented by sources that can tell whether their strings
// are encrypted.
type encrypted interface {
	Encrypted() bool
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithMode sets the page assignment mode.
func WithMode(mode Mode) Option {
	return func(e *Extractor) {
		e.mode = mode
	}
}

// WithLegacyFallback decodes /Contents that is not UTF-8 or UTF-16 as
// Windows-1252 instead of skipping the comment.
func WithLegacyFallback() Option {
	return func(e *Extractor) {
		e.legacy = true
	}
}

// WithLogger sets the logger skipped objects are reported to.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// Extractor recovers page comments from a document's text annotations.
type Extractor struct {
	mode   Mode
	legacy bool
	logger logrus.FieldLogger
}

// NewExtractor returns an Extractor in ModeTraversal.
func NewExtractor(opts ...Option) *Extractor {
	e := &Extractor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// comment is a text annotation found during the pass.
type comment struct {
	ref       core.IndirectRef
	dict      core.Dict
	text      string
	traversal int
}

// Extract makes one pass over src.ObjectIDs and returns the comments it
// could place. It never fails: objects that cannot be resolved or decoded
// are skipped.
func (e *Extractor) Extract(src Source) CommentMap {
	result := make(CommentMap)
	logger := logging.OrDiscard(e.logger)
	if enc, ok := src.(encrypted); ok && enc.Encrypted() {
		logger.Warn("document is encrypted, comments are not extracted")
		return result
	}

	var comments []comment
	pagesSeen := 0
	for ref := range src.ObjectIDs() {
		log := logger.WithField("object", ref.String())
		obj, err := src.Resolve(ref)
		if err != nil {
			log.WithError(err).Debug("skipping unresolvable object")
			continue
		}
		dict, ok := obj.(core.Dict)
		if !ok {
			continue
		}

		switch Classify(dict) {
		case KindPage:
			pagesSeen++
		case KindTextComment:
			text, err := e.contents(src, dict)
			if err != nil {
				log.WithError(err).Debug("skipping comment")
				continue
			}
			if text == "" {
				continue
			}
			comments = append(comments, comment{ref: ref, dict: dict, text: text, traversal: pagesSeen + 1})
		}
	}

	var placer func(comment) int
	if e.mode == ModePageRef {
		placer = pageRefPlacer(src, logger)
	}
	for _, c := range comments {
		page := c.traversal
		if placer != nil {
			page = placer(c)
		}
		logger.WithFields(logrus.Fields{"object": c.ref.String(), "page": page}).Debug("comment found")
		result[page] = c.text
	}
	return result
}

// contents decodes and trims the /Contents of an annotation.
func (e *Extractor) contents(src Source, dict core.Dict) (string, error) {
	obj := dict.Get("Contents")
	if ref, ok := obj.(core.IndirectRef); ok {
		var err error
		if obj, err = src.Resolve(ref); err != nil {
			return "", err
		}
	}
	s, ok := obj.(core.String)
	if !ok {
		return "", fmt.Errorf("%w: /Contents is %v", ErrUndecodableText, obj)
	}
	text, err := DecodeText([]byte(s), e.legacy)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// pageRefPlacer builds the page lookup used by ModePageRef. When the page
// tree cannot be walked every comment keeps its traversal number.
func pageRefPlacer(src Source, logger logrus.FieldLogger) func(comment) int {
	refs, err := pages.PageRefs(src)
	if err != nil {
		logger.WithError(err).Warn("page tree unavailable, using traversal numbering")
		return func(c comment) int { return c.traversal }
	}

	pageOf := make(map[core.IndirectRef]int, len(refs))
	annotPage := make(map[core.IndirectRef]int)
	for i, ref := range refs {
		pageOf[ref] = i + 1
		obj, err := src.Resolve(ref)
		if err != nil {
			continue
		}
		page, ok := obj.(core.Dict)
		if !ok {
			continue
		}
		annots := page.Get("Annots")
		if aref, ok := annots.(core.IndirectRef); ok {
			if annots, err = src.Resolve(aref); err != nil {
				continue
			}
		}
		arr, _ := annots.(core.Array)
		for _, a := range arr {
			if r, ok := a.(core.IndirectRef); ok {
				if _, seen := annotPage[r]; !seen {
					annotPage[r] = i + 1
				}
			}
		}
	}

	return func(c comment) int {
		if p, ok := c.dict.GetIndirectRef("P"); ok {
			if n, ok := pageOf[p]; ok {
				return n
			}
		}
		if n, ok := annotPage[c.ref]; ok {
			return n
		}
		return c.traversal
	}
}
