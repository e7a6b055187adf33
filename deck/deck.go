package deck

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tsawler/pdf2pptx/annot"
	"github.com/tsawler/pdf2pptx/internal/logging"
	"github.com/tsawler/pdf2pptx/pptx"
)

// ErrMissingRenderedPage is wrapped by MissingPageError.
var ErrMissingRenderedPage = errors.New("rendered page missing")

// MissingPageError reports a page index without a usable image.
type MissingPageError struct {
	Index int
	Path  string // "" when no image was produced at all
	Err   error  // read or decode failure, nil when Path is ""
}

func (e *MissingPageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("page %d: %v: %v", e.Index, ErrMissingRenderedPage, e.Err)
	}
	return fmt.Sprintf("page %d: %v", e.Index, ErrMissingRenderedPage)
}

func (e *MissingPageError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrMissingRenderedPage, e.Err}
	}
	return []error{ErrMissingRenderedPage}
}

// Slide is one page of the deck.
type Slide struct {
	Index int // 0-based page index
	Image Image
	Notes string
}

// Deck is an ordered list of slides, ascending by page index.
type Deck struct {
	Slides []Slide
}

// InjectNotes attaches comments[index+1] to each slide. Slides without a
// comment keep their notes.
func (d *Deck) InjectNotes(comments annot.CommentMap) {
	for i := range d.Slides {
		if text, ok := comments[d.Slides[i].Index+1]; ok {
			d.Slides[i].Notes = text
		}
	}
}

// Recognizer reads text from a slide picture. *ocr.Client satisfies it.
type Recognizer interface {
	RecognizeImage(data []byte) (string, error)
}

// FillNotes sets the notes of every slide that has none to the text rec
// finds in its picture. It returns the number of slides filled and the
// first error; slides after a failure are still tried.
func (d *Deck) FillNotes(rec Recognizer) (int, error) {
	filled := 0
	var firstErr error
	for i := range d.Slides {
		s := &d.Slides[i]
		if s.Notes != "" {
			continue
		}
		text, err := rec.RecognizeImage(s.Image.Data)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("page %d: %w", s.Index, err)
			}
			continue
		}
		if text != "" {
			s.Notes = text
			filled++
		}
	}
	return filled, firstErr
}

// Notes returns the notes of the deck keyed by 1-based page number.
func (d *Deck) Notes() annot.CommentMap {
	out := make(annot.CommentMap)
	for _, s := range d.Slides {
		if s.Notes != "" {
			out[s.Index+1] = s.Notes
		}
	}
	return out
}

// Presentation converts the deck for the pptx writer.
func (d *Deck) Presentation(title string) *pptx.Presentation {
	p := &pptx.Presentation{Title: title, Slides: make([]pptx.Slide, len(d.Slides))}
	for i, s := range d.Slides {
		p.Slides[i] = pptx.Slide{
			Index:       i,
			Image:       s.Image.Data,
			ImageFormat: s.Image.Format,
			Notes:       s.Notes,
		}
	}
	return p
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithSkipMissing leaves pages without an image out of the deck instead of
// failing.
func WithSkipMissing() Option {
	return func(a *Assembler) {
		a.skipMissing = true
	}
}

// WithMaxDimension bounds the longer side of slide pictures; see LoadImage.
func WithMaxDimension(px int) Option {
	return func(a *Assembler) {
		a.maxDim = px
	}
}

// WithLogger sets the logger skipped pages are reported to.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(a *Assembler) {
		a.logger = logger
	}
}

// Assembler builds decks from rendered pages.
type Assembler struct {
	skipMissing bool
	maxDim      int
	logger      logrus.FieldLogger
}

// NewAssembler returns an Assembler that fails on missing pages.
func NewAssembler(opts ...Option) *Assembler {
	a := &Assembler{maxDim: DefaultMaxDimension}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Assemble builds one slide per page index in [0, pageCount), in index
// order, reading each image from images[index] into memory, and attaches
// comments as notes. Once it returns, the image files are no longer needed.
func (a *Assembler) Assemble(pageCount int, images map[int]string, comments annot.CommentMap) (*Deck, error) {
	if pageCount < 0 {
		return nil, fmt.Errorf("invalid page count %d", pageCount)
	}

	logger := logging.OrDiscard(a.logger)
	d := &Deck{Slides: make([]Slide, 0, min(pageCount, len(images)))}
	for index := 0; index < pageCount; index++ {
		img, err := a.load(index, images)
		if err != nil {
			if !a.skipMissing {
				return nil, err
			}
			logger.WithError(err).WithField("index", index).Warn("leaving page out of the deck")
			continue
		}
		d.Slides = append(d.Slides, Slide{Index: index, Image: img})
	}
	d.InjectNotes(comments)
	return d, nil
}

func (a *Assembler) load(index int, images map[int]string) (Image, error) {
	path, ok := images[index]
	if !ok || path == "" {
		return Image{}, &MissingPageError{Index: index}
	}
	img, err := LoadImage(path, a.maxDim)
	if err != nil {
		return Image{}, &MissingPageError{Index: index, Path: path, Err: err}
	}
	return img, nil
}
