package pptx

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Image formats a slide picture can be stored in.
const (
	FormatPNG  = "png"
	FormatJPEG = "jpeg"
)

// ErrUnsupportedImage is returned when a slide picture is neither PNG nor
// JPEG.
var ErrUnsupportedImage = errors.New("unsupported slide image format")

// Slide is one slide of an image deck.
type Slide struct {
	Index       int    // 0-indexed slide number
	Image       []byte // picture covering the whole slide
	ImageFormat string // FormatPNG or FormatJPEG
	Notes       string // speaker notes, "" for none
}

// HasNotes reports whether the slide carries speaker notes.
func (s *Slide) HasNotes() bool {
	return strings.TrimSpace(s.Notes) != ""
}

// extension returns the media file extension for the slide picture.
func (s *Slide) extension() (string, error) {
	switch s.ImageFormat {
	case FormatPNG, "":
		return "png", nil
	case FormatJPEG, "jpg":
		return "jpeg", nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedImage, s.ImageFormat)
}

// formatFromExtension maps a media file name back to an image format.
func formatFromExtension(name string) string {
	switch {
	case strings.HasSuffix(name, ".png"):
		return FormatPNG
	case strings.HasSuffix(name, ".jpeg"), strings.HasSuffix(name, ".jpg"):
		return FormatJPEG
	}
	return ""
}

// Presentation is a deck to be written.
type Presentation struct {
	Title   string
	Creator string    // application name, "pdf2pptx" when empty
	Created time.Time // zero for the time of writing
	Width   int64     // slide width in EMUs, 0 for DefaultWidth
	Height  int64     // slide height in EMUs, 0 for DefaultHeight
	Slides  []Slide
}

func (p *Presentation) size() (int64, int64) {
	w, h := p.Width, p.Height
	if w <= 0 {
		w = DefaultWidth
	}
	if h <= 0 {
		h = DefaultHeight
	}
	return w, h
}

// NotesCount returns the number of slides with notes.
func (p *Presentation) NotesCount() int {
	n := 0
	for i := range p.Slides {
		if p.Slides[i].HasNotes() {
			n++
		}
	}
	return n
}
