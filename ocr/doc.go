// Package ocr recognizes the text of rendered slide images. The deck uses
// it to fill speaker notes for pages that carry no comment.
//
// Recognition wraps the Tesseract engine via gosseract and is compiled in
// only with the "ocr" build tag:
//
//	go build -tags ocr ./...
//
// Without the tag New returns ErrOCRNotEnabled. Tesseract must be installed
// for the tagged build. On macOS:
//
//	brew install tesseract
//
// On Ubuntu/Debian:
//
//	apt-get install tesseract-ocr
package ocr

import "errors"

// ErrOCRNotEnabled is returned when OCR support was not compiled in.
// Rebuild with -tags ocr to enable OCR support.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// DefaultLanguage is used when no language is configured.
const DefaultLanguage = "eng"

// PageSegMode controls how Tesseract analyzes the page layout.
type PageSegMode int

// Page segmentation modes, matching Tesseract's numbering.
const (
	PSMAuto         PageSegMode = 3  // Fully automatic (default)
	PSMSingleColumn PageSegMode = 4  // Single column of variable sizes
	PSMSingleBlock  PageSegMode = 6  // Single uniform block of text
	PSMSparseText   PageSegMode = 11 // Find as much text as possible
)

// Option configures a Client.
type Option func(*settings)

type settings struct {
	language string
	mode     PageSegMode
}

// WithLanguage sets the recognition language(s), "+" separated
// (e.g., "eng+fra").
func WithLanguage(lang string) Option {
	return func(s *settings) {
		if lang != "" {
			s.language = lang
		}
	}
}

// WithPageSegMode sets the page segmentation mode. Slides usually read
// best with PSMSparseText.
func WithPageSegMode(mode PageSegMode) Option {
	return func(s *settings) {
		s.mode = mode
	}
}

func newSettings(opts []Option) settings {
	s := settings{language: DefaultLanguage, mode: PSMSparseText}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}
