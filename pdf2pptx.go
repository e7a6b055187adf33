// Package pdf2pptx converts a PDF into an image-backed PowerPoint deck.
// Every page becomes a full-slide picture, and the text of comment
// annotations becomes the speaker notes.
//
// Basic usage:
//
//	result, warnings, err := pdf2pptx.Open("talk.pdf").Convert(ctx)
//	if err != nil {
//	    // handle error
//	}
//	if len(warnings) > 0 {
//	    log.Println("Warnings:", pdf2pptx.FormatWarnings(warnings))
//	}
//	fmt.Println("wrote", result.Output)
//
// With options:
//
//	result, _, err := pdf2pptx.Open("talk.pdf").
//	    Output("talk.pptx").
//	    Workers(4).
//	    NotesMode(annot.ModePageRef).
//	    Convert(ctx)
//
// Pages are rendered by an external program, ImageMagick's convert by
// default. The lower-level reader, pages, annot, raster, deck and pptx
// packages can be used on their own.
package pdf2pptx

import (
	"github.com/tsawler/pdf2pptx/reader"
)

// Open returns a Converter for the PDF at filename. Nothing is read until a
// terminal operation such as Convert is called.
//
// Example:
//
//	count, err := pdf2pptx.Open("talk.pdf").PageCount()
func Open(filename string) *Converter {
	return &Converter{
		filename: filename,
		options:  defaultOptions(),
	}
}

// FromReader creates a Converter from an already-opened reader.Reader.
// filename must name the same document; the rasterizer reads it.
// Note: The caller is responsible for closing the reader.
//
// Example:
//
//	r, err := reader.Open("talk.pdf")
//	if err != nil {
//	    // handle error
//	}
//	defer r.Close()
//	comments, _, err := pdf2pptx.FromReader(r, "talk.pdf").Comments()
func FromReader(r *reader.Reader, filename string) *Converter {
	return &Converter{
		filename: filename,
		reader:   r,
		options:  defaultOptions(),
	}
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	count := pdf2pptx.Must(pdf2pptx.Open("talk.pdf").PageCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// MustResult is like Must for operations that also return warnings, which
// it discards.
//
// Example:
//
//	comments := pdf2pptx.MustResult(pdf2pptx.Open("talk.pdf").Comments())
func MustResult[T any](val T, _ []Warning, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}
