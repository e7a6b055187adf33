// Package annot recovers speaker notes from a PDF: the text of comment-type
// text annotations (/Subtype /Text /Name /Comment), keyed by page number.
//
// The extractor makes a single pass over the object store's IDs. Page
// objects advance a counter and each comment is numbered from it:
//
//	comments := annot.NewExtractor().Extract(r)
//	for _, page := range comments.Pages() {
//	    fmt.Println(page, comments[page])
//	}
//
// In ModeTraversal a comment belongs to the page after the pages counted so
// far. Documents written page-then-annotation therefore attach each comment
// to the following page number. ModePageRef uses the annotation's /P entry
// or the page's /Annots array instead.
//
// Extraction never fails. Unresolvable objects, undecodable text and empty
// comments are skipped and logged at debug level.
package annot
