// Package reader provides the object store of a PDF: it parses the
// cross-reference sections once and resolves indirect objects on demand.
//
// # Opening PDF Files
//
//	r, err := reader.Open("slides.pdf")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer r.Close()
//
// [NewReader] works on any io.ReaderAt and [FromBytes] on a byte slice.
// Only a document with no usable cross-reference data at all fails to
// open, with an error wrapping [ErrMalformedDocument]. Broken chains are
// repaired by scanning for object headers unless [WithRepair](false) is
// given.
//
// # Object Resolution
//
// [Reader.ObjectIDs] enumerates every in-use object exactly once, newest
// section first. [Reader.Resolve] parses one object, caching the value or
// the failure; nested references are never followed. A failure is local to
// the object and reported as an [*ObjectError] wrapping [ErrObjectNotFound]
// or [ErrCorruptObject].
package reader
