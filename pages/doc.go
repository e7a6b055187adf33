// Package pages reads the page tree of a PDF: the page count recorded at
// its root and, for callers that need page identities, the page leaves in
// document order.
//
//	n, err := pages.Count(r)
//	if errors.Is(err, pages.ErrMissingPageTree) {
//	    // the catalog has no /Pages
//	}
//
// Count trusts the root's /Count and never walks the tree. PageRefs walks
// /Kids depth-first, guarding against cycles and runaway depth.
package pages
