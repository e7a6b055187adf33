package pages

import (
	"errors"
	"fmt"

	"github.com/tsawler/pdf2pptx/core"
)

var (
	// ErrMissingCatalog is returned when the trailer has no resolvable
	// /Root dictionary.
	ErrMissingCatalog = errors.New("document catalog not found")

	// ErrMissingPageTree is returned when the catalog has no resolvable
	// /Pages dictionary.
	ErrMissingPageTree = errors.New("page tree not found")

	// ErrMissingCount is returned when the page tree root has no usable
	// /Count.
	ErrMissingCount = errors.New("page count not found")
)

// maxTreeDepth bounds the /Kids walk.
const maxTreeDepth = 64

// Document is the view of an object store the page functions need.
// *reader.Reader satisfies it.
type Document interface {
	Trailer() core.Dict
	Resolve(ref core.IndirectRef) (core.Object, error)
}

// sizer is implemented by documents that know their length in bytes.
type sizer interface {
	Size() int64
}

// resolve follows obj when it is an indirect reference.
func resolve(doc Document, obj core.Object) (core.Object, error) {
	if ref, ok := obj.(core.IndirectRef); ok {
		return doc.Resolve(ref)
	}
	return obj, nil
}

// Catalog returns the document catalog named by the trailer's /Root.
func Catalog(doc Document) (core.Dict, error) {
	rootObj := doc.Trailer().Get("Root")
	if rootObj == nil {
		return nil, fmt.Errorf("%w: trailer missing /Root entry", ErrMissingCatalog)
	}
	obj, err := resolve(doc, rootObj)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingCatalog, err)
	}
	catalog, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: catalog is %v, not a dictionary", ErrMissingCatalog, obj.Type())
	}
	return catalog, nil
}

// Root returns the root node of the page tree.
func Root(doc Document) (core.Dict, error) {
	catalog, err := Catalog(doc)
	if err != nil {
		return nil, err
	}
	pagesObj := catalog.Get("Pages")
	if pagesObj == nil {
		return nil, fmt.Errorf("%w: catalog missing /Pages entry", ErrMissingPageTree)
	}
	obj, err := resolve(doc, pagesObj)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMissingPageTree, err)
	}
	root, ok := obj.(core.Dict)
	if !ok {
		return nil, fmt.Errorf("%w: /Pages is %v, not a dictionary", ErrMissingPageTree, obj.Type())
	}
	return root, nil
}

// Count returns the page count recorded in the page tree root. The tree
// itself is not walked. When doc reports its size, a count larger than the
// document in bytes is rejected.
func Count(doc Document) (int, error) {
	root, err := Root(doc)
	if err != nil {
		return 0, err
	}
	countObj := root.Get("Count")
	if countObj == nil {
		return 0, fmt.Errorf("%w: page tree missing /Count entry", ErrMissingCount)
	}
	count, ok := countObj.(core.Int)
	if !ok {
		return 0, fmt.Errorf("%w: invalid /Count type %v", ErrMissingCount, countObj.Type())
	}
	if count < 0 {
		return 0, fmt.Errorf("%w: negative /Count %d", ErrMissingCount, count)
	}
	// Every page is an object of its own, so it takes at least a byte.
	if s, ok := doc.(sizer); ok && int64(count) > s.Size() {
		return 0, fmt.Errorf("%w: /Count %d cannot fit in %d bytes", ErrMissingCount, count, s.Size())
	}
	return int(count), nil
}

// PageRefs walks /Kids depth-first and returns the IDs of the page leaves
// in document order. Kids that cannot be resolved, nodes already visited
// and pages given inline rather than by reference are skipped.
func PageRefs(doc Document) ([]core.IndirectRef, error) {
	root, err := Root(doc)
	if err != nil {
		return nil, err
	}
	w := walker{doc: doc, visited: make(map[core.IndirectRef]bool)}
	if catalog, err := Catalog(doc); err == nil {
		if pagesRef, ok := catalog.GetIndirectRef("Pages"); ok {
			w.visited[pagesRef] = true
		}
	}
	w.traverse(root, 0)
	return w.refs, nil
}

type walker struct {
	doc     Document
	visited map[core.IndirectRef]bool
	refs    []core.IndirectRef
}

// traverse visits the kids of a /Pages node.
func (w *walker) traverse(node core.Dict, depth int) {
	if depth >= maxTreeDepth {
		return
	}
	kidsObj, err := resolve(w.doc, node.Get("Kids"))
	if err != nil {
		return
	}
	kids, _ := kidsObj.(core.Array)

	for _, kid := range kids {
		ref, isRef := kid.(core.IndirectRef)
		if isRef {
			if w.visited[ref] {
				continue
			}
			w.visited[ref] = true
		}
		obj, err := resolve(w.doc, kid)
		if err != nil {
			continue
		}
		dict, ok := obj.(core.Dict)
		if !ok {
			continue
		}
		if isPagesNode(dict) {
			w.traverse(dict, depth+1)
		} else if isRef {
			w.refs = append(w.refs, ref)
		}
	}
}

// isPagesNode reports whether dict is an intermediate node. Nodes without
// /Type are classified by the presence of /Kids.
func isPagesNode(dict core.Dict) bool {
	if name, ok := dict.GetName("Type"); ok {
		return name == "Pages"
	}
	return dict.Has("Kids")
}
