package reader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/tsawler/pdf2pptx/core"
	"github.com/tsawler/pdf2pptx/internal/testpdf"
)

func ref(num int) core.IndirectRef {
	return core.IndirectRef{Number: num}
}

func mustReader(t *testing.T, data []byte, opts ...Option) *Reader {
	t.Helper()
	r, err := FromBytes(data, opts...)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}
	return r
}

// TestOpen tests opening a file from disk
func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.pdf")
	if err := os.WriteFile(path, testpdf.Deck(2, nil), 0o644); err != nil {
		t.Fatal(err)
	}

	r, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Version() != (PDFVersion{Major: 1, Minor: 7}) || r.Version().String() != "1.7" {
		t.Errorf("Version = %v", r.Version())
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}

// TestOpenNonExistent tests a missing file
func TestOpenNonExistent(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

// TestMalformedDocument tests inputs with no usable cross-reference data
func TestMalformedDocument(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		opts []Option
	}{
		{"empty", nil, nil},
		{"no objects", []byte("%PDF-1.4\nhello\n%%EOF\n"), nil},
		{"broken xref without repair", testpdf.Deck(1, nil)[:40], []Option{WithRepair(false)}},
		{"bad startxref without repair", testpdf.New().Object(1, 0, "<< >>").Section("").SetStartXRef(3).Bytes(), []Option{WithRepair(false)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FromBytes(tt.data, tt.opts...)
			if !errors.Is(err, ErrMalformedDocument) {
				t.Errorf("err = %v, want ErrMalformedDocument", err)
			}
		})
	}
}

// TestResolve tests resolving objects of a conventional document
func TestResolve(t *testing.T) {
	r := mustReader(t, testpdf.Deck(2, map[int]string{2: "Closing remarks"}))

	catalog, err := r.Resolve(r.Trailer()["Root"].(core.IndirectRef))
	if err != nil {
		t.Fatalf("Resolve catalog: %v", err)
	}
	want := core.Dict{"Type": core.Name("Catalog"), "Pages": ref(2)}
	if diff := cmp.Diff(want, catalog); diff != "" {
		t.Errorf("catalog mismatch (-want +got):\n%s", diff)
	}

	annot, err := r.Resolve(ref(5))
	if err != nil {
		t.Fatalf("Resolve annotation: %v", err)
	}
	if contents, _ := annot.(core.Dict).GetString("Contents"); contents != "Closing remarks" {
		t.Errorf("Contents = %q", contents)
	}
	// Nested references are left unresolved.
	if _, ok := annot.(core.Dict).GetIndirectRef("P"); !ok {
		t.Error("expected /P to stay an indirect reference")
	}
}

// TestObjectIDsOverlappingSections tests first-seen-wins enumeration over
// incremental updates, including a revoking free entry
func TestObjectIDsOverlappingSections(t *testing.T) {
	b := testpdf.New().
		Object(1, 0, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, 0, "(two, original)").
		Object(3, 0, "(three, original)").
		Object(4, 0, "(four)")
	b.Section("/Root 1 0 R /Info 3 0 R")
	b.Object(3, 0, "(three, updated)").Object(5, 0, "(five)")
	b.Section("/Root 1 0 R")
	b.Object(2, 0, "(two, updated)").Free(4, 1)
	r := mustReader(t, b.Section("/Root 1 0 R").Bytes())

	got := slices.Collect(r.ObjectIDs())
	want := []core.IndirectRef{ref(2), ref(3), ref(5), ref(1)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ObjectIDs mismatch (-want +got):\n%s", diff)
	}

	// Restartable.
	if again := slices.Collect(r.ObjectIDs()); !slices.Equal(got, again) {
		t.Errorf("second enumeration = %v, want %v", again, got)
	}
	// Early termination.
	var first []core.IndirectRef
	for id := range r.ObjectIDs() {
		first = append(first, id)
		break
	}
	if len(first) != 1 {
		t.Errorf("early break collected %d ids", len(first))
	}

	for num, text := range map[int]string{2: "two, updated", 3: "three, updated"} {
		obj, err := r.Resolve(ref(num))
		if err != nil {
			t.Fatalf("Resolve(%d): %v", num, err)
		}
		if obj != core.String(text) {
			t.Errorf("Resolve(%d) = %v, want %q", num, obj, text)
		}
	}
	if _, err := r.Resolve(ref(4)); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("revoked object: err = %v, want ErrObjectNotFound", err)
	}

	if len(r.Sections()) != 3 {
		t.Errorf("got %d sections, want 3", len(r.Sections()))
	}
	if info, _ := r.Trailer().GetIndirectRef("Info"); info.Number != 3 {
		t.Errorf("merged trailer lost /Info from the oldest section: %v", r.Trailer())
	}
	if r.Trailer().Has("Prev") {
		t.Error("merged trailer should not carry /Prev")
	}
}

// TestResolveCorruptObjectIsLocal tests that bad objects fail alone
func TestResolveCorruptObjectIsLocal(t *testing.T) {
	b := testpdf.New().
		Object(1, 0, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, 0, "<< /Type /Pages /Kids [] /Count 0 >>")
	broken := b.Offset()
	b.Raw("3 0 obj\n<< /Type /Annot /Subtype\nendobj\n").EntryAt(3, 0, broken)
	b.EntryAt(4, 0, 0)      // points at the file header
	b.EntryAt(5, 0, 999999) // beyond EOF
	b.EntryAt(6, 0, broken) // holds object 3
	b.Object(7, 0, "(fine)")
	r := mustReader(t, b.Section("/Root 1 0 R").Bytes())

	for _, num := range []int{3, 4, 5, 6} {
		_, err := r.Resolve(ref(num))
		if !errors.Is(err, ErrCorruptObject) {
			t.Errorf("Resolve(%d): err = %v, want ErrCorruptObject", num, err)
		}
		var objErr *ObjectError
		if !errors.As(err, &objErr) || objErr.Ref != ref(num) {
			t.Errorf("Resolve(%d): expected *ObjectError for the same ref, got %v", num, err)
		}
	}

	for _, num := range []int{1, 2, 7} {
		if _, err := r.Resolve(ref(num)); err != nil {
			t.Errorf("Resolve(%d) failed after corrupt siblings: %v", num, err)
		}
	}
}

// TestResolveHostileObjectsAreLocal tests objects built to exhaust memory
// or stack: each fails or falls back on its own and the rest still resolve
func TestResolveHostileObjectsAreLocal(t *testing.T) {
	deep := strings.Repeat("[", 1_000_000)
	r := mustReader(t, testpdf.New().
		Object(1, 0, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, 0, "<< /Type /Pages /Kids [] /Count 0 >>").
		Object(3, 0, "<< /Length 9223372036854775807 >>\nstream\nabc\nendstream").
		Object(4, 0, deep).
		Object(5, 0, "<< /Type /ObjStm /N 1073741824 /First 4 /Length 6 >>\nstream\n1 0 42\nendstream").
		Object(6, 0, "(fine)").
		Section("/Root 1 0 R").
		Bytes())

	tests := []struct {
		name    string
		ref     core.IndirectRef
		wantErr error
	}{
		{"length beyond the file", ref(3), nil},
		{"nesting too deep", ref(4), ErrCorruptObject},
		{"plain sibling", ref(6), nil},
		{"catalog", ref(1), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.ref)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Resolve(%v): %v", tt.ref, err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Resolve(%v): err = %v, want %v", tt.ref, err, tt.wantErr)
			}
		})
	}

	obj, err := r.Resolve(ref(3))
	if err != nil {
		t.Fatalf("Resolve(3): %v", err)
	}
	if got := string(obj.(*core.Stream).Data); got != "abc" {
		t.Errorf("stream data = %q, want the bytes up to endstream", got)
	}

	obj, err = r.Resolve(ref(5))
	if err != nil {
		t.Fatalf("Resolve(5): %v", err)
	}
	objStm, err := core.NewObjectStream(obj.(*core.Stream))
	if err != nil {
		t.Fatalf("NewObjectStream: %v", err)
	}
	if _, _, err := objStm.ObjectAt(0); err == nil {
		t.Error("expected error for /N larger than the header")
	}
}

// TestResolveNotFound tests unknown numbers and generation mismatches
func TestResolveNotFound(t *testing.T) {
	r := mustReader(t, testpdf.Deck(1, nil))

	for _, id := range []core.IndirectRef{ref(99), {Number: 1, Generation: 2}, ref(0)} {
		if _, err := r.Resolve(id); !errors.Is(err, ErrObjectNotFound) {
			t.Errorf("Resolve(%v): err = %v, want ErrObjectNotFound", id, err)
		}
	}
}

// TestResolveCaching tests that values and failures are cached
func TestResolveCaching(t *testing.T) {
	r := mustReader(t, testpdf.Deck(1, nil))

	first, _ := r.Resolve(ref(1))
	second, _ := r.Resolve(ref(1))
	if fmt.Sprintf("%p", first) != fmt.Sprintf("%p", second) {
		t.Error("expected the cached dictionary to be returned")
	}

	_, err1 := r.Resolve(ref(42))
	_, err2 := r.Resolve(ref(42))
	if err1 == nil || err1 != err2 {
		t.Errorf("expected the cached failure to be returned, got %v and %v", err1, err2)
	}
}

// TestResolveCompressedObjects tests objects stored in object streams
func TestResolveCompressedObjects(t *testing.T) {
	b := testpdf.New().
		Object(1, 0, "<< /Type /Catalog /Pages 2 0 R >>").
		ObjectStream(10,
			testpdf.Member{Number: 2, Body: "<< /Type /Pages /Kids [3 0 R] /Count 1 >>"},
			testpdf.Member{Number: 3, Body: "<< /Type /Page /Parent 2 0 R >>"},
		)
	r := mustReader(t, b.StreamSection(11, "/Root 1 0 R").Bytes())

	page, err := r.Resolve(ref(3))
	if err != nil {
		t.Fatalf("Resolve(3): %v", err)
	}
	if name, _ := page.(core.Dict).GetName("Type"); name != "Page" {
		t.Errorf("object 3 = %v", page)
	}
	if _, err := r.Resolve(core.IndirectRef{Number: 3, Generation: 1}); !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("compressed object with generation 1: err = %v", err)
	}

	ids := slices.Collect(r.ObjectIDs())
	if diff := cmp.Diff([]core.IndirectRef{ref(1), ref(2), ref(3), ref(10), ref(11)}, ids); diff != "" {
		t.Errorf("ObjectIDs mismatch (-want +got):\n%s", diff)
	}
}

// TestResolveStreamLengths tests indirect and self-referential /Length
func TestResolveStreamLengths(t *testing.T) {
	b := testpdf.New().Object(1, 0, "<< /Type /Catalog >>")
	b.EntryAt(2, 0, b.Offset()).Raw("2 0 obj\n<< /Length 3 0 R >>\nstream\nabcdef\nendstream\nendobj\n")
	b.Object(3, 0, "6")
	b.EntryAt(4, 0, b.Offset()).Raw("4 0 obj\n<< /Length 4 0 R >>\nstream\nxyz\nendstream\nendobj\n")
	r := mustReader(t, b.Section("/Root 1 0 R").Bytes())

	for num, want := range map[int]string{2: "abcdef", 4: "xyz"} {
		obj, err := r.Resolve(ref(num))
		if err != nil {
			t.Fatalf("Resolve(%d): %v", num, err)
		}
		stream, ok := obj.(*core.Stream)
		if !ok {
			t.Fatalf("Resolve(%d) = %T, want *core.Stream", num, obj)
		}
		if string(stream.Data) != want {
			t.Errorf("Resolve(%d) data = %q, want %q", num, stream.Data, want)
		}
	}
}

// TestRepair tests rebuilding from object headers when startxref is wrong
func TestRepair(t *testing.T) {
	data := testpdf.New().
		Object(1, 0, "<< /Type /Catalog /Pages 2 0 R >>").
		Object(2, 0, "<< /Type /Pages /Kids [] /Count 0 >>").
		Section("/Root 1 0 R").
		SetStartXRef(5).
		Bytes()

	r := mustReader(t, data)
	if !r.Repaired() {
		t.Error("expected Repaired() after a bad startxref")
	}
	if root, _ := r.Trailer().GetIndirectRef("Root"); root != ref(1) {
		t.Errorf("Root = %v", r.Trailer().Get("Root"))
	}
	if _, err := r.Resolve(ref(2)); err != nil {
		t.Errorf("Resolve(2): %v", err)
	}
}

// TestRepairFindsCatalog tests a file with neither xref nor trailer
func TestRepairFindsCatalog(t *testing.T) {
	data := []byte("%PDF-1.3\n" +
		"1 0 obj\n<< /Type /Pages /Kids [] /Count 0 >>\nendobj\n" +
		"2 0 obj\n<< /Type /Catalog /Pages 1 0 R >>\nendobj\n" +
		"%%EOF\n")

	r := mustReader(t, data)
	if root, ok := r.Trailer().GetIndirectRef("Root"); !ok || root != ref(2) {
		t.Errorf("Root = %v, want 2 0 R", r.Trailer().Get("Root"))
	}
}

// TestRepairKeepsParsedSections tests that a broken /Prev keeps the newer
// sections in front of the scan
func TestRepairKeepsParsedSections(t *testing.T) {
	// The scan alone would pick the later, stale definition.
	b := testpdf.New().
		Object(1, 0, "<< /Type /Catalog >>").
		Object(2, 0, "(new)").
		Raw("2 0 obj\n(old)\nendobj\n")
	r := mustReader(t, b.Section("/Root 1 0 R /Prev 4").Bytes())

	if !r.Repaired() || len(r.Sections()) != 2 {
		t.Fatalf("Repaired = %v, sections = %d", r.Repaired(), len(r.Sections()))
	}
	obj, err := r.Resolve(ref(2))
	if err != nil || obj != core.String("new") {
		t.Errorf("Resolve(2) = %v, %v; want (new)", obj, err)
	}
}

// TestEncrypted tests the /Encrypt trailer flag
func TestEncrypted(t *testing.T) {
	plain := mustReader(t, testpdf.Deck(1, nil))
	if plain.Encrypted() {
		t.Error("plain document reported as encrypted")
	}

	b := testpdf.New().Object(1, 0, "<< /Type /Catalog >>").Object(2, 0, "<< /Filter /Standard >>")
	encrypted := mustReader(t, b.Section("/Root 1 0 R /Encrypt 2 0 R").Bytes())
	if !encrypted.Encrypted() {
		t.Error("expected Encrypted() for a trailer with /Encrypt")
	}
}

// TestResolveConcurrent tests concurrent resolution of every object
func TestResolveConcurrent(t *testing.T) {
	r := mustReader(t, testpdf.Deck(20, map[int]string{1: "a", 7: "b", 20: "c"}))
	ids := slices.Collect(r.ObjectIDs())

	var wg sync.WaitGroup
	errs := make(chan error, 8*len(ids))
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, id := range ids {
				if _, err := r.Resolve(id); err != nil {
					errs <- err
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent Resolve: %v", err)
	}
}
