package pptx

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"strings"
)

// Reader provides access to the slides of a PPTX file: picture data and
// speaker notes, in presentation order.
type Reader struct {
	zipReader *zip.Reader
	closer    io.Closer
	files     map[string]*zip.File
	width     int64
	height    int64
	slides    []*Slide
	coreProps *corePropertiesXML
	appProps  *appPropertiesXML
}

// Open opens a PPTX file for reading.
func Open(filename string) (*Reader, error) {
	zr, err := zip.OpenReader(filename)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}
	r, err := newReader(&zr.Reader)
	if err != nil {
		zr.Close()
		return nil, err
	}
	r.closer = zr
	return r, nil
}

// NewReader reads a PPTX package of the given size from ra.
func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("opening ZIP archive: %w", err)
	}
	return newReader(zr)
}

func newReader(zr *zip.Reader) (*Reader, error) {
	r := &Reader{
		zipReader: zr,
		files:     make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		r.files[f.Name] = f
	}

	// Validate required files exist
	for _, name := range []string{"[Content_Types].xml", "ppt/presentation.xml"} {
		if r.files[name] == nil {
			return nil, fmt.Errorf("missing required file: %s", name)
		}
	}

	if err := r.parseSlides(); err != nil {
		return nil, fmt.Errorf("parsing slides: %w", err)
	}

	// Metadata is optional
	r.coreProps = &corePropertiesXML{}
	if r.unmarshal("docProps/core.xml", r.coreProps) != nil {
		r.coreProps = nil
	}
	r.appProps = &appPropertiesXML{}
	if r.unmarshal("docProps/app.xml", r.appProps) != nil {
		r.appProps = nil
	}
	return r, nil
}

// Close releases resources associated with the Reader.
func (r *Reader) Close() error {
	if r.closer != nil {
		err := r.closer.Close()
		r.closer = nil
		return err
	}
	return nil
}

// getFileContent reads the content of a file from the ZIP archive.
func (r *Reader) getFileContent(name string) ([]byte, error) {
	f := r.files[name]
	if f == nil {
		return nil, fmt.Errorf("file not found: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *Reader) unmarshal(name string, v any) error {
	data, err := r.getFileContent(name)
	if err != nil {
		return err
	}
	return xml.Unmarshal(data, v)
}

// relationships reads the .rels part belonging to partName. A missing
// file yields no relationships.
func (r *Reader) relationships(partName string) []relationshipXML {
	rels := &relationshipsXML{}
	relsPath := path.Join(path.Dir(partName), "_rels", path.Base(partName)+".rels")
	if r.unmarshal(relsPath, rels) != nil {
		return nil
	}
	return rels.Relationship
}

// resolveTarget turns a relationship target into a part name.
func resolveTarget(partName, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Join(path.Dir(partName), target)
}

// parseSlides follows the slide id list, so slides come back in
// presentation order whatever their part names.
func (r *Reader) parseSlides() error {
	var pres presentationXML
	if err := r.unmarshal("ppt/presentation.xml", &pres); err != nil {
		return fmt.Errorf("parsing presentation: %w", err)
	}
	r.width, r.height = DefaultWidth, DefaultHeight
	if pres.SlideSz != nil {
		r.width, r.height = pres.SlideSz.Cx, pres.SlideSz.Cy
	}

	targets := make(map[string]string)
	for _, rel := range r.relationships("ppt/presentation.xml") {
		if rel.Type == relSlide {
			targets[rel.ID] = resolveTarget("ppt/presentation.xml", rel.Target)
		}
	}

	if pres.SlideIdList == nil {
		return nil
	}
	for i, id := range pres.SlideIdList.SlideId {
		slidePath, ok := targets[id.RID]
		if !ok {
			return fmt.Errorf("slide %s has no relationship %q", id.ID, id.RID)
		}
		slide, err := r.parseSlide(slidePath, i)
		if err != nil {
			return fmt.Errorf("slide %d: %w", i+1, err)
		}
		r.slides = append(r.slides, slide)
	}
	return nil
}

// parseSlide reads the first picture of a slide and its notes.
func (r *Reader) parseSlide(slidePath string, index int) (*Slide, error) {
	var sx slideXML
	if err := r.unmarshal(slidePath, &sx); err != nil {
		return nil, err
	}
	slide := &Slide{Index: index}

	rels := make(map[string]relationshipXML)
	var notesPath string
	for _, rel := range r.relationships(slidePath) {
		rels[rel.ID] = rel
		if rel.Type == relNotesSlide {
			notesPath = resolveTarget(slidePath, rel.Target)
		}
	}

	if len(sx.CSld.SpTree.Pic) > 0 {
		rel, ok := rels[sx.CSld.SpTree.Pic[0].BlipFill.Blip.Embed]
		if ok && rel.Type == relImage {
			mediaPath := resolveTarget(slidePath, rel.Target)
			data, err := r.getFileContent(mediaPath)
			if err != nil {
				return nil, err
			}
			slide.Image = data
			slide.ImageFormat = formatFromExtension(mediaPath)
		}
	}

	if notesPath != "" {
		notes, err := r.parseNotes(notesPath)
		if err != nil {
			return nil, fmt.Errorf("notes: %w", err)
		}
		slide.Notes = notes
	}
	return slide, nil
}

// parseNotes returns the text of the body placeholder of a notes slide,
// one line per paragraph.
func (r *Reader) parseNotes(notesPath string) (string, error) {
	var notes slideXML
	if err := r.unmarshal(notesPath, &notes); err != nil {
		return "", err
	}

	var lines []string
	for _, sp := range notes.CSld.SpTree.Sp {
		// Skip the slide image placeholder
		if sp.NvSpPr.NvPr.Ph != nil && sp.NvSpPr.NvPr.Ph.Type == "sldImg" {
			continue
		}
		if sp.TxBody == nil {
			continue
		}
		for _, p := range sp.TxBody.P {
			var text strings.Builder
			for _, run := range p.R {
				text.WriteString(run.T)
			}
			for _, fld := range p.Fld {
				text.WriteString(fld.T)
			}
			lines = append(lines, text.String())
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// SlideCount returns the number of slides.
func (r *Reader) SlideCount() int {
	return len(r.slides)
}

// Slide returns the slide at the given index (0-indexed).
func (r *Reader) Slide(index int) (*Slide, error) {
	if index < 0 || index >= len(r.slides) {
		return nil, fmt.Errorf("slide index %d out of range (0-%d)", index, len(r.slides)-1)
	}
	return r.slides[index], nil
}

// Slides returns every slide in presentation order.
func (r *Reader) Slides() []*Slide {
	return r.slides
}

// Size returns the slide width and height in EMUs.
func (r *Reader) Size() (int64, int64) {
	return r.width, r.height
}

// Title returns the document title from docProps/core.xml.
func (r *Reader) Title() string {
	if r.coreProps == nil {
		return ""
	}
	return r.coreProps.Title
}

// Application returns the producing application from docProps/app.xml.
func (r *Reader) Application() string {
	if r.appProps == nil {
		return ""
	}
	return r.appProps.Application
}

// Notes returns the notes of every slide that has them, keyed by 1-based
// slide number.
func (r *Reader) Notes() map[int]string {
	out := make(map[int]string)
	for _, s := range r.slides {
		if s.Notes != "" {
			out[s.Index+1] = s.Notes
		}
	}
	return out
}
