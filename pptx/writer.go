package pptx

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"time"
)

const defaultCreator = "pdf2pptx"

type slidePart struct {
	Number        int
	Ext           string
	Notes         string
	Width, Height int64
}

type packageData struct {
	Title, Creator, Created string
	Width, Height           int64
	NotesWidth, NotesHeight int64
	NotesCount              int
	Slides                  []slidePart
}

// Write encodes p as a .pptx package. Each slide gets a blank layout, its
// picture stretched over the whole slide and, when it has notes, a notes
// slide with one paragraph per line.
func Write(w io.Writer, p *Presentation) error {
	data, err := newPackageData(p)
	if err != nil {
		return err
	}

	zw := zip.NewWriter(w)
	parts := []struct {
		name, tmpl string
		data       any
	}{
		{"[Content_Types].xml", "contentTypes", data},
		{"_rels/.rels", "rootRels", data},
		{"docProps/core.xml", "core", data},
		{"docProps/app.xml", "app", data},
		{"ppt/presentation.xml", "presentation", data},
		{"ppt/_rels/presentation.xml.rels", "presentationRels", data},
		{"ppt/slideMasters/slideMaster1.xml", "slideMaster", data},
		{"ppt/slideMasters/_rels/slideMaster1.xml.rels", "slideMasterRels", data},
		{"ppt/slideLayouts/slideLayout1.xml", "slideLayout", data},
		{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", "slideLayoutRels", data},
		{"ppt/notesMasters/notesMaster1.xml", "notesMaster", data},
		{"ppt/notesMasters/_rels/notesMaster1.xml.rels", "notesMasterRels", data},
		{"ppt/theme/theme1.xml", "theme", data},
		{"ppt/theme/theme2.xml", "theme", data},
	}
	for _, part := range parts {
		if err := writePart(zw, part.name, part.tmpl, part.data); err != nil {
			return err
		}
	}

	for i, s := range data.Slides {
		if err := writePart(zw, fmt.Sprintf("ppt/slides/slide%d.xml", s.Number), "slide", s); err != nil {
			return err
		}
		if err := writePart(zw, fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", s.Number), "slideRels", s); err != nil {
			return err
		}
		if s.Notes != "" {
			if err := writePart(zw, fmt.Sprintf("ppt/notesSlides/notesSlide%d.xml", s.Number), "notesSlide", s); err != nil {
				return err
			}
			if err := writePart(zw, fmt.Sprintf("ppt/notesSlides/_rels/notesSlide%d.xml.rels", s.Number), "notesSlideRels", s); err != nil {
				return err
			}
		}
		if err := writeMedia(zw, fmt.Sprintf("ppt/media/image%d.%s", s.Number, s.Ext), p.Slides[i].Image); err != nil {
			return err
		}
	}

	if err := zw.Close(); err != nil {
		return fmt.Errorf("finishing ZIP archive: %w", err)
	}
	return nil
}

// WriteFile writes p to filename, replacing any existing file.
func WriteFile(filename string, p *Presentation) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := Write(f, p); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newPackageData(p *Presentation) (*packageData, error) {
	if p == nil {
		return nil, fmt.Errorf("presentation is nil")
	}
	width, height := p.size()
	created := p.Created
	if created.IsZero() {
		created = time.Now()
	}
	creator := p.Creator
	if creator == "" {
		creator = defaultCreator
	}

	data := &packageData{
		Title:       p.Title,
		Creator:     creator,
		Created:     created.UTC().Format("2006-01-02T15:04:05Z"),
		Width:       width,
		Height:      height,
		NotesWidth:  notesWidth,
		NotesHeight: notesHeight,
		NotesCount:  p.NotesCount(),
		Slides:      make([]slidePart, len(p.Slides)),
	}
	for i := range p.Slides {
		s := &p.Slides[i]
		if len(s.Image) == 0 {
			return nil, fmt.Errorf("slide %d has no image", i)
		}
		ext, err := s.extension()
		if err != nil {
			return nil, fmt.Errorf("slide %d: %w", i, err)
		}
		part := slidePart{Number: i + 1, Ext: ext, Width: width, Height: height}
		if s.HasNotes() {
			part.Notes = s.Notes
		}
		data.Slides[i] = part
	}
	return data, nil
}

// writePart renders one XML part.
func writePart(zw *zip.Writer, name, tmpl string, data any) error {
	var buf bytes.Buffer
	buf.WriteString(xmlHeader)
	if err := templates.ExecuteTemplate(&buf, tmpl, data); err != nil {
		return fmt.Errorf("rendering %s: %w", name, err)
	}
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if _, err := w.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}

// writeMedia stores image data without recompressing it.
func writeMedia(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
	if err != nil {
		return fmt.Errorf("creating %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
