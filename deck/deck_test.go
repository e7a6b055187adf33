package deck

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"

	"github.com/tsawler/pdf2pptx/annot"
	"github.com/tsawler/pdf2pptx/pptx"
	"github.com/tsawler/pdf2pptx/workspace"
)

// testImage returns a w x h image whose first pixel encodes tag.
func testImage(w, h int, tag uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: tag, G: 128, B: 255, A: 255})
		}
	}
	return img
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// renderPages writes one PNG per index, in reverse order, and returns the
// path map the pipeline would produce.
func renderPages(t *testing.T, dir string, indices ...int) map[int]string {
	t.Helper()
	images := make(map[int]string)
	for i := len(indices) - 1; i >= 0; i-- {
		index := indices[i]
		path := workspace.PageImage(dir, index)
		require.NoError(t, os.WriteFile(path, encodePNG(t, testImage(4, 3, uint8(index))), 0o600))
		images[index] = path
	}
	return images
}

func TestAssembleOrder(t *testing.T) {
	dir := t.TempDir()
	images := renderPages(t, dir, 4, 2, 0, 3, 1)

	d, err := NewAssembler().Assemble(5, images, nil)
	require.NoError(t, err)
	require.Len(t, d.Slides, 5)
	for i, s := range d.Slides {
		assert.Equal(t, i, s.Index)
		assert.Equal(t, pptx.FormatPNG, s.Image.Format)

		img, err := png.Decode(bytes.NewReader(s.Image.Data))
		require.NoError(t, err)
		r, _, _, _ := img.At(0, 0).RGBA()
		assert.Equal(t, uint32(i), r>>8, "slide %d holds the wrong page", i)
	}
}

func TestAssembleMissingPage(t *testing.T) {
	dir := t.TempDir()
	images := renderPages(t, dir, 0, 1, 2, 4)

	_, err := NewAssembler().Assemble(5, images, nil)
	require.ErrorIs(t, err, ErrMissingRenderedPage)
	var missing *MissingPageError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 3, missing.Index)
}

func TestAssembleUnreadablePage(t *testing.T) {
	dir := t.TempDir()
	images := renderPages(t, dir, 0)
	images[1] = filepath.Join(dir, "page-1.png") // never written

	_, err := NewAssembler().Assemble(2, images, nil)
	require.ErrorIs(t, err, ErrMissingRenderedPage)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAssembleSkipMissing(t *testing.T) {
	dir := t.TempDir()
	images := renderPages(t, dir, 0, 1, 2, 4)
	comments := annot.CommentMap{4: "fourth", 5: "fifth"}

	d, err := NewAssembler(WithSkipMissing()).Assemble(5, images, comments)
	require.NoError(t, err)
	require.Len(t, d.Slides, 4)
	assert.Equal(t, []int{0, 1, 2, 4}, []int{d.Slides[0].Index, d.Slides[1].Index, d.Slides[2].Index, d.Slides[3].Index})
	// Page 4's comment has no slide; page 5 keeps its own.
	assert.Equal(t, annot.CommentMap{5: "fifth"}, d.Notes())
}

func TestAssembleUnconfigured(t *testing.T) {
	dir := t.TempDir()
	images := renderPages(t, dir, 0, 2)

	d, err := (&Assembler{skipMissing: true}).Assemble(3, images, annot.CommentMap{3: "third"})
	require.NoError(t, err)
	require.Len(t, d.Slides, 2)
	assert.Equal(t, "third", d.Slides[1].Notes)
}

func TestAssembleHugePageCount(t *testing.T) {
	dir := t.TempDir()
	images := renderPages(t, dir, 0)

	// The page count only bounds the loop; nothing is sized by it.
	_, err := NewAssembler().Assemble(1<<30, images, nil)
	var missing *MissingPageError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, 1, missing.Index)
}

func TestAssembleNotes(t *testing.T) {
	dir := t.TempDir()
	images := renderPages(t, dir, 0, 1, 2)
	comments := annot.CommentMap{2: "second page", 7: "no such page"}

	d, err := NewAssembler().Assemble(3, images, comments)
	require.NoError(t, err)
	assert.Equal(t, "", d.Slides[0].Notes)
	assert.Equal(t, "second page", d.Slides[1].Notes)
	assert.Equal(t, "", d.Slides[2].Notes)
}

func TestAssembleZeroPages(t *testing.T) {
	d, err := NewAssembler().Assemble(0, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, d.Slides)

	_, err = NewAssembler().Assemble(-1, nil, nil)
	assert.Error(t, err)
}

func TestNormalizeImage(t *testing.T) {
	pngData := encodePNG(t, testImage(40, 20, 1))

	t.Run("png kept", func(t *testing.T) {
		img, err := NormalizeImage(pngData, 100)
		require.NoError(t, err)
		assert.Equal(t, pngData, img.Data)
		assert.Equal(t, 40, img.Width)
	})

	t.Run("png scaled", func(t *testing.T) {
		img, err := NormalizeImage(pngData, 10)
		require.NoError(t, err)
		assert.Equal(t, pptx.FormatPNG, img.Format)
		assert.Equal(t, 10, img.Width)
		assert.Equal(t, 5, img.Height)
		cfg, err := png.DecodeConfig(bytes.NewReader(img.Data))
		require.NoError(t, err)
		assert.Equal(t, 10, cfg.Width)
	})

	t.Run("bmp converted", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, bmp.Encode(&buf, testImage(8, 6, 2)))
		img, err := NormalizeImage(buf.Bytes(), 0)
		require.NoError(t, err)
		assert.Equal(t, pptx.FormatPNG, img.Format)
		_, err = png.Decode(bytes.NewReader(img.Data))
		assert.NoError(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := NormalizeImage([]byte("not an image"), 0)
		assert.ErrorIs(t, err, ErrUnknownImageFormat)
	})
}

type fakeRecognizer map[uint8]string

func (f fakeRecognizer) RecognizeImage(data []byte) (string, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	r, _, _, _ := img.At(0, 0).RGBA()
	text, ok := f[uint8(r>>8)]
	if !ok {
		return "", errors.New("unreadable")
	}
	return text, nil
}

func TestFillNotes(t *testing.T) {
	dir := t.TempDir()
	d, err := NewAssembler().Assemble(3, renderPages(t, dir, 0, 1, 2), annot.CommentMap{1: "from comment"})
	require.NoError(t, err)

	filled, err := d.FillNotes(fakeRecognizer{0: "ocr zero", 1: "ocr one"})
	assert.Equal(t, 1, filled)
	assert.Error(t, err, "page 2 is unreadable")
	assert.Equal(t, annot.CommentMap{1: "from comment", 2: "ocr one"}, d.Notes())
}

func TestPresentation(t *testing.T) {
	dir := t.TempDir()
	d, err := NewAssembler().Assemble(2, renderPages(t, dir, 0, 1), annot.CommentMap{2: "hello"})
	require.NoError(t, err)

	p := d.Presentation("talk")
	assert.Equal(t, "talk", p.Title)
	require.Len(t, p.Slides, 2)
	assert.Equal(t, "hello", p.Slides[1].Notes)
	assert.Equal(t, d.Slides[0].Image.Data, p.Slides[0].Image)
	assert.Equal(t, 1, p.NotesCount())
}
