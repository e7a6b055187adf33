package raster

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommandRasterizerArgs(t *testing.T) {
	tests := []struct {
		name     string
		template string
		want     []string
	}{
		{
			name:     "default",
			template: "",
			want: []string{"convert", "-density", "600", "-colorspace", "sRGB", "-background", "white",
				"-alpha", "remove", "-resize", "1280x1024", "/tmp/my talk.pdf[2]", "/ws/page-2.png"},
		},
		{
			name:     "pdftoppm",
			template: `pdftoppm -png -r {density} -f {pageNumber} -l {pageNumber} -singlefile {input} "{output}"`,
			want:     []string{"pdftoppm", "-png", "-r", "600", "-f", "3", "-l", "3", "-singlefile", "/tmp/my talk.pdf", "/ws/page-2.png"},
		},
	}

	job := Job{Index: 2, Source: "/tmp/my talk.pdf", Output: "/ws/page-2.png"}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewCommandRasterizer(tt.template)
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Args(job))
		})
	}
}

func TestCommandRasterizerInvalid(t *testing.T) {
	_, err := NewCommandRasterizer(`convert "unterminated`)
	assert.Error(t, err)
}

func TestCommandRasterizerRun(t *testing.T) {
	if _, err := exec.LookPath("cp"); err != nil {
		t.Skip("cp not available")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "src.pdf")
	require.NoError(t, os.WriteFile(src, []byte("fake"), 0o600))

	r, err := NewCommandRasterizer("cp {input} {output}")
	require.NoError(t, err)
	result, err := NewPipeline(r).Render(context.Background(), src, 2, dir)
	require.NoError(t, err)
	require.NoError(t, result.Err())
	assert.Len(t, result.Images, 2)
}

func TestCommandRasterizerFailure(t *testing.T) {
	if _, err := exec.LookPath("false"); err != nil {
		t.Skip("false not available")
	}
	r, err := NewCommandRasterizer("false {input}")
	require.NoError(t, err)
	err = r.Rasterize(context.Background(), Job{Index: 0, Source: "x.pdf", Output: filepath.Join(t.TempDir(), "out.png")})
	var exitErr *exec.ExitError
	assert.ErrorAs(t, err, &exitErr)
}
