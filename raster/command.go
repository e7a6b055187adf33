package raster

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/google/shlex"
)

// DefaultCommand renders one page with ImageMagick.
const DefaultCommand = "convert -density {density} -colorspace sRGB -background white -alpha remove -resize {width}x{height} {input}[{page}] {output}"

const (
	DefaultDensity = 600
	DefaultWidth   = 1280
	DefaultHeight  = 1024
)

// maxOutput bounds the command output kept in an error.
const maxOutput = 2048

// ErrEmptyCommand is returned for a template with no program.
var ErrEmptyCommand = errors.New("rasterizer command is empty")

// CommandRasterizer runs an external program once per page. The template
// is split into arguments like a shell would split it, then these
// placeholders are replaced inside each argument:
//
//	{input}       source PDF path
//	{page}        0-based page index
//	{pageNumber}  1-based page number
//	{output}      image path to write
//	{density}     resolution in dpi
//	{width}       maximum width in pixels
//	{height}      maximum height in pixels
//
// No shell is involved, so paths need no quoting.
type CommandRasterizer struct {
	args    []string
	Density int
	Width   int
	Height  int
}

// NewCommandRasterizer parses template. An empty template selects
// DefaultCommand.
func NewCommandRasterizer(template string) (*CommandRasterizer, error) {
	if strings.TrimSpace(template) == "" {
		template = DefaultCommand
	}
	args, err := shlex.Split(template)
	if err != nil {
		return nil, fmt.Errorf("invalid rasterizer command %q: %w", template, err)
	}
	if len(args) == 0 {
		return nil, ErrEmptyCommand
	}
	return &CommandRasterizer{
		args:    args,
		Density: DefaultDensity,
		Width:   DefaultWidth,
		Height:  DefaultHeight,
	}, nil
}

// Args returns the program and arguments for job.
func (c *CommandRasterizer) Args(job Job) []string {
	r := strings.NewReplacer(
		"{input}", job.Source,
		"{pageNumber}", strconv.Itoa(job.Index+1),
		"{page}", strconv.Itoa(job.Index),
		"{output}", job.Output,
		"{density}", strconv.Itoa(c.Density),
		"{width}", strconv.Itoa(c.Width),
		"{height}", strconv.Itoa(c.Height),
	)
	out := make([]string, len(c.args))
	for i, arg := range c.args {
		out[i] = r.Replace(arg)
	}
	return out
}

// Rasterize runs the command for job and reports a non-zero exit together
// with the tail of its output.
func (c *CommandRasterizer) Rasterize(ctx context.Context, job Job) error {
	args := c.Args(job)
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", args[0], ctx.Err())
		}
		if msg := tail(out.String()); msg != "" {
			return fmt.Errorf("%s: %w: %s", args[0], err, msg)
		}
		return fmt.Errorf("%s: %w", args[0], err)
	}
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxOutput {
		s = "..." + s[len(s)-maxOutput:]
	}
	return s
}
