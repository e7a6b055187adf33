package raster

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/pdf2pptx/internal/logging"
	"github.com/tsawler/pdf2pptx/workspace"
)

// ErrNoOutput is recorded when a job succeeds without writing its image.
var ErrNoOutput = errors.New("rasterizer wrote no output file")

// Job renders one page.
type Job struct {
	Index  int    // 0-based page index
	Source string // PDF path, shared read-only by all jobs
	Output string // image path private to this job
}

// Rasterizer renders a single page to job.Output.
type Rasterizer interface {
	Rasterize(ctx context.Context, job Job) error
}

// RasterizerFunc adapts a function to the Rasterizer interface.
type RasterizerFunc func(ctx context.Context, job Job) error

func (f RasterizerFunc) Rasterize(ctx context.Context, job Job) error {
	return f(ctx, job)
}

// RenderError records the failure of one page.
type RenderError struct {
	Index int
	Err   error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Index, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// RenderFailures lists failed pages in index order.
type RenderFailures []*RenderError

func (f RenderFailures) Error() string {
	msgs := make([]string, len(f))
	for i, e := range f {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d page(s) failed to render: %s", len(f), strings.Join(msgs, "; "))
}

// Indices returns the failed page indices.
func (f RenderFailures) Indices() []int {
	out := make([]int, len(f))
	for i, e := range f {
		out[i] = e.Index
	}
	return out
}

// Result holds the outcome of every job, keyed by page index.
type Result struct {
	Images   map[int]string
	Failures map[int]*RenderError
}

// Err returns the failures as RenderFailures, or nil when every page
// rendered.
func (r *Result) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	failures := make(RenderFailures, 0, len(r.Failures))
	for _, e := range r.Failures {
		failures = append(failures, e)
	}
	slices.SortFunc(failures, func(a, b *RenderError) int { return a.Index - b.Index })
	return failures
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithWorkers bounds the number of concurrent jobs. Values below one keep
// the default of runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithJobTimeout bounds the wall-clock time of each job.
func WithJobTimeout(d time.Duration) Option {
	return func(p *Pipeline) {
		p.jobTimeout = d
	}
}

// WithLogger sets the logger job outcomes are reported to.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// Pipeline renders the pages of a document concurrently.
type Pipeline struct {
	rasterizer Rasterizer
	workers    int
	jobTimeout time.Duration
	logger     logrus.FieldLogger
}

// NewPipeline returns a Pipeline running rasterizer.
func NewPipeline(rasterizer Rasterizer, opts ...Option) *Pipeline {
	p := &Pipeline{
		rasterizer: rasterizer,
		workers:    runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Workers returns the concurrency bound.
func (p *Pipeline) Workers() int {
	return p.workers
}

// Render runs one job per page of source, writing workspace.PageImage(dir,
// index). Jobs are independent: a failed job is recorded in the Result and
// never stops the others. The error is non-nil only for invalid arguments.
func (p *Pipeline) Render(ctx context.Context, source string, pageCount int, dir string) (*Result, error) {
	if p.rasterizer == nil {
		return nil, errors.New("no rasterizer configured")
	}
	if source == "" {
		return nil, errors.New("source path is empty")
	}
	if pageCount < 0 {
		return nil, fmt.Errorf("invalid page count %d", pageCount)
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("workspace %q is not a directory", dir)
	}

	logger := logging.OrDiscard(p.logger)
	workers := p.workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}

	result := &Result{
		Images:   make(map[int]string),
		Failures: make(map[int]*RenderError),
	}
	var mu sync.Mutex
	record := func(index int, path string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Failures[index] = &RenderError{Index: index, Err: err}
			return
		}
		result.Images[index] = path
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for index := 0; index < pageCount; index++ {
		job := Job{Index: index, Source: source, Output: workspace.PageImage(dir, index)}
		if err := ctx.Err(); err != nil {
			record(index, "", err)
			continue
		}
		g.Go(func() error {
			err := p.run(ctx, job)
			log := logger.WithField("index", job.Index)
			if err != nil {
				log.WithError(err).Warn("page failed to render")
			} else {
				log.Debug("page rendered")
			}
			record(job.Index, job.Output, err)
			return nil
		})
	}
	_ = g.Wait()
	return result, nil
}

// run executes one job and checks that its image exists.
func (p *Pipeline) run(ctx context.Context, job Job) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.jobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.jobTimeout)
		defer cancel()
	}
	if err := p.rasterizer.Rasterize(ctx, job); err != nil {
		return err
	}
	if info, err := os.Stat(job.Output); err != nil || info.Size() == 0 {
		return ErrNoOutput
	}
	return nil
}
