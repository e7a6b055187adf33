package pdf2pptx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/tsawler/pdf2pptx/annot"
	"github.com/tsawler/pdf2pptx/config"
	"github.com/tsawler/pdf2pptx/deck"
	"github.com/tsawler/pdf2pptx/internal/logging"
	"github.com/tsawler/pdf2pptx/ocr"
	"github.com/tsawler/pdf2pptx/pages"
	"github.com/tsawler/pdf2pptx/raster"
	"github.com/tsawler/pdf2pptx/reader"
	"github.com/tsawler/pdf2pptx/workspace"
)

// Converter provides a fluent interface for converting a PDF to a deck.
// Each configuration method returns a new Converter instance, making it
// safe for concurrent use and allowing method chaining.
type Converter struct {
	filename string
	reader   *reader.Reader // supplied by FromReader, never closed here

	options convertOptions

	// Accumulated error (fail-fast)
	err error
}

// Result describes a written deck.
type Result struct {
	RunID  string
	Output string
	Pages  int   // pages in the source document
	Slides int   // slides written
	Notes  int   // slides with notes
	Failed []int // 0-based indices of pages that did not render
}

// clone creates a copy of the Converter with its own options.
func (c *Converter) clone() *Converter {
	return &Converter{
		filename: c.filename,
		reader:   c.reader,
		options:  c.options.clone(),
		err:      c.err,
	}
}

// ============================================================================
// Configuration Methods (return new Converter instance)
// ============================================================================

// WithConfig replaces every setting with cfg. An invalid cfg makes every
// terminal operation fail.
//
// Example:
//
//	cfg, err := config.Load("pdf2pptx.yaml")
//	result, _, err := pdf2pptx.Open("talk.pdf").WithConfig(cfg).Convert(ctx)
func (c *Converter) WithConfig(cfg *config.Config) *Converter {
	next := c.clone()
	if cfg == nil {
		next.err = errors.New("config is nil")
		return next
	}
	if err := cfg.Validate(); err != nil {
		next.err = err
		return next
	}
	next.options.cfg = *cfg
	return next
}

// Output sets the deck path. The default is the input path plus ".pptx".
func (c *Converter) Output(path string) *Converter {
	next := c.clone()
	next.options.cfg.Output = path
	return next
}

// Workers bounds the number of pages rendered at once.
func (c *Converter) Workers(n int) *Converter {
	next := c.clone()
	if n < 0 {
		next.err = fmt.Errorf("workers must not be negative, got %d", n)
		return next
	}
	next.options.cfg.Workers = n
	return next
}

// JobTimeout bounds the time spent rendering one page.
func (c *Converter) JobTimeout(d time.Duration) *Converter {
	next := c.clone()
	next.options.cfg.JobTimeout = d
	return next
}

// NotesMode selects how comments are assigned to pages.
//
// Example:
//
//	pdf2pptx.Open("talk.pdf").NotesMode(annot.ModePageRef)
func (c *Converter) NotesMode(mode annot.Mode) *Converter {
	next := c.clone()
	next.options.cfg.Notes.Mode = mode.String()
	return next
}

// LegacyEncoding reads comments that are not Unicode as Windows-1252.
func (c *Converter) LegacyEncoding() *Converter {
	next := c.clone()
	next.options.cfg.Notes.LegacyEncoding = true
	return next
}

// OCRNotes fills the notes of slides without a comment with the text
// recognized on the slide. It needs a build with the "ocr" tag; otherwise
// a warning is reported and the deck is written without it.
func (c *Converter) OCRNotes() *Converter {
	next := c.clone()
	next.options.cfg.Notes.OCR = true
	return next
}

// AllowPartial writes the deck without the pages that failed to render
// instead of failing.
func (c *Converter) AllowPartial() *Converter {
	next := c.clone()
	next.options.cfg.AllowPartial = true
	return next
}

// Rasterizer replaces the external rasterizer command.
func (c *Converter) Rasterizer(r raster.Rasterizer) *Converter {
	next := c.clone()
	next.options.rasterizer = r
	return next
}

// Logger sets the logger every stage reports to.
func (c *Converter) Logger(logger logrus.FieldLogger) *Converter {
	next := c.clone()
	next.options.logger = logger
	return next
}

// ============================================================================
// Terminal Operations
// ============================================================================

// PageCount returns the page count recorded at the root of the page tree.
func (c *Converter) PageCount() (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	r, release, err := c.openReader(c.logger())
	if err != nil {
		return 0, err
	}
	defer release()
	return pages.Count(r)
}

// Comments returns the page comments of the document.
//
// Example:
//
//	comments, _, err := pdf2pptx.Open("talk.pdf").Comments()
//	for _, page := range comments.Pages() {
//	    fmt.Println(page, comments[page])
//	}
func (c *Converter) Comments() (annot.CommentMap, []Warning, error) {
	if c.err != nil {
		return nil, nil, c.err
	}
	if err := c.options.cfg.Validate(); err != nil {
		return nil, nil, err
	}
	logger := c.logger()
	r, release, err := c.openReader(logger)
	if err != nil {
		return nil, nil, err
	}
	defer release()

	var warnings []Warning
	warnings = appendReaderWarnings(warnings, r)
	return c.extractor(logger).Extract(r), warnings, nil
}

// Deck renders every page and returns the assembled deck without writing
// it. The scratch directory is removed before Deck returns.
func (c *Converter) Deck(ctx context.Context) (*deck.Deck, []Warning, error) {
	if c.err != nil {
		return nil, nil, c.err
	}
	runID := uuid.NewString()
	d, _, warnings, err := c.build(ctx, c.logger().WithField("run_id", runID))
	return d, warnings, err
}

// Convert runs the whole conversion and writes the deck.
//
// Example:
//
//	result, warnings, err := pdf2pptx.Open("talk.pdf").Convert(ctx)
func (c *Converter) Convert(ctx context.Context) (*Result, []Warning, error) {
	if c.err != nil {
		return nil, nil, c.err
	}
	runID := uuid.NewString()
	logger := c.logger().WithField("run_id", runID)

	d, info, warnings, err := c.build(ctx, logger)
	if err != nil {
		return nil, warnings, err
	}

	cfg := &c.options.cfg
	output := cfg.OutputFor(c.filename)
	if err := writeOutput(output, d.Presentation(config.Title(c.filename)), logger); err != nil {
		return nil, warnings, err
	}

	result := &Result{
		RunID:  runID,
		Output: output,
		Pages:  info.pageCount,
		Slides: len(d.Slides),
		Notes:  len(d.Notes()),
		Failed: info.failed,
	}
	logger.WithFields(logrus.Fields{"output": output, "slides": result.Slides, "notes": result.Notes}).Info("deck written")
	return result, warnings, nil
}

type buildInfo struct {
	pageCount int
	failed    []int
}

// build runs extraction, rendering and assembly. The workspace lives only
// inside build.
func (c *Converter) build(ctx context.Context, logger logrus.FieldLogger) (*deck.Deck, buildInfo, []Warning, error) {
	var info buildInfo
	cfg := &c.options.cfg
	if c.filename == "" {
		return nil, info, nil, errors.New("no filename specified")
	}
	if err := cfg.Validate(); err != nil {
		return nil, info, nil, err
	}

	r, release, err := c.openReader(logger)
	if err != nil {
		return nil, info, nil, err
	}
	var warnings []Warning
	warnings = appendReaderWarnings(warnings, r)

	// Counting and extraction share the read-only store.
	var comments annot.CommentMap
	var g errgroup.Group
	g.Go(func() error {
		n, err := pages.Count(r)
		if err != nil {
			return fmt.Errorf("failed to count pages: %w", err)
		}
		info.pageCount = n
		return nil
	})
	g.Go(func() error {
		comments = c.extractor(logger).Extract(r)
		return nil
	})
	err = g.Wait()
	release()
	if err != nil {
		return nil, info, warnings, err
	}
	logger.WithFields(logrus.Fields{"pages": info.pageCount, "comments": len(comments)}).Info("document read")

	rasterizer, err := c.rasterizer()
	if err != nil {
		return nil, info, warnings, err
	}

	ws, err := workspace.New(cfg.WorkDir)
	if err != nil {
		return nil, info, warnings, err
	}
	defer func() {
		if err := ws.Close(); err != nil {
			logger.WithError(err).Warn("Failed to remove workspace")
		}
	}()

	pipeline := raster.NewPipeline(rasterizer,
		raster.WithWorkers(cfg.Workers),
		raster.WithJobTimeout(cfg.JobTimeout),
		raster.WithLogger(logger),
	)
	rendered, err := pipeline.Render(ctx, c.filename, info.pageCount, ws.Dir())
	if err != nil {
		return nil, info, warnings, err
	}
	if err := rendered.Err(); err != nil {
		var failures raster.RenderFailures
		errors.As(err, &failures)
		info.failed = failures.Indices()
		if !cfg.AllowPartial {
			return nil, info, warnings, err
		}
		for _, f := range failures {
			warnings = append(warnings, Warning{Page: f.Index + 1, Message: "left out: " + f.Err.Error()})
		}
	}

	assemblerOpts := []deck.Option{deck.WithMaxDimension(cfg.MaxImageDimension), deck.WithLogger(logger)}
	if cfg.AllowPartial {
		assemblerOpts = append(assemblerOpts, deck.WithSkipMissing())
	}
	d, err := deck.NewAssembler(assemblerOpts...).Assemble(info.pageCount, rendered.Images, comments)
	if err != nil {
		return nil, info, warnings, err
	}

	if cfg.Notes.OCR {
		warnings = append(warnings, c.fillOCRNotes(d, logger)...)
	}
	return d, info, warnings, nil
}

// fillOCRNotes runs the OCR fallback, turning its failures into warnings.
func (c *Converter) fillOCRNotes(d *deck.Deck, logger logrus.FieldLogger) []Warning {
	client, err := ocr.New(ocr.WithLanguage(c.options.cfg.Notes.OCRLanguage))
	if err != nil {
		logger.WithError(err).Warn("OCR notes unavailable")
		return []Warning{{Message: "OCR notes unavailable: " + err.Error()}}
	}
	defer client.Close()

	filled, err := d.FillNotes(client)
	logger.WithField("slides", filled).Info("notes filled by OCR")
	if err != nil {
		return []Warning{{Message: "OCR failed on some slides: " + err.Error()}}
	}
	return nil
}

// openReader returns the store for the document and a function releasing
// it. A reader supplied by FromReader is not closed.
func (c *Converter) openReader(logger logrus.FieldLogger) (*reader.Reader, func(), error) {
	if c.reader != nil {
		return c.reader, func() {}, nil
	}
	if c.filename == "" {
		return nil, nil, errors.New("no filename specified")
	}
	r, err := reader.Open(c.filename,
		reader.WithRepair(c.options.cfg.Repair),
		reader.WithLogger(logger),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	return r, func() {
		if err := r.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close PDF")
		}
	}, nil
}

func (c *Converter) extractor(logger logrus.FieldLogger) *annot.Extractor {
	opts := []annot.Option{
		annot.WithMode(c.options.cfg.NotesMode()),
		annot.WithLogger(logger),
	}
	if c.options.cfg.Notes.LegacyEncoding {
		opts = append(opts, annot.WithLegacyFallback())
	}
	return annot.NewExtractor(opts...)
}

func (c *Converter) rasterizer() (raster.Rasterizer, error) {
	if c.options.rasterizer != nil {
		return c.options.rasterizer, nil
	}
	rc := c.options.cfg.Rasterizer
	r, err := raster.NewCommandRasterizer(rc.Command)
	if err != nil {
		return nil, err
	}
	r.Density, r.Width, r.Height = rc.Density, rc.Width, rc.Height
	return r, nil
}

func (c *Converter) logger() logrus.FieldLogger {
	return logging.OrDiscard(c.options.logger)
}

func appendReaderWarnings(warnings []Warning, r *reader.Reader) []Warning {
	if r.Repaired() {
		warnings = append(warnings, Warning{Message: "cross-reference data was damaged and has been rebuilt"})
	}
	if r.Encrypted() {
		warnings = append(warnings, Warning{Message: "document is encrypted; comments were not read"})
	}
	return warnings
}
