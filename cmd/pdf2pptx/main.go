// Command pdf2pptx converts a PDF into a PowerPoint deck with one picture
// slide per page and the PDF's comments as speaker notes.
//
// Usage:
//
//	pdf2pptx [flags] [input.pdf]
//	pdf2pptx comments [input.pdf]
//	pdf2pptx inspect deck.pptx
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/pdf2pptx"
	"github.com/tsawler/pdf2pptx/config"
	"github.com/tsawler/pdf2pptx/pptx"
)

// Version information (set during build)
var (
	Version = "dev"
	Commit  = "none"
)

// parseLogLevel maps a LOG_LEVEL value to a logrus level, defaulting to
// WarnLevel when it is empty or unknown.
func parseLogLevel(value string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.WarnLevel
	}
}

func newLogger(w io.Writer, level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetLevel(parseLogLevel(level))
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	return logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      "pdf2pptx",
		Usage:     "Convert a PDF into an image-backed PowerPoint deck",
		UsageText: "pdf2pptx [flags] [input.pdf]",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "YAML configuration file",
				EnvVars: []string{config.EnvPrefix + "CONFIG"},
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Deck path (default: <input>.pptx)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Pages rendered at once (default: one per CPU)",
			},
			&cli.DurationFlag{
				Name:  "job-timeout",
				Usage: "Time limit for rendering one page",
			},
			&cli.StringFlag{
				Name:  "rasterizer",
				Usage: "Page render command template",
			},
			&cli.StringFlag{
				Name:  "notes-mode",
				Usage: "How comments are assigned to slides (traversal or page-ref)",
			},
			&cli.BoolFlag{
				Name:  "legacy-encoding",
				Usage: "Read non-Unicode comments as Windows-1252",
			},
			&cli.BoolFlag{
				Name:  "allow-partial",
				Usage: "Write the deck without pages that fail to render",
			},
			&cli.BoolFlag{
				Name:  "ocr-notes",
				Usage: "Fill empty notes with text recognized on the slide (needs an ocr build)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "Log level (debug, info, warn, error)",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Action: convertAction,
		Commands: []*cli.Command{
			{
				Name:      "comments",
				Usage:     "Print the speaker notes found in a PDF as YAML",
				ArgsUsage: "[input.pdf]",
				Action:    commentsAction,
			},
			{
				Name:      "inspect",
				Usage:     "Print the slides and notes of a deck as YAML",
				ArgsUsage: "deck.pptx",
				Action:    inspectAction,
			},
		},
	}
}

// loadConfig layers defaults, the config file, .env, the environment and
// the command line flags, in that order.
func loadConfig(c *cli.Context) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if c.IsSet("output") {
		cfg.Output = c.String("output")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("job-timeout") {
		cfg.JobTimeout = c.Duration("job-timeout")
	}
	if c.IsSet("rasterizer") {
		cfg.Rasterizer.Command = c.String("rasterizer")
	}
	if c.IsSet("notes-mode") {
		cfg.Notes.Mode = c.String("notes-mode")
	}
	if c.Bool("legacy-encoding") {
		cfg.Notes.LegacyEncoding = true
	}
	if c.Bool("allow-partial") {
		cfg.AllowPartial = true
	}
	if c.Bool("ocr-notes") {
		cfg.Notes.OCR = true
	}
	return cfg, cfg.Validate()
}

func inputPath(c *cli.Context) string {
	if c.Args().Len() > 0 {
		return c.Args().First()
	}
	return config.DefaultInput
}

func convertAction(c *cli.Context) error {
	if c.Args().Len() > 1 {
		return fmt.Errorf("expected at most one input file, got %d", c.Args().Len())
	}
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c.App.ErrWriter, c.String("log-level"))

	result, warnings, err := pdf2pptx.Open(inputPath(c)).
		WithConfig(cfg).
		Logger(logger).
		Convert(c.Context)
	printWarnings(c.App.ErrWriter, warnings)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "%s %s (%d slides, %d with notes)\n",
		color.GreenString("Wrote"), result.Output, result.Slides, result.Notes)
	return nil
}

func commentsAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	logger := newLogger(c.App.ErrWriter, c.String("log-level"))

	comments, warnings, err := pdf2pptx.Open(inputPath(c)).
		WithConfig(cfg).
		Logger(logger).
		Comments()
	printWarnings(c.App.ErrWriter, warnings)
	if err != nil {
		return err
	}
	return writeYAML(c.App.Writer, map[int]string(comments))
}

type inspectedSlide struct {
	Slide int    `yaml:"slide"`
	Image string `yaml:"image"`
	Bytes int    `yaml:"bytes"`
	Notes string `yaml:"notes,omitempty"`
}

type inspection struct {
	Title       string           `yaml:"title,omitempty"`
	Application string           `yaml:"application,omitempty"`
	Width       int64            `yaml:"width_emu"`
	Height      int64            `yaml:"height_emu"`
	Slides      []inspectedSlide `yaml:"slides"`
}

func inspectAction(c *cli.Context) error {
	if c.Args().Len() != 1 {
		return fmt.Errorf("expected one deck file")
	}
	r, err := pptx.Open(c.Args().First())
	if err != nil {
		return err
	}
	defer r.Close()

	out := inspection{Title: r.Title(), Application: r.Application()}
	out.Width, out.Height = r.Size()
	for _, s := range r.Slides() {
		out.Slides = append(out.Slides, inspectedSlide{
			Slide: s.Index + 1,
			Image: s.ImageFormat,
			Bytes: len(s.Image),
			Notes: s.Notes,
		})
	}
	return writeYAML(c.App.Writer, out)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return enc.Close()
}

func printWarnings(w io.Writer, warnings []pdf2pptx.Warning) {
	warn := color.New(color.FgYellow)
	for _, wn := range warnings {
		warn.Fprintf(w, "Warning: %s\n", wn)
	}
}
