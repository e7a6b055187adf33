// Package config holds the settings of a conversion: where the output
// goes, how pages are rendered and how notes are found. Values come from
// defaults, an optional YAML file, and PDF2PPTX_* environment variables,
// in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/pdf2pptx/annot"
	"github.com/tsawler/pdf2pptx/raster"
)

// DefaultInput is converted when no input path is given.
const DefaultInput = "slide.pdf"

// EnvPrefix starts the name of every environment variable read by ApplyEnv.
const EnvPrefix = "PDF2PPTX_"

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete set of conversion settings.
type Config struct {
	// Output is the deck path; empty means "<input>.pptx".
	Output string `yaml:"output"`

	// Workers bounds concurrent render jobs; 0 means one per CPU.
	Workers int `yaml:"workers"`

	// JobTimeout bounds each render job; 0 means no bound.
	JobTimeout time.Duration `yaml:"job_timeout"`

	Rasterizer RasterizerConfig `yaml:"rasterizer"`
	Notes      NotesConfig      `yaml:"notes"`

	// AllowPartial writes a deck without the pages that failed to render
	// instead of failing the conversion.
	AllowPartial bool `yaml:"allow_partial"`

	// Repair rebuilds the cross-reference data of damaged files.
	Repair bool `yaml:"repair"`

	// MaxImageDimension bounds the longer side of slide pictures in pixels.
	MaxImageDimension int `yaml:"max_image_dimension"`

	// WorkDir is the parent of the scratch directory; empty means the
	// system temp dir.
	WorkDir string `yaml:"work_dir"`
}

// RasterizerConfig describes the external page renderer.
type RasterizerConfig struct {
	Command string `yaml:"command"`
	Density int    `yaml:"density"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
}

// NotesConfig controls how speaker notes are found.
type NotesConfig struct {
	Mode           string `yaml:"mode"` // "traversal" or "page-ref"
	LegacyEncoding bool   `yaml:"legacy_encoding"`
	OCR            bool   `yaml:"ocr"`
	OCRLanguage    string `yaml:"ocr_language"`
}

// Default returns the settings used when nothing is configured.
func Default() *Config {
	return &Config{
		Rasterizer: RasterizerConfig{
			Command: raster.DefaultCommand,
			Density: raster.DefaultDensity,
			Width:   raster.DefaultWidth,
			Height:  raster.DefaultHeight,
		},
		Notes: NotesConfig{
			Mode:        annot.ModeTraversal.String(),
			OCRLanguage: "eng",
		},
		Repair:            true,
		MaxImageDimension: 4096,
	}
}

// Load reads a YAML file over the defaults. Keys absent from the file
// keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment without overriding variables already set. Missing files are
// ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

// ApplyEnv overrides settings from PDF2PPTX_* variables. Malformed values
// are reported and leave the setting unchanged.
func (c *Config) ApplyEnv() error {
	var errs []error
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := os.LookupEnv(EnvPrefix + name); ok {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("OUTPUT", &c.Output)
	num("WORKERS", &c.Workers)
	if v, ok := os.LookupEnv(EnvPrefix + "JOB_TIMEOUT"); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			errs = append(errs, fmt.Errorf("%sJOB_TIMEOUT: %w", EnvPrefix, err))
		} else {
			c.JobTimeout = d
		}
	}
	str("RASTERIZER", &c.Rasterizer.Command)
	num("DENSITY", &c.Rasterizer.Density)
	str("NOTES_MODE", &c.Notes.Mode)
	flag("LEGACY_ENCODING", &c.Notes.LegacyEncoding)
	flag("OCR_NOTES", &c.Notes.OCR)
	str("OCR_LANGUAGE", &c.Notes.OCRLanguage)
	flag("ALLOW_PARTIAL", &c.AllowPartial)
	flag("REPAIR", &c.Repair)
	num("MAX_IMAGE_DIMENSION", &c.MaxImageDimension)
	str("WORK_DIR", &c.WorkDir)
	return errors.Join(errs...)
}

// Validate checks the settings for values no conversion can use.
func (c *Config) Validate() error {
	var errs []error
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.JobTimeout < 0 {
		errs = append(errs, fmt.Errorf("job_timeout must not be negative, got %s", c.JobTimeout))
	}
	if strings.TrimSpace(c.Rasterizer.Command) == "" {
		errs = append(errs, errors.New("rasterizer command is empty"))
	}
	if c.Rasterizer.Density <= 0 || c.Rasterizer.Width <= 0 || c.Rasterizer.Height <= 0 {
		errs = append(errs, fmt.Errorf("rasterizer density and size must be positive, got %d dpi %dx%d",
			c.Rasterizer.Density, c.Rasterizer.Width, c.Rasterizer.Height))
	}
	if _, err := annot.ParseMode(c.Notes.Mode); err != nil {
		errs = append(errs, err)
	}
	if c.MaxImageDimension < 0 {
		errs = append(errs, fmt.Errorf("max_image_dimension must not be negative, got %d", c.MaxImageDimension))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// NotesMode returns the parsed notes mode. Call Validate first.
func (c *Config) NotesMode() annot.Mode {
	mode, _ := annot.ParseMode(c.Notes.Mode)
	return mode
}

// OutputFor returns the deck path for input: Output when set, otherwise
// input with ".pptx" appended.
func (c *Config) OutputFor(input string) string {
	if c.Output != "" {
		return c.Output
	}
	return input + ".pptx"
}

// Title returns the deck title derived from input.
func Title(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
