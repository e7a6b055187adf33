package pdf2pptx

import (
	"github.com/sirupsen/logrus"

	"github.com/tsawler/pdf2pptx/config"
	"github.com/tsawler/pdf2pptx/raster"
)

// convertOptions holds the configuration of a Converter.
type convertOptions struct {
	cfg        config.Config
	rasterizer raster.Rasterizer // nil means a CommandRasterizer from cfg
	logger     logrus.FieldLogger
}

// defaultOptions returns the default conversion options.
func defaultOptions() convertOptions {
	return convertOptions{cfg: *config.Default()}
}

// clone creates a copy of convertOptions. Config holds no reference types,
// so a value copy is deep.
func (o convertOptions) clone() convertOptions {
	return convertOptions{
		cfg:        o.cfg,
		rasterizer: o.rasterizer,
		logger:     o.logger,
	}
}
