// Package organizer runs the whole renumbering pipeline over one document.
package organizer

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/wudi/pdforganizer/backend"
	"github.com/wudi/pdforganizer/config"
	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/fonts"
	"github.com/wudi/pdforganizer/legend"
	"github.com/wudi/pdforganizer/markers"
	"github.com/wudi/pdforganizer/observability"
	"github.com/wudi/pdforganizer/ocr"
	"github.com/wudi/pdforganizer/parser"
	"github.com/wudi/pdforganizer/recovery"
	"github.com/wudi/pdforganizer/renumber"
	"github.com/wudi/pdforganizer/sequence"
	"github.com/wudi/pdforganizer/worksheet"
	"github.com/wudi/pdforganizer/writer"
)

type Options struct {
	Config config.Config
	// Engine reads markers baked into images.
	Engine ocr.Engine
	// Legend places the number table on the first page.
	Legend bool
	Logger observability.Logger
}

type Result struct {
	Data         []byte
	Replacements []renumber.Replacement
	// LegendRect is the legend's page-space box on page 1, when placed.
	LegendRect *coords.Rect
}

// Questions is the number of renumbered markers.
func (r *Result) Questions() int { return len(r.Replacements) }

// Reorganize canonicalizes input, renumbers every question marker and
// optionally adds the legend.
func Reorganize(ctx context.Context, input []byte, opts Options) (*Result, error) {
	if opts.Engine == nil {
		return nil, errors.New("organizer: no OCR engine")
	}
	log := observability.OrNop(opts.Logger)
	cfg := opts.Config
	bopts := backendOptions(cfg, log)

	canonical, err := canonicalize(ctx, input, bopts)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}

	cache := fonts.NewCache()
	defer cache.Close()
	m, err := renumber.New(ctx, canonical, renumber.Options{
		Backend:    bopts,
		Fallbacks:  cfg.Fonts.Fallbacks,
		Locator:    fonts.NewLocator(append(append([]string(nil), cfg.Fonts.Dirs...), fonts.SystemDirs()...)...),
		Cache:      cache,
		Background: image.Point{X: cfg.BackgroundPixel.X, Y: cfg.BackgroundPixel.Y},
		Logger:     log,
	})
	if err != nil {
		return nil, err
	}

	builder := sequence.New(&markers.ImageDetector{
		Decoder: m.Raster(),
		Engine:  opts.Engine,
		Options: ocrOptions(cfg.OCR),
		Logger:  log,
	}, log)
	builder.Threshold = cfg.DedupThreshold
	doc, err := builder.BuildDocument(ctx, pages{vector: m.Vector(), raster: m.Raster()})
	if err != nil {
		return nil, err
	}
	log.Info("questions found", observability.Int("pages", len(doc.Pages)), observability.Int("questions", doc.Count()))

	replacements, err := m.Run(ctx, doc)
	if err != nil {
		return nil, err
	}
	res := &Result{Replacements: replacements}

	if opts.Legend {
		rect, err := placeLegend(ctx, m, doc, replacements, cfg.Legend, log)
		if err != nil {
			return nil, err
		}
		res.LegendRect = rect
	}

	if res.Data, err = m.Save(ctx); err != nil {
		return nil, err
	}
	return res, nil
}

func backendOptions(cfg config.Config, log observability.Logger) backend.Options {
	opts := backend.Options{
		Writer: writer.Config{Compress: cfg.Writer.Compress, Garbage: cfg.Writer.Garbage},
		Logger: log,
		Fonts:  backend.NewFontRegistry(),
	}
	if cfg.Parser.Strict {
		opts.Parser.Recovery = recovery.NewStrictStrategy()
	}
	return opts
}

// canonicalize gives every image a stable Im<N> name and saves the result.
func canonicalize(ctx context.Context, input []byte, opts backend.Options) ([]byte, error) {
	v, err := backend.OpenVector(ctx, input, opts)
	if err != nil {
		return nil, err
	}
	if v.PageCount() == 0 {
		return nil, fmt.Errorf("%w: document has no pages", parser.ErrNotPDF)
	}
	if err := v.Canonicalize(ctx); err != nil {
		return nil, err
	}
	return v.Save(ctx)
}

func ocrOptions(c config.OCR) []ocr.InputOption {
	var opts []ocr.InputOption
	if len(c.Languages) > 0 {
		opts = append(opts, ocr.WithLanguages(c.Languages...))
	}
	if c.DPI > 0 {
		opts = append(opts, ocr.WithDPI(c.DPI))
	}
	if c.PSM > 0 {
		opts = append(opts, ocr.WithTesseractPSM(c.PSM))
	}
	if c.Whitelist != "" {
		opts = append(opts, ocr.WithTesseractWhitelist(c.Whitelist))
	}
	return opts
}

func placeLegend(ctx context.Context, m *renumber.Mutator, doc worksheet.NumberedDocument, replacements []renumber.Replacement, c config.Legend, log observability.Logger) (*coords.Rect, error) {
	if len(replacements) == 0 {
		log.Warn("no questions, legend skipped")
		return nil, nil
	}
	first, err := m.Vector().Page(ctx, 0)
	if err != nil {
		return nil, err
	}
	style := legend.DefaultStyle()
	style.FontSize = c.FontSize
	style.PaddingX, style.PaddingY = c.PaddingX, c.PaddingY
	style.Gap = c.Gap
	style.Background.A = legend.Opacity(c.Opacity)
	p := &legend.Placer{Style: style, Margin: c.Margin, Logger: log}
	rect, err := p.Place(ctx, m, doc.Pages[0], first.Frame, legend.Rows(replacements))
	if err != nil {
		return nil, fmt.Errorf("legend: %w", err)
	}
	return &rect, nil
}
