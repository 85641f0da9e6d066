// Command inspect dumps what the organizer sees in a PDF: words, canonical
// images, embedded fonts and question markers, one JSON section each.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/wudi/pdforganizer/backend"
	"github.com/wudi/pdforganizer/markers"
	"github.com/wudi/pdforganizer/observability"
	"github.com/wudi/pdforganizer/ocr/tesseract"
	"github.com/wudi/pdforganizer/sequence"
	"github.com/wudi/pdforganizer/worksheet"
)

type featureSelection struct {
	Words   bool
	Images  bool
	Fonts   bool
	Markers bool
}

func (f featureSelection) none() bool { return !f.Words && !f.Images && !f.Fonts && !f.Markers }

type options struct {
	pdfPath  string
	outDir   string
	ocr      bool
	features featureSelection
}

func main() {
	app := &cli.App{
		Name:      "inspect",
		Usage:     "dump words, images, fonts and markers of a PDF",
		ArgsUsage: "PDF",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "words", Usage: "words per page"},
			&cli.BoolFlag{Name: "images", Usage: "canonical images per page, written as PNG"},
			&cli.BoolFlag{Name: "fonts", Usage: "embedded font programs"},
			&cli.BoolFlag{Name: "markers", Usage: "numbered elements per page"},
			&cli.BoolFlag{Name: "ocr", Usage: "run tesseract on images when looking for markers"},
			&cli.StringFlag{Name: "out", Value: "inspect_output", Usage: "directory for decoded images"},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("missing pdf path")
			}
			opts := options{
				pdfPath: c.Args().First(),
				outDir:  c.String("out"),
				ocr:     c.Bool("ocr"),
				features: featureSelection{
					Words:   c.Bool("words"),
					Images:  c.Bool("images"),
					Fonts:   c.Bool("fonts"),
					Markers: c.Bool("markers"),
				},
			}
			if opts.features.none() {
				opts.features = featureSelection{Words: true, Images: true, Fonts: true, Markers: true}
			}
			return run(c.Context, c.App.Writer, opts)
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "inspect: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, w io.Writer, opts options) error {
	data, err := os.ReadFile(opts.pdfPath)
	if err != nil {
		return fmt.Errorf("open pdf: %w", err)
	}
	bopts := backend.Options{}
	v, err := backend.OpenVector(ctx, data, bopts)
	if err != nil {
		return fmt.Errorf("parse pdf: %w", err)
	}
	if err := v.Canonicalize(ctx); err != nil {
		return fmt.Errorf("canonicalize: %w", err)
	}
	if data, err = v.Save(ctx); err != nil {
		return err
	}
	if v, err = backend.OpenVector(ctx, data, bopts); err != nil {
		return err
	}
	r, err := backend.OpenRaster(ctx, data, bopts)
	if err != nil {
		return err
	}

	pages := make([]pageSummary, v.PageCount())
	for i := range pages {
		words, images, err := worksheet.Extract(ctx, v, r, i)
		if err != nil {
			return err
		}
		pages[i] = pageSummary{Page: i + 1, Words: words, Images: images}
	}

	if opts.features.Words {
		if err := emitSection(w, "words", pages); err != nil {
			return err
		}
	}
	if opts.features.Images {
		summaries, err := writeImages(ctx, r, filepath.Join(opts.outDir, "images"), pages)
		if err != nil {
			return err
		}
		if err := emitSection(w, "images", summaries); err != nil {
			return err
		}
	}
	if opts.features.Fonts {
		embedded, err := v.Fonts(ctx)
		if err != nil {
			return err
		}
		summaries := make([]fontSummary, 0, len(embedded))
		for _, f := range embedded {
			summaries = append(summaries, fontSummary{Name: f.Name, Kind: f.Kind, Size: len(f.Data)})
		}
		if err := emitSection(w, "fonts", summaries); err != nil {
			return err
		}
	}
	if opts.features.Markers {
		var images markers.Detector[worksheet.PageImage] = noImageMarkers{}
		if opts.ocr {
			images = &markers.ImageDetector{Decoder: r, Engine: tesseract.New()}
		}
		b := sequence.New(images, observability.NopLogger{})
		summaries := make([]markerSummary, 0, len(pages))
		for _, p := range pages {
			np, err := b.BuildPage(ctx, p.Page-1, p.Words, p.Images)
			if err != nil {
				return err
			}
			for _, el := range np.Elements {
				summaries = append(summaries, markerSummary{
					Page: p.Page, Kind: el.Kind.String(), Marker: el.Marker(), Top: el.Top(),
				})
			}
		}
		if err := emitSection(w, "markers", summaries); err != nil {
			return err
		}
	}
	return nil
}

// noImageMarkers skips OCR.
type noImageMarkers struct{}

func (noImageMarkers) Detect(context.Context, int, worksheet.PageImage) (worksheet.Element, bool, error) {
	return worksheet.Element{}, false, nil
}

type pageSummary struct {
	Page   int                   `json:"page"`
	Words  []worksheet.TextWord  `json:"words"`
	Images []worksheet.PageImage `json:"images"`
}

type imageSummary struct {
	Page   int    `json:"page"`
	ID     int    `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

type fontSummary struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	Size int    `json:"size"`
}

type markerSummary struct {
	Page   int     `json:"page"`
	Kind   string  `json:"kind"`
	Marker string  `json:"marker"`
	Top    float64 `json:"top"`
}

func writeImages(ctx context.Context, r *backend.Raster, dir string, pages []pageSummary) ([]imageSummary, error) {
	var summaries []imageSummary
	for _, p := range pages {
		for _, im := range p.Images {
			s := imageSummary{Page: p.Page, ID: im.ID}
			img, err := r.Decode(ctx, im.Stream)
			if err != nil {
				s.Error = err.Error()
				summaries = append(summaries, s)
				continue
			}
			s.Width, s.Height = img.Bounds().Dx(), img.Bounds().Dy()
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create image dir: %w", err)
			}
			s.Path = filepath.Join(dir, fmt.Sprintf("page-%03d-Im%d.png", p.Page, im.ID))
			f, err := os.Create(s.Path)
			if err != nil {
				return nil, fmt.Errorf("write image %q: %w", s.Path, err)
			}
			err = png.Encode(f, img)
			if cerr := f.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return nil, fmt.Errorf("write image %q: %w", s.Path, err)
			}
			summaries = append(summaries, s)
		}
	}
	return summaries, nil
}

func emitSection(w io.Writer, name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}
	_, err = fmt.Fprintf(w, "== %s ==\n%s\n\n", name, data)
	return err
}
