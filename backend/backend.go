// Package backend holds the two views of a worksheet document: the vector
// backend edits content streams (text, overlays, canonical names) and the
// raster backend edits image XObject samples.
package backend

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/wudi/pdforganizer/extractor"
	"github.com/wudi/pdforganizer/filters"
	"github.com/wudi/pdforganizer/ir/raw"
	"github.com/wudi/pdforganizer/observability"
	"github.com/wudi/pdforganizer/parser"
	"github.com/wudi/pdforganizer/writer"
)

// ErrImageNotFound is returned when a canonical image id has no XObject.
var ErrImageNotFound = errors.New("image not found")

// Options configures both backends.
type Options struct {
	Parser  parser.Config
	Writer  writer.Config
	Filters *filters.Pipeline
	Logger  observability.Logger
	// Fonts remembers font objects embedded by earlier draws. Pass the same
	// registry to every reopened vector backend of one document.
	Fonts *FontRegistry
}

type document struct {
	doc   *raw.Document
	pages []raw.PageRef
	opts  Options
	log   observability.Logger
}

func open(ctx context.Context, data []byte, opts Options) (document, error) {
	if opts.Filters == nil {
		opts.Filters = filters.Default()
	}
	if opts.Parser.Filters == nil {
		opts.Parser.Filters = opts.Filters
	}
	if opts.Parser.Logger == nil {
		opts.Parser.Logger = opts.Logger
	}
	if opts.Fonts == nil {
		opts.Fonts = NewFontRegistry()
	}
	doc, err := parser.Parse(ctx, data, opts.Parser)
	if err != nil {
		return document{}, err
	}
	pages, err := doc.Pages()
	if err != nil {
		return document{}, fmt.Errorf("page tree: %w", err)
	}
	return document{doc: doc, pages: pages, opts: opts, log: observability.OrNop(opts.Logger)}, nil
}

func (d *document) PageCount() int { return len(d.pages) }

// Document exposes the underlying object graph.
func (d *document) Document() *raw.Document { return d.doc }

// Save serializes the document with the configured writer options.
func (d *document) Save(ctx context.Context) ([]byte, error) {
	return writer.Bytes(ctx, d.doc, d.opts.Writer)
}

func (d *document) page(index int) (raw.PageRef, error) {
	if index < 0 || index >= len(d.pages) {
		return raw.PageRef{}, fmt.Errorf("page %d: %w", index, extractor.ErrPageRange)
	}
	return d.pages[index], nil
}

// extractor returns a fresh extractor; font decoders are cached per call
// because the document changes between edits.
func (d *document) extractor() (*extractor.Extractor, error) {
	return extractor.New(d.doc, extractor.Config{Filters: d.opts.Filters, Logger: d.opts.Logger})
}

// ownResources gives the page its own Resources dictionary so edits never
// leak into a parent or into pages sharing the dictionary.
func (d *document) ownResources(page raw.PageRef) *raw.DictObj {
	own := raw.Dict()
	if res := d.doc.Dict(d.doc.Inherited(page.Dict, "Resources")); res != nil {
		own = res.Clone()
	}
	page.Dict.Set("Resources", own)
	return own
}

// ownSubDict replaces res[key] with a private copy and returns it.
func (d *document) ownSubDict(res *raw.DictObj, key string) *raw.DictObj {
	own := raw.Dict()
	if sub := d.doc.Dict(d.doc.Get(res, key)); sub != nil {
		own = sub.Clone()
	}
	res.Set(key, own)
	return own
}

// imageName is the canonical XObject name of image id.
func imageName(id int) string { return "Im" + strconv.Itoa(id) }

// imageID parses a canonical XObject name.
func imageID(name string) (int, bool) {
	if len(name) < 3 || name[:2] != "Im" {
		return 0, false
	}
	id, err := strconv.Atoi(name[2:])
	if err != nil || id <= 0 || strconv.Itoa(id) != name[2:] {
		return 0, false
	}
	return id, true
}
