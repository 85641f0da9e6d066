package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wudi/pdforganizer/contentstream"
	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/filters"
	"github.com/wudi/pdforganizer/ir/raw"
	"github.com/wudi/pdforganizer/observability"
)

// ErrPageRange is returned for a page index outside the document.
var ErrPageRange = errors.New("page index out of range")

type Config struct {
	Filters *filters.Pipeline
	Logger  observability.Logger
}

// Extractor pulls words and image placements out of a raw document.
// It caches font decoders, so create a new one after the document changes.
type Extractor struct {
	doc       *raw.Document
	pages     []raw.PageRef
	filters   *filters.Pipeline
	log       observability.Logger
	fontCache map[raw.ObjectRef]*fontDecoder
}

func New(doc *raw.Document, cfg Config) (*Extractor, error) {
	if doc == nil {
		return nil, errors.New("document is required")
	}
	pages, err := doc.Pages()
	if err != nil {
		return nil, fmt.Errorf("page tree: %w", err)
	}
	if cfg.Filters == nil {
		cfg.Filters = filters.Default()
	}
	return &Extractor{
		doc:       doc,
		pages:     pages,
		filters:   cfg.Filters,
		log:       observability.OrNop(cfg.Logger),
		fontCache: make(map[raw.ObjectRef]*fontDecoder),
	}, nil
}

func (e *Extractor) PageCount() int { return len(e.pages) }

// PageRef returns the page tree leaf for index.
func (e *Extractor) PageRef(index int) (raw.PageRef, error) {
	if index < 0 || index >= len(e.pages) {
		return raw.PageRef{}, fmt.Errorf("page %d: %w", index, ErrPageRange)
	}
	return e.pages[index], nil
}

// Frame is the page's MediaBox, or US Letter when it has none.
func (e *Extractor) Frame(index int) (coords.Frame, error) {
	page, err := e.PageRef(index)
	if err != nil {
		return coords.Frame{}, err
	}
	box := e.doc.Array(e.doc.Inherited(page.Dict, "MediaBox"))
	if box == nil || len(box.Items) != 4 {
		return coords.DefaultFrame, nil
	}
	var v [4]float64
	for i, item := range box.Items {
		v[i], _ = raw.FloatOf(e.doc.Resolve(item))
	}
	r := coords.Rect{X0: v[0], Y0: v[1], X1: v[2], Y1: v[3]}.Normalize()
	if r.IsEmpty() {
		return coords.DefaultFrame, nil
	}
	return coords.Frame{LLX: r.X0, LLY: r.Y0, URX: r.X1, URY: r.Y1}, nil
}

// Content returns the page's content streams decoded and joined.
func (e *Extractor) Content(ctx context.Context, index int) ([]byte, error) {
	page, err := e.PageRef(index)
	if err != nil {
		return nil, err
	}
	var streams []*raw.StreamObj
	switch v := e.doc.Get(page.Dict, "Contents").(type) {
	case *raw.StreamObj:
		streams = append(streams, v)
	case *raw.ArrayObj:
		for _, item := range v.Items {
			if st := e.doc.Stream(item); st != nil {
				streams = append(streams, st)
			}
		}
	}
	var buf bytes.Buffer
	for i, st := range streams {
		data, err := e.streamData(ctx, st)
		if err != nil {
			return nil, fmt.Errorf("page %d content stream %d: %w", index, i, err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// Operations parses the page's content.
func (e *Extractor) Operations(ctx context.Context, index int) ([]contentstream.Operation, error) {
	data, err := e.Content(ctx, index)
	if err != nil {
		return nil, err
	}
	return contentstream.Parse(data)
}

func (e *Extractor) streamData(ctx context.Context, st *raw.StreamObj) ([]byte, error) {
	data, imageFilter, err := e.filters.DecodeStream(ctx, st, e.doc.Resolve)
	if err != nil {
		return nil, err
	}
	if imageFilter != "" {
		return nil, fmt.Errorf("%s: %w", imageFilter, filters.ErrUnsupportedFilter)
	}
	return data, nil
}

// PageResources resolves a page's fonts and image XObjects for the tracer.
type PageResources struct {
	fonts  map[string]*fontDecoder
	images map[string]bool
}

var _ contentstream.Resources = (*PageResources)(nil)

// Resources collects the font decoders and image XObject names of a page.
func (e *Extractor) Resources(ctx context.Context, index int) (*PageResources, error) {
	page, err := e.PageRef(index)
	if err != nil {
		return nil, err
	}
	res := &PageResources{fonts: make(map[string]*fontDecoder), images: make(map[string]bool)}
	resDict := e.doc.Dict(e.doc.Inherited(page.Dict, "Resources"))
	if resDict == nil {
		return res, nil
	}
	if fontDict := e.doc.Dict(e.doc.Get(resDict, "Font")); fontDict != nil {
		for _, name := range fontDict.Keys() {
			obj, _ := fontDict.Get(name)
			res.fonts[name] = e.fontDecoder(ctx, obj)
		}
	}
	if xobjects := e.doc.Dict(e.doc.Get(resDict, "XObject")); xobjects != nil {
		for _, name := range xobjects.Keys() {
			st := e.doc.Stream(e.doc.Get(xobjects, name))
			if st == nil {
				continue
			}
			if subtype, _ := raw.NameOf(e.doc.Get(st.Dict, "Subtype")); subtype == "Image" {
				res.images[name] = true
			}
		}
	}
	return res, nil
}

// Font returns the decoder for a font resource. Unknown names get a
// WinAnsi decoder with default metrics so their text is still traced.
func (r *PageResources) Font(name string) contentstream.Font {
	if f, ok := r.fonts[name]; ok {
		return f
	}
	return fallbackDecoder()
}

func (r *PageResources) IsImage(name string) bool { return r.images[name] }

// BaseFont is the subset-stripped BaseFont of a font resource.
func (r *PageResources) BaseFont(name string) string {
	if f, ok := r.fonts[name]; ok {
		return f.baseFont
	}
	return ""
}

// Word is the text of one text-showing operation. Geometry is in page
// space (top-left origin).
type Word struct {
	Text     string
	Font     string
	Size     float64
	Rect     coords.Rect
	Origin   coords.Point
	OpIndex  int
	Resource string
}

// PageContent is everything extracted from one page.
type PageContent struct {
	Index  int
	Frame  coords.Frame
	Words  []Word
	Images []Placement
}

// Page extracts words and image placements. Text drawn in invisible mode
// and whitespace-only shows are skipped.
func (e *Extractor) Page(ctx context.Context, index int) (*PageContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frame, err := e.Frame(index)
	if err != nil {
		return nil, err
	}
	ops, err := e.Operations(ctx, index)
	if err != nil {
		return nil, err
	}
	res, err := e.Resources(ctx, index)
	if err != nil {
		return nil, err
	}
	trace := contentstream.NewTracer().Trace(ops, res)

	out := &PageContent{Index: index, Frame: frame}
	for _, show := range trace.Texts {
		if show.RenderMode == contentstream.TextInvisible {
			continue
		}
		text := strings.TrimSpace(show.Text)
		if text == "" {
			continue
		}
		out.Words = append(out.Words, Word{
			Text:     text,
			Font:     res.BaseFont(show.FontName),
			Size:     show.EffectiveSize,
			Rect:     frame.RectToPage(show.Rect),
			Origin:   frame.ToPage(show.Origin),
			OpIndex:  show.OpIndex,
			Resource: show.FontName,
		})
	}
	out.Images = placements(trace, frame)
	e.log.Debug(observability.EventPageExtracted,
		observability.Int("page", index+1),
		observability.Int("words", len(out.Words)),
		observability.Int("images", len(out.Images)))
	return out, nil
}
