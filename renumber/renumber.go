// Package renumber rewrites question markers with a continuous sequence.
// Text markers are edited through the vector backend and image markers
// through the raster backend; after every edit the edited backend is
// serialized and the other one is rebuilt from those bytes.
package renumber

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	xfont "golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/pdforganizer/backend"
	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/fonts"
	"github.com/wudi/pdforganizer/observability"
	"github.com/wudi/pdforganizer/worksheet"
)

// ErrBarrier is returned when an edit starts before the previous edit
// has crossed the barrier.
var ErrBarrier = errors.New("previous edit has not crossed the barrier")

// State names the backend holding the most recent edit.
type State int

const (
	VectorOwned State = iota
	RasterOwned
)

func (s State) String() string {
	if s == RasterOwned {
		return "raster"
	}
	return "vector"
}

// Format renders a sequence number as a marker.
func Format(n int) string { return strconv.Itoa(n) + ")" }

type Options struct {
	Backend backend.Options
	// Fallbacks are font file names tried after the embedded fonts.
	Fallbacks []string
	Locator   *fonts.Locator
	Cache     *fonts.Cache
	// Background is the pixel sampled to paint over image markers.
	Background image.Point
	Logger     observability.Logger
}

// Replacement records one renumbered element.
type Replacement struct {
	Page   int // 1-based
	Number int
	Old    string
	New    string
	Kind   worksheet.Kind
}

type Mutator struct {
	vector   *backend.Vector
	raster   *backend.Raster
	state    State
	pending  bool
	counter  int
	resolver *fonts.Resolver
	opts     Options
	log      observability.Logger
}

// New opens both backends over data, which must already be canonical.
func New(ctx context.Context, data []byte, opts Options) (*Mutator, error) {
	if opts.Backend.Fonts == nil {
		opts.Backend.Fonts = backend.NewFontRegistry()
	}
	if opts.Cache == nil {
		opts.Cache = fonts.NewCache()
	}
	if opts.Backend.Logger == nil {
		opts.Backend.Logger = opts.Logger
	}
	vector, err := backend.OpenVector(ctx, data, opts.Backend)
	if err != nil {
		return nil, err
	}
	raster, err := backend.OpenRaster(ctx, data, opts.Backend)
	if err != nil {
		return nil, err
	}
	embedded, err := vector.Fonts(ctx)
	if err != nil {
		return nil, err
	}
	log := observability.OrNop(opts.Logger)
	return &Mutator{
		vector: vector,
		raster: raster,
		resolver: &fonts.Resolver{
			Embedded:  embedded,
			Fallbacks: opts.Fallbacks,
			Locator:   opts.Locator,
			Cache:     opts.Cache,
			Logger:    log,
		},
		opts: opts,
		log:  log,
	}, nil
}

func (m *Mutator) State() State              { return m.state }
func (m *Mutator) Vector() *backend.Vector   { return m.vector }
func (m *Mutator) Raster() *backend.Raster   { return m.raster }
func (m *Mutator) Resolver() *fonts.Resolver { return m.resolver }

// Run renumbers every element of doc in page order.
func (m *Mutator) Run(ctx context.Context, doc worksheet.NumberedDocument) ([]Replacement, error) {
	var out []Replacement
	for _, page := range doc.Pages {
		for _, el := range page.Elements {
			if err := ctx.Err(); err != nil {
				return out, err
			}
			r, err := m.Apply(ctx, page.Index, el)
			if err != nil {
				return out, err
			}
			out = append(out, r)
		}
	}
	return out, nil
}

// Apply assigns the next number to el, edits the owning backend and
// crosses the barrier.
func (m *Mutator) Apply(ctx context.Context, page int, el worksheet.Element) (Replacement, error) {
	n := m.counter + 1
	var err error
	switch el.Kind {
	case worksheet.KindWord:
		err = m.ReplaceWord(ctx, page, *el.Word, n)
	case worksheet.KindImage:
		err = m.ReplaceImage(ctx, page, *el.Image, n)
	default:
		err = fmt.Errorf("page %d: unknown element kind %d", page+1, el.Kind)
	}
	if err != nil {
		return Replacement{}, err
	}
	if err := m.Barrier(ctx); err != nil {
		return Replacement{}, fmt.Errorf("page %d element %d: %w", page+1, n, err)
	}
	r := Replacement{Page: page + 1, Number: n, Old: el.Marker(), New: Format(n), Kind: el.Kind}
	m.log.Info(observability.EventElementRenamed,
		observability.Int("page", r.Page),
		observability.String("kind", r.Kind.String()),
		observability.String("old", r.Old),
		observability.String("new", r.New))
	return r, nil
}

func (m *Mutator) begin(owner State) error {
	if m.pending {
		return ErrBarrier
	}
	m.state = owner
	m.pending = true
	m.counter++
	return nil
}

// Barrier serializes the backend that made the last edit and rebuilds the
// other one from the bytes.
func (m *Mutator) Barrier(ctx context.Context) error {
	if !m.pending {
		return nil
	}
	switch m.state {
	case VectorOwned:
		data, err := m.vector.Save(ctx)
		if err != nil {
			return err
		}
		if m.raster, err = backend.OpenRaster(ctx, data, m.opts.Backend); err != nil {
			return err
		}
	case RasterOwned:
		data, err := m.raster.Save(ctx)
		if err != nil {
			return err
		}
		if m.vector, err = backend.OpenVector(ctx, data, m.opts.Backend); err != nil {
			return err
		}
	}
	m.pending = false
	return nil
}

// ReplaceWord erases the word and redraws it with its marker replaced by
// number n.
func (m *Mutator) ReplaceWord(ctx context.Context, page int, w worksheet.MarkerWord, n int) error {
	if err := m.begin(VectorOwned); err != nil {
		return err
	}
	text := w.Text[:w.Span.Start] + Format(n) + w.Text[w.Span.End:]
	if _, err := m.vector.Redact(ctx, page, w.Rect); err != nil {
		return fmt.Errorf("page %d: redact %q: %w", page+1, w.Text, err)
	}
	program := m.resolver.Vector(w.Font, text)
	size := math.Max(1, math.Round(w.Size))
	if err := m.vector.DrawText(ctx, page, program, size, w.Origin, text); err != nil {
		return fmt.Errorf("page %d: draw %q: %w", page+1, text, err)
	}
	return nil
}

// ReplaceImage paints over the marker region of an image and draws number
// n at the region's top-left corner.
func (m *Mutator) ReplaceImage(ctx context.Context, page int, mi worksheet.MarkerImage, n int) error {
	if err := m.begin(RasterOwned); err != nil {
		return err
	}
	ref, err := m.raster.Image(page, mi.ID)
	if err != nil {
		return &worksheet.IntegrityError{Page: page + 1, ImageID: mi.ID, Backend: "raster", Err: err}
	}
	src, err := m.raster.Decode(ctx, ref)
	if err != nil {
		return fmt.Errorf("page %d image %d: %w", page+1, mi.ID, err)
	}
	bounds := src.Bounds()
	canvas := image.NewNRGBA(bounds)
	draw.Draw(canvas, bounds, src, bounds.Min, draw.Src)

	region := mi.Region.Add(bounds.Min).Intersect(bounds)
	bg := canvas.At(clamp(m.opts.Background.X+bounds.Min.X, bounds.Min.X, bounds.Max.X-1),
		clamp(m.opts.Background.Y+bounds.Min.Y, bounds.Min.Y, bounds.Max.Y-1))
	draw.Draw(canvas, region, image.NewUniform(bg), image.Point{}, draw.Src)

	text := Format(n)
	size := math.Round(1.5 * float64(mi.Region.Dy()))
	face := m.resolver.Raster("", text, size)
	d := &xfont.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(region.Min.X), Y: fixed.I(region.Min.Y) + face.Metrics().Ascent},
	}
	d.DrawString(text)

	if err := m.raster.Write(ctx, ref, canvas); err != nil {
		return fmt.Errorf("page %d image %d: %w", page+1, mi.ID, err)
	}
	m.log.Debug("image marker replaced",
		observability.Int("page", page+1),
		observability.Int("image", mi.ID),
		observability.String("marker", mi.Marker))
	return nil
}

// InsertImage overlays img on page (page-space rect) through the vector
// backend and crosses the barrier.
func (m *Mutator) InsertImage(ctx context.Context, page int, rect coords.Rect, img image.Image) error {
	if m.pending {
		return ErrBarrier
	}
	m.state, m.pending = VectorOwned, true
	if err := m.vector.InsertImage(ctx, page, rect, img); err != nil {
		return err
	}
	return m.Barrier(ctx)
}

// Save serializes the backend that holds the latest edit.
func (m *Mutator) Save(ctx context.Context) ([]byte, error) {
	if m.state == RasterOwned {
		return m.raster.Save(ctx)
	}
	return m.vector.Save(ctx)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
