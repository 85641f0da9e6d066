// Package legend renders the new-to-old number table and finds a free
// spot for it on the first page.
package legend

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
	"golang.org/x/image/font/gofont/gomonobold"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/fonts"
	"github.com/wudi/pdforganizer/markers"
	"github.com/wudi/pdforganizer/observability"
	"github.com/wudi/pdforganizer/renumber"
	"github.com/wudi/pdforganizer/worksheet"
)

// DefaultMargin is the free space kept around every element box.
const DefaultMargin = 5.0

// ErrNoRows is returned when there is nothing to put in a legend.
var ErrNoRows = errors.New("legend has no rows")

// NoPositionError reports that Element fits nowhere on the page.
type NoPositionError struct {
	Element string
}

func (e *NoPositionError) Error() string { return "no available position for " + e.Element }

// Row maps a new number to the digits of the original marker.
type Row struct {
	New int
	Old string
}

func (r Row) String() string { return strconv.Itoa(r.New) + ": " + r.Old }

// Rows builds one row per replacement.
func Rows(replacements []renumber.Replacement) []Row {
	rows := make([]Row, 0, len(replacements))
	for _, r := range replacements {
		rows = append(rows, Row{New: r.Number, Old: markers.Digits(r.Old)})
	}
	return rows
}

type Style struct {
	PaddingX, PaddingY int
	Gap                int
	FontSize           float64
	Background         color.NRGBA
	Foreground         color.NRGBA
}

func DefaultStyle() Style {
	return Style{
		PaddingX:   16,
		PaddingY:   12,
		Gap:        4,
		FontSize:   40,
		Background: color.NRGBA{A: 51},
		Foreground: color.NRGBA{R: 255, G: 255, B: 255, A: 255},
	}
}

// Render draws rows top to bottom in Go Mono Bold on a translucent
// background.
func Render(rows []Row, style Style) (*image.NRGBA, error) {
	if len(rows) == 0 {
		return nil, ErrNoRows
	}
	program, err := fonts.LoadProgram("GoMono-Bold", gomonobold.TTF)
	if err != nil {
		return nil, err
	}
	face, err := program.RasterFace(style.FontSize)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	metrics := face.Metrics()
	rowHeight := (metrics.Ascent + metrics.Descent).Ceil()
	maxWidth := 0
	for _, r := range rows {
		if w := xfont.MeasureString(face, r.String()).Ceil(); w > maxWidth {
			maxWidth = w
		}
	}
	width := maxWidth + 2*style.PaddingX
	height := rowHeight*len(rows) + style.Gap*(len(rows)-1) + 2*style.PaddingY

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.NewUniform(style.Background), image.Point{}, draw.Src)
	d := &xfont.Drawer{Dst: img, Src: image.NewUniform(style.Foreground), Face: face}
	for i, r := range rows {
		top := style.PaddingY + i*(rowHeight+style.Gap)
		d.Dot = fixed.Point26_6{X: fixed.I(style.PaddingX), Y: fixed.I(top) + metrics.Ascent}
		d.DrawString(r.String())
	}
	return img, nil
}

// FindPosition returns the first w x h rectangle, sliding along the left,
// right, top and bottom edges of the element envelope, that does not
// overlap any element box grown by margin. Boxes nested inside another
// box are ignored. The result always lies inside page.
func FindPosition(page coords.Rect, boxes []coords.Rect, w, h, margin float64) (coords.Rect, error) {
	var obstacles []coords.Rect
	for i, b := range boxes {
		if nested(i, boxes) {
			continue
		}
		obstacles = append(obstacles, b.Expand(margin))
	}
	env := page
	for _, b := range boxes {
		env = env.Union(b)
	}
	env = env.Intersect(page)
	if w <= 0 || h <= 0 || w > env.Width() || h > env.Height() {
		return coords.Rect{}, &NoPositionError{Element: "legend"}
	}

	free := func(r coords.Rect) bool {
		for _, o := range obstacles {
			if r.Intersects(o) {
				return false
			}
		}
		return true
	}
	for _, x := range []float64{env.X0, env.X1 - w} {
		for y := env.Y0; y+h <= env.Y1; y++ {
			if r := (coords.Rect{X0: x, Y0: y, X1: x + w, Y1: y + h}); free(r) {
				return r, nil
			}
		}
	}
	for _, y := range []float64{env.Y0, env.Y1 - h} {
		for x := env.X0; x+w <= env.X1; x++ {
			if r := (coords.Rect{X0: x, Y0: y, X1: x + w, Y1: y + h}); free(r) {
				return r, nil
			}
		}
	}
	return coords.Rect{}, &NoPositionError{Element: "legend"}
}

// nested reports whether boxes[i] lies inside another box. Of identical
// boxes only the first is kept.
func nested(i int, boxes []coords.Rect) bool {
	for j, o := range boxes {
		if j == i || !o.Contains(boxes[i]) {
			continue
		}
		if o != boxes[i] || j < i {
			return true
		}
	}
	return false
}

// Inserter draws an overlay image onto a page.
type Inserter interface {
	InsertImage(ctx context.Context, page int, rect coords.Rect, img image.Image) error
}

// Placer puts the legend on the first page of a renumbered document.
type Placer struct {
	Style  Style
	Margin float64
	Logger observability.Logger
}

// Place renders rows and inserts them on page 1, avoiding the words and
// images extracted from it. One image pixel covers one point.
func (p *Placer) Place(ctx context.Context, dst Inserter, first worksheet.NumberedPage, frame coords.Frame, rows []Row) (coords.Rect, error) {
	img, err := Render(rows, p.Style)
	if err != nil {
		return coords.Rect{}, err
	}
	boxes := make([]coords.Rect, 0, len(first.Words)+len(first.Images))
	for _, w := range first.Words {
		boxes = append(boxes, w.Rect)
	}
	for _, im := range first.Images {
		boxes = append(boxes, im.Rect)
	}
	b := img.Bounds()
	rect, err := FindPosition(frame.Bounds(), boxes, float64(b.Dx()), float64(b.Dy()), p.Margin)
	if err != nil {
		return coords.Rect{}, err
	}
	if err := dst.InsertImage(ctx, first.Index, rect, img); err != nil {
		return coords.Rect{}, fmt.Errorf("insert legend: %w", err)
	}
	observability.OrNop(p.Logger).Info(observability.EventLegendPlaced,
		observability.Int("rows", len(rows)),
		observability.Float64("x", rect.X0),
		observability.Float64("y", rect.Y0))
	return rect, nil
}

// Opacity converts a 0..1 opacity into an alpha value.
func Opacity(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(1, v)) * 255))
}
