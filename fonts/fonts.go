// Package fonts resolves the fonts used to draw replacement question numbers:
// programs embedded in the document, fallback font files, the bundled Go
// font and the built-in defaults.
package fonts

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	xfont "golang.org/x/image/font"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
	"golang.org/x/text/encoding/charmap"
)

// ErrUnsupportedProgram is returned for font data that is neither
// TrueType nor OpenType.
var ErrUnsupportedProgram = errors.New("unsupported font program")

type Kind int

const (
	// Standard14 is a non-embedded base font; Program.Data is nil.
	Standard14 Kind = iota
	TrueType
	OpenTypeCFF
)

func (k Kind) String() string {
	switch k {
	case TrueType:
		return "TrueType"
	case OpenTypeCFF:
		return "OpenType-CFF"
	}
	return "Standard14"
}

// Program is a font that can draw replacement text into the document.
// Metrics are in 1/1000 em.
type Program struct {
	Name   string // PostScript name
	Kind   Kind
	Data   []byte
	Source string

	Ascent      float64
	Descent     float64
	CapHeight   float64
	ItalicAngle float64
	BBox        [4]float64

	face     *gofont.Face
	outlines *sfnt.Font
}

// Helvetica is the built-in vector default.
var Helvetica = &Program{
	Name:      "Helvetica",
	Kind:      Standard14,
	Source:    "builtin",
	Ascent:    718,
	Descent:   -207,
	CapHeight: 718,
	BBox:      [4]float64{-166, -225, 1000, 931},
}

// LoadProgram parses a TrueType or OpenType font file.
func LoadProgram(name string, data []byte) (*Program, error) {
	if len(data) == 0 {
		return nil, errors.New("font data is empty")
	}
	dir, err := ParseTableDirectory(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedProgram, err)
	}
	kind := TrueType
	switch {
	case dir.Version == sfntVersionCFF && dir.Has("CFF "):
		kind = OpenTypeCFF
	case !dir.Has("glyf"):
		return nil, fmt.Errorf("%w: no glyf or CFF table", ErrUnsupportedProgram)
	}
	if !dir.Has("cmap") {
		return nil, fmt.Errorf("%w: no cmap table", ErrUnsupportedProgram)
	}

	outlines, err := sfnt.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse sfnt: %w", err)
	}
	face, err := gofont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse face: %w", err)
	}
	unitsPerEm := outlines.UnitsPerEm()
	if unitsPerEm == 0 {
		return nil, errors.New("invalid unitsPerEm")
	}
	buf := &sfnt.Buffer{}
	ppem := fixed.Int26_6(unitsPerEm << 6)

	baseName := strings.TrimSpace(name)
	if ps, _ := outlines.Name(buf, sfnt.NameIDPostScript); len(ps) > 0 {
		baseName = ps
	}
	if baseName == "" {
		baseName = "CustomFont"
	}

	metrics, _ := outlines.Metrics(buf, ppem, xfont.HintingNone)
	bounds, _ := outlines.Bounds(buf, ppem, xfont.HintingNone)
	p := &Program{
		Name:      baseName,
		Kind:      kind,
		Data:      data,
		Ascent:    scaleFixed(metrics.Ascent, unitsPerEm),
		Descent:   -scaleFixed(metrics.Descent, unitsPerEm),
		CapHeight: scaleFixed(metrics.CapHeight, unitsPerEm),
		BBox: [4]float64{
			scaleFixed(bounds.Min.X, unitsPerEm),
			-scaleFixed(bounds.Max.Y, unitsPerEm),
			scaleFixed(bounds.Max.X, unitsPerEm),
			-scaleFixed(bounds.Min.Y, unitsPerEm),
		},
		face:     face,
		outlines: outlines,
	}
	if p.CapHeight == 0 {
		p.CapHeight = p.Ascent
	}
	if post := outlines.PostTable(); post != nil {
		p.ItalicAngle = post.ItalicAngle
	}
	return p, nil
}

// Covers reports whether every rune of text has a glyph and a WinAnsi code.
func (p *Program) Covers(text string) bool {
	if _, err := p.Encode(text); err != nil {
		return false
	}
	if p.face == nil {
		return p.Kind == Standard14
	}
	for _, r := range text {
		if _, ok := p.face.NominalGlyph(r); !ok {
			return false
		}
	}
	return true
}

// Encode converts text to WinAnsi codes.
func (p *Program) Encode(text string) ([]byte, error) {
	return charmap.Windows1252.NewEncoder().Bytes([]byte(text))
}

// Widths returns glyph advances for the WinAnsi codes first..last. Codes
// without a glyph get width 0.
func (p *Program) Widths(first, last int) []float64 {
	widths := make([]float64, 0, last-first+1)
	for code := first; code <= last; code++ {
		r := charmap.Windows1252.DecodeByte(byte(code))
		widths = append(widths, p.advance(r))
	}
	return widths
}

// advance shapes a single rune at 1000 units per em.
func (p *Program) advance(r rune) float64 {
	if p.face == nil {
		return 0
	}
	if _, ok := p.face.NominalGlyph(r); !ok {
		return 0
	}
	shaper := &shaping.HarfbuzzShaper{}
	out := shaper.Shape(shaping.Input{
		Text:      []rune{r},
		RunStart:  0,
		RunEnd:    1,
		Direction: di.DirectionLTR,
		Face:      p.face,
		Size:      fixed.Int26_6(1000 * 64),
		Script:    language.Latin,
		Language:  language.DefaultLanguage(),
	})
	total := 0.0
	for _, g := range out.Glyphs {
		total += float64(g.XAdvance) / 64.0
	}
	return math.Round(total)
}

func scaleFixed(val fixed.Int26_6, unitsPerEm sfnt.Units) float64 {
	return math.Round(float64(val) * 1000.0 / (64.0 * float64(unitsPerEm)))
}
