package contentstream

import (
	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/ir/raw"
)

// Glyph is one decoded character code of a shown string.
type Glyph struct {
	Code  []byte
	Text  string
	Width float64 // glyph space, 1/1000 em
}

// Font decodes shown strings. Ascent and Descent are in 1/1000 em.
type Font interface {
	Glyphs(s []byte) []Glyph
	Ascent() float64
	Descent() float64
}

// Resources resolves resource names used by operators.
type Resources interface {
	Font(name string) Font
	IsImage(name string) bool
}

// TextShow describes one text-showing operation.
type TextShow struct {
	OpIndex  int
	FontName string
	Font     Font
	// FontSize is the Tf size; EffectiveSize includes the text and CTM scaling.
	FontSize      float64
	EffectiveSize float64
	Text          string
	Glyphs        []Glyph
	// Advance is the horizontal displacement in unscaled text space,
	// TJ adjustments included.
	Advance    float64
	Matrix     coords.Matrix // Tm x CTM at the start of the show
	Origin     coords.Point  // baseline start, PDF space
	Rect       coords.Rect   // PDF space
	RenderMode TextRenderMode
	State      TextState
}

// ImageDraw describes one Do of an image XObject.
type ImageDraw struct {
	OpIndex int
	Name    string
	Rect    coords.Rect // unit square through the CTM, PDF space
}

type Trace struct {
	Texts  []TextShow
	Images []ImageDraw
}

// OpBBox represents the bounding box of an operation.
type OpBBox struct {
	OpIndex int
	Rect    coords.Rect
}

// Boxes lists the text and image boxes in operation order.
func (t *Trace) Boxes() []OpBBox {
	out := make([]OpBBox, 0, len(t.Texts)+len(t.Images))
	for _, s := range t.Texts {
		out = append(out, OpBBox{OpIndex: s.OpIndex, Rect: s.Rect})
	}
	for _, im := range t.Images {
		out = append(out, OpBBox{OpIndex: im.OpIndex, Rect: im.Rect})
	}
	return out
}

// Tracer executes the operations virtually and records where text and images land.
type Tracer struct {
}

func NewTracer() *Tracer {
	return &Tracer{}
}

func (t *Tracer) Trace(ops []Operation, resources Resources) *Trace {
	out := &Trace{}
	gs := NewGraphicsState()
	tm := coords.Identity()
	tlm := coords.Identity()

	nextLine := func(tx, ty float64) {
		tlm = coords.Translate(tx, ty).Multiply(tlm)
		tm = tlm
	}

	for i, op := range ops {
		ts := &gs.Text
		switch op.Operator {
		// Graphics State
		case "q":
			gs.Save()
		case "Q":
			// unbalanced Q is common in the wild; keep the current state
			_ = gs.Restore()
		case "cm":
			if len(op.Operands) == 6 {
				gs.CTM = operandMatrix(op).Multiply(gs.CTM)
			}

		// Text Objects
		case "BT":
			tm = coords.Identity()
			tlm = coords.Identity()
		case "ET":

		// Text State
		case "Tf":
			if len(op.Operands) == 2 {
				ts.FontName = op.Name(0)
				ts.Font = resources.Font(ts.FontName)
				ts.FontSize = op.Number(1)
			}
		case "Tc":
			ts.CharSpacing = op.Number(0)
		case "Tw":
			ts.WordSpacing = op.Number(0)
		case "Tz":
			ts.HScale = op.Number(0) / 100
		case "TL":
			ts.Leading = op.Number(0)
		case "Ts":
			ts.Rise = op.Number(0)
		case "Tr":
			ts.RenderMode = TextRenderMode(op.Number(0))

		// Text Positioning
		case "Tm":
			if len(op.Operands) == 6 {
				tlm = operandMatrix(op)
				tm = tlm
			}
		case "Td":
			nextLine(op.Number(0), op.Number(1))
		case "TD":
			ts.Leading = -op.Number(1)
			nextLine(op.Number(0), op.Number(1))
		case "T*":
			nextLine(0, -ts.Leading)

		// Text Showing
		case "Tj", "TJ":
			if len(op.Operands) == 1 {
				show := t.show(i, op.Operands[0], gs, tm)
				out.Texts = append(out.Texts, show)
				tm = coords.Translate(show.Advance, 0).Multiply(tm)
			}
		case "'", "\"":
			if op.Operator == "\"" {
				if len(op.Operands) != 3 {
					continue
				}
				ts.WordSpacing = op.Number(0)
				ts.CharSpacing = op.Number(1)
			}
			if len(op.Operands) == 0 {
				continue
			}
			nextLine(0, -ts.Leading)
			show := t.show(i, op.Operands[len(op.Operands)-1], gs, tm)
			out.Texts = append(out.Texts, show)
			tm = coords.Translate(show.Advance, 0).Multiply(tm)

		// XObjects
		case "Do":
			name := op.Name(0)
			if name != "" && resources.IsImage(name) {
				out.Images = append(out.Images, ImageDraw{
					OpIndex: i,
					Name:    name,
					Rect:    gs.CTM.TransformRect(coords.Rect{X0: 0, Y0: 0, X1: 1, Y1: 1}),
				})
			}
		}
	}
	return out
}

// show lays out one string (Tj) or string/adjustment array (TJ) starting at tm.
func (t *Tracer) show(opIndex int, operand raw.Object, gs *GraphicsState, tm coords.Matrix) TextShow {
	ts := gs.Text
	show := TextShow{
		OpIndex:    opIndex,
		FontName:   ts.FontName,
		Font:       ts.Font,
		FontSize:   ts.FontSize,
		Matrix:     tm.Multiply(gs.CTM),
		RenderMode: ts.RenderMode,
		State:      ts,
	}
	show.EffectiveSize = ts.FontSize * show.Matrix.VerticalScale()

	var parts []raw.Object
	switch v := operand.(type) {
	case raw.StringObj:
		parts = []raw.Object{v}
	case *raw.ArrayObj:
		parts = v.Items
	}

	var text []byte
	for _, part := range parts {
		switch v := part.(type) {
		case raw.StringObj:
			if ts.Font == nil {
				continue
			}
			for _, g := range ts.Font.Glyphs(v.Bytes) {
				show.Glyphs = append(show.Glyphs, g)
				text = append(text, g.Text...)
				show.Advance += GlyphAdvance(g, ts)
			}
		case raw.NumberObj:
			show.Advance -= v.Float() / 1000 * ts.FontSize * ts.HScale
		}
	}
	show.Text = string(text)

	ascent, descent := 800.0, -200.0
	if ts.Font != nil {
		ascent, descent = ts.Font.Ascent(), ts.Font.Descent()
	}
	box := coords.Rect{
		X0: 0, Y0: ts.Rise + descent/1000*ts.FontSize,
		X1: show.Advance, Y1: ts.Rise + ascent/1000*ts.FontSize,
	}
	show.Rect = show.Matrix.TransformRect(box.Normalize())
	show.Origin = show.Matrix.Transform(coords.Point{X: 0, Y: ts.Rise})
	return show
}

// GlyphAdvance is the horizontal displacement of one glyph in unscaled text space.
func GlyphAdvance(g Glyph, ts TextState) float64 {
	tx := g.Width/1000*ts.FontSize + ts.CharSpacing
	if len(g.Code) == 1 && g.Code[0] == ' ' {
		tx += ts.WordSpacing
	}
	return tx * ts.HScale
}

func operandMatrix(op Operation) coords.Matrix {
	return coords.Matrix{op.Number(0), op.Number(1), op.Number(2), op.Number(3), op.Number(4), op.Number(5)}
}
