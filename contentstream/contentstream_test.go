package contentstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/ir/raw"
)

// fixedFont maps each byte to its ASCII character with a 500 unit width.
type fixedFont struct{}

func (fixedFont) Glyphs(s []byte) []Glyph {
	out := make([]Glyph, len(s))
	for i, b := range s {
		out[i] = Glyph{Code: []byte{b}, Text: string(rune(b)), Width: 500}
	}
	return out
}
func (fixedFont) Ascent() float64  { return 800 }
func (fixedFont) Descent() float64 { return -200 }

type testResources struct{}

func (testResources) Font(name string) Font {
	if name == "F1" {
		return fixedFont{}
	}
	return nil
}
func (testResources) IsImage(name string) bool { return name == "Im1" }

func TestParseAndSerialize(t *testing.T) {
	src := "q 1 0 0 1 10 20 cm BT /F1 12 Tf [(A) -250 (B)] TJ ET Q /Im1 Do 0 0 1 RG"
	ops, err := Parse([]byte(src))
	require.NoError(t, err)

	var names []string
	for _, op := range ops {
		names = append(names, op.Operator)
	}
	assert.Equal(t, []string{"q", "cm", "BT", "Tf", "TJ", "ET", "Q", "Do", "RG"}, names)
	assert.Len(t, ops[1].Operands, 6)
	assert.Equal(t, "Im1", ops[7].Name(0))
	assert.Len(t, ops[8].Operands, 3)

	again, err := Parse(Serialize(ops))
	require.NoError(t, err)
	assert.Equal(t, ops, again)
}

func TestParseInlineImageRoundTrip(t *testing.T) {
	src := "q BI /W 2 /H 1 /BPC 8 /CS /G ID \x00\xff\nEI Q"
	ops, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, ops, 3)
	assert.Equal(t, "BI", ops[1].Operator)
	assert.Equal(t, []byte("\x00\xff"), ops[1].Inline)
	w, _ := raw.IntOf(ops[1].Operands[0].(*raw.DictObj).KV["W"])
	assert.Equal(t, int64(2), w)

	again, err := Parse(Serialize(ops))
	require.NoError(t, err)
	assert.Equal(t, ops, again)
}

func TestParseDropsMalformedOperands(t *testing.T) {
	ops, err := Parse([]byte("] (a) Tj 5"))
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, "Tj", ops[0].Operator)
}

func TestTracerTextGeometry(t *testing.T) {
	ops, err := Parse([]byte("BT /F1 10 Tf 100 Tz 1 0 0 1 100 700 Tm [(AB) -1000 (C)] TJ (D) Tj ET"))
	require.NoError(t, err)

	tr := NewTracer().Trace(ops, testResources{})
	require.Len(t, tr.Texts, 2)

	first := tr.Texts[0]
	assert.Equal(t, "ABC", first.Text)
	// three glyphs of 5pt plus a 10pt gap
	assert.InDelta(t, 25, first.Advance, 1e-9)
	assert.Equal(t, coords.Point{X: 100, Y: 700}, first.Origin)
	assert.InDelta(t, 698, first.Rect.Y0, 1e-9)
	assert.InDelta(t, 708, first.Rect.Y1, 1e-9)
	assert.InDelta(t, 10, first.EffectiveSize, 1e-9)

	second := tr.Texts[1]
	assert.Equal(t, "D", second.Text)
	assert.InDelta(t, 125, second.Origin.X, 1e-9)
}

func TestTracerQuoteOperatorsAndImages(t *testing.T) {
	src := "q 2 0 0 2 0 0 cm BT /F1 10 Tf 14 TL 0 100 Td (a) ' 3 1 (b) \" ET Q q 50 0 0 40 10 20 cm /Im1 Do /Fm0 Do Q"
	ops, err := Parse([]byte(src))
	require.NoError(t, err)
	tr := NewTracer().Trace(ops, testResources{})

	require.Len(t, tr.Texts, 2)
	assert.Equal(t, coords.Point{X: 0, Y: 172}, tr.Texts[0].Origin)
	assert.InDelta(t, 20, tr.Texts[0].EffectiveSize, 1e-9)
	// the " operator sets Tw and Tc before showing
	assert.Equal(t, 3.0, tr.Texts[1].State.WordSpacing)
	assert.Equal(t, 1.0, tr.Texts[1].State.CharSpacing)
	assert.InDelta(t, 144, tr.Texts[1].Origin.Y, 1e-9)

	require.Len(t, tr.Images, 1)
	assert.Equal(t, coords.Rect{X0: 10, Y0: 20, X1: 60, Y1: 60}, tr.Images[0].Rect)
	assert.Len(t, tr.Boxes(), 3)
}

func TestGraphicsStateRestoreOnEmptyStack(t *testing.T) {
	gs := NewGraphicsState()
	assert.Error(t, gs.Restore())
	gs.Save()
	gs.Text.FontSize = 12
	require.NoError(t, gs.Restore())
	assert.Equal(t, 0.0, gs.Text.FontSize)
}
