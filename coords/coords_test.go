package coords

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatrixMultiplyAppliesLeftFirst(t *testing.T) {
	m := Scale(2, 2).Multiply(Translate(10, 20))
	p := m.Transform(Point{X: 1, Y: 1})
	assert.Equal(t, Point{X: 12, Y: 22}, p)

	inv, err := m.Inverse()
	require.NoError(t, err)
	back := inv.Transform(p)
	assert.InDelta(t, 1, back.X, 1e-9)
	assert.InDelta(t, 1, back.Y, 1e-9)
}

func TestRectIntersectsIsStrict(t *testing.T) {
	a := Rect{X0: 0, Y0: 0, X1: 100, Y1: 105}
	tests := []struct {
		name string
		b    Rect
		want bool
	}{
		{"overlap", Rect{X0: 50, Y0: 50, X1: 150, Y1: 150}, true},
		{"touching bottom edge", Rect{X0: 0, Y0: 105, X1: 50, Y1: 155}, false},
		{"touching right edge", Rect{X0: 100, Y0: 0, X1: 150, Y1: 50}, false},
		{"disjoint", Rect{X0: 200, Y0: 200, X1: 250, Y1: 250}, false},
		{"inside", Rect{X0: 10, Y0: 10, X1: 20, Y1: 20}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, a.Intersects(tc.b))
			assert.Equal(t, tc.want, tc.b.Intersects(a))
		})
	}
}

func TestRectHelpers(t *testing.T) {
	r := Rect{X0: 10, Y0: 10, X1: 20, Y1: 30}
	assert.Equal(t, Rect{X0: 5, Y0: 5, X1: 25, Y1: 35}, r.Expand(5))
	assert.True(t, r.Expand(5).Contains(r))
	assert.False(t, r.Contains(r.Expand(1)))
	assert.Equal(t, Rect{X0: 0, Y0: 10, X1: 20, Y1: 40}, r.Union(Rect{X0: 0, Y0: 15, X1: 5, Y1: 40}))
	assert.Equal(t, Rect{}, r.Intersect(Rect{X0: 50, Y0: 50, X1: 60, Y1: 60}))
	assert.Equal(t, Rect{X0: 1, Y0: 2, X1: 3, Y1: 4}, Rect{X0: 3, Y0: 4, X1: 1, Y1: 2}.Normalize())
	assert.Equal(t, 200.0, r.Area())
}

func TestFrameRoundTrip(t *testing.T) {
	f := Frame{LLX: 0, LLY: 0, URX: 612, URY: 792}
	p := f.ToPage(Point{X: 72, Y: 720})
	assert.Equal(t, Point{X: 72, Y: 72}, p)
	assert.Equal(t, Point{X: 72, Y: 720}, f.ToPDF(p))

	pdf := f.RectToPDF(Rect{X0: 10, Y0: 10, X1: 60, Y1: 30})
	assert.Equal(t, Rect{X0: 10, Y0: 762, X1: 60, Y1: 782}, pdf)
	assert.Equal(t, Rect{X0: 10, Y0: 10, X1: 60, Y1: 30}, f.RectToPage(pdf))
}
