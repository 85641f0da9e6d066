package legend

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/renumber"
	"github.com/wudi/pdforganizer/worksheet"
)

var letter = coords.Rect{X1: 612, Y1: 792}

func TestRows(t *testing.T) {
	rows := Rows([]renumber.Replacement{
		{Number: 1, Old: "3)"},
		{Number: 2, Old: "12."},
	})
	assert.Equal(t, []Row{{New: 1, Old: "3"}, {New: 2, Old: "12"}}, rows)
	assert.Equal(t, "2: 12", rows[1].String())
}

func TestRender(t *testing.T) {
	style := DefaultStyle()
	one, err := Render([]Row{{New: 1, Old: "3"}}, style)
	require.NoError(t, err)
	two, err := Render([]Row{{New: 1, Old: "3"}, {New: 2, Old: "12"}}, style)
	require.NoError(t, err)

	assert.Greater(t, one.Bounds().Dx(), 2*style.PaddingX)
	assert.Equal(t, 2*one.Bounds().Dy()-2*style.PaddingY+style.Gap, two.Bounds().Dy())
	assert.Equal(t, style.Background, one.NRGBAAt(0, 0))

	var lit int
	b := one.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if one.NRGBAAt(x, y).R > 128 {
				lit++
			}
		}
	}
	assert.Greater(t, lit, 0, "row text drawn")

	_, err = Render(nil, style)
	assert.ErrorIs(t, err, ErrNoRows)
}

func TestFindPosition(t *testing.T) {
	t.Run("below top-left element", func(t *testing.T) {
		got, err := FindPosition(letter, []coords.Rect{{X1: 100, Y1: 100}}, 50, 50, 5)
		require.NoError(t, err)
		assert.Equal(t, coords.Rect{X0: 0, Y0: 105, X1: 50, Y1: 155}, got)
		assert.True(t, letter.Contains(got))
		assert.False(t, got.Intersects(coords.Rect{X1: 100, Y1: 105}))
	})

	t.Run("right edge when left column is full", func(t *testing.T) {
		got, err := FindPosition(letter, []coords.Rect{{X1: 300, Y1: 792}}, 50, 50, 5)
		require.NoError(t, err)
		assert.Equal(t, coords.Rect{X0: 562, Y0: 0, X1: 612, Y1: 50}, got)
	})

	t.Run("nested and duplicate boxes", func(t *testing.T) {
		boxes := []coords.Rect{
			{X1: 100, Y1: 100},
			{X0: 10, Y0: 10, X1: 20, Y1: 20},
			{X1: 100, Y1: 100},
		}
		got, err := FindPosition(letter, boxes, 50, 50, 5)
		require.NoError(t, err)
		assert.Equal(t, coords.Rect{X0: 0, Y0: 105, X1: 50, Y1: 155}, got)
	})

	t.Run("no room", func(t *testing.T) {
		_, err := FindPosition(letter, []coords.Rect{letter}, 50, 50, 5)
		var npe *NoPositionError
		require.True(t, errors.As(err, &npe))
		assert.Equal(t, "no available position for legend", err.Error())

		_, err = FindPosition(letter, nil, 700, 50, 5)
		assert.True(t, errors.As(err, &npe))
	})
}

type recorder struct {
	page int
	rect coords.Rect
	img  image.Image
	err  error
}

func (r *recorder) InsertImage(ctx context.Context, page int, rect coords.Rect, img image.Image) error {
	r.page, r.rect, r.img = page, rect, img
	return r.err
}

func TestPlace(t *testing.T) {
	first := worksheet.NumberedPage{
		Index: 0,
		Words: []worksheet.TextWord{{Text: "1)", Rect: coords.Rect{X1: 612, Y1: 40}}},
	}
	frame := coords.Frame{URX: 612, URY: 792}
	p := &Placer{Style: DefaultStyle(), Margin: DefaultMargin}

	rec := &recorder{}
	rect, err := p.Place(context.Background(), rec, first, frame, []Row{{New: 1, Old: "4"}})
	require.NoError(t, err)
	assert.Equal(t, rect, rec.rect)
	assert.Equal(t, 0.0, rect.X0)
	assert.Equal(t, 45.0, rect.Y0)
	assert.Equal(t, float64(rec.img.Bounds().Dx()), rect.Width())

	rec.err = errors.New("disk full")
	_, err = p.Place(context.Background(), rec, first, frame, []Row{{New: 1, Old: "4"}})
	assert.ErrorContains(t, err, "insert legend: disk full")
}

func TestOpacity(t *testing.T) {
	assert.Equal(t, uint8(51), Opacity(0.2))
	assert.Equal(t, uint8(255), Opacity(3))
	assert.Equal(t, color.NRGBA{A: Opacity(0.2)}, DefaultStyle().Background)
}
