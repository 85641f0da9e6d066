package sequence

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/worksheet"
)

// stubImages reports a marker for every image id listed.
type stubImages map[int]string

func (s stubImages) Detect(ctx context.Context, page int, img worksheet.PageImage) (worksheet.Element, bool, error) {
	marker, ok := s[img.ID]
	if !ok {
		return worksheet.Element{}, false, nil
	}
	return worksheet.ImageElement(worksheet.MarkerImage{PageImage: img, Marker: marker}), true, nil
}

func word(text string, top float64) worksheet.TextWord {
	return worksheet.TextWord{Text: text, Rect: coords.Rect{X0: 10, Y0: top, X1: 30, Y1: top + 12}}
}

func picture(id int, top float64) worksheet.PageImage {
	return worksheet.PageImage{ID: id, Rect: coords.Rect{X0: 100, Y0: top, X1: 200, Y1: top + 40}}
}

func markersOf(p worksheet.NumberedPage) []string {
	var out []string
	for _, e := range p.Elements {
		out = append(out, e.Marker())
	}
	return out
}

func TestBuildPageDedupThreshold(t *testing.T) {
	for _, tc := range []struct {
		name     string
		imageTop float64
		want     []string
	}{
		{"at threshold", 125, []string{"1)"}},
		{"past threshold", 126, []string{"1)", "9)"}},
		{"above text", 74, []string{"9)", "1)"}},
		{"exactly level", 100, []string{"1)"}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			b := New(stubImages{1: "9)"}, nil)
			page, err := b.BuildPage(context.Background(), 0,
				[]worksheet.TextWord{word("1)", 100), word("Solve", 100)},
				[]worksheet.PageImage{picture(1, tc.imageTop)})
			require.NoError(t, err)
			assert.Equal(t, tc.want, markersOf(page))
		})
	}
}

func TestBuildPageOrdersByTop(t *testing.T) {
	b := New(stubImages{1: "5)", 2: "6)"}, nil)
	page, err := b.BuildPage(context.Background(), 0,
		[]worksheet.TextWord{word("3)", 400), word("1)", 10), word("2.", 200), word("12", 50)},
		[]worksheet.PageImage{picture(1, 600), picture(2, 300), picture(3, 20)})
	require.NoError(t, err)
	assert.Equal(t, []string{"1)", "2.", "6)", "3)", "5)"}, markersOf(page))
	for i := 1; i < len(page.Elements); i++ {
		assert.LessOrEqual(t, page.Elements[i-1].Top(), page.Elements[i].Top())
	}
	assert.Len(t, page.Words, 4)
	assert.Len(t, page.Images, 3)
}

func TestBuildPageKeepsImagesWithoutTextMarkers(t *testing.T) {
	b := New(stubImages{1: "1)", 2: "2)"}, nil)
	page, err := b.BuildPage(context.Background(), 2, []worksheet.TextWord{word("intro", 5)},
		[]worksheet.PageImage{picture(2, 10), picture(1, 12)})
	require.NoError(t, err)
	assert.Equal(t, []string{"2)", "1)"}, markersOf(page))
	assert.Equal(t, 2, page.Index)
}

type stubSource struct {
	pages [][]worksheet.TextWord
	err   error
}

func (s stubSource) PageCount() int { return len(s.pages) }

func (s stubSource) Extract(ctx context.Context, i int) ([]worksheet.TextWord, []worksheet.PageImage, error) {
	if s.err != nil && i == 1 {
		return nil, nil, s.err
	}
	var images []worksheet.PageImage
	if i == 1 {
		images = []worksheet.PageImage{picture(1, 100)}
	}
	return s.pages[i], images, nil
}

func TestBuildDocumentPerPage(t *testing.T) {
	b := New(stubImages{1: "7)"}, nil)
	src := stubSource{pages: [][]worksheet.TextWord{
		{word("2)", 300), word("1)", 100)},
		{},
		{word("3.", 50)},
	}}
	doc, err := b.BuildDocument(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, doc.Pages, 3)
	assert.Equal(t, []string{"1)", "2)"}, markersOf(doc.Pages[0]))
	assert.Equal(t, []string{"7)"}, markersOf(doc.Pages[1]), "no dedup against the previous page")
	assert.Equal(t, []string{"3."}, markersOf(doc.Pages[2]))
	assert.Equal(t, 4, doc.Count())

	src.err = errors.New("boom")
	_, err = b.BuildDocument(context.Background(), src)
	assert.ErrorContains(t, err, "extract page 2: boom")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.BuildDocument(ctx, src)
	assert.ErrorIs(t, err, context.Canceled)
}
