package worksheet

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/extractor"
	"github.com/wudi/pdforganizer/ir/raw"
)

type fakeText struct{ content *extractor.PageContent }

func (f fakeText) Page(ctx context.Context, index int) (*extractor.PageContent, error) {
	return f.content, nil
}

type fakeImages map[int]raw.ObjectRef

func (f fakeImages) ImageRefs(int) (map[int]raw.ObjectRef, error) { return f, nil }

func TestExtractPairsPlacementsWithStreams(t *testing.T) {
	content := &extractor.PageContent{
		Words: []extractor.Word{{Text: "1)", Font: "Helvetica", Size: 12, Rect: coords.Rect{X0: 72, Y0: 90, X1: 84, Y1: 102}, Origin: coords.Point{X: 72, Y: 100}}},
		Images: []extractor.Placement{
			{ID: 1, Name: "Im1", Rect: coords.Rect{X0: 10, Y0: 20, X1: 50, Y1: 60}},
			{ID: 2, Name: "Im2", Rect: coords.Rect{X0: 0, Y0: 0, X1: 5, Y1: 5}},
		},
	}
	words, images, err := Extract(context.Background(), fakeText{content}, fakeImages{1: {Num: 7}, 2: {Num: 9}}, 0)
	require.NoError(t, err)
	require.Len(t, words, 1)
	assert.Equal(t, TextWord{Text: "1)", Font: "Helvetica", Size: 12, Rect: coords.Rect{X0: 72, Y0: 90, X1: 84, Y1: 102}, Origin: coords.Point{X: 72, Y: 100}}, words[0])
	require.Len(t, images, 2)
	assert.Equal(t, PageImage{ID: 1, Stream: raw.ObjectRef{Num: 7}, Rect: coords.Rect{X0: 10, Y0: 20, X1: 50, Y1: 60}}, images[0])
	assert.Equal(t, 2, images[1].ID)
}

func TestExtractMissingStreamIsIntegrityError(t *testing.T) {
	content := &extractor.PageContent{Images: []extractor.Placement{{ID: 1}, {ID: 2}}}
	_, _, err := Extract(context.Background(), fakeText{content}, fakeImages{1: {Num: 3}}, 4)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrIntegrity)
	var ie *IntegrityError
	require.True(t, errors.As(err, &ie))
	assert.Equal(t, 5, ie.Page)
	assert.Equal(t, 2, ie.ImageID)
	assert.Equal(t, "page 5: image 2 missing from raster backend", err.Error())
}

func TestElementAccessors(t *testing.T) {
	w := WordElement(MarkerWord{
		TextWord: TextWord{Text: "Q 7. Add", Rect: coords.Rect{Y0: 40, Y1: 52}},
		Span:     Span{Start: 2, End: 4, Text: "7."},
	})
	assert.Equal(t, KindWord, w.Kind)
	assert.Equal(t, 40.0, w.Top())
	assert.Equal(t, "7.", w.Marker())

	m := ImageElement(MarkerImage{
		PageImage: PageImage{ID: 1, Rect: coords.Rect{Y0: 300, Y1: 340}},
		Marker:    "3)",
		Region:    image.Rect(2, 2, 20, 14),
	})
	assert.Equal(t, "image", m.Kind.String())
	assert.Equal(t, 300.0, m.Top())
	assert.Equal(t, "3)", m.Marker())

	doc := NumberedDocument{Pages: []NumberedPage{{Elements: []Element{w, m}}, {}, {Elements: []Element{w}}}}
	assert.Equal(t, 3, doc.Count())
}
