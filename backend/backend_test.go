package backend

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/filters"
	"github.com/wudi/pdforganizer/fonts"
	"github.com/wudi/pdforganizer/internal/pdftest"
	"github.com/wudi/pdforganizer/ir/raw"
)

func solid(w, h int, c color.Color) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func xobjectRef(t *testing.T, doc *raw.Document, page raw.PageRef, name string) raw.ObjectRef {
	t.Helper()
	res := doc.Dict(doc.Inherited(page.Dict, "Resources"))
	xobjects := doc.Dict(doc.Get(res, "XObject"))
	require.NotNil(t, xobjects)
	v, ok := xobjects.Get(name)
	require.True(t, ok, "xobject %s", name)
	ref, ok := v.(raw.RefObj)
	require.True(t, ok)
	return ref.R
}

func canonicalFixture(t *testing.T) []byte {
	b := pdftest.New()
	first := b.NewPage(612, 792).
		DrawImage("B", solid(4, 4, color.White), coords.Rect{X0: 10, Y0: 20, X1: 50, Y1: 60}, pdftest.ImageOptions{}).
		NewContentStream().
		DrawImage("A", solid(4, 4, color.Black), coords.Rect{X0: 100, Y0: 100, X1: 140, Y1: 140}, pdftest.ImageOptions{}).
		DrawImage("C", solid(2, 2, color.Black), coords.Rect{}, pdftest.ImageOptions{Undrawn: true})
	b.NewPage(612, 792).ShareXObjects(first).Raw("q 10 0 0 10 0 0 cm /A Do Q")
	return b.Bytes(t)
}

func TestCanonicalizeNamesImagesInDrawOrder(t *testing.T) {
	ctx := context.Background()
	v, err := OpenVector(ctx, canonicalFixture(t), Options{})
	require.NoError(t, err)
	pages, err := v.Document().Pages()
	require.NoError(t, err)
	refB := xobjectRef(t, v.Document(), pages[0], "B")
	refA := xobjectRef(t, v.Document(), pages[0], "A")
	refC := xobjectRef(t, v.Document(), pages[0], "C")

	require.NoError(t, v.Canonicalize(ctx))
	data, err := v.Save(ctx)
	require.NoError(t, err)

	r, err := OpenRaster(ctx, data, Options{})
	require.NoError(t, err)
	first, err := r.ImageRefs(0)
	require.NoError(t, err)
	assert.Equal(t, map[int]raw.ObjectRef{1: refB, 2: refA, 3: refC}, first)
	second, err := r.ImageRefs(1)
	require.NoError(t, err)
	assert.Equal(t, map[int]raw.ObjectRef{1: refA, 2: refB, 3: refC}, second, "shared dictionary is copied per page")

	v2, err := OpenVector(ctx, data, Options{})
	require.NoError(t, err)
	content, err := v2.Page(ctx, 0)
	require.NoError(t, err)
	require.Len(t, content.Images, 2)
	assert.Equal(t, "Im1", content.Images[0].Name)
	assert.Equal(t, coords.Rect{X0: 10, Y0: 20, X1: 50, Y1: 60}, content.Images[0].Rect)
	assert.Equal(t, "Im2", content.Images[1].Name)

	require.NoError(t, v2.Canonicalize(ctx))
	again, err := v2.Save(ctx)
	require.NoError(t, err)
	r2, err := OpenRaster(ctx, again, Options{})
	require.NoError(t, err)
	refs, err := r2.ImageRefs(0)
	require.NoError(t, err)
	assert.Equal(t, first, refs, "canonical names are stable")

	ids, err := r2.IDs(1)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids)
}

func TestImageMissingIsReported(t *testing.T) {
	ctx := context.Background()
	r, err := OpenRaster(ctx, canonicalFixture(t), Options{})
	require.NoError(t, err)
	_, err = r.Image(0, 1)
	assert.ErrorIs(t, err, ErrImageNotFound, "names are not canonical yet")
	_, err = r.ImageRefs(5)
	assert.Error(t, err)
}

func TestRedactAndDrawText(t *testing.T) {
	ctx := context.Background()
	data := pdftest.New().NewPage(612, 792).
		DrawText("1)", 72, 100, pdftest.TextOptions{}).
		DrawText("Find x", 100, 100, pdftest.TextOptions{}).
		Finish().Bytes(t)
	reg := NewFontRegistry()
	v, err := OpenVector(ctx, data, Options{Fonts: reg})
	require.NoError(t, err)

	page, err := v.Page(ctx, 0)
	require.NoError(t, err)
	require.Len(t, page.Words, 2)
	removed, err := v.Redact(ctx, 0, page.Words[0].Rect)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	require.NoError(t, v.DrawText(ctx, 0, fonts.Helvetica, 12, coords.Point{X: 72, Y: 100}, "2)"))
	page, err = v.Page(ctx, 0)
	require.NoError(t, err)
	require.Len(t, page.Words, 2)
	assert.Equal(t, "Find x", page.Words[0].Text)
	assert.InDelta(t, 100, page.Words[0].Origin.X, 1e-6, "following text keeps its position")
	assert.Equal(t, "2)", page.Words[1].Text)
	assert.Equal(t, "Helvetica", page.Words[1].Font)
	assert.InDelta(t, 72, page.Words[1].Origin.X, 1e-6)
	assert.InDelta(t, 100, page.Words[1].Origin.Y, 1e-6)

	goRegular, err := fonts.LoadProgram("GoRegular", goregular.TTF)
	require.NoError(t, err)
	goRegular.Source = "bundled:goregular"
	require.NoError(t, v.DrawText(ctx, 0, goRegular, 14, coords.Point{X: 72, Y: 200}, "3)"))
	saved, err := v.Save(ctx)
	require.NoError(t, err)

	reopened, err := OpenVector(ctx, saved, Options{Fonts: reg})
	require.NoError(t, err)
	require.NoError(t, reopened.DrawText(ctx, 0, goRegular, 14, coords.Point{X: 72, Y: 300}, "4)"))
	assert.Equal(t, 2, reg.Len())

	embedded, err := reopened.Fonts(ctx)
	require.NoError(t, err)
	require.Len(t, embedded, 1, "the program is embedded once")
	assert.Equal(t, "FontFile2", embedded[0].Kind)
	assert.Equal(t, goRegular.Name, embedded[0].Name)

	page, err = reopened.Page(ctx, 0)
	require.NoError(t, err)
	var texts []string
	for _, w := range page.Words {
		texts = append(texts, w.Text)
	}
	assert.Equal(t, []string{"Find x", "2)", "3)", "4)"}, texts)
	assert.Equal(t, 14.0, page.Words[2].Size)
}

func TestRasterWriteRoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, tc := range []struct {
		name string
		enc  pdftest.ImageEncoding
	}{
		{"rgb", pdftest.RGB},
		{"gray", pdftest.Gray},
		{"jpeg", pdftest.JPEG},
	} {
		t.Run(tc.name, func(t *testing.T) {
			data := pdftest.New().NewPage(200, 200).
				DrawImage("Im1", solid(8, 6, color.White), coords.Rect{X0: 0, Y0: 0, X1: 80, Y1: 60}, pdftest.ImageOptions{Encoding: tc.enc}).
				Finish().Bytes(t)
			r, err := OpenRaster(ctx, data, Options{})
			require.NoError(t, err)
			ref, err := r.Image(0, 1)
			require.NoError(t, err)
			img, err := r.Decode(ctx, ref)
			require.NoError(t, err)
			assert.Equal(t, image.Rect(0, 0, 8, 6), img.Bounds())
			got := color.NRGBAModel.Convert(img.At(3, 3)).(color.NRGBA)
			assert.InDelta(t, 255, int(got.R), 2)

			edited := image.NewNRGBA(img.Bounds())
			for y := 0; y < 6; y++ {
				for x := 0; x < 8; x++ {
					edited.Set(x, y, img.At(x, y))
				}
			}
			edited.Set(2, 1, color.NRGBA{R: 10, G: 20, B: 30, A: 255})
			require.NoError(t, r.Write(ctx, ref, edited))
			saved, err := r.Save(ctx)
			require.NoError(t, err)

			back, err := OpenRaster(ctx, saved, Options{})
			require.NoError(t, err)
			decoded, err := back.Decode(ctx, ref)
			require.NoError(t, err)
			assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, decoded.At(2, 1))
			assert.Equal(t, "DeviceRGB", colorSpaceName(back.Document(), ref))
		})
	}
}

func colorSpaceName(doc *raw.Document, ref raw.ObjectRef) string {
	st := doc.Stream(raw.RefObj{R: ref})
	name, _ := raw.NameOf(doc.Get(st.Dict, "ColorSpace"))
	return name
}

func TestInsertImageKeepsSoftMaskThroughRasterWrite(t *testing.T) {
	ctx := context.Background()
	data := pdftest.New().NewPage(300, 300).DrawText("1)", 10, 20, pdftest.TextOptions{}).Finish().Bytes(t)
	v, err := OpenVector(ctx, data, Options{})
	require.NoError(t, err)
	overlay := solid(20, 10, color.NRGBA{A: 51})
	require.NoError(t, v.InsertImage(ctx, 0, coords.Rect{X0: 100, Y0: 50, X1: 120, Y1: 60}, overlay))
	saved, err := v.Save(ctx)
	require.NoError(t, err)

	v2, err := OpenVector(ctx, saved, Options{})
	require.NoError(t, err)
	page, err := v2.Page(ctx, 0)
	require.NoError(t, err)
	require.Len(t, page.Images, 1)
	assert.Equal(t, "OrgLegend", page.Images[0].Name)
	assert.Equal(t, coords.Rect{X0: 100, Y0: 50, X1: 120, Y1: 60}, page.Images[0].Rect)

	r, err := OpenRaster(ctx, saved, Options{})
	require.NoError(t, err)
	pages, err := r.Document().Pages()
	require.NoError(t, err)
	ref := xobjectRef(t, r.Document(), pages[0], "OrgLegend")
	img, err := r.Decode(ctx, ref)
	require.NoError(t, err)
	require.NoError(t, r.Write(ctx, ref, img))
	st := r.Document().Stream(raw.RefObj{R: ref})
	_, ok := st.Dict.Get("SMask")
	assert.True(t, ok)
}

func TestDecodeSampleLayouts(t *testing.T) {
	ctx := context.Background()
	doc := raw.NewDocument()
	stream := func(w, h, bpc int, cs raw.Object, samples []byte, extra map[string]raw.Object) *raw.StreamObj {
		d := raw.Dict()
		d.Set("Subtype", raw.NameLiteral("Image"))
		d.Set("Width", raw.NumberInt(int64(w)))
		d.Set("Height", raw.NumberInt(int64(h)))
		d.Set("BitsPerComponent", raw.NumberInt(int64(bpc)))
		if cs != nil {
			d.Set("ColorSpace", cs)
		}
		for k, v := range extra {
			d.Set(k, v)
		}
		return raw.NewStream(d, samples)
	}
	pipeline := filters.Default()

	t.Run("one bit gray", func(t *testing.T) {
		img, err := decodeImage(ctx, doc, pipeline, stream(10, 1, 1, raw.NameLiteral("DeviceGray"), []byte{0x80, 0x40}, nil))
		require.NoError(t, err)
		assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.At(0, 0))
		assert.Equal(t, color.NRGBA{A: 255}, img.At(1, 0))
		assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, img.At(9, 0))
	})

	t.Run("inverted decode", func(t *testing.T) {
		img, err := decodeImage(ctx, doc, pipeline, stream(1, 1, 8, raw.NameLiteral("DeviceGray"), []byte{200},
			map[string]raw.Object{"Decode": raw.Numbers(1, 0)}))
		require.NoError(t, err)
		assert.Equal(t, color.NRGBA{R: 55, G: 55, B: 55, A: 255}, img.At(0, 0))
	})

	t.Run("indexed", func(t *testing.T) {
		cs := raw.NewArray(raw.NameLiteral("Indexed"), raw.NameLiteral("DeviceRGB"), raw.NumberInt(1),
			raw.Str([]byte{255, 0, 0, 0, 0, 255}))
		img, err := decodeImage(ctx, doc, pipeline, stream(2, 1, 8, cs, []byte{1, 0}, nil))
		require.NoError(t, err)
		assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.At(0, 0))
		assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.At(1, 0))
	})

	t.Run("icc based", func(t *testing.T) {
		profile := raw.Dict()
		profile.Set("N", raw.NumberInt(4))
		ref := doc.Add(raw.NewStream(profile, nil))
		cs := raw.NewArray(raw.NameLiteral("ICCBased"), ref)
		img, err := decodeImage(ctx, doc, pipeline, stream(1, 1, 8, cs, []byte{0, 0, 0, 255}, nil))
		require.NoError(t, err)
		assert.Equal(t, color.NRGBA{A: 255}, img.At(0, 0))
	})

	t.Run("unsupported", func(t *testing.T) {
		_, err := decodeImage(ctx, doc, pipeline, stream(1, 1, 8, raw.NameLiteral("Pattern"), []byte{0}, nil))
		assert.ErrorIs(t, err, ErrUnsupportedImage)
		_, err = decodeImage(ctx, doc, pipeline, stream(4, 4, 8, raw.NameLiteral("DeviceRGB"), []byte{1, 2}, nil))
		assert.ErrorIs(t, err, ErrUnsupportedImage)
		_, err = decodeImage(ctx, doc, pipeline, stream(0, 4, 8, raw.NameLiteral("DeviceRGB"), nil, nil))
		assert.Error(t, err)
	})
}
