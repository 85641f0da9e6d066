package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/wudi/pdforganizer/filters"
	"github.com/wudi/pdforganizer/ir/raw"
)

// ErrUnsupportedImage is returned for color spaces or sample layouts the
// raster backend cannot decode.
var ErrUnsupportedImage = errors.New("unsupported image")

type colorModel int

const (
	modelGray colorModel = iota
	modelRGB
	modelCMYK
	modelIndexed
)

type colorSpace struct {
	model colorModel
	// indexed only
	base    *colorSpace
	hival   int
	palette []byte
}

func (cs *colorSpace) components() int {
	switch cs.model {
	case modelRGB:
		return 3
	case modelCMYK:
		return 4
	}
	return 1
}

func decodeImage(ctx context.Context, doc *raw.Document, pipeline *filters.Pipeline, st *raw.StreamObj) (image.Image, error) {
	width64, _ := raw.IntOf(doc.Get(st.Dict, "Width"))
	height64, _ := raw.IntOf(doc.Get(st.Dict, "Height"))
	width, height := int(width64), int(height64)
	if err := filters.ValidateImageBounds(width, height); err != nil {
		return nil, err
	}
	data, imageFilter, err := pipeline.DecodeStream(ctx, st, doc.Resolve)
	if err != nil {
		return nil, err
	}
	switch imageFilter {
	case "":
	case "DCTDecode":
		return jpeg.Decode(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("%s: %w", imageFilter, filters.ErrUnsupportedFilter)
	}

	bpc64, ok := raw.IntOf(doc.Get(st.Dict, "BitsPerComponent"))
	if !ok {
		bpc64 = 8
	}
	bpc := int(bpc64)
	if mask, _ := doc.Resolve(doc.Get(st.Dict, "ImageMask")).(raw.BoolObj); mask.Value() {
		return decodeSamples(data, width, height, 1, &colorSpace{model: modelGray}, invertDecode(doc, st))
	}
	cs, err := parseColorSpace(ctx, doc, pipeline, doc.Get(st.Dict, "ColorSpace"), 0)
	if err != nil {
		return nil, err
	}
	return decodeSamples(data, width, height, bpc, cs, invertDecode(doc, st))
}

// invertDecode reports a /Decode [1 0] array on a single-component image.
// Image mask samples of 0 are painted, which already maps to black.
func invertDecode(doc *raw.Document, st *raw.StreamObj) bool {
	arr := doc.Array(doc.Get(st.Dict, "Decode"))
	if arr == nil || len(arr.Items) != 2 {
		return false
	}
	lo, _ := raw.FloatOf(doc.Resolve(arr.Items[0]))
	hi, _ := raw.FloatOf(doc.Resolve(arr.Items[1]))
	return lo > hi
}

func parseColorSpace(ctx context.Context, doc *raw.Document, pipeline *filters.Pipeline, obj raw.Object, depth int) (*colorSpace, error) {
	if depth > 4 {
		return nil, fmt.Errorf("color space nesting: %w", ErrUnsupportedImage)
	}
	obj = doc.Resolve(obj)
	if name, ok := raw.NameOf(obj); ok {
		switch name {
		case "DeviceGray", "CalGray", "G":
			return &colorSpace{model: modelGray}, nil
		case "DeviceRGB", "CalRGB", "RGB":
			return &colorSpace{model: modelRGB}, nil
		case "DeviceCMYK", "CMYK":
			return &colorSpace{model: modelCMYK}, nil
		}
		return nil, fmt.Errorf("color space %s: %w", name, ErrUnsupportedImage)
	}
	arr, ok := obj.(*raw.ArrayObj)
	if !ok || len(arr.Items) == 0 {
		return &colorSpace{model: modelGray}, nil
	}
	family, _ := raw.NameOf(doc.Resolve(arr.Items[0]))
	switch family {
	case "CalGray":
		return &colorSpace{model: modelGray}, nil
	case "CalRGB":
		return &colorSpace{model: modelRGB}, nil
	case "ICCBased":
		if len(arr.Items) < 2 {
			return nil, fmt.Errorf("ICCBased without profile: %w", ErrUnsupportedImage)
		}
		profile := doc.Stream(arr.Items[1])
		if profile == nil {
			return nil, fmt.Errorf("ICCBased profile missing: %w", ErrUnsupportedImage)
		}
		if n, ok := raw.IntOf(doc.Get(profile.Dict, "N")); ok {
			switch n {
			case 1:
				return &colorSpace{model: modelGray}, nil
			case 3:
				return &colorSpace{model: modelRGB}, nil
			case 4:
				return &colorSpace{model: modelCMYK}, nil
			}
		}
		if alt := doc.Get(profile.Dict, "Alternate"); alt != nil {
			return parseColorSpace(ctx, doc, pipeline, alt, depth+1)
		}
		return nil, fmt.Errorf("ICCBased component count: %w", ErrUnsupportedImage)
	case "Indexed", "I":
		if len(arr.Items) < 4 {
			return nil, fmt.Errorf("Indexed color space is short: %w", ErrUnsupportedImage)
		}
		base, err := parseColorSpace(ctx, doc, pipeline, arr.Items[1], depth+1)
		if err != nil {
			return nil, err
		}
		if base.model == modelIndexed {
			return nil, fmt.Errorf("nested Indexed color space: %w", ErrUnsupportedImage)
		}
		hival, _ := raw.IntOf(doc.Resolve(arr.Items[2]))
		var palette []byte
		switch lookup := doc.Resolve(arr.Items[3]).(type) {
		case raw.StringObj:
			palette = lookup.Value()
		case *raw.StreamObj:
			data, imageFilter, err := pipeline.DecodeStream(ctx, lookup, doc.Resolve)
			if err != nil {
				return nil, fmt.Errorf("Indexed lookup: %w", err)
			}
			if imageFilter != "" {
				return nil, fmt.Errorf("Indexed lookup %s: %w", imageFilter, filters.ErrUnsupportedFilter)
			}
			palette = data
		}
		return &colorSpace{model: modelIndexed, base: base, hival: int(hival), palette: palette}, nil
	}
	return nil, fmt.Errorf("color space %s: %w", family, ErrUnsupportedImage)
}

// decodeSamples unpacks rows of bpc-bit samples into an NRGBA image.
func decodeSamples(data []byte, width, height, bpc int, cs *colorSpace, invert bool) (image.Image, error) {
	switch bpc {
	case 1, 2, 4, 8, 16:
	default:
		return nil, fmt.Errorf("%d bits per component: %w", bpc, ErrUnsupportedImage)
	}
	if bpc != 8 && bpc != 16 && cs.model != modelGray && cs.model != modelIndexed {
		return nil, fmt.Errorf("%d-bit color samples: %w", bpc, ErrUnsupportedImage)
	}
	comps := cs.components()
	stride := (width*comps*bpc + 7) / 8
	if len(data) < stride*height {
		return nil, fmt.Errorf("sample data %d bytes, need %d: %w", len(data), stride*height, ErrUnsupportedImage)
	}
	maxVal := (1 << bpc) - 1
	sample := func(row []byte, i int) int {
		switch bpc {
		case 8:
			return int(row[i])
		case 16:
			return int(row[2*i])<<8 | int(row[2*i+1])
		}
		bit := i * bpc
		shift := 8 - bpc - bit%8
		return int(row[bit/8]>>shift) & maxVal
	}
	scale := func(v int) uint8 {
		if bpc == 8 {
			return uint8(v)
		}
		return uint8(v * 255 / maxVal)
	}

	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := data[y*stride : (y+1)*stride]
		for x := 0; x < width; x++ {
			var c color.NRGBA
			switch cs.model {
			case modelGray:
				g := scale(sample(row, x))
				if invert {
					g = 255 - g
				}
				c = color.NRGBA{R: g, G: g, B: g, A: 255}
			case modelRGB:
				c = color.NRGBA{R: scale(sample(row, 3*x)), G: scale(sample(row, 3*x+1)), B: scale(sample(row, 3*x+2)), A: 255}
			case modelCMYK:
				c = cmykToNRGBA(scale(sample(row, 4*x)), scale(sample(row, 4*x+1)), scale(sample(row, 4*x+2)), scale(sample(row, 4*x+3)))
			case modelIndexed:
				c = cs.lookup(sample(row, x))
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img, nil
}

func (cs *colorSpace) lookup(index int) color.NRGBA {
	if index > cs.hival {
		index = cs.hival
	}
	n := cs.base.components()
	off := index * n
	if off < 0 || off+n > len(cs.palette) {
		return color.NRGBA{A: 255}
	}
	p := cs.palette[off : off+n]
	switch cs.base.model {
	case modelRGB:
		return color.NRGBA{R: p[0], G: p[1], B: p[2], A: 255}
	case modelCMYK:
		return cmykToNRGBA(p[0], p[1], p[2], p[3])
	}
	return color.NRGBA{R: p[0], G: p[0], B: p[0], A: 255}
}

func cmykToNRGBA(c, m, y, k uint8) color.NRGBA {
	r, g, b := color.CMYKToRGB(c, m, y, k)
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}

func nrgbaAt(img image.Image, x, y int) color.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n.NRGBAAt(x, y)
	}
	return color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
}

// sampleStream builds an 8-bit Flate-encoded image XObject.
func sampleStream(width, height int, colorSpace string, samples []byte) (*raw.StreamObj, error) {
	data, err := filters.FlateEncode(samples)
	if err != nil {
		return nil, err
	}
	dict := raw.Dict()
	dict.Set("Type", raw.NameLiteral("XObject"))
	dict.Set("Subtype", raw.NameLiteral("Image"))
	dict.Set("Width", raw.NumberInt(int64(width)))
	dict.Set("Height", raw.NumberInt(int64(height)))
	dict.Set("ColorSpace", raw.NameLiteral(colorSpace))
	dict.Set("BitsPerComponent", raw.NumberInt(8))
	dict.Set("Filter", raw.NameLiteral("FlateDecode"))
	return raw.NewStream(dict, data), nil
}
