package backend

import (
	"context"
	"fmt"
	"image"
	"sort"

	"github.com/wudi/pdforganizer/ir/raw"
)

// Raster edits the samples of image XObjects.
type Raster struct {
	document
}

// OpenRaster parses data into a raster backend.
func OpenRaster(ctx context.Context, data []byte, opts Options) (*Raster, error) {
	d, err := open(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	return &Raster{document: d}, nil
}

// ImageRefs maps the canonical image ids of page index to their streams.
func (r *Raster) ImageRefs(index int) (map[int]raw.ObjectRef, error) {
	page, err := r.page(index)
	if err != nil {
		return nil, err
	}
	out := make(map[int]raw.ObjectRef)
	res := r.doc.Dict(r.doc.Inherited(page.Dict, "Resources"))
	xobjects := r.doc.Dict(r.doc.Get(res, "XObject"))
	if xobjects == nil {
		return out, nil
	}
	for _, name := range xobjects.Keys() {
		id, ok := imageID(name)
		if !ok {
			continue
		}
		val, _ := xobjects.Get(name)
		ref, ok := val.(raw.RefObj)
		if !ok {
			continue
		}
		st := r.doc.Stream(ref)
		if st == nil {
			continue
		}
		if subtype, _ := raw.NameOf(r.doc.Get(st.Dict, "Subtype")); subtype != "Image" {
			continue
		}
		out[id] = ref.R
	}
	return out, nil
}

// IDs lists the canonical image ids of page index in ascending order.
func (r *Raster) IDs(index int) ([]int, error) {
	refs, err := r.ImageRefs(index)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(refs))
	for id := range refs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Image returns the stream of image id on page index.
func (r *Raster) Image(index, id int) (raw.ObjectRef, error) {
	refs, err := r.ImageRefs(index)
	if err != nil {
		return raw.ObjectRef{}, err
	}
	ref, ok := refs[id]
	if !ok {
		return raw.ObjectRef{}, fmt.Errorf("page %d image %d: %w", index+1, id, ErrImageNotFound)
	}
	return ref, nil
}

// Decode rasterizes the image stream ref.
func (r *Raster) Decode(ctx context.Context, ref raw.ObjectRef) (image.Image, error) {
	st := r.doc.Stream(raw.RefObj{R: ref})
	if st == nil {
		return nil, fmt.Errorf("object %s: %w", ref, ErrImageNotFound)
	}
	img, err := decodeImage(ctx, r.doc, r.opts.Filters, st)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", ref, err)
	}
	return img, nil
}

// Write replaces the samples of stream ref with img as Flate-encoded
// 8-bit DeviceRGB. A soft mask stays attached.
func (r *Raster) Write(ctx context.Context, ref raw.ObjectRef, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	old := r.doc.Stream(raw.RefObj{R: ref})
	if old == nil {
		return fmt.Errorf("object %s: %w", ref, ErrImageNotFound)
	}
	b := img.Bounds()
	samples := make([]byte, 0, b.Dx()*b.Dy()*3)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := nrgbaAt(img, x, y)
			samples = append(samples, c.R, c.G, c.B)
		}
	}
	st, err := sampleStream(b.Dx(), b.Dy(), "DeviceRGB", samples)
	if err != nil {
		return fmt.Errorf("encode image %s: %w", ref, err)
	}
	for _, key := range []string{"SMask", "Interpolate", "Intent", "Metadata"} {
		if v, ok := old.Dict.Get(key); ok {
			st.Dict.Set(key, v)
		}
	}
	r.doc.Objects[ref] = st
	return nil
}
