package backend

import (
	"context"
	"fmt"
	"image"
	"strconv"

	"github.com/wudi/pdforganizer/contentstream"
	"github.com/wudi/pdforganizer/contentstream/editor"
	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/extractor"
	"github.com/wudi/pdforganizer/filters"
	"github.com/wudi/pdforganizer/fonts"
	"github.com/wudi/pdforganizer/ir/raw"
	"github.com/wudi/pdforganizer/observability"
)

// Vector edits page content: text extraction, redaction, drawing text and
// overlay images, and canonical image naming.
type Vector struct {
	document
}

// OpenVector parses data into a vector backend.
func OpenVector(ctx context.Context, data []byte, opts Options) (*Vector, error) {
	d, err := open(ctx, data, opts)
	if err != nil {
		return nil, err
	}
	return &Vector{document: d}, nil
}

// Page extracts the words and image placements of page index.
func (v *Vector) Page(ctx context.Context, index int) (*extractor.PageContent, error) {
	ex, err := v.extractor()
	if err != nil {
		return nil, err
	}
	return ex.Page(ctx, index)
}

// Redact erases the text shows inside rect (page space) on page index and
// commits the rewritten content. It reports how many shows were removed.
func (v *Vector) Redact(ctx context.Context, index int, rect coords.Rect) (int, error) {
	page, err := v.page(index)
	if err != nil {
		return 0, err
	}
	ex, err := v.extractor()
	if err != nil {
		return 0, err
	}
	ops, err := ex.Operations(ctx, index)
	if err != nil {
		return 0, fmt.Errorf("page %d: %w", index, err)
	}
	res, err := ex.Resources(ctx, index)
	if err != nil {
		return 0, err
	}
	frame, err := ex.Frame(index)
	if err != nil {
		return 0, err
	}
	out, removed := editor.RedactText(ops, res, frame.RectToPDF(frame.Bounds()), frame.RectToPDF(rect))
	if removed == 0 {
		return 0, nil
	}
	if err := v.setContent(page, out); err != nil {
		return 0, fmt.Errorf("page %d: %w", index, err)
	}
	return removed, nil
}

// DrawText shows text in black with program p at size, baseline origin at
// origin (page space).
func (v *Vector) DrawText(ctx context.Context, index int, p *fonts.Program, size float64, origin coords.Point, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	page, err := v.page(index)
	if err != nil {
		return err
	}
	encoded, err := p.Encode(text)
	if err != nil {
		return fmt.Errorf("encode %q for %s: %w", text, p.Name, err)
	}
	name, ref, err := v.fontResource(p)
	if err != nil {
		return fmt.Errorf("embed font %s: %w", p.Name, err)
	}
	res := v.ownResources(page)
	fontDict := v.ownSubDict(res, "Font")
	name = freeName(fontDict, name, ref)
	fontDict.Set(name, ref)

	frame := v.frame(page)
	return v.appendContent(page, editor.TextOps(name, size, frame.ToPDF(origin), encoded))
}

// InsertImage draws img over page index into rect (page space). Alpha is
// kept in a soft mask.
func (v *Vector) InsertImage(ctx context.Context, index int, rect coords.Rect, img image.Image) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	page, err := v.page(index)
	if err != nil {
		return err
	}
	ref, err := v.addOverlay(img)
	if err != nil {
		return err
	}
	res := v.ownResources(page)
	xobjects := v.ownSubDict(res, "XObject")
	name := freeName(xobjects, "OrgLegend", ref)
	xobjects.Set(name, ref)

	frame := v.frame(page)
	return v.appendContent(page, editor.ImageOps(name, frame.RectToPDF(rect)))
}

func (v *Vector) addOverlay(img image.Image) (raw.RefObj, error) {
	b := img.Bounds()
	if err := filters.ValidateImageBounds(b.Dx(), b.Dy()); err != nil {
		return raw.RefObj{}, err
	}
	rgb := make([]byte, 0, b.Dx()*b.Dy()*3)
	alpha := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := nrgbaAt(img, x, y)
			rgb = append(rgb, c.R, c.G, c.B)
			alpha = append(alpha, c.A)
		}
	}
	mask, err := sampleStream(b.Dx(), b.Dy(), "DeviceGray", alpha)
	if err != nil {
		return raw.RefObj{}, err
	}
	st, err := sampleStream(b.Dx(), b.Dy(), "DeviceRGB", rgb)
	if err != nil {
		return raw.RefObj{}, err
	}
	st.Dict.Set("SMask", v.doc.Add(mask))
	return v.doc.Add(st), nil
}

func (v *Vector) frame(page raw.PageRef) coords.Frame {
	box := v.doc.Array(v.doc.Inherited(page.Dict, "MediaBox"))
	if box == nil || len(box.Items) != 4 {
		return coords.DefaultFrame
	}
	var n [4]float64
	for i, item := range box.Items {
		n[i], _ = raw.FloatOf(v.doc.Resolve(item))
	}
	r := coords.Rect{X0: n[0], Y0: n[1], X1: n[2], Y1: n[3]}.Normalize()
	if r.IsEmpty() {
		return coords.DefaultFrame
	}
	return coords.Frame{LLX: r.X0, LLY: r.Y0, URX: r.X1, URY: r.Y1}
}

// setContent replaces the page content with a single Flate stream.
func (v *Vector) setContent(page raw.PageRef, ops []contentstream.Operation) error {
	ref, err := v.addContentStream(ops)
	if err != nil {
		return err
	}
	page.Dict.Set("Contents", ref)
	return nil
}

// appendContent adds ops as a new stream after the existing content.
func (v *Vector) appendContent(page raw.PageRef, ops []contentstream.Operation) error {
	ref, err := v.addContentStream(ops)
	if err != nil {
		return err
	}
	contents := raw.NewArray()
	current, _ := page.Dict.Get("Contents")
	switch resolved := v.doc.Resolve(current).(type) {
	case *raw.ArrayObj:
		contents.Items = append(contents.Items, resolved.Items...)
	case *raw.StreamObj:
		contents.Append(current)
	}
	contents.Append(ref)
	page.Dict.Set("Contents", contents)
	return nil
}

func (v *Vector) addContentStream(ops []contentstream.Operation) (raw.RefObj, error) {
	data, err := filters.FlateEncode(contentstream.Serialize(ops))
	if err != nil {
		return raw.RefObj{}, err
	}
	dict := raw.Dict()
	dict.Set("Filter", raw.NameLiteral("FlateDecode"))
	return v.doc.Add(raw.NewStream(dict, data)), nil
}

// freeName returns name, or name with a numeric suffix when the resource
// dictionary already binds name to a different object.
func freeName(dict *raw.DictObj, name string, ref raw.RefObj) string {
	candidate := name
	for i := 2; ; i++ {
		cur, ok := dict.Get(candidate)
		if !ok {
			return candidate
		}
		if r, isRef := cur.(raw.RefObj); isRef && r.R == ref.R {
			return candidate
		}
		candidate = name + "_" + strconv.Itoa(i)
	}
}

// Canonicalize rewrites every page so its content is one stream wrapped in
// q ... Q and its image XObjects are named Im1..ImK in first-draw order,
// undrawn images following by name. Each page gets its own XObject
// dictionary. Running it again keeps the same names.
func (v *Vector) Canonicalize(ctx context.Context) error {
	ex, err := v.extractor()
	if err != nil {
		return err
	}
	for i, page := range v.pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		ops, err := ex.Operations(ctx, i)
		if err != nil {
			return fmt.Errorf("canonicalize page %d: %w", i, err)
		}
		res, err := ex.Resources(ctx, i)
		if err != nil {
			return fmt.Errorf("canonicalize page %d: %w", i, err)
		}
		order := extractor.DrawOrder(contentstream.NewTracer().Trace(ops, res))

		resDict := v.ownResources(page)
		renames := v.renameXObjects(resDict, order, res)
		for j, op := range ops {
			if op.Operator != "Do" {
				continue
			}
			if to, ok := renames[op.Name(0)]; ok {
				ops[j] = contentstream.Op("Do", raw.NameLiteral(to))
			}
		}
		if err := v.setContent(page, editor.Wrap(ops)); err != nil {
			return fmt.Errorf("canonicalize page %d: %w", i, err)
		}
		v.log.Debug("page canonicalized",
			observability.Int("page", i+1),
			observability.Int("images", len(order)))
	}
	return nil
}

// renameXObjects installs a fresh XObject dictionary on resDict and returns
// the old-to-new name mapping. Form XObjects keep their names unless one
// collides with a canonical image name.
func (v *Vector) renameXObjects(resDict *raw.DictObj, order []string, res *extractor.PageResources) map[string]string {
	renames := make(map[string]string)
	old := v.doc.Dict(v.doc.Get(resDict, "XObject"))
	if old == nil {
		return renames
	}
	drawn := make(map[string]bool, len(order))
	for _, name := range order {
		drawn[name] = true
	}
	names := append([]string(nil), order...)
	for _, name := range old.Keys() {
		if res.IsImage(name) && !drawn[name] {
			names = append(names, name)
		}
	}

	fresh := raw.Dict()
	for i, name := range names {
		val, ok := old.Get(name)
		if !ok {
			continue
		}
		to := imageName(i + 1)
		fresh.Set(to, v.indirect(val))
		if to != name {
			renames[name] = to
		}
	}
	for _, name := range old.Keys() {
		if res.IsImage(name) {
			continue
		}
		val, _ := old.Get(name)
		to := name
		for n := 1; ; n++ {
			if _, taken := fresh.Get(to); !taken {
				break
			}
			to = "Fm" + name + "_" + strconv.Itoa(n)
		}
		fresh.Set(to, val)
		if to != name {
			renames[name] = to
		}
	}
	resDict.Set("XObject", fresh)
	return renames
}

// indirect stores a direct object under its own number so it has a stable
// handle.
func (v *Vector) indirect(o raw.Object) raw.Object {
	if _, ok := o.(raw.RefObj); ok {
		return o
	}
	return v.doc.Add(o)
}
