// Package pdftest builds small PDF documents in memory for tests.
package pdftest

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"strings"
	"testing"

	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/filters"
	"github.com/wudi/pdforganizer/ir/raw"
	"github.com/wudi/pdforganizer/writer"
)

// DefaultFont is the resource name of the built-in Helvetica font. Every
// glyph is 500 units wide and the font has no descriptor, so boxes span
// 0.8 em above and 0.2 em below the baseline.
const DefaultFont = "F1"

type ImageEncoding int

const (
	RGB ImageEncoding = iota
	Gray
	JPEG
)

type TextOptions struct {
	Font       string
	FontSize   float64
	RenderMode int
}

type ImageOptions struct {
	Encoding ImageEncoding
	// Undrawn registers the XObject without a Do operator.
	Undrawn bool
}

type fontSpec struct {
	resource string
	baseFont string
	program  []byte
}

// Builder accumulates pages; Document assembles the object graph.
type Builder struct {
	pages []*PageBuilder
	fonts []fontSpec
}

func New() *Builder {
	return &Builder{}
}

// RegisterTrueTypeFont adds a font resource backed by an embedded
// TrueType program (FontFile2). It is available on every page.
func (b *Builder) RegisterTrueTypeFont(resource, baseFont string, program []byte) *Builder {
	b.fonts = append(b.fonts, fontSpec{resource: resource, baseFont: baseFont, program: program})
	return b
}

func (b *Builder) NewPage(width, height float64) *PageBuilder {
	p := &PageBuilder{parent: b, width: width, height: height, streams: []*bytes.Buffer{{}}}
	b.pages = append(b.pages, p)
	return p
}

type pageImage struct {
	name string
	img  image.Image
	opts ImageOptions
}

type PageBuilder struct {
	parent        *Builder
	width, height float64
	streams       []*bytes.Buffer
	images        []pageImage
	sharedWith    *PageBuilder
	xobjectsRef   raw.RefObj
}

// DrawText shows text with its baseline origin at (x, y) in page space
// (top-left origin, y down).
func (p *PageBuilder) DrawText(text string, x, y float64, opts TextOptions) *PageBuilder {
	font := opts.Font
	if font == "" {
		font = DefaultFont
	}
	size := opts.FontSize
	if size <= 0 {
		size = 12
	}
	w := p.current()
	// Tr persists across BT/ET, so every draw sets it.
	fmt.Fprintf(w, "BT /%s %s Tf %d Tr ", font, num(size), opts.RenderMode)
	fmt.Fprintf(w, "1 0 0 1 %s %s Tm %s Tj ET\n", num(x), num(p.height-y), writer.Serialize(raw.Str([]byte(text))))
	return p
}

// DrawImage registers img as XObject name and draws it into rect (page space).
func (p *PageBuilder) DrawImage(name string, img image.Image, rect coords.Rect, opts ImageOptions) *PageBuilder {
	p.images = append(p.images, pageImage{name: name, img: img, opts: opts})
	if opts.Undrawn {
		return p
	}
	fmt.Fprintf(p.current(), "q %s 0 0 %s %s %s cm /%s Do Q\n",
		num(rect.Width()), num(rect.Height()), num(rect.X0), num(p.height-rect.Y1), name)
	return p
}

// Raw appends content stream text verbatim.
func (p *PageBuilder) Raw(content string) *PageBuilder {
	p.current().WriteString(content)
	if !strings.HasSuffix(content, "\n") {
		p.current().WriteByte('\n')
	}
	return p
}

// NewContentStream starts a separate stream in the page's /Contents array.
func (p *PageBuilder) NewContentStream() *PageBuilder {
	p.streams = append(p.streams, &bytes.Buffer{})
	return p
}

// ShareXObjects makes this page reference other's XObject dictionary
// object instead of owning one.
func (p *PageBuilder) ShareXObjects(other *PageBuilder) *PageBuilder {
	p.sharedWith = other
	return p
}

func (p *PageBuilder) Finish() *Builder { return p.parent }

func (p *PageBuilder) current() *bytes.Buffer { return p.streams[len(p.streams)-1] }

// Document assembles the catalog, page tree, fonts and images.
func (b *Builder) Document() (*raw.Document, error) {
	doc := raw.NewDocument()
	pagesDict := raw.Dict()
	pagesRef := doc.Add(pagesDict)

	fontRes := raw.Dict()
	helvetica := raw.Dict()
	helvetica.Set("Type", raw.NameLiteral("Font"))
	helvetica.Set("Subtype", raw.NameLiteral("Type1"))
	helvetica.Set("BaseFont", raw.NameLiteral("Helvetica"))
	helvetica.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))
	helvetica.Set("FirstChar", raw.NumberInt(32))
	helvetica.Set("LastChar", raw.NumberInt(126))
	widths := make([]float64, 126-32+1)
	for i := range widths {
		widths[i] = 500
	}
	helvetica.Set("Widths", raw.Numbers(widths...))
	fontRes.Set(DefaultFont, doc.Add(helvetica))
	for _, f := range b.fonts {
		ref, err := addTrueTypeFont(doc, f)
		if err != nil {
			return nil, err
		}
		fontRes.Set(f.resource, ref)
	}
	fontResRef := doc.Add(fontRes)

	kids := raw.NewArray()
	for _, p := range b.pages {
		xobjects := raw.Dict()
		for _, im := range p.images {
			ref, err := addImage(doc, im)
			if err != nil {
				return nil, fmt.Errorf("image %s: %w", im.name, err)
			}
			xobjects.Set(im.name, ref)
		}
		p.xobjectsRef = doc.Add(xobjects)
	}
	for _, p := range b.pages {
		resources := raw.Dict()
		resources.Set("Font", fontResRef)
		if p.sharedWith != nil {
			resources.Set("XObject", p.sharedWith.xobjectsRef)
		} else {
			resources.Set("XObject", p.xobjectsRef)
		}
		contents := raw.NewArray()
		for _, s := range p.streams {
			data, err := filters.FlateEncode(s.Bytes())
			if err != nil {
				return nil, err
			}
			dict := raw.Dict()
			dict.Set("Filter", raw.NameLiteral("FlateDecode"))
			contents.Append(doc.Add(raw.NewStream(dict, data)))
		}
		page := raw.Dict()
		page.Set("Type", raw.NameLiteral("Page"))
		page.Set("Parent", pagesRef)
		page.Set("MediaBox", raw.Numbers(0, 0, p.width, p.height))
		page.Set("Resources", resources)
		if len(contents.Items) == 1 {
			page.Set("Contents", contents.Items[0])
		} else {
			page.Set("Contents", contents)
		}
		kids.Append(doc.Add(page))
	}
	pagesDict.Set("Type", raw.NameLiteral("Pages"))
	pagesDict.Set("Kids", kids)
	pagesDict.Set("Count", raw.NumberInt(int64(len(kids.Items))))

	catalog := raw.Dict()
	catalog.Set("Type", raw.NameLiteral("Catalog"))
	catalog.Set("Pages", pagesRef)
	doc.Trailer.Set("Root", doc.Add(catalog))
	return doc, nil
}

// Bytes serializes the document and fails the test on error.
func (b *Builder) Bytes(t testing.TB) []byte {
	t.Helper()
	doc, err := b.Document()
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	data, err := writer.Bytes(context.Background(), doc, writer.Config{Deterministic: true})
	if err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return data
}

func addTrueTypeFont(doc *raw.Document, f fontSpec) (raw.RefObj, error) {
	data, err := filters.FlateEncode(f.program)
	if err != nil {
		return raw.RefObj{}, err
	}
	fileDict := raw.Dict()
	fileDict.Set("Filter", raw.NameLiteral("FlateDecode"))
	fileDict.Set("Length1", raw.NumberInt(int64(len(f.program))))
	desc := raw.Dict()
	desc.Set("Type", raw.NameLiteral("FontDescriptor"))
	desc.Set("FontName", raw.NameLiteral(f.baseFont))
	desc.Set("Flags", raw.NumberInt(32))
	desc.Set("Ascent", raw.NumberInt(900))
	desc.Set("Descent", raw.NumberInt(-200))
	desc.Set("FontFile2", doc.Add(raw.NewStream(fileDict, data)))
	font := raw.Dict()
	font.Set("Type", raw.NameLiteral("Font"))
	font.Set("Subtype", raw.NameLiteral("TrueType"))
	font.Set("BaseFont", raw.NameLiteral(f.baseFont))
	font.Set("Encoding", raw.NameLiteral("WinAnsiEncoding"))
	font.Set("FontDescriptor", doc.Add(desc))
	return doc.Add(font), nil
}

func addImage(doc *raw.Document, im pageImage) (raw.RefObj, error) {
	bounds := im.img.Bounds()
	dict := raw.Dict()
	dict.Set("Type", raw.NameLiteral("XObject"))
	dict.Set("Subtype", raw.NameLiteral("Image"))
	dict.Set("Width", raw.NumberInt(int64(bounds.Dx())))
	dict.Set("Height", raw.NumberInt(int64(bounds.Dy())))
	dict.Set("BitsPerComponent", raw.NumberInt(8))

	if im.opts.Encoding == JPEG {
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, im.img, &jpeg.Options{Quality: 95}); err != nil {
			return raw.RefObj{}, err
		}
		dict.Set("ColorSpace", raw.NameLiteral("DeviceRGB"))
		dict.Set("Filter", raw.NameLiteral("DCTDecode"))
		return doc.Add(raw.NewStream(dict, buf.Bytes())), nil
	}

	var samples []byte
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, bl, _ := im.img.At(x, y).RGBA()
			if im.opts.Encoding == Gray {
				samples = append(samples, byte((r+g+bl)/3>>8))
				continue
			}
			samples = append(samples, byte(r>>8), byte(g>>8), byte(bl>>8))
		}
	}
	if im.opts.Encoding == Gray {
		dict.Set("ColorSpace", raw.NameLiteral("DeviceGray"))
	} else {
		dict.Set("ColorSpace", raw.NameLiteral("DeviceRGB"))
	}
	data, err := filters.FlateEncode(samples)
	if err != nil {
		return raw.RefObj{}, err
	}
	dict.Set("Filter", raw.NameLiteral("FlateDecode"))
	return doc.Add(raw.NewStream(dict, data)), nil
}

func num(f float64) string { return writer.FormatFloat(f) }
