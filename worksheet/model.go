// Package worksheet holds the domain model of a question worksheet: the
// words and images extracted from a page, the markers found on them and
// the numbered element sequence the renumbering pass consumes.
package worksheet

import (
	"image"

	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/ir/raw"
)

// TextWord is one text-showing operation. Rect and Origin are in page
// space (top-left origin, y down).
type TextWord struct {
	Text   string
	Font   string
	Size   float64
	Rect   coords.Rect
	Origin coords.Point
}

// PageImage is an image drawn on a page. ID is the canonical identifier
// (Im<ID>); Stream is owned by the raster backend.
type PageImage struct {
	ID     int
	Stream raw.ObjectRef
	Rect   coords.Rect
}

// Span locates a marker inside a word's text (byte offsets).
type Span struct {
	Start, End int
	Text       string
}

// MarkerWord is a word whose text contains a marker at Span.
type MarkerWord struct {
	TextWord
	Span Span
}

// MarkerImage is an image whose OCR output contains a marker. Region is
// the marker's box in image pixels.
type MarkerImage struct {
	PageImage
	Marker string
	Region image.Rectangle
}

type Kind int

const (
	KindWord Kind = iota + 1
	KindImage
)

func (k Kind) String() string {
	switch k {
	case KindWord:
		return "word"
	case KindImage:
		return "image"
	}
	return "unknown"
}

// Element is either a marker word or a marker image.
type Element struct {
	Kind  Kind
	Word  *MarkerWord
	Image *MarkerImage
}

func WordElement(w MarkerWord) Element   { return Element{Kind: KindWord, Word: &w} }
func ImageElement(m MarkerImage) Element { return Element{Kind: KindImage, Image: &m} }

// Rect is the element's box in page space.
func (e Element) Rect() coords.Rect {
	switch e.Kind {
	case KindWord:
		return e.Word.Rect
	case KindImage:
		return e.Image.Rect
	}
	return coords.Rect{}
}

// Top is the element's top edge in page space.
func (e Element) Top() float64 { return e.Rect().Y0 }

// Marker is the original marker text, such as "3)" or "12.".
func (e Element) Marker() string {
	switch e.Kind {
	case KindWord:
		return e.Word.Span.Text
	case KindImage:
		return e.Image.Marker
	}
	return ""
}

// NumberedPage holds a page's elements ordered by top coordinate.
type NumberedPage struct {
	Index    int
	Words    []TextWord
	Images   []PageImage
	Elements []Element
}

type NumberedDocument struct {
	Pages []NumberedPage
}

// Count is the number of questions in the document.
func (d NumberedDocument) Count() int {
	n := 0
	for _, p := range d.Pages {
		n += len(p.Elements)
	}
	return n
}
