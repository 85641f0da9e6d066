// Package ocr defines the OCR engine contract used to read question
// markers baked into raster images.
package ocr

import (
	"context"
	"strings"
)

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
)

// Region describes a rectangular area in pixel coordinates with the origin in
// the upper-left corner of the image.
type Region struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// IsEmpty reports whether the region has non-positive dimensions.
func (r Region) IsEmpty() bool { return r.Width <= 0 || r.Height <= 0 }

// Input is a single image submitted for OCR.
type Input struct {
	// ID is echoed back in the corresponding Result.
	ID string
	// Image is the encoded image payload in the format specified by Format.
	Image  []byte
	Format ImageFormat
	// PageIndex is the zero-based PDF page the image is drawn on.
	PageIndex int
	// DPI is the effective resolution; zero means unknown.
	DPI int
	// Languages are trained-data names such as "eng" or "deu".
	Languages []string
	// Region restricts recognition to part of the image. Nil means the full
	// image.
	Region *Region
	// Metadata passes engine-specific variables (for example Tesseract's
	// "tessedit_pageseg_mode").
	Metadata map[string]string
}

// TextWord is a single recognized token. Block, Line and Word are the
// engine's layout indices.
type TextWord struct {
	Text       string
	Bounds     Region
	Confidence float64
	Block      int
	Line       int
	Word       int
}

// TextLine groups words that share a baseline.
type TextLine struct {
	Text       string
	Bounds     Region
	Words      []TextWord
	Confidence float64
}

// TextBlock aggregates lines that form a logical block.
type TextBlock struct {
	Text       string
	Bounds     Region
	Lines      []TextLine
	Confidence float64
}

// Result captures OCR output for a single input image.
type Result struct {
	InputID   string
	PlainText string
	Blocks    []TextBlock
	Language  string
}

// Words flattens the result in reading order.
func (r Result) Words() []TextWord {
	var out []TextWord
	for _, b := range r.Blocks {
		for _, l := range b.Lines {
			out = append(out, l.Words...)
		}
	}
	return out
}

// Engine turns one image into text with positions.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, input Input) (Result, error)
}

// Group builds blocks and lines from words carrying layout indices. Words
// must be in engine order.
func Group(words []TextWord) []TextBlock {
	var blocks []TextBlock
	for _, w := range words {
		if n := len(blocks); n == 0 || blocks[n-1].Lines[0].Words[0].Block != w.Block {
			blocks = append(blocks, TextBlock{})
		}
		b := &blocks[len(blocks)-1]
		if n := len(b.Lines); n == 0 || b.Lines[n-1].Words[0].Line != w.Line {
			b.Lines = append(b.Lines, TextLine{})
		}
		l := &b.Lines[len(b.Lines)-1]
		l.Words = append(l.Words, w)
	}
	for i := range blocks {
		b := &blocks[i]
		var blockText []string
		var blockConf float64
		var blockWords int
		for j := range b.Lines {
			l := &b.Lines[j]
			texts := make([]string, 0, len(l.Words))
			regions := make([]Region, 0, len(l.Words))
			var sum float64
			for _, w := range l.Words {
				texts = append(texts, w.Text)
				regions = append(regions, w.Bounds)
				sum += w.Confidence
			}
			l.Text = strings.Join(texts, " ")
			l.Bounds = MergeRegions(regions...)
			l.Confidence = sum / float64(len(l.Words))
			blockText = append(blockText, l.Text)
			blockConf += sum
			blockWords += len(l.Words)
		}
		b.Text = strings.Join(blockText, "\n")
		lineBounds := make([]Region, 0, len(b.Lines))
		for _, l := range b.Lines {
			lineBounds = append(lineBounds, l.Bounds)
		}
		b.Bounds = MergeRegions(lineBounds...)
		b.Confidence = blockConf / float64(blockWords)
	}
	return blocks
}

// MergeRegions returns the smallest region covering all non-empty inputs.
func MergeRegions(regions ...Region) Region {
	var out Region
	first := true
	for _, r := range regions {
		if r.IsEmpty() {
			continue
		}
		if first {
			out, first = r, false
			continue
		}
		x0, y0 := min(out.X, r.X), min(out.Y, r.Y)
		x1 := max(out.X+out.Width, r.X+r.Width)
		y1 := max(out.Y+out.Height, r.Y+r.Height)
		out = Region{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
	}
	return out
}
