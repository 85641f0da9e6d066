// Package sequence merges the text and image markers of each page into
// one top-to-bottom element list.
package sequence

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/wudi/pdforganizer/markers"
	"github.com/wudi/pdforganizer/observability"
	"github.com/wudi/pdforganizer/worksheet"
)

// DefaultDedupThreshold is the largest distance, in points, between an
// image marker's top and a text marker's top for the image marker to be
// treated as a duplicate.
const DefaultDedupThreshold = 25.0

// PageSource yields the extracted words and images of each page.
type PageSource interface {
	PageCount() int
	Extract(ctx context.Context, index int) ([]worksheet.TextWord, []worksheet.PageImage, error)
}

// Builder turns extracted pages into numbered pages.
type Builder struct {
	Text      markers.Detector[worksheet.TextWord]
	Images    markers.Detector[worksheet.PageImage]
	Threshold float64
	Logger    observability.Logger
}

// New returns a builder with the text detector and the default threshold.
func New(images markers.Detector[worksheet.PageImage], log observability.Logger) *Builder {
	return &Builder{Text: markers.TextDetector{}, Images: images, Threshold: DefaultDedupThreshold, Logger: log}
}

// BuildPage detects markers on one page, drops image markers that sit
// level with a text marker, and orders the rest by top coordinate. Text
// markers come before image markers at equal tops.
func (b *Builder) BuildPage(ctx context.Context, index int, words []worksheet.TextWord, images []worksheet.PageImage) (worksheet.NumberedPage, error) {
	log := observability.OrNop(b.Logger).With(observability.Int("page", index+1))
	page := worksheet.NumberedPage{Index: index, Words: words, Images: images}

	var texts []worksheet.Element
	for _, w := range words {
		el, ok, err := b.Text.Detect(ctx, index, w)
		if err != nil {
			return page, fmt.Errorf("page %d: %w", index+1, err)
		}
		if ok {
			texts = append(texts, el)
		}
	}
	var pictures []worksheet.Element
	for _, img := range images {
		el, ok, err := b.Images.Detect(ctx, index, img)
		if err != nil {
			return page, fmt.Errorf("page %d image %d: %w", index+1, img.ID, err)
		}
		if !ok {
			continue
		}
		if d, dup := nearestTop(el.Top(), texts); dup && d <= b.threshold() {
			log.Debug(observability.EventMarkerDropped,
				observability.Int("image", img.ID),
				observability.String("marker", el.Marker()),
				observability.Float64("distance", d))
			continue
		}
		pictures = append(pictures, el)
	}

	page.Elements = append(texts, pictures...)
	sort.SliceStable(page.Elements, func(i, j int) bool {
		return page.Elements[i].Top() < page.Elements[j].Top()
	})
	return page, nil
}

func (b *Builder) threshold() float64 {
	if b.Threshold < 0 {
		return 0
	}
	return b.Threshold
}

// nearestTop is the smallest |top - t| over the text markers.
func nearestTop(top float64, texts []worksheet.Element) (float64, bool) {
	if len(texts) == 0 {
		return 0, false
	}
	best := math.Inf(1)
	for _, t := range texts {
		best = math.Min(best, math.Abs(top-t.Top()))
	}
	return best, true
}

// BuildDocument builds every page in order. Pages are deduplicated
// independently.
func (b *Builder) BuildDocument(ctx context.Context, src PageSource) (worksheet.NumberedDocument, error) {
	var doc worksheet.NumberedDocument
	for i := 0; i < src.PageCount(); i++ {
		if err := ctx.Err(); err != nil {
			return doc, err
		}
		words, images, err := src.Extract(ctx, i)
		if err != nil {
			return doc, fmt.Errorf("extract page %d: %w", i+1, err)
		}
		page, err := b.BuildPage(ctx, i, words, images)
		if err != nil {
			return doc, err
		}
		doc.Pages = append(doc.Pages, page)
	}
	return doc, nil
}
