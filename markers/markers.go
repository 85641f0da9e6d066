// Package markers finds question markers such as "3)" or "12." in word
// text and in the OCR output of embedded images.
package markers

import (
	"context"
	"errors"
	"image"
	"math"
	"regexp"
	"strings"

	"github.com/wudi/pdforganizer/ir/raw"
	"github.com/wudi/pdforganizer/observability"
	"github.com/wudi/pdforganizer/ocr"
	"github.com/wudi/pdforganizer/worksheet"
)

// Pattern matches a digit run closed by '.' or ')' that starts a token and
// ends at whitespace (Unicode separators such as NBSP included) or the end
// of the text. The marker is submatch 1.
var Pattern = regexp.MustCompile(`(?:^|\s)(\d+[.)])(?:[\s\p{Z}]|$)`)

// Find returns the first marker in text.
func Find(text string) (worksheet.Span, bool) {
	loc := Pattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return worksheet.Span{}, false
	}
	return worksheet.Span{Start: loc[2], End: loc[3], Text: text[loc[2]:loc[3]]}, true
}

// Digits strips the closing '.' or ')' of a marker.
func Digits(marker string) string {
	return strings.TrimRight(marker, ".)")
}

// Detector turns one extracted item of type E into a marker element.
type Detector[E any] interface {
	Detect(ctx context.Context, page int, item E) (worksheet.Element, bool, error)
}

// TextDetector matches the marker pattern against word text.
type TextDetector struct{}

var _ Detector[worksheet.TextWord] = TextDetector{}

func (TextDetector) Detect(ctx context.Context, page int, w worksheet.TextWord) (worksheet.Element, bool, error) {
	w.Text = strings.TrimSpace(w.Text)
	span, ok := Find(w.Text)
	if !ok {
		return worksheet.Element{}, false, nil
	}
	return worksheet.WordElement(worksheet.MarkerWord{TextWord: w, Span: span}), true, nil
}

// ImageDecoder rasterizes an image stream.
type ImageDecoder interface {
	Decode(ctx context.Context, ref raw.ObjectRef) (image.Image, error)
}

// ImageDetector runs OCR over an image and reports the first recognized
// word, in engine order, that is a marker.
type ImageDetector struct {
	Decoder ImageDecoder
	Engine  ocr.Engine
	Options []ocr.InputOption
	Logger  observability.Logger
}

var _ Detector[worksheet.PageImage] = (*ImageDetector)(nil)

// Detect never fails on unreadable images: decode and recognition errors
// are logged and the image has no marker. Only cancellation is returned.
func (d *ImageDetector) Detect(ctx context.Context, page int, img worksheet.PageImage) (worksheet.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return worksheet.Element{}, false, err
	}
	log := observability.OrNop(d.Logger).With(
		observability.Int("page", page+1),
		observability.Int("image", img.ID))

	bitmap, err := d.Decoder.Decode(ctx, img.Stream)
	if err != nil {
		log.Warn("image not decodable, skipping", observability.Error("error", err))
		return worksheet.Element{}, false, nil
	}
	in, err := ocr.InputFromImage(page, img.ID, bitmap, d.Options...)
	if err != nil {
		log.Warn("image not encodable for OCR, skipping", observability.Error("error", err))
		return worksheet.Element{}, false, nil
	}
	res, err := d.Engine.Recognize(ctx, in)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return worksheet.Element{}, false, err
		}
		log.Warn("OCR failed, skipping", observability.String("engine", d.Engine.Name()), observability.Error("error", err))
		return worksheet.Element{}, false, nil
	}
	for _, word := range res.Words() {
		span, ok := Find(strings.TrimSpace(word.Text))
		if !ok {
			continue
		}
		log.Debug(observability.EventMarkerFound, observability.String("marker", span.Text))
		return worksheet.ImageElement(worksheet.MarkerImage{
			PageImage: img,
			Marker:    span.Text,
			Region:    regionRect(word.Bounds),
		}), true, nil
	}
	return worksheet.Element{}, false, nil
}

func regionRect(r ocr.Region) image.Rectangle {
	return image.Rect(
		int(math.Round(r.X)),
		int(math.Round(r.Y)),
		int(math.Round(r.X+r.Width)),
		int(math.Round(r.Y+r.Height)),
	)
}
