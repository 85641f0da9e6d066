// Package tesseract implements ocr.Engine with the gosseract bindings.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"math"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/wudi/pdforganizer/ocr"
)

// client is the subset of *gosseract.Client the engine drives.
type client interface {
	SetImageFromBytes([]byte) error
	SetLanguage(...string) error
	SetVariable(gosseract.SettableVariable, string) error
	SetPageSegMode(gosseract.PageSegMode) error
	GetBoundingBoxesVerbose() ([]gosseract.BoundingBox, error)
	Close() error
}

// Engine runs Tesseract through a fresh gosseract client per image.
type Engine struct {
	clientFactory func() client
}

func New() *Engine {
	return &Engine{clientFactory: func() client { return gosseract.NewClient() }}
}

func (e *Engine) Name() string { return "tesseract" }

func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	c := e.clientFactory()
	defer c.Close()
	return recognizeWithClient(c, in)
}

func recognizeWithClient(c client, in ocr.Input) (ocr.Result, error) {
	imgData, err := cropImage(in.Image, in.Region)
	if err != nil {
		return ocr.Result{}, err
	}
	if err := c.SetImageFromBytes(imgData); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return ocr.Result{}, fmt.Errorf("set languages: %w", err)
		}
	}
	if in.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(in.DPI)); err != nil {
			return ocr.Result{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range in.Metadata {
		if k == "tessedit_pageseg_mode" {
			var mode int
			if _, err := fmt.Sscan(v, &mode); err != nil {
				return ocr.Result{}, fmt.Errorf("page segmentation mode %q: %w", v, err)
			}
			if err := c.SetPageSegMode(gosseract.PageSegMode(mode)); err != nil {
				return ocr.Result{}, fmt.Errorf("set page segmentation mode: %w", err)
			}
			continue
		}
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return ocr.Result{}, fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	boxes, err := c.GetBoundingBoxesVerbose()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize words: %w", err)
	}

	var offset image.Point
	if in.Region != nil && !in.Region.IsEmpty() {
		offset = image.Pt(int(math.Round(in.Region.X)), int(math.Round(in.Region.Y)))
	}
	blocks := ocr.Group(wordsFromBoxes(boxes, offset))
	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		texts = append(texts, b.Text)
	}
	return ocr.Result{
		InputID:   in.ID,
		PlainText: strings.Join(texts, "\n\n"),
		Blocks:    blocks,
		Language:  firstLanguage(in.Languages),
	}, nil
}

// wordsFromBoxes keeps non-empty words and renumbers lines so they are
// unique within a block (Tesseract restarts line numbers per paragraph).
func wordsFromBoxes(boxes []gosseract.BoundingBox, offset image.Point) []ocr.TextWord {
	words := make([]ocr.TextWord, 0, len(boxes))
	type lineKey struct{ block, par, line int }
	lines := make(map[lineKey]int)
	for _, b := range boxes {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		key := lineKey{b.BlockNum, b.ParNum, b.LineNum}
		if _, ok := lines[key]; !ok {
			lines[key] = len(lines) + 1
		}
		box := b.Box.Add(offset)
		words = append(words, ocr.TextWord{
			Text:       text,
			Bounds:     ocr.Region{X: float64(box.Min.X), Y: float64(box.Min.Y), Width: float64(box.Dx()), Height: float64(box.Dy())},
			Confidence: b.Confidence / 100.0,
			Block:      b.BlockNum,
			Line:       lines[key],
			Word:       b.WordNum,
		})
	}
	return words
}

func firstLanguage(langs []string) string {
	if len(langs) == 0 {
		return ""
	}
	return langs[0]
}

func cropImage(data []byte, region *ocr.Region) ([]byte, error) {
	if region == nil || region.IsEmpty() {
		return data, nil
	}
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode for region: %w", err)
	}
	rect := image.Rect(
		int(math.Round(region.X)),
		int(math.Round(region.Y)),
		int(math.Round(region.X+region.Width)),
		int(math.Round(region.Y+region.Height)),
	).Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region outside image bounds")
	}
	subImg, ok := img.(interface {
		SubImage(r image.Rectangle) image.Image
	})
	if !ok {
		return nil, fmt.Errorf("image does not support sub-image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, subImg.SubImage(rect)); err != nil {
		return nil, fmt.Errorf("encode cropped image: %w", err)
	}
	return buf.Bytes(), nil
}
