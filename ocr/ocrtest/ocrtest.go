// Package ocrtest provides a scripted ocr.Engine for tests.
package ocrtest

import (
	"context"
	"strings"

	"github.com/wudi/pdforganizer/ocr"
)

// Engine answers Recognize from Words keyed by input ID ("page-P-image-N").
// Inputs without an entry recognize nothing.
type Engine struct {
	Words map[string][]ocr.TextWord
	Err   error
	Calls []ocr.Input
}

func (e *Engine) Name() string { return "fake" }

func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	e.Calls = append(e.Calls, in)
	if e.Err != nil {
		return ocr.Result{}, e.Err
	}
	words := append([]ocr.TextWord(nil), e.Words[in.ID]...)
	for i := range words {
		if words[i].Block == 0 {
			words[i].Block = 1
		}
		if words[i].Line == 0 {
			words[i].Line = 1
		}
	}
	blocks := ocr.Group(words)
	texts := make([]string, 0, len(blocks))
	for _, b := range blocks {
		texts = append(texts, b.Text)
	}
	return ocr.Result{InputID: in.ID, PlainText: strings.Join(texts, "\n\n"), Blocks: blocks}, nil
}

// Word is a recognized word at pixel box (x, y, w, h).
func Word(text string, x, y, w, h float64) ocr.TextWord {
	return ocr.TextWord{Text: text, Bounds: ocr.Region{X: x, Y: y, Width: w, Height: h}, Confidence: 0.9}
}
