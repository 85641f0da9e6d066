package ocr

import (
	"image"
	"reflect"
	"testing"
)

func TestInputFromImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	region := Region{X: 0, Y: 0, Width: 1, Height: 1}
	meta := map[string]string{"psm": "6"}

	in, err := InputFromImage(
		2, 1, img,
		WithLanguages("eng", "spa"),
		WithRegion(region),
		WithDPI(300),
		WithMetadata(meta),
	)
	if err != nil {
		t.Fatalf("InputFromImage() error = %v", err)
	}
	if in.Format != ImageFormatPNG {
		t.Fatalf("unexpected format: %v", in.Format)
	}
	if in.PageIndex != 2 {
		t.Fatalf("unexpected page index: %d", in.PageIndex)
	}
	if got := in.ID; got != "page-2-image-1" {
		t.Fatalf("unexpected id: %s", got)
	}
	if len(in.Image) == 0 {
		t.Fatalf("expected encoded image data")
	}
	if !reflect.DeepEqual(in.Languages, []string{"eng", "spa"}) {
		t.Fatalf("unexpected languages: %+v", in.Languages)
	}
	if in.Region == nil || *in.Region != region {
		t.Fatalf("unexpected region: %#v", in.Region)
	}
	if in.DPI != 300 {
		t.Fatalf("unexpected dpi: %d", in.DPI)
	}
	meta["psm"] = "7"
	if in.Metadata["psm"] != "6" {
		t.Fatalf("metadata was not copied: %+v", in.Metadata)
	}
}

func TestWithRegionClearsEmpty(t *testing.T) {
	in := Input{Region: &Region{X: 1, Y: 1, Width: 2, Height: 2}}
	WithRegion(Region{})(&in)
	if in.Region != nil {
		t.Fatalf("expected nil region for empty input, got %#v", in.Region)
	}
}

func TestGroupBuildsBlocksAndLines(t *testing.T) {
	words := []TextWord{
		{Text: "3)", Bounds: Region{X: 0, Y: 0, Width: 10, Height: 10}, Confidence: 0.9, Block: 1, Line: 1, Word: 1},
		{Text: "Solve", Bounds: Region{X: 12, Y: 0, Width: 30, Height: 12}, Confidence: 0.7, Block: 1, Line: 1, Word: 2},
		{Text: "x", Bounds: Region{X: 0, Y: 20, Width: 5, Height: 5}, Confidence: 0.8, Block: 1, Line: 2, Word: 1},
		{Text: "4.", Bounds: Region{X: 0, Y: 100, Width: 8, Height: 8}, Confidence: 1, Block: 2, Line: 1, Word: 1},
	}
	blocks := Group(words)
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %d", len(blocks))
	}
	if got := blocks[0].Text; got != "3) Solve\nx" {
		t.Fatalf("unexpected block text %q", got)
	}
	if got := blocks[0].Lines[0].Bounds; got != (Region{X: 0, Y: 0, Width: 42, Height: 12}) {
		t.Fatalf("unexpected line bounds %+v", got)
	}
	if got := blocks[0].Bounds; got != (Region{X: 0, Y: 0, Width: 42, Height: 25}) {
		t.Fatalf("unexpected block bounds %+v", got)
	}
	res := Result{Blocks: blocks}
	flat := res.Words()
	if len(flat) != 4 || flat[3].Text != "4." {
		t.Fatalf("unexpected flattened words %+v", flat)
	}
}
