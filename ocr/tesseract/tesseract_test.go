package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os/exec"
	"strings"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/wudi/pdforganizer/ocr"
)

type fakeClient struct {
	image     []byte
	languages []string
	vars      map[gosseract.SettableVariable]string
	psm       gosseract.PageSegMode
	boxes     []gosseract.BoundingBox
	closed    bool
}

func (f *fakeClient) SetImageFromBytes(b []byte) error { f.image = b; return nil }
func (f *fakeClient) SetLanguage(l ...string) error    { f.languages = l; return nil }
func (f *fakeClient) SetVariable(k gosseract.SettableVariable, v string) error {
	if f.vars == nil {
		f.vars = make(map[gosseract.SettableVariable]string)
	}
	f.vars[k] = v
	return nil
}
func (f *fakeClient) SetPageSegMode(m gosseract.PageSegMode) error { f.psm = m; return nil }
func (f *fakeClient) GetBoundingBoxesVerbose() ([]gosseract.BoundingBox, error) {
	return f.boxes, nil
}
func (f *fakeClient) Close() error { f.closed = true; return nil }

func TestRecognizeGroupsVerboseBoxes(t *testing.T) {
	fake := &fakeClient{boxes: []gosseract.BoundingBox{
		{Box: image.Rect(2, 3, 20, 15), Word: "12)", Confidence: 91, BlockNum: 1, ParNum: 1, LineNum: 1, WordNum: 1},
		{Box: image.Rect(24, 3, 60, 15), Word: "Find", Confidence: 80, BlockNum: 1, ParNum: 1, LineNum: 1, WordNum: 2},
		{Box: image.Rect(0, 0, 0, 0), Word: " ", BlockNum: 1, ParNum: 1, LineNum: 1, WordNum: 3},
		{Box: image.Rect(2, 30, 10, 40), Word: "x", Confidence: 70, BlockNum: 1, ParNum: 2, LineNum: 1, WordNum: 1},
	}}
	e := &Engine{clientFactory: func() client { return fake }}
	in := ocr.Input{ID: "page-0-image-1", Image: []byte("png"), Languages: []string{"eng"}, DPI: 300}
	ocr.WithTesseractPSM(7)(&in)
	ocr.WithTesseractWhitelist("0123456789.)")(&in)

	res, err := e.Recognize(context.Background(), in)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if !fake.closed {
		t.Fatalf("client was not closed")
	}
	if fake.psm != gosseract.PageSegMode(7) {
		t.Fatalf("unexpected psm %v", fake.psm)
	}
	if fake.vars["tessedit_char_whitelist"] != "0123456789.)" || fake.vars["user_defined_dpi"] != "300" {
		t.Fatalf("unexpected variables %+v", fake.vars)
	}
	if res.InputID != in.ID || res.Language != "eng" {
		t.Fatalf("unexpected result header %+v", res)
	}
	if len(res.Blocks) != 1 || len(res.Blocks[0].Lines) != 2 {
		t.Fatalf("unexpected layout %+v", res.Blocks)
	}
	words := res.Words()
	if len(words) != 3 || words[0].Text != "12)" || words[2].Line != 2 {
		t.Fatalf("unexpected words %+v", words)
	}
	if words[0].Bounds != (ocr.Region{X: 2, Y: 3, Width: 18, Height: 12}) {
		t.Fatalf("unexpected bounds %+v", words[0].Bounds)
	}
	if words[0].Confidence != 0.91 {
		t.Fatalf("unexpected confidence %v", words[0].Confidence)
	}
}

func TestRecognizeOffsetsCroppedRegion(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	fake := &fakeClient{boxes: []gosseract.BoundingBox{
		{Box: image.Rect(1, 1, 5, 5), Word: "1.", Confidence: 99, BlockNum: 1, ParNum: 1, LineNum: 1, WordNum: 1},
	}}
	e := &Engine{clientFactory: func() client { return fake }}
	in := ocr.Input{Image: buf.Bytes()}
	ocr.WithRegion(ocr.Region{X: 10, Y: 20, Width: 10, Height: 10})(&in)

	res, err := e.Recognize(context.Background(), in)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	got := res.Words()[0].Bounds
	if got != (ocr.Region{X: 11, Y: 21, Width: 4, Height: 4}) {
		t.Fatalf("unexpected bounds %+v", got)
	}
	decoded, err := png.Decode(bytes.NewReader(fake.image))
	if err != nil {
		t.Fatalf("decode cropped: %v", err)
	}
	if decoded.Bounds().Dx() != 10 {
		t.Fatalf("expected cropped image, got %v", decoded.Bounds())
	}
}

func TestRecognizeHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := &Engine{clientFactory: func() client { t.Fatal("client created"); return nil }}
	if _, err := e.Recognize(ctx, ocr.Input{}); err == nil {
		t.Fatal("expected context error")
	}
}

// ensureTesseractAvailable checks that the tesseract binary is reachable.
func ensureTesseractAvailable(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("tesseract"); err != nil {
		t.Skip("tesseract not installed in PATH")
	}
}

func TestEngineRecognizesRenderedMarker(t *testing.T) {
	ensureTesseractAvailable(t)

	img := image.NewRGBA(image.Rect(0, 0, 200, 80))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	d := &font.Drawer{Dst: img, Src: image.Black, Face: basicfont.Face7x13, Dot: fixed.P(10, 50)}
	d.DrawString("12) Hello")

	in, err := ocr.InputFromImage(0, 1, img, ocr.WithLanguages("eng"), ocr.WithDPI(300))
	if err != nil {
		t.Fatalf("InputFromImage() error = %v", err)
	}
	res, err := New().Recognize(context.Background(), in)
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if !strings.Contains(strings.ToLower(res.PlainText), "hello") {
		t.Fatalf("unexpected OCR output: %q", res.PlainText)
	}
	if len(res.Words()) == 0 {
		t.Fatalf("expected positioned words")
	}
}
