package extractor

import (
	"github.com/wudi/pdforganizer/contentstream"
	"github.com/wudi/pdforganizer/coords"
)

// Placement is where an image XObject is first drawn on a page.
type Placement struct {
	// ID is the 1-based rank of the image among the distinct images drawn
	// on the page.
	ID      int
	Name    string
	Rect    coords.Rect // page space, rounded to whole points
	OpIndex int
}

// placements keeps the first draw of every image name, in drawing order.
func placements(trace *contentstream.Trace, frame coords.Frame) []Placement {
	seen := make(map[string]bool)
	var out []Placement
	for _, draw := range trace.Images {
		if seen[draw.Name] {
			continue
		}
		seen[draw.Name] = true
		out = append(out, Placement{
			ID:      len(out) + 1,
			Name:    draw.Name,
			Rect:    frame.RectToPage(draw.Rect).Round(),
			OpIndex: draw.OpIndex,
		})
	}
	return out
}

// DrawOrder lists image names by first draw, as used to assign canonical names.
func DrawOrder(trace *contentstream.Trace) []string {
	seen := make(map[string]bool)
	var names []string
	for _, draw := range trace.Images {
		if !seen[draw.Name] {
			seen[draw.Name] = true
			names = append(names, draw.Name)
		}
	}
	return names
}
