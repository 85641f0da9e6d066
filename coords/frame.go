package coords

// Frame is a page box in PDF user space (lower-left origin). It converts
// between PDF space and page space, whose origin is the top-left corner of
// the box with Y growing downward.
type Frame struct {
	LLX, LLY, URX, URY float64
}

// DefaultFrame is US Letter, used when a page declares no MediaBox.
var DefaultFrame = Frame{LLX: 0, LLY: 0, URX: 612, URY: 792}

func (f Frame) Width() float64  { return f.URX - f.LLX }
func (f Frame) Height() float64 { return f.URY - f.LLY }

// Bounds is the frame in page space.
func (f Frame) Bounds() Rect { return Rect{X0: 0, Y0: 0, X1: f.Width(), Y1: f.Height()} }

func (f Frame) ToPage(p Point) Point { return Point{X: p.X - f.LLX, Y: f.URY - p.Y} }
func (f Frame) ToPDF(p Point) Point  { return Point{X: p.X + f.LLX, Y: f.URY - p.Y} }

// RectToPage converts a PDF-space rectangle into page space.
func (f Frame) RectToPage(r Rect) Rect {
	return BoundingRect(f.ToPage(Point{X: r.X0, Y: r.Y0}), f.ToPage(Point{X: r.X1, Y: r.Y1}))
}

// RectToPDF converts a page-space rectangle into PDF space (Y0 is the bottom edge).
func (f Frame) RectToPDF(r Rect) Rect {
	return BoundingRect(f.ToPDF(Point{X: r.X0, Y: r.Y0}), f.ToPDF(Point{X: r.X1, Y: r.Y1}))
}
