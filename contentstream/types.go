package contentstream

import "github.com/wudi/pdforganizer/ir/raw"

// TextRenderMode matches PDF text rendering modes set via Tr operator.
type TextRenderMode int

const (
	TextFill TextRenderMode = iota
	TextStroke
	TextFillStroke
	TextInvisible
	TextFillClip
	TextStrokeClip
	TextFillStrokeClip
	TextClip
)

// Operation is one operator with its operands. Inline images (BI ... ID ...
// EI) are a single "BI" operation whose only operand is the image dictionary
// and whose sample bytes live in Inline.
type Operation struct {
	Operator string
	Operands []raw.Object
	Inline   []byte
}

// Op builds an operation.
func Op(operator string, operands ...raw.Object) Operation {
	return Operation{Operator: operator, Operands: operands}
}

// IsTextShow reports the text-showing operators.
func (o Operation) IsTextShow() bool {
	switch o.Operator {
	case "Tj", "TJ", "'", "\"":
		return true
	}
	return false
}

func (o Operation) Number(i int) float64 {
	if i >= len(o.Operands) {
		return 0
	}
	f, _ := raw.FloatOf(o.Operands[i])
	return f
}

func (o Operation) Name(i int) string {
	if i >= len(o.Operands) {
		return ""
	}
	n, _ := raw.NameOf(o.Operands[i])
	return n
}
