package contentstream

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/wudi/pdforganizer/coords"
	"github.com/wudi/pdforganizer/ir/raw"
	"github.com/wudi/pdforganizer/scanner"
	"github.com/wudi/pdforganizer/writer"
)

// Parse splits a content stream into operations. Malformed operands, stray
// closing delimiters and operands left dangling at the end are dropped.
func Parse(data []byte) ([]Operation, error) {
	tr := raw.NewTokenReader(scanner.NewBytes(data, scanner.Config{}))
	var ops []Operation
	var operands []raw.Object
	for {
		tok, err := tr.Next()
		if err == io.EOF {
			return ops, nil
		}
		if err != nil {
			return nil, err
		}
		if tok.Type != scanner.TokenKeyword {
			tr.Unread(tok)
			obj, err := raw.ParseObjectFrom(tr)
			if errors.Is(err, io.EOF) {
				return ops, nil
			}
			if err != nil {
				// malformed operand; drop it and resynchronise on the next token
				continue
			}
			operands = append(operands, obj)
			continue
		}
		kw, _ := tok.Value.(string)
		switch kw {
		case "]", ">>", ">", "}", "{", ")":
			continue
		case "BI":
			op, err := parseInlineImage(tr)
			if err != nil {
				return nil, err
			}
			ops = append(ops, op)
			operands = nil
			continue
		}
		ops = append(ops, Operation{Operator: kw, Operands: operands})
		operands = nil
	}
}

func parseInlineImage(tr *raw.TokenReader) (Operation, error) {
	dict := raw.Dict()
	for {
		tok, err := tr.Next()
		if err != nil {
			return Operation{}, fmt.Errorf("inline image: %w", err)
		}
		switch tok.Type {
		case scanner.TokenInlineImage:
			data, _ := tok.Value.([]byte)
			return Operation{Operator: "BI", Operands: []raw.Object{dict}, Inline: data}, nil
		case scanner.TokenName:
			key, _ := tok.Value.(string)
			val, err := raw.ParseObjectFrom(tr)
			if err != nil {
				return Operation{}, fmt.Errorf("inline image /%s: %w", key, err)
			}
			dict.Set(key, val)
		default:
			return Operation{}, fmt.Errorf("inline image: unexpected token %v at offset %d", tok.Value, tok.Pos)
		}
	}
}

// Serialize renders operations back into content stream syntax, one per line.
func Serialize(ops []Operation) []byte {
	var buf bytes.Buffer
	for _, op := range ops {
		if op.Operator == "BI" {
			buf.WriteString("BI")
			if len(op.Operands) == 1 {
				if d, ok := op.Operands[0].(*raw.DictObj); ok {
					for _, k := range d.Keys() {
						buf.WriteByte(' ')
						buf.Write(writer.Serialize(raw.NameLiteral(k)))
						buf.WriteByte(' ')
						buf.Write(writer.Serialize(d.KV[k]))
					}
				}
			}
			buf.WriteString(" ID ")
			buf.Write(op.Inline)
			buf.WriteString("\nEI\n")
			continue
		}
		for _, operand := range op.Operands {
			buf.Write(writer.Serialize(operand))
			buf.WriteByte(' ')
		}
		buf.WriteString(op.Operator)
		buf.WriteByte('\n')
	}
	return buf.Bytes()
}

// GraphicsState is the part of the PDF graphics state the tracer needs:
// the CTM and the text state parameters, which q/Q save and restore too.
type GraphicsState struct {
	CTM  coords.Matrix
	Text TextState

	stack []GraphicsState
}

func NewGraphicsState() *GraphicsState {
	return &GraphicsState{CTM: coords.Identity(), Text: TextState{HScale: 1}}
}

func (gs *GraphicsState) Save() {
	clone := *gs
	clone.stack = nil
	gs.stack = append(gs.stack, clone)
}

func (gs *GraphicsState) Restore() error {
	n := len(gs.stack)
	if n == 0 {
		return errors.New("state stack empty")
	}
	stack := gs.stack[:n-1]
	*gs = gs.stack[n-1]
	gs.stack = stack
	return nil
}

// TextState holds the text parameters (Tc, Tw, Tz, TL, Tf, Tr, Ts).
type TextState struct {
	FontName    string
	Font        Font
	FontSize    float64
	CharSpacing float64
	WordSpacing float64
	HScale      float64 // Tz / 100
	Leading     float64
	Rise        float64
	RenderMode  TextRenderMode
}
