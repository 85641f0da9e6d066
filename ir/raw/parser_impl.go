package raw

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/wudi/pdforganizer/recovery"
	"github.com/wudi/pdforganizer/scanner"
)

// maxNesting bounds array and dictionary depth while parsing a single object.
const maxNesting = 256

// ParserConfig controls raw parsing behavior.
type ParserConfig struct {
	Scanner scanner.Config
}

// NewParser constructs a raw.Parser that locates objects by scanning the
// whole file for "N G obj" headers. Cross-reference tables are not
// consulted, so damaged offsets do not matter and later definitions of the
// same object replace earlier ones, as incremental updates intend.
func NewParser(cfg ParserConfig) Parser {
	return &parserImpl{cfg: cfg}
}

type parserImpl struct {
	cfg ParserConfig
}

func (p *parserImpl) Parse(ctx context.Context, r io.ReaderAt) (*Document, error) {
	s := scanner.New(r, p.cfg.Scanner)
	tr := NewTokenReader(s)
	s.SetRecoveryLocation(recovery.Location{})

	doc := &Document{
		Objects: make(map[ObjectRef]Object),
		Trailer: Dict(),
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		tok, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Value == "trailer" {
			obj, err := ParseObjectFrom(tr)
			if err != nil {
				continue
			}
			if d, ok := obj.(*DictObj); ok {
				for _, k := range d.Keys() {
					doc.Trailer.Set(k, d.KV[k])
				}
			}
			continue
		}
		if tok.Type != scanner.TokenNumber {
			continue
		}
		objNum, ok := tok.Value.(int64)
		if !ok || objNum < 0 {
			continue
		}

		genTok, err := tr.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		gen, ok := genTok.Value.(int64)
		if genTok.Type != scanner.TokenNumber || !ok {
			tr.Unread(genTok)
			continue
		}

		kwTok, err := tr.Next()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		if kwTok.Type != scanner.TokenKeyword || kwTok.Value != "obj" {
			tr.Unread(kwTok)
			tr.Unread(genTok)
			continue
		}

		s.SetRecoveryLocation(recovery.Location{ObjectNum: int(objNum), ObjectGen: int(gen)})
		obj, err := ParseObjectFrom(tr)
		if err != nil {
			if rec := p.cfg.Scanner.Recovery; rec != nil {
				loc := recovery.Location{ObjectNum: int(objNum), ObjectGen: int(gen), ByteOffset: tok.Pos, Component: "raw:object"}
				if rec.OnError(err, loc) != recovery.ActionFail {
					continue
				}
			}
			return nil, fmt.Errorf("parse object %d %d: %w", objNum, gen, err)
		}

		// Streams: if the next token is a stream payload, wrap the dictionary.
		if dict, ok := obj.(*DictObj); ok {
			if streamTok, err := tr.Next(); err == nil {
				if streamTok.Type == scanner.TokenStream {
					data, _ := streamTok.Value.([]byte)
					obj = NewStream(dict, data)
				} else {
					tr.Unread(streamTok)
				}
			}
		}

		if t, err := tr.Next(); err == nil {
			if t.Type != scanner.TokenKeyword || t.Value != "endobj" {
				tr.Unread(t)
			}
		}

		doc.Objects[ObjectRef{Num: int(objNum), Gen: int(gen)}] = obj
	}

	return doc, nil
}

// ParseObjectBytes parses the first object in data.
func ParseObjectBytes(data []byte) (Object, error) {
	return ParseObjectFrom(NewTokenReader(scanner.NewBytes(data, scanner.Config{})))
}

// ParseObjectFrom reads one complete object (including nested arrays and
// dictionaries) from the token stream.
func ParseObjectFrom(tr *TokenReader) (Object, error) {
	return parseObject(tr, 0)
}

func parseObject(tr *TokenReader, depth int) (Object, error) {
	if depth > maxNesting {
		return nil, errors.New("object nesting too deep")
	}
	tok, err := tr.Next()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case scanner.TokenName:
		if v, ok := tok.Value.(string); ok {
			return NameObj{Val: v}, nil
		}
	case scanner.TokenNumber:
		switch v := tok.Value.(type) {
		case int64:
			return NumberInt(v), nil
		case float64:
			return NumberFloat(v), nil
		}
	case scanner.TokenBoolean:
		if v, ok := tok.Value.(bool); ok {
			return BoolObj{V: v}, nil
		}
	case scanner.TokenNull:
		return NullObj{}, nil
	case scanner.TokenString:
		if b, ok := tok.Value.([]byte); ok {
			return StringObj{Bytes: b, Hex: tok.Hex}, nil
		}
	case scanner.TokenArray:
		return parseArray(tr, depth+1)
	case scanner.TokenDict:
		return parseDict(tr, depth+1)
	case scanner.TokenRef:
		if v, ok := tok.Value.(scanner.Ref); ok {
			return RefObj{R: ObjectRef{Num: v.Num, Gen: v.Gen}}, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v at offset %d", tok.Value, tok.Pos)
}

func parseArray(tr *TokenReader, depth int) (Object, error) {
	arr := &ArrayObj{}
	for {
		tok, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Value == "]" {
			break
		}
		tr.Unread(tok)
		item, err := parseObject(tr, depth)
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
	return arr, nil
}

func parseDict(tr *TokenReader, depth int) (Object, error) {
	d := Dict()
	for {
		tok, err := tr.Next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Value == ">>" {
			break
		}
		if tok.Type != scanner.TokenName {
			return nil, fmt.Errorf("expected name in dict, got %v at offset %d", tok.Value, tok.Pos)
		}
		key, _ := tok.Value.(string)
		val, err := parseObject(tr, depth)
		if err != nil {
			return nil, err
		}
		d.Set(key, val)
	}
	return d, nil
}

// TokenReader adds pushback to a scanner.
type TokenReader struct {
	s   scanner.Scanner
	buf []scanner.Token
}

func NewTokenReader(s scanner.Scanner) *TokenReader { return &TokenReader{s: s} }

func (r *TokenReader) Next() (scanner.Token, error) {
	if l := len(r.buf); l > 0 {
		t := r.buf[l-1]
		r.buf = r.buf[:l-1]
		return t, nil
	}
	return r.s.Next()
}

func (r *TokenReader) Unread(tok scanner.Token) {
	r.buf = append(r.buf, tok)
}

// ParseObjectStream expands a decoded object stream body into its objects.
func ParseObjectStream(data []byte, n, first int) (map[int]Object, error) {
	if first < 0 || first > len(data) {
		return nil, errors.New("object stream First exceeds length")
	}
	s := scanner.NewBytes(data[:first], scanner.Config{})
	var pairs []int64
	for len(pairs) < 2*n {
		tok, err := s.Next()
		if err != nil {
			return nil, fmt.Errorf("object stream header: %w", err)
		}
		if v, ok := tok.Value.(int64); ok && tok.Type == scanner.TokenNumber {
			pairs = append(pairs, v)
		}
	}
	body := data[first:]
	objs := make(map[int]Object, n)
	for i := 0; i < n; i++ {
		num, off := int(pairs[2*i]), pairs[2*i+1]
		if off < 0 || off > int64(len(body)) {
			return nil, fmt.Errorf("object stream offset %d out of range", off)
		}
		obj, err := ParseObjectFrom(NewTokenReader(scanner.New(bytes.NewReader(body[off:]), scanner.Config{})))
		if err != nil {
			return nil, fmt.Errorf("object stream entry %d: %w", num, err)
		}
		objs[num] = obj
	}
	return objs, nil
}
