package raw

import (
	"bytes"
	"context"
	"testing"
)

// readerAt returns a ReaderAt for in-memory PDF text.
func readerAt(s string) *bytes.Reader { return bytes.NewReader([]byte(s)) }

func TestParserParsesObjectsAndStream(t *testing.T) {
	src := "" +
		"1 0 obj\n" +
		"<< /Type /Catalog >>\n" +
		"endobj\n" +
		"2 0 obj\n" +
		"<< /Length 5 >>\n" +
		"stream\n" +
		"hello\n" +
		"endstream\n" +
		"endobj\n" +
		"trailer\n<< /Root 1 0 R /Size 3 >>\n"

	parser := NewParser(ParserConfig{})
	doc, err := parser.Parse(context.Background(), readerAt(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if len(doc.Objects) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(doc.Objects))
	}

	obj1, ok := doc.Objects[ObjectRef{Num: 1, Gen: 0}]
	if !ok {
		t.Fatalf("missing catalog object")
	}
	if obj1.Type() != "dict" {
		t.Fatalf("expected dict for obj 1, got %s", obj1.Type())
	}

	obj2, ok := doc.Objects[ObjectRef{Num: 2, Gen: 0}]
	if !ok {
		t.Fatalf("missing stream object")
	}
	stream, ok := obj2.(*StreamObj)
	if !ok {
		t.Fatalf("expected stream object, got %T", obj2)
	}
	if got := string(stream.Data); got != "hello" {
		t.Fatalf("unexpected stream data: %q", got)
	}
	if doc.Catalog() == nil {
		t.Fatalf("trailer /Root not resolved")
	}
}

func TestParserLaterDefinitionWins(t *testing.T) {
	src := "1 0 obj (old) endobj\n1 0 obj (new) endobj\n"
	doc, err := NewParser(ParserConfig{}).Parse(context.Background(), readerAt(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	s, ok := doc.Objects[ObjectRef{Num: 1}].(StringObj)
	if !ok || string(s.Bytes) != "new" {
		t.Fatalf("expected updated object, got %#v", doc.Objects[ObjectRef{Num: 1}])
	}
}

func TestParseObjectStream(t *testing.T) {
	body := "10 0 11 11 << /A 1 >> [1 2]"
	objs, err := ParseObjectStream([]byte(body), 2, 11)
	if err != nil {
		t.Fatalf("parse object stream: %v", err)
	}
	if _, ok := objs[10].(*DictObj); !ok {
		t.Fatalf("object 10: got %T", objs[10])
	}
	if arr, ok := objs[11].(*ArrayObj); !ok || arr.Len() != 2 {
		t.Fatalf("object 11: got %#v", objs[11])
	}
}
