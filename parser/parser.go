package parser

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/wudi/pdforganizer/filters"
	"github.com/wudi/pdforganizer/ir/raw"
	"github.com/wudi/pdforganizer/observability"
	"github.com/wudi/pdforganizer/recovery"
	"github.com/wudi/pdforganizer/scanner"
)

var (
	// ErrEncrypted is returned for documents carrying an /Encrypt dictionary.
	ErrEncrypted = errors.New("encrypted documents are not supported")
	// ErrNotPDF is returned when no objects could be recovered at all.
	ErrNotPDF = errors.New("input is not a PDF document")
)

// Config controls high-level PDF parsing.
type Config struct {
	Recovery recovery.Strategy
	Scanner  scanner.Config
	Filters  *filters.Pipeline
	Logger   observability.Logger
}

// DocumentParser builds a raw.Document from a complete PDF file held in memory.
type DocumentParser struct {
	cfg Config
}

func NewDocumentParser(cfg Config) *DocumentParser {
	if cfg.Filters == nil {
		cfg.Filters = filters.Default()
	}
	cfg.Logger = observability.OrNop(cfg.Logger)
	if cfg.Recovery == nil {
		cfg.Recovery = recovery.NewLenientStrategy(cfg.Logger)
	}
	cfg.Scanner.Recovery = cfg.Recovery
	return &DocumentParser{cfg: cfg}
}

// Parse is shorthand for NewDocumentParser(cfg).Parse.
func Parse(ctx context.Context, data []byte, cfg Config) (*raw.Document, error) {
	return NewDocumentParser(cfg).Parse(ctx, data)
}

func (p *DocumentParser) Parse(ctx context.Context, data []byte) (*raw.Document, error) {
	doc, err := raw.NewParser(raw.ParserConfig{Scanner: p.cfg.Scanner}).Parse(ctx, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("scan objects: %w", err)
	}
	if len(doc.Objects) == 0 {
		return nil, ErrNotPDF
	}
	doc.Version = detectHeaderVersion(data)

	if _, ok := doc.Trailer.Get("Root"); !ok {
		p.trailerFromXRefStream(doc)
	}
	if _, ok := doc.Trailer.Get("Encrypt"); ok {
		doc.Encrypted = true
		return nil, ErrEncrypted
	}
	if err := p.inflateObjectStreams(ctx, doc); err != nil {
		return nil, err
	}
	if _, ok := doc.Trailer.Get("Root"); !ok {
		p.guessRoot(doc)
	}
	if doc.Catalog() == nil {
		return nil, fmt.Errorf("parse: %w", raw.ErrNoCatalog)
	}
	p.cfg.Logger.Debug("parsed document",
		observability.String("version", doc.Version),
		observability.Int("objects", len(doc.Objects)),
	)
	return doc, nil
}

// trailerFromXRefStream uses the dictionary of the newest cross-reference
// stream as the trailer; files with only xref streams have no trailer keyword.
func (p *DocumentParser) trailerFromXRefStream(doc *raw.Document) {
	var best raw.ObjectRef
	var dict *raw.DictObj
	for ref, obj := range doc.Objects {
		st, ok := obj.(*raw.StreamObj)
		if !ok {
			continue
		}
		if typ, _ := raw.NameOf(doc.Get(st.Dict, "Type")); typ != "XRef" {
			continue
		}
		if dict == nil || ref.Num > best.Num {
			best, dict = ref, st.Dict
		}
	}
	if dict == nil {
		return
	}
	for _, k := range []string{"Root", "Info", "ID", "Encrypt", "Size"} {
		if v, ok := dict.Get(k); ok {
			doc.Trailer.Set(k, v)
		}
	}
}

// guessRoot picks a /Type /Catalog object when neither a trailer nor an xref
// stream names one.
func (p *DocumentParser) guessRoot(doc *raw.Document) {
	for _, ref := range doc.Refs() {
		d, ok := doc.Objects[ref].(*raw.DictObj)
		if !ok {
			continue
		}
		if typ, _ := raw.NameOf(doc.Get(d, "Type")); typ == "Catalog" {
			p.cfg.Logger.Warn("trailer missing, using first catalog object", observability.Int("object", ref.Num))
			doc.Trailer.Set("Root", raw.RefObj{R: ref})
			return
		}
	}
}

// inflateObjectStreams copies compressed objects into the object table. An
// object defined directly in the file takes precedence over a packed copy.
func (p *DocumentParser) inflateObjectStreams(ctx context.Context, doc *raw.Document) error {
	for _, ref := range doc.Refs() {
		st, ok := doc.Objects[ref].(*raw.StreamObj)
		if !ok {
			continue
		}
		if typ, _ := raw.NameOf(doc.Get(st.Dict, "Type")); typ != "ObjStm" {
			continue
		}
		n, _ := raw.IntOf(doc.Get(st.Dict, "N"))
		first, _ := raw.IntOf(doc.Get(st.Dict, "First"))
		data, _, err := p.cfg.Filters.DecodeStream(ctx, st, doc.Resolve)
		if err == nil {
			var objs map[int]raw.Object
			objs, err = raw.ParseObjectStream(data, int(n), int(first))
			for num, obj := range objs {
				key := raw.ObjectRef{Num: num}
				if _, exists := doc.Objects[key]; !exists {
					doc.Objects[key] = obj
				}
			}
		}
		if err != nil {
			loc := recovery.Location{ObjectNum: ref.Num, ObjectGen: ref.Gen, Component: "parser:objstm"}
			if p.cfg.Recovery.OnError(err, loc) == recovery.ActionFail {
				return fmt.Errorf("object stream %d: %w", ref.Num, err)
			}
		}
	}
	return nil
}

func detectHeaderVersion(data []byte) string {
	// the header may be preceded by garbage; only the first KB is searched
	head := data
	if len(head) > 1024 {
		head = head[:1024]
	}
	idx := bytes.Index(head, []byte("%PDF-"))
	if idx < 0 {
		return ""
	}
	line := string(head[idx+5:])
	for _, sep := range []string{"\r\n", "\n", "\r", " "} {
		if i := strings.Index(line, sep); i >= 0 {
			line = line[:i]
		}
	}
	return strings.TrimSpace(line)
}
