package parser

import (
	"context"
	"testing"

	"github.com/wudi/pdforganizer/recovery"
)

func FuzzDocumentParser(f *testing.F) {
	f.Add([]byte("%PDF-1.7\n1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n..."))

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = Parse(context.Background(), data, Config{Recovery: recovery.NewStrictStrategy()})
		_, _ = Parse(context.Background(), data, Config{})
	})
}
