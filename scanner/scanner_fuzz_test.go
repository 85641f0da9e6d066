package scanner

import (
	"bytes"
	"testing"

	"github.com/wudi/pdforganizer/recovery"
)

func FuzzScanner(f *testing.F) {
	f.Add([]byte("<< /Type /Page >>"))
	f.Add([]byte("[ 1 2 3 ]"))
	f.Add([]byte("stream\n...data...\nendstream"))
	f.Add([]byte("(Hello World)"))
	f.Add([]byte("<AABBCC>"))
	f.Add([]byte("BT /F1 12 Tf (1.) Tj ET"))

	f.Fuzz(func(t *testing.T, data []byte) {
		s := New(bytes.NewReader(data), Config{
			MaxStringLength: 1024,
			MaxStreamLength: 1024,
			WindowSize:      1024,
			Recovery:        recovery.NewLenientStrategy(nil),
		})
		for i := 0; i < 4*len(data)+8; i++ {
			if _, err := s.Next(); err != nil {
				return
			}
		}
		t.Fatalf("scanner did not terminate on %q", data)
	})
}
