package filters

import (
	"context"
	"testing"
)

func FuzzFilters(f *testing.F) {
	f.Add([]byte("some compressed data"), "FlateDecode")
	f.Add([]byte("some ascii85 data"), "ASCII85Decode")
	f.Add([]byte("some hex data"), "ASCIIHexDecode")
	f.Add([]byte{3, 1, 2, 3, 4, 200, 9}, "RunLengthDecode")

	f.Fuzz(func(t *testing.T, data []byte, filterName string) {
		// errors are fine, panics are not
		_, _ = Default().Decode(context.Background(), data, []string{filterName}, nil)
	})
}
