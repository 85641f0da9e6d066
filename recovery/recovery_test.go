package recovery_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdforganizer/recovery"
	"github.com/wudi/pdforganizer/scanner"
)

func drain(s scanner.Scanner) error {
	for {
		if _, err := s.Next(); err != nil {
			return err
		}
	}
}

func TestRecoveryStrategies(t *testing.T) {
	broken := []byte("(never closed")

	t.Run("StrictStrategy", func(t *testing.T) {
		s := scanner.New(bytes.NewReader(broken), scanner.Config{Recovery: recovery.NewStrictStrategy()})
		_, err := s.Next()
		require.Error(t, err)
	})

	t.Run("LenientStrategy", func(t *testing.T) {
		rec := recovery.NewLenientStrategy(nil)
		s := scanner.New(bytes.NewReader(broken), scanner.Config{Recovery: rec})
		tok, err := s.Next()
		require.NoError(t, err)
		assert.Equal(t, scanner.TokenString, tok.Type)
		assert.Equal(t, []byte("never closed"), tok.Value)
		require.Len(t, rec.Errors, 1)
		assert.Contains(t, rec.Errors[0].Error(), "scanner:literal")
		assert.True(t, errors.Is(drain(s), io.EOF))
	})
}
