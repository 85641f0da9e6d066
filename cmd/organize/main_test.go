package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wudi/pdforganizer/worksheet"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7\n"), 0o644))
}

func TestResolvePaths(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "week 3 sheet.pdf")
	touch(t, input)
	outDir := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(outDir, 0o755))

	t.Run("file output", func(t *testing.T) {
		in, out, err := resolvePaths(input, filepath.Join(dir, "new.pdf"))
		require.NoError(t, err)
		assert.Equal(t, input, in)
		assert.Equal(t, filepath.Join(dir, "new.pdf"), out)
	})

	t.Run("directory output", func(t *testing.T) {
		_, out, err := resolvePaths(input, outDir)
		require.NoError(t, err)
		assert.Equal(t, filepath.Join(outDir, "week-3-sheet-replaced.pdf"), out)
	})

	for _, tc := range []struct {
		name          string
		input, output string
		msg           string
	}{
		{"missing input", filepath.Join(dir, "nope.pdf"), "x.pdf", "does not exist"},
		{"directory input", outDir, "x.pdf", "is not a file"},
		{"same path", input, input, "overwrite the input"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := resolvePaths(tc.input, tc.output)
			assert.ErrorIs(t, err, worksheet.ErrInput)
			assert.ErrorContains(t, err, tc.msg)
		})
	}
}

func TestWriteLocked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, writeLocked(path, []byte("first")))
	require.NoError(t, writeLocked(path, []byte("second")))
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(got))
	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err))

	held := flock.New(path + ".lock")
	locked, err := held.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer held.Unlock()
	assert.ErrorContains(t, writeLocked(path, []byte("third")), "being written by another process")
}

func TestAppArguments(t *testing.T) {
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer, app.ErrWriter = &stdout, &stderr

	err := app.Run([]string{"organize", "only-one.pdf"})
	assert.ErrorIs(t, err, errUsage)

	err = app.Run([]string{"organize", "--log-level", "loud", "a.pdf", "b.pdf"})
	assert.ErrorContains(t, err, "invalid configuration")

	err = app.Run([]string{"organize", "-l", filepath.Join(t.TempDir(), "missing.pdf"), "b.pdf"})
	assert.ErrorIs(t, err, worksheet.ErrInput)
	assert.Empty(t, stdout.String())
}
