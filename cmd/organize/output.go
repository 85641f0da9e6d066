package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"

	"github.com/wudi/pdforganizer/worksheet"
)

var errUsage = errors.New("usage")

// resolvePaths checks the input and turns both paths absolute. A directory
// output receives "<stem>-replaced.pdf" with spaces replaced by dashes.
func resolvePaths(input, output string) (string, string, error) {
	in, err := filepath.Abs(input)
	if err != nil {
		return "", "", err
	}
	st, err := os.Stat(in)
	if err != nil {
		return "", "", fmt.Errorf("%w: %s does not exist", worksheet.ErrInput, input)
	}
	if !st.Mode().IsRegular() {
		return "", "", fmt.Errorf("%w: %s is not a file", worksheet.ErrInput, input)
	}

	out, err := filepath.Abs(output)
	if err != nil {
		return "", "", err
	}
	if st, err := os.Stat(out); err == nil && st.IsDir() {
		stem := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
		out = filepath.Join(out, strings.ReplaceAll(stem, " ", "-")+"-replaced.pdf")
	}
	if out == in {
		return "", "", fmt.Errorf("%w: output would overwrite the input %s", worksheet.ErrInput, input)
	}
	return in, out, nil
}

// writeLocked replaces path with data through a temporary file while
// holding path.lock.
func writeLocked(path string, data []byte) error {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	if !locked {
		return fmt.Errorf("%s is being written by another process", path)
	}
	defer func() {
		lock.Unlock()
		os.Remove(path + ".lock")
	}()

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return nil
}
