package observability

import (
	"bytes"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Info("ignored", String("k", "v"))
	assert.Equal(t, NopLogger{}, l.With(Int("n", 1)))
	assert.Equal(t, NopLogger{}, OrNop(nil))
}

func TestLogrusAdapterWritesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewTextLogger(&buf, "info").With(String("run", "abc"))
	l.Debug("hidden")
	l.Info("renumbered", Int("page", 2), Float64("top", 12.5), Error("error", errors.New("boom")))

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "renumbered")
	assert.Contains(t, out, "run=abc")
	assert.Contains(t, out, "page=2")
	assert.Contains(t, out, "top=12.5")
	assert.Contains(t, out, "error=boom")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, ParseLevel("DEBUG"))
	assert.Equal(t, logrus.ErrorLevel, ParseLevel("error"))
	assert.Equal(t, logrus.WarnLevel, ParseLevel("nonsense"))
}
