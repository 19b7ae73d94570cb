package logger

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Init(Options{
		Level:   "warn",
		File:    filepath.Join(t.TempDir(), "logs", "pdftools.log"),
		Console: &buf,
	}))
	defer Close()

	Info("dropped")
	l := For("session")
	l.Warn().Str("tool", "merge").Msg("superseded")

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	var ev map[string]any
	require.NoError(t, json.Unmarshal(lines[0], &ev))
	assert.Equal(t, "warn", ev["level"])
	assert.Equal(t, "session", ev["component"])
	assert.Equal(t, "merge", ev["tool"])
}

type captured struct{ events []axiom.Event }

func (c *captured) Send(ev axiom.Event) { c.events = append(c.events, ev) }

func TestAxiomWriterSkipsDebug(t *testing.T) {
	c := &captured{}
	w := &axiomWriter{client: c}

	_, _ = w.Write([]byte(`{"level":"debug","message":"noise"}`))
	n, err := w.Write([]byte(`{"level":"info","message":"merged"}`))
	require.NoError(t, err)
	assert.Positive(t, n)
	_, _ = w.Write([]byte("not json"))

	require.Len(t, c.events, 2)
	assert.Equal(t, ServiceName, c.events[0]["service"])
	assert.Equal(t, "merged", c.events[0]["message"])
	assert.Equal(t, "not json", c.events[1]["message"])
}
