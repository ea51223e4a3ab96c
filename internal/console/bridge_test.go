package console

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type recordingWriter struct {
	texts []string
	err   error
}

func (r *recordingWriter) WriteText(text string) error {
	if r.err != nil {
		return r.err
	}
	r.texts = append(r.texts, text)
	return nil
}

func TestBridgeLogIsUnmodified(t *testing.T) {
	w := &recordingWriter{}
	bridge := NewBridge(w, nil)

	bridge.Log("plain text")

	assert.Equal(t, []string{"plain text\r\n"}, w.texts)
}

func TestBridgeWarnPrefix(t *testing.T) {
	w := &recordingWriter{}
	bridge := NewBridge(w, nil)

	bridge.Warn("disk almost full")

	assert.Equal(t, []string{"WARNING: disk almost full\r\n"}, w.texts)
}

func TestBridgeErrorPrefix(t *testing.T) {
	w := &recordingWriter{}
	bridge := NewBridge(w, nil)

	bridge.Error("it broke")

	assert.Equal(t, []string{"ERROR: it broke\r\n"}, w.texts)
}

func TestBridgeSwallowsWriteErrors(t *testing.T) {
	w := &recordingWriter{err: errors.New("connection reset")}
	bridge := NewBridge(w, nil)

	// Must not panic and must not surface the transport fault.
	bridge.Log("dropped")
	bridge.Warn("dropped")
	bridge.Error("dropped")

	assert.Empty(t, w.texts)
}
