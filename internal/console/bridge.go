package console

import "v8console/internal/logger"

const (
	warningPrefix = "WARNING: "
	errorPrefix   = "ERROR: "
)

// TextWriter is the outbound half of a session the bridge forwards to.
type TextWriter interface {
	WriteText(text string) error
}

// Bridge is the three-operation output capability exposed into the
// evaluator. It holds only a back-reference to the owning session's
// writer; it forwards text and never manages the transport's lifecycle.
// Its methods may be invoked at arbitrary points inside an evaluation
// and must never block or fail from the script's point of view, so
// transport errors are swallowed here.
type Bridge struct {
	w   TextWriter
	log *logger.Logger
}

// NewBridge creates a bridge forwarding to w.
func NewBridge(w TextWriter, log *logger.Logger) *Bridge {
	if log == nil {
		log = logger.Global()
	}
	return &Bridge{w: w, log: log}
}

// Log forwards informational text unmodified.
func (b *Bridge) Log(msg string) {
	b.forward(msg)
}

// Warn forwards text prefixed with the warning tag.
func (b *Bridge) Warn(msg string) {
	b.forward(warningPrefix + msg)
}

// Error forwards text prefixed with the error tag.
func (b *Bridge) Error(msg string) {
	b.forward(errorPrefix + msg)
}

func (b *Bridge) forward(text string) {
	if err := b.w.WriteText(text + lineTerminator); err != nil {
		// Best-effort output: backpressure and broken transports never
		// surface to the evaluating script.
		b.log.Debug("bridge write dropped: %v", err)
	}
}
