// Package console implements the interactive script session protocol: a
// line-oriented read-eval-print loop over a bidirectional message
// transport. Each accepted connection gets exactly one Session, which
// exclusively owns one evaluator instance for its whole lifetime.
package console

import (
	"bytes"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"v8console/internal/engine"
	"v8console/internal/logger"
)

// Prompt is the literal token re-emitted after every evaluation cycle.
const Prompt = "v8> "

// banner greets a brand-new session before any input is processed.
const banner = "Interactive JavaScript console\r\n" +
	"Type a statement and press Enter to evaluate it.\r\n" +
	"Send an empty message to end the session.\r\n" +
	"\r\n" + Prompt

// lineTerminator ends every reply line.
const lineTerminator = "\r\n"

// State is the session's protocol state.
type State int

const (
	// StateAwaitingLine accumulates inbound fragments until a line
	// terminator is seen.
	StateAwaitingLine State = iota
	// StateEvaluating runs the accumulated line through the evaluator.
	StateEvaluating
	// StateClosed is terminal; the transport is gone.
	StateClosed
)

// Transport is the per-connection bidirectional message channel. It is
// satisfied by *websocket.Conn.
type Transport interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Evaluator is the blocking evaluate capability of an embedded scripting
// runtime. Satisfied by *engine.Engine.
type Evaluator interface {
	Evaluate(src string) (string, error)
}

// Session converts a stream of inbound text fragments into discrete
// evaluation requests and produces a deterministic reply stream. Inbound
// messages are processed strictly sequentially; no two evaluations run
// concurrently for the same session.
type Session struct {
	id        string
	transport Transport
	evaluator Evaluator
	log       *logger.Logger

	// writeMu serializes every write to the transport: echoes, replies,
	// prompts and bridge output interleave on the same connection and
	// must not corrupt message framing.
	writeMu sync.Mutex

	input    bytes.Buffer
	maxInput int64
	state    State
}

// NewSession creates a session bound to its transport. The evaluator is
// supplied to Run so bridges can be wired to the session writer first.
func NewSession(id string, transport Transport, log *logger.Logger) *Session {
	if log == nil {
		log = logger.Global()
	}
	return &Session{
		id:        id,
		transport: transport,
		log:       log.WithPrefix("session " + id),
		state:     StateAwaitingLine,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// SetMaxInputSize bounds the pending input buffer. A line exceeding the
// bound closes the session with a message-too-big close code instead of
// growing memory without limit. Zero or negative disables the bound.
func (s *Session) SetMaxInputSize(n int64) {
	s.maxInput = n
}

// State returns the session's current protocol state.
func (s *Session) State() State { return s.state }

// Close tears down the transport, which unblocks a pending read and
// terminates Run.
func (s *Session) Close() error {
	return s.transport.Close()
}

// Run drives the read-eval-print loop until the transport closes. It
// blocks; callers run it in a dedicated goroutine. The evaluator becomes
// the session's exclusively owned engine and must be freshly constructed
// for this session.
func (s *Session) Run(evaluator Evaluator) error {
	s.evaluator = evaluator

	if err := s.WriteText(banner); err != nil {
		s.state = StateClosed
		return err
	}

	for {
		messageType, payload, err := s.transport.ReadMessage()
		if err != nil {
			s.state = StateClosed
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Error("read error: %v", err)
				return err
			}
			s.log.Debug("transport closed: %v", err)
			return nil
		}

		switch messageType {
		case websocket.TextMessage:
			done, err := s.handleFragment(payload)
			if err != nil {
				s.state = StateClosed
				s.log.Debug("write failed, ending session: %v", err)
				return err
			}
			if done {
				return nil
			}
		default:
			// Binary and unknown frames are undefined behavior; at
			// minimum they must not crash the session.
			s.log.Debug("ignoring frame type %d", messageType)
		}
	}
}

// handleFragment appends one inbound text fragment to the pending input
// buffer and, once a line terminator is observed, runs a full
// evaluate-and-reply cycle. It reports done when the client requested
// termination.
func (s *Session) handleFragment(payload []byte) (done bool, err error) {
	// A zero-length payload as the very first fragment of a line is the
	// client's request to end the interaction.
	if s.input.Len() == 0 && len(payload) == 0 {
		s.state = StateClosed
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		if werr := s.writeControl(websocket.CloseMessage, msg); werr != nil {
			s.log.Debug("close handshake write failed: %v", werr)
		}
		return true, nil
	}

	// A line that outgrows the input bound is a misbehaving peer, not a
	// protocol participant; close before echoing the overflowing fragment.
	if s.maxInput > 0 && int64(s.input.Len()+len(payload)) > s.maxInput {
		s.state = StateClosed
		s.log.Warn("input exceeded %d bytes, closing", s.maxInput)
		msg := websocket.FormatCloseMessage(websocket.CloseMessageTooBig, "")
		if werr := s.writeControl(websocket.CloseMessage, msg); werr != nil {
			s.log.Debug("close handshake write failed: %v", werr)
		}
		return true, nil
	}

	// Echo the raw fragment so the remote end sees character-by-character
	// feedback and client-side line editing stays optional.
	if err := s.writeRaw(payload); err != nil {
		return false, err
	}
	s.input.Write(payload)

	if !bytes.ContainsRune(payload, '\n') {
		return false, nil
	}

	s.state = StateEvaluating
	line := strings.TrimSpace(s.input.String())
	s.input.Reset()

	reply := s.evaluate(line)
	if err := s.WriteText(reply + lineTerminator); err != nil {
		return false, err
	}
	if err := s.WriteText(Prompt); err != nil {
		return false, err
	}

	s.state = StateAwaitingLine
	return false, nil
}

// evaluate runs one trimmed input line and formats the reply. An empty
// line still performs a full cycle; it evaluates to no value and keeps
// the remote terminal responsive to bare newline presses.
func (s *Session) evaluate(line string) string {
	result, err := s.evaluator.Evaluate(line)
	if err != nil {
		return "Uncaught " + err.Error()
	}
	if result == engine.NoValue {
		// No placeholder marker for valueless evaluations.
		return ""
	}
	return result
}

// WriteText sends one text frame through the session's single-writer
// discipline. Bridges and the reply path both funnel through here.
func (s *Session) WriteText(text string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.transport.WriteMessage(websocket.TextMessage, []byte(text))
}

func (s *Session) writeRaw(payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.transport.WriteMessage(websocket.TextMessage, payload)
}

func (s *Session) writeControl(messageType int, payload []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.transport.WriteMessage(messageType, payload)
}
