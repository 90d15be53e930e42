package session

// EventType discriminates server-to-client protocol events.
type EventType string

const (
	EventConnected      EventType = "connected"
	EventSessionStarted EventType = "session_started"
	EventPartial        EventType = "partial"
	EventFinal          EventType = "final"
	EventError          EventType = "error"
	EventSessionEnded   EventType = "session_ended"
	EventPong           EventType = "pong"
)

// Error codes carried by ErrorEvent. None of them closes the session;
// they are diagnostics for the client.
const (
	CodeFormat     = "format_error"
	CodeRecognizer = "recognizer_error"
	CodeOverflow   = "overflow"
	CodeProtocol   = "protocol_error"
)

// ControlEvent covers lifecycle acknowledgements and keepalive replies.
type ControlEvent struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Message   string    `json:"message,omitempty"`
	Mode      string    `json:"mode,omitempty"`
}

// TranscriptEvent carries recognized text. Partial events may be revised
// by a later pass over overlapping audio; a final event commits its text
// forever. FullText is the committed transcript so far, final segments
// included.
type TranscriptEvent struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Seq       int       `json:"seq"`
	Text      string    `json:"text"`
	FullText  string    `json:"full_text,omitempty"`
	IsFinal   bool      `json:"is_final"`
}

// ErrorEvent reports a recoverable per-session fault.
type ErrorEvent struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id,omitempty"`
	Code      string    `json:"code"`
	Message   string    `json:"message"`
}

// Emitter receives the ordered event stream of one session. The session
// calls Emit with its internal lock held, so implementations must not
// block.
type Emitter interface {
	Emit(event interface{})
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(event interface{})

// Emit implements Emitter.
func (f EmitterFunc) Emit(event interface{}) { f(event) }
