package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/nadasuara/server/internal/session"
)

// Supported client commands. Commands arrive as JSON text frames; audio
// arrives as binary frames and never carries JSON framing.
const (
	CommandStart = "start"
	CommandStop  = "stop"
	CommandPing  = "ping"
)

// Command is a control message from the device. Language and encoding
// are honored on start only; later occurrences are ignored.
type Command struct {
	Command    string `json:"command"`
	Language   string `json:"language,omitempty"`
	Encoding   string `json:"encoding,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
}

// ParseCommand decodes and validates one text frame.
func ParseCommand(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, fmt.Errorf("invalid JSON command: %w", err)
	}

	switch cmd.Command {
	case CommandStart, CommandStop, CommandPing:
	case "":
		return nil, fmt.Errorf("command field is required")
	default:
		return nil, fmt.Errorf("unsupported command: %s", cmd.Command)
	}

	if cmd.Encoding != "" && cmd.Encoding != session.EncodingPCM && cmd.Encoding != session.EncodingWAV {
		return nil, fmt.Errorf("encoding must be one of: pcm, wav")
	}
	if cmd.SampleRate < 0 {
		return nil, fmt.Errorf("sample_rate must be positive")
	}

	return &cmd, nil
}
