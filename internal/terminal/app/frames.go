package app

import (
	"encoding/json"
	"log"
	"sync"
)

// Inbound frame events.
const (
	eventLogin         = "login"
	eventTerminalInput = "terminal_input"
	eventSessionResume = "session_resume"
)

// Outbound frame events.
const (
	eventTerminalOutput = "terminal_output"
	eventUpdateUIState  = "update_ui_state"
	eventLoginFailure   = "login_failure"
)

// clearSentinel instructs the peer to clear its display buffer instead
// of appending text.
const clearSentinel = "<CLEAR_TERMINAL>"

type frame struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

type loginPayload struct {
	UID string `json:"uid"`
	Key string `json:"key"`
}

type terminalInputPayload struct {
	Command string `json:"command"`
}

type sessionResumePayload struct {
	Token string `json:"token"`
}

type terminalOutputPayload struct {
	Output string `json:"output"`
}

type loginFailurePayload struct {
	Message string `json:"message"`
}

type uiStatePayload struct {
	Role             string            `json:"role"`
	Callsign         string            `json:"callsign,omitempty"`
	Squad            string            `json:"squad,omitempty"`
	ShowUIPanel      bool              `json:"show_ui_panel"`
	ChannelFrequency string            `json:"channel_frequency,omitempty"`
	SquadFrequencies map[string]string `json:"squad_frequencies,omitempty"`
	SessionToken     string            `json:"session_token,omitempty"`
}

func outputFrame(text string) frame {
	return frame{Event: eventTerminalOutput, Payload: mustJSON(terminalOutputPayload{Output: text})}
}

func uiStateFrame(payload uiStatePayload) frame {
	return frame{Event: eventUpdateUIState, Payload: mustJSON(payload)}
}

func loginFailureFrame(message string) frame {
	return frame{Event: eventLoginFailure, Payload: mustJSON(loginFailurePayload{Message: message})}
}

func mustJSON(v any) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		log.Printf("terminal: marshal frame payload: %v", err)
		return nil
	}
	return b
}

// peer serializes frame writes to one connection.
type peer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newPeer(encoder *json.Encoder) *peer {
	return &peer{encoder: encoder}
}

func (p *peer) writeFrame(f frame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(f)
}
