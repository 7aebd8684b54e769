package collab

import (
	"encoding/json"

	"github.com/codequest/backend-go/internal/engine"
)

type Message struct {
	Type     string          `json:"type"`
	BoardID  string          `json:"boardId,omitempty"`
	ClientID string          `json:"clientId,omitempty"`
	Seq      int64           `json:"seq,omitempty"`
	Payload  json.RawMessage `json:"payload,omitempty"`
}

const (
	// Connection
	TypeWelcome = "welcome"
	TypeRoster  = "session.roster"
	TypeError   = "error"

	// Input, client → server
	TypeToolSet       = "tool.set"
	TypePointerDown   = "pointer.down"
	TypePointerMove   = "pointer.move"
	TypePointerUp     = "pointer.up"
	TypePointerCancel = "pointer.cancel"
	TypeTextInput     = "text.input"
	TypeTextKey       = "text.key"
	TypeTextConfirm   = "text.confirm"
	TypeTextCancel    = "text.cancel"
	TypeEditDelete    = "edit.delete"
	TypeEditClear     = "edit.clear"
	TypeHistoryUndo   = "history.undo"
	TypeHistoryRedo   = "history.redo"
	TypeCanvasSave    = "canvas.save"

	// Canvas sync, server → client
	TypeCanvasSnapshot = "canvas.snapshot"
	TypeCanvasState    = "canvas.state"
	TypeCanvasSaved    = "canvas.saved"
)

// Role is a client's part in a session. A session has at most one editor.
type Role string

const (
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

type WelcomePayload struct {
	ClientID string `json:"clientId"`
	Role     Role   `json:"role"`
}

type RosterPayload struct {
	Editor  string   `json:"editor,omitempty"`
	Viewers []string `json:"viewers"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

type ToolPayload struct {
	Tool string `json:"tool"`
}

type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type TextInputPayload struct {
	Text string `json:"text"`
}

type TextKeyPayload struct {
	Key string `json:"key"`
}

// TextConfirmPayload confirms the prompt. Without Text the buffered input is used.
type TextConfirmPayload struct {
	Text *string `json:"text,omitempty"`
}

type StatePayload struct {
	engine.State
	Commands []engine.DrawCommand `json:"commands"`
}

type SavedPayload struct {
	Version int `json:"version"`
}

// inputTypes are the messages that drive the canvas. Viewers may not send them.
var inputTypes = map[string]bool{
	TypeToolSet:       true,
	TypePointerDown:   true,
	TypePointerMove:   true,
	TypePointerUp:     true,
	TypePointerCancel: true,
	TypeTextInput:     true,
	TypeTextKey:       true,
	TypeTextConfirm:   true,
	TypeTextCancel:    true,
	TypeEditDelete:    true,
	TypeEditClear:     true,
	TypeHistoryUndo:   true,
	TypeHistoryRedo:   true,
	TypeCanvasSave:    true,
}

func newMessage(typ string, payload any) (*Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Message{Type: typ, Payload: data}, nil
}
