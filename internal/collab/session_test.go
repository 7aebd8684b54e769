package collab

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequest/backend-go/internal/auth"
	"github.com/codequest/backend-go/internal/document"
	"github.com/codequest/backend-go/internal/engine"
)

type store struct {
	mu      sync.Mutex
	canvas  map[string]document.CanvasData
	saves   int
	loadErr error
}

func newStore() *store {
	return &store{canvas: map[string]document.CanvasData{}}
}

func (s *store) load(_ context.Context, boardID string) (*document.CanvasData, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	c, ok := s.canvas[boardID]
	if !ok {
		c = document.NewCanvasData(nil)
	}
	return &c, nil
}

func (s *store) save(_ context.Context, boardID string, data document.CanvasData) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.canvas[boardID] = data
	s.saves++
	return s.saves, nil
}

func (s *store) get(boardID string) (document.CanvasData, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.canvas[boardID], s.saves
}

func startHub(t *testing.T, st *store) *Hub {
	t.Helper()
	h := NewHub(st.load, st.save, engine.LightTheme)
	go h.Run()
	t.Cleanup(h.Stop)
	return h
}

func join(t *testing.T, h *Hub, boardID, clientID string, access auth.Access) *Client {
	t.Helper()
	c := NewClient(h, nil, boardID, clientID, access)
	h.Register(c)
	return c
}

func recv(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case data, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(data, &msg))
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message to %s", c.ClientID)
		return Message{}
	}
}

// recvType skips messages until one of the given type arrives.
func recvType(t *testing.T, c *Client, typ string) Message {
	t.Helper()
	for {
		if msg := recv(t, c); msg.Type == typ {
			return msg
		}
	}
}

func payload[T any](t *testing.T, msg Message) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(msg.Payload, &v))
	return v
}

func send(h *Hub, c *Client, typ string, p any) {
	msg := &Message{Type: typ, ClientID: c.ClientID, BoardID: c.BoardID}
	if p != nil {
		msg.Payload, _ = json.Marshal(p)
	}
	h.handleMessage(c, msg)
}

func waitClosed(t *testing.T, c *Client) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-c.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatalf("send channel of %s never closed", c.ClientID)
		}
	}
}

func TestSession_JoinSequence(t *testing.T) {
	h := startHub(t, newStore())
	c := join(t, h, "board_1", "a", auth.AccessEdit)

	welcome := recv(t, c)
	require.Equal(t, TypeWelcome, welcome.Type)
	assert.Equal(t, WelcomePayload{ClientID: "a", Role: RoleEditor}, payload[WelcomePayload](t, welcome))

	snap := recv(t, c)
	require.Equal(t, TypeCanvasSnapshot, snap.Type)
	assert.Empty(t, payload[document.CanvasData](t, snap).Elements)

	state := recv(t, c)
	require.Equal(t, TypeCanvasState, state.Type)
	st := payload[StatePayload](t, state)
	assert.Equal(t, engine.ToolSelect, st.Tool)
	assert.NotEmpty(t, st.Commands)

	roster := recv(t, c)
	require.Equal(t, TypeRoster, roster.Type)
	assert.Equal(t, RosterPayload{Editor: "a", Viewers: []string{}}, payload[RosterPayload](t, roster))
	assert.Equal(t, 1, h.Sessions())
}

func TestSession_EditorDrawsViewerWatches(t *testing.T) {
	h := startHub(t, newStore())
	editor := join(t, h, "board_1", "ed", auth.AccessEdit)
	viewer := join(t, h, "board_1", "vw", auth.AccessView)
	assert.Equal(t, RoleViewer, payload[WelcomePayload](t, recvType(t, viewer, TypeWelcome)).Role)
	recvType(t, viewer, TypeRoster)

	send(h, editor, TypeToolSet, ToolPayload{Tool: "rectangle"})
	send(h, editor, TypePointerDown, PointerPayload{X: 10, Y: 10})
	send(h, editor, TypePointerUp, PointerPayload{X: 60, Y: 40})

	snap := payload[document.CanvasData](t, recvType(t, viewer, TypeCanvasSnapshot))
	require.Len(t, snap.Elements, 1)
	r := snap.Elements[0].(document.Rectangle)
	assert.Equal(t, [4]float64{10, 10, 50, 30}, [4]float64{r.X, r.Y, r.Width, r.Height})

	// Viewer input is rejected and changes nothing.
	send(h, viewer, TypeEditClear, nil)
	errMsg := recvType(t, viewer, TypeError)
	assert.Equal(t, TypeEditClear, payload[ErrorPayload](t, errMsg).Type)

	send(h, editor, TypeHistoryUndo, nil)
	snap = payload[document.CanvasData](t, recvType(t, viewer, TypeCanvasSnapshot))
	assert.Empty(t, snap.Elements)
}

func hasDash(commands []engine.DrawCommand) bool {
	for _, cmd := range commands {
		if len(cmd.Dash) > 0 {
			return true
		}
	}
	return false
}

func TestSession_ViewersGetReadOnlyState(t *testing.T) {
	h := startHub(t, newStore())
	editor := join(t, h, "board_1", "ed", auth.AccessEdit)
	viewer := join(t, h, "board_1", "vw", auth.AccessView)

	joined := payload[StatePayload](t, recvType(t, viewer, TypeCanvasState))
	assert.True(t, joined.ReadOnly)
	recvType(t, viewer, TypeRoster)

	send(h, editor, TypeToolSet, ToolPayload{Tool: "rectangle"})
	send(h, editor, TypePointerDown, PointerPayload{X: 10, Y: 10})
	send(h, editor, TypePointerUp, PointerPayload{X: 60, Y: 40})
	send(h, editor, TypeToolSet, ToolPayload{Tool: "select"})
	send(h, editor, TypePointerDown, PointerPayload{X: 20, Y: 20})

	var seq int64
	for {
		msg := recvType(t, editor, TypeCanvasState)
		st := payload[StatePayload](t, msg)
		if st.Selected != "" {
			assert.False(t, st.ReadOnly)
			assert.True(t, hasDash(st.Commands))
			seq = msg.Seq
			break
		}
	}

	for {
		msg := recvType(t, viewer, TypeCanvasState)
		st := payload[StatePayload](t, msg)
		assert.True(t, st.ReadOnly)
		assert.Empty(t, st.Selected)
		assert.False(t, st.CanUndo)
		assert.False(t, hasDash(st.Commands))
		if msg.Seq == seq {
			assert.Greater(t, len(st.Commands), 1)
			break
		}
	}
}

func TestSession_TextFlow(t *testing.T) {
	h := startHub(t, newStore())
	c := join(t, h, "board_1", "a", auth.AccessEdit)
	recvType(t, c, TypeRoster)

	send(h, c, TypeToolSet, ToolPayload{Tool: "text"})
	send(h, c, TypePointerDown, PointerPayload{X: 40, Y: 50})
	state := payload[StatePayload](t, recvType(t, c, TypeCanvasState))
	for !state.Prompt.Open {
		state = payload[StatePayload](t, recvType(t, c, TypeCanvasState))
	}

	send(h, c, TypeTextInput, TextInputPayload{Text: "DB"})
	send(h, c, TypeTextKey, TextKeyPayload{Key: "Enter"})

	snap := payload[document.CanvasData](t, recvType(t, c, TypeCanvasSnapshot))
	require.Len(t, snap.Elements, 1)
	assert.Equal(t, "DB", snap.Elements[0].(document.Text).Content)

	text := "Cache"
	send(h, c, TypePointerDown, PointerPayload{X: 1, Y: 1})
	send(h, c, TypeTextConfirm, TextConfirmPayload{Text: &text})
	snap = payload[document.CanvasData](t, recvType(t, c, TypeCanvasSnapshot))
	require.Len(t, snap.Elements, 2)
	assert.Equal(t, "Cache", snap.Elements[1].(document.Text).Content)
}

func TestSession_RejectsBadInput(t *testing.T) {
	h := startHub(t, newStore())
	c := join(t, h, "board_1", "a", auth.AccessEdit)
	recvType(t, c, TypeRoster)

	send(h, c, "object.transform", nil)
	assert.Equal(t, "unknown message type", payload[ErrorPayload](t, recvType(t, c, TypeError)).Message)

	send(h, c, TypeToolSet, ToolPayload{Tool: "lasso"})
	assert.Contains(t, payload[ErrorPayload](t, recvType(t, c, TypeError)).Message, "unknown tool")

	h.handleMessage(c, &Message{Type: TypePointerDown, Payload: json.RawMessage(`"nope"`)})
	assert.Contains(t, payload[ErrorPayload](t, recvType(t, c, TypeError)).Message, "invalid pointer.down payload")
}

func TestSession_SecondEditorIsDemotedThenPromoted(t *testing.T) {
	h := startHub(t, newStore())
	first := join(t, h, "board_1", "first", auth.AccessEdit)
	second := join(t, h, "board_1", "second", auth.AccessEdit)

	assert.Equal(t, RoleViewer, payload[WelcomePayload](t, recvType(t, second, TypeWelcome)).Role)
	roster := payload[RosterPayload](t, recvType(t, second, TypeRoster))
	assert.Equal(t, RosterPayload{Editor: "first", Viewers: []string{"second"}}, roster)

	h.Unregister(first)
	waitClosed(t, first)

	promoted := recvType(t, second, TypeWelcome)
	assert.Equal(t, RoleEditor, payload[WelcomePayload](t, promoted).Role)

	send(h, second, TypeEditClear, nil)
	snap := recvType(t, second, TypeCanvasSnapshot)
	assert.Empty(t, payload[document.CanvasData](t, snap).Elements)
}

func TestSession_SaveAndRelease(t *testing.T) {
	st := newStore()
	h := startHub(t, st)
	c := join(t, h, "board_1", "a", auth.AccessEdit)
	recvType(t, c, TypeRoster)

	assert.True(t, h.IsLive("board_1"))
	assert.False(t, h.IsLive("board_2"))

	send(h, c, TypeCanvasSave, nil)
	saved := payload[SavedPayload](t, recvType(t, c, TypeCanvasSaved))
	assert.Equal(t, 1, saved.Version)

	send(h, c, TypeToolSet, ToolPayload{Tool: "circle"})
	send(h, c, TypePointerDown, PointerPayload{X: 100, Y: 100})
	send(h, c, TypePointerUp, PointerPayload{X: 100, Y: 140})
	recvType(t, c, TypeCanvasSnapshot)

	h.Unregister(c)
	waitClosed(t, c)

	require.Eventually(t, func() bool {
		canvas, _ := st.get("board_1")
		return len(canvas.Elements) == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, h.Sessions())
	assert.False(t, h.IsLive("board_1"))

	// Rejoining loads the saved canvas.
	again := join(t, h, "board_1", "b", auth.AccessEdit)
	snap := payload[document.CanvasData](t, recvType(t, again, TypeCanvasSnapshot))
	require.Len(t, snap.Elements, 1)
	assert.Equal(t, 20.0, snap.Elements[0].(document.Circle).Radius)
}

func TestSession_StopSavesDirtyCanvas(t *testing.T) {
	st := newStore()
	h := NewHub(st.load, st.save, engine.LightTheme)
	go h.Run()

	c := join(t, h, "board_1", "a", auth.AccessEdit)
	send(h, c, TypeEditClear, nil)
	recvType(t, c, TypeCanvasSnapshot)

	h.Stop()
	waitClosed(t, c)

	_, saves := st.get("board_1")
	assert.Equal(t, 1, saves)

	// Registering after stop does not block.
	h.Register(NewClient(h, nil, "board_1", "late", auth.AccessEdit))
}

func TestSession_LoadFailure(t *testing.T) {
	st := newStore()
	st.loadErr = errors.New("db down")
	h := startHub(t, st)

	c := join(t, h, "board_1", "a", auth.AccessEdit)
	assert.Equal(t, TypeError, recv(t, c).Type)
	waitClosed(t, c)
	assert.Equal(t, 0, h.Sessions())

	h.Unregister(c)
}

func TestRoster_JoinLeave(t *testing.T) {
	r := NewRoster()
	view := &Client{ClientID: "v", Access: auth.AccessView}
	e1 := &Client{ClientID: "e1", Access: auth.AccessEdit}
	e2 := &Client{ClientID: "e2", Access: auth.AccessEdit}

	assert.Equal(t, RoleViewer, r.Join(view))
	assert.Equal(t, RoleEditor, r.Join(e1))
	assert.Equal(t, RoleViewer, r.Join(e2))

	assert.Nil(t, r.Leave("v"))
	assert.Same(t, e2, r.Leave("e1"))
	assert.Equal(t, RoleEditor, r.Role("e2"))
	assert.Nil(t, r.Leave("e2"))
	assert.Equal(t, 0, r.Len())
	assert.Nil(t, r.Leave("missing"))
}
