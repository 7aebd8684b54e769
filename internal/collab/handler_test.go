package collab

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codequest/backend-go/internal/auth"
	"github.com/codequest/backend-go/internal/document"
	"github.com/codequest/backend-go/internal/engine"
)

func startServer(t *testing.T, tokens *auth.Service) *httptest.Server {
	t.Helper()
	hub := startHub(t, newStore())

	r := mux.NewRouter()
	r.HandleFunc("/ws/board/{boardId}", NewHandler(hub, tokens, nil).ServeWS)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func dial(ctx context.Context, srv *httptest.Server, path string) (*websocket.Conn, *http.Response, error) {
	return websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http")+path, nil)
}

func readUntil(ctx context.Context, t *testing.T, conn *websocket.Conn, typ string) Message {
	t.Helper()
	for {
		var msg Message
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if msg.Type == typ {
			return msg
		}
	}
}

func TestHandler_WebSocketRoundTrip(t *testing.T) {
	tokens := auth.NewService("secret")
	srv := startServer(t, tokens)
	token, err := tokens.Issue("board_1", auth.AccessEdit)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := dial(ctx, srv, "/ws/board/board_1?token="+token)
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	welcome := readUntil(ctx, t, conn, TypeWelcome)
	assert.Equal(t, RoleEditor, payload[WelcomePayload](t, welcome).Role)
	readUntil(ctx, t, conn, TypeRoster)

	for _, m := range []Message{
		{Type: TypeToolSet, Payload: []byte(`{"tool":"arrow"}`)},
		{Type: TypePointerDown, Payload: []byte(`{"x":0,"y":0}`)},
		{Type: TypePointerUp, Payload: []byte(`{"x":100,"y":0}`)},
	} {
		require.NoError(t, wsjson.Write(ctx, conn, m))
	}

	snap := payload[document.CanvasData](t, readUntil(ctx, t, conn, TypeCanvasSnapshot))
	require.Len(t, snap.Elements, 1)
	assert.Equal(t, document.ElementTypeArrow, snap.Elements[0].Type())

	state := payload[StatePayload](t, readUntil(ctx, t, conn, TypeCanvasState))
	assert.True(t, state.CanUndo)
	assert.Equal(t, engine.ToolArrow, state.Tool)
}

func TestHandler_RejectsBadTokens(t *testing.T) {
	tokens := auth.NewService("secret")
	srv := startServer(t, tokens)
	other, err := tokens.Issue("board_2", auth.AccessEdit)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := dial(ctx, srv, "/ws/board/board_1")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dial(ctx, srv, "/ws/board/board_1?token=garbage")
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = dial(ctx, srv, "/ws/board/board_1?token="+other)
	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
