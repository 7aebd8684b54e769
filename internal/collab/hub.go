package collab

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/codequest/backend-go/internal/document"
	"github.com/codequest/backend-go/internal/engine"
)

const loadTimeout = 5 * time.Second

// CanvasLoader returns the saved canvas of a board.
type CanvasLoader func(ctx context.Context, boardID string) (*document.CanvasData, error)

// CanvasSaver stores a canvas snapshot and returns its version.
type CanvasSaver func(ctx context.Context, boardID string, data document.CanvasData) (int, error)

type sessionEntry struct {
	session *Session
	clients int
}

type Hub struct {
	mu         sync.RWMutex
	sessions   map[string]*sessionEntry // boardID -> live session
	closing    map[string]*Session      // boardID -> released session still saving
	register   chan *Client
	unregister chan *Client
	stop       chan struct{}
	done       chan struct{}
	stopOnce   sync.Once

	load  CanvasLoader
	save  CanvasSaver
	theme engine.Theme
}

func NewHub(load CanvasLoader, save CanvasSaver, theme engine.Theme) *Hub {
	return &Hub{
		sessions:   make(map[string]*sessionEntry),
		closing:    make(map[string]*Session),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		load:       load,
		save:       save,
		theme:      theme,
	}
}

func (h *Hub) Run() {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.stop:
			h.closeAll()
			return
		}
	}
}

// Register adds a client to its board's session and returns once the client
// can send messages.
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
		<-client.ready
	case <-h.done:
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Stop closes every session, saving unsaved canvases, and waits for them.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Sessions returns the number of live sessions.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// IsLive reports whether boardID has a live session.
func (h *Hub) IsLive(boardID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.sessions[boardID]
	return ok
}

func (h *Hub) addClient(client *Client) {
	defer close(client.ready)

	h.mu.Lock()
	entry, ok := h.sessions[client.BoardID]
	h.mu.Unlock()

	if !ok {
		// A released session may still be saving; load only after it finished.
		if prev, closing := h.closing[client.BoardID]; closing {
			<-prev.done
		}
		h.pruneClosing()

		// Loading runs on the hub goroutine; joins to other boards wait for it.
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		initial, err := h.load(ctx, client.BoardID)
		cancel()
		if err != nil {
			slog.Error("load canvas", "board", client.BoardID, "error", err)
			client.sendError("", "failed to load canvas")
			close(client.send)
			return
		}

		entry = &sessionEntry{session: newSession(client.BoardID, initial, h.save, h.theme)}
		go entry.session.run()

		h.mu.Lock()
		h.sessions[client.BoardID] = entry
		h.mu.Unlock()
	}

	entry.clients++
	client.joined = true
	entry.session.submit(event{kind: eventJoin, client: client})
}

func (h *Hub) pruneClosing() {
	for id, s := range h.closing {
		select {
		case <-s.done:
			delete(h.closing, id)
		default:
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	if !client.joined {
		return
	}
	client.joined = false

	h.mu.Lock()
	entry, ok := h.sessions[client.BoardID]
	if !ok {
		h.mu.Unlock()
		return
	}
	entry.clients--
	last := entry.clients <= 0
	if last {
		delete(h.sessions, client.BoardID)
	}
	h.mu.Unlock()

	entry.session.submit(event{kind: eventLeave, client: client})
	if last {
		entry.session.submit(event{kind: eventClose})
		h.closing[client.BoardID] = entry.session
		slog.Info("session released", "board", client.BoardID)
	}
}

func (h *Hub) handleMessage(sender *Client, msg *Message) {
	h.mu.RLock()
	entry, ok := h.sessions[sender.BoardID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	entry.session.submit(event{kind: eventMessage, client: sender, msg: msg})
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	entries := make([]*sessionEntry, 0, len(h.sessions))
	for id, entry := range h.sessions {
		entries = append(entries, entry)
		delete(h.sessions, id)
	}
	h.mu.Unlock()

	for _, entry := range entries {
		entry.session.submit(event{kind: eventClose})
	}
	for _, entry := range entries {
		<-entry.session.done
	}
	for _, s := range h.closing {
		<-s.done
	}
	slog.Info("all sessions saved", "sessions", len(entries))
}
