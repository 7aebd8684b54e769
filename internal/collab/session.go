package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/codequest/backend-go/internal/document"
	"github.com/codequest/backend-go/internal/engine"
)

const (
	flushInterval = 2 * time.Second
	saveTimeout   = 5 * time.Second
	eventBuffer   = 64
)

var errReadOnly = errors.New("read-only: only the editor can change the canvas")

type eventKind int

const (
	eventJoin eventKind = iota
	eventLeave
	eventMessage
	eventClose
)

type event struct {
	kind   eventKind
	client *Client
	msg    *Message
}

// Session is the live canvas of one board. All engine access happens on the
// session goroutine, so input events are applied strictly in arrival order.
type Session struct {
	boardID string
	engine  *engine.Engine
	roster  *Roster
	save    CanvasSaver
	log     *slog.Logger

	events chan event
	done   chan struct{}

	seq   int64
	dirty *document.CanvasData
}

func newSession(boardID string, initial *document.CanvasData, save CanvasSaver, theme engine.Theme) *Session {
	s := &Session{
		boardID: boardID,
		roster:  NewRoster(),
		save:    save,
		log:     slog.With("board", boardID),
		events:  make(chan event, eventBuffer),
		done:    make(chan struct{}),
	}
	s.engine = engine.NewEngine(engine.Options{
		Initial: initial,
		OnSave:  s.onSave,
		Theme:   theme,
		Logger:  s.log,
	})
	return s
}

// submit queues an event. Events sent after the session stopped are dropped.
func (s *Session) submit(ev event) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) run() {
	defer close(s.done)

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-s.events:
			switch ev.kind {
			case eventJoin:
				s.join(ev.client)
			case eventLeave:
				s.leave(ev.client)
			case eventMessage:
				s.handle(ev.client, ev.msg)
			case eventClose:
				s.flush()
				for _, c := range s.roster.Clients() {
					s.roster.Leave(c.ClientID)
					close(c.send)
				}
				return
			}
		case <-ticker.C:
			s.flush()
		}
	}
}

func (s *Session) join(c *Client) {
	role := s.roster.Join(c)

	if msg, err := newMessage(TypeWelcome, WelcomePayload{ClientID: c.ClientID, Role: role}); err == nil {
		c.Send(msg)
	}
	if msg := s.snapshotMessage(s.engine.Snapshot()); msg != nil {
		c.Send(msg)
	}
	if msg := s.stateMessage(role); msg != nil {
		c.Send(msg)
	}
	s.broadcast(s.roster.StateMessage())

	s.log.Info("client joined", "client", c.ClientID, "role", role)
}

func (s *Session) leave(c *Client) {
	if !s.roster.Has(c.ClientID) {
		return
	}
	promoted := s.roster.Leave(c.ClientID)
	close(c.send)

	if promoted != nil {
		// The new editor starts from a clean gesture state.
		s.engine.CancelGesture()
		s.engine.CancelText()
		if msg, err := newMessage(TypeWelcome, WelcomePayload{ClientID: promoted.ClientID, Role: RoleEditor}); err == nil {
			promoted.Send(msg)
		}
		if msg := s.stateMessage(RoleEditor); msg != nil {
			msg.BoardID = s.boardID
			promoted.Send(msg)
		}
	}
	s.broadcast(s.roster.StateMessage())

	s.log.Info("client left", "client", c.ClientID)
}

func (s *Session) handle(c *Client, msg *Message) {
	if !s.roster.Has(c.ClientID) {
		return
	}
	if !inputTypes[msg.Type] {
		slog.Warn("unknown message type", "type", msg.Type, "client", c.ClientID)
		c.sendError(msg.Type, "unknown message type")
		return
	}
	if s.roster.Role(c.ClientID) != RoleEditor {
		c.sendError(msg.Type, errReadOnly.Error())
		return
	}

	if err := s.apply(msg); err != nil {
		s.log.Warn("rejected message", "type", msg.Type, "error", err)
		c.sendError(msg.Type, err.Error())
		return
	}
	s.seq++

	if msg.Type == TypeCanvasSave {
		version, err := s.flushNow()
		if err != nil {
			c.sendError(msg.Type, "save failed")
		} else if out, err := newMessage(TypeCanvasSaved, SavedPayload{Version: version}); err == nil {
			c.Send(out)
		}
	}

	s.broadcastState()
}

// apply runs one input message against the engine.
func (s *Session) apply(msg *Message) error {
	e := s.engine
	switch msg.Type {
	case TypeToolSet:
		var p ToolPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		tool, err := engine.ParseTool(p.Tool)
		if err != nil {
			return err
		}
		e.SetTool(tool)

	case TypePointerDown, TypePointerMove, TypePointerUp:
		var p PointerPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		switch msg.Type {
		case TypePointerDown:
			e.PointerDown(p.X, p.Y)
		case TypePointerMove:
			e.PointerMove(p.X, p.Y)
		default:
			e.PointerUp(p.X, p.Y)
		}

	case TypePointerCancel:
		e.CancelGesture()

	case TypeTextInput:
		var p TextInputPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		e.TypeText(p.Text)

	case TypeTextKey:
		var p TextKeyPayload
		if err := decode(msg, &p); err != nil {
			return err
		}
		e.Key(p.Key)

	case TypeTextConfirm:
		var p TextConfirmPayload
		if len(msg.Payload) > 0 {
			if err := decode(msg, &p); err != nil {
				return err
			}
		}
		if p.Text != nil {
			e.SubmitText(*p.Text)
		} else {
			e.ConfirmText()
		}

	case TypeTextCancel:
		e.CancelText()
	case TypeEditDelete:
		e.DeleteSelected()
	case TypeEditClear:
		e.ClearAll()
	case TypeHistoryUndo:
		e.Undo()
	case TypeHistoryRedo:
		e.Redo()
	case TypeCanvasSave:
		e.Save()
	}
	return nil
}

func decode(msg *Message, v any) error {
	if err := json.Unmarshal(msg.Payload, v); err != nil {
		return fmt.Errorf("invalid %s payload: %w", msg.Type, err)
	}
	return nil
}

// onSave is the engine's host callback; it runs on the session goroutine.
func (s *Session) onSave(data document.CanvasData) {
	s.dirty = &data
	s.broadcast(s.snapshotMessage(data))
}

func (s *Session) flush() {
	if _, err := s.flushNow(); err != nil {
		s.log.Error("save canvas", "error", err)
	}
}

// flushNow persists the latest unsaved snapshot. A failed save stays dirty
// and is retried on the next tick.
func (s *Session) flushNow() (int, error) {
	if s.dirty == nil || s.save == nil {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()

	version, err := s.save(ctx, s.boardID, *s.dirty)
	if err != nil {
		return 0, err
	}
	s.dirty = nil
	s.log.Debug("canvas saved", "version", version)
	return version, nil
}

func (s *Session) snapshotMessage(data document.CanvasData) *Message {
	msg, err := newMessage(TypeCanvasSnapshot, data)
	if err != nil {
		s.log.Error("marshal snapshot", "error", err)
		return nil
	}
	msg.Seq = s.seq
	return msg
}

// stateMessage builds the canvas.state a client of the given role sees.
// Viewers get a read-only view: no selection outline, prompt or history.
func (s *Session) stateMessage(role Role) *Message {
	state := s.engine.State()
	commands := s.engine.Render()
	if role != RoleEditor {
		state = engine.State{Tool: state.Tool, ReadOnly: true}
		commands = engine.Compile(s.engine.Elements(), "", true, s.engine.Theme())
	}

	msg, err := newMessage(TypeCanvasState, StatePayload{State: state, Commands: commands})
	if err != nil {
		s.log.Error("marshal state", "error", err)
		return nil
	}
	msg.Seq = s.seq
	return msg
}

func (s *Session) broadcastState() {
	var editor, viewer *Message
	for _, c := range s.roster.Clients() {
		role := s.roster.Role(c.ClientID)
		if role == RoleEditor {
			if editor == nil {
				editor = s.stateMessage(role)
			}
			s.sendTo(c, editor)
			continue
		}
		if viewer == nil {
			viewer = s.stateMessage(role)
		}
		s.sendTo(c, viewer)
	}
}

func (s *Session) sendTo(c *Client, msg *Message) {
	if msg == nil {
		return
	}
	msg.BoardID = s.boardID
	c.Send(msg)
}

func (s *Session) broadcast(msg *Message) {
	for _, c := range s.roster.Clients() {
		s.sendTo(c, msg)
	}
}
