package collab

import (
	"log/slog"
	"slices"
)

// Roster tracks the clients of one session and which of them is the editor.
// It is owned by the session goroutine.
type Roster struct {
	clients map[string]*Client
	order   []string // join order, used to pick the next editor
	editor  string
}

func NewRoster() *Roster {
	return &Roster{clients: make(map[string]*Client)}
}

// Join adds a client. The first edit-capable client becomes the editor; every
// other client is a viewer.
func (r *Roster) Join(c *Client) Role {
	r.clients[c.ClientID] = c
	r.order = append(r.order, c.ClientID)
	if r.editor == "" && c.Access.CanEdit() {
		r.editor = c.ClientID
	}
	return r.Role(c.ClientID)
}

// Leave removes a client. When the editor leaves, the longest-connected
// edit-capable client is promoted and returned.
func (r *Roster) Leave(clientID string) (promoted *Client) {
	if _, ok := r.clients[clientID]; !ok {
		return nil
	}
	delete(r.clients, clientID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == clientID })

	if r.editor != clientID {
		return nil
	}
	r.editor = ""
	for _, id := range r.order {
		if c := r.clients[id]; c.Access.CanEdit() {
			r.editor = id
			return c
		}
	}
	return nil
}

func (r *Roster) Role(clientID string) Role {
	if clientID != "" && clientID == r.editor {
		return RoleEditor
	}
	return RoleViewer
}

func (r *Roster) Has(clientID string) bool {
	_, ok := r.clients[clientID]
	return ok
}

func (r *Roster) Len() int { return len(r.clients) }

// Clients returns the clients in join order.
func (r *Roster) Clients() []*Client {
	out := make([]*Client, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.clients[id])
	}
	return out
}

func (r *Roster) StateMessage() *Message {
	payload := RosterPayload{Editor: r.editor, Viewers: []string{}}
	for _, id := range r.order {
		if id != r.editor {
			payload.Viewers = append(payload.Viewers, id)
		}
	}
	msg, err := newMessage(TypeRoster, payload)
	if err != nil {
		slog.Error("marshal roster", "error", err)
		return nil
	}
	return msg
}
