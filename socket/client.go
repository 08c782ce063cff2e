package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"gamedoc/internal/access"
	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
)

const (
	pingPeriod     = 30 * time.Second
	writeWait      = 10 * time.Second
	lookupWait     = 5 * time.Second
	maxMessageSize = 1 << 20
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CheckOrigin allows us to connect from our Next.js dev server
	CheckOrigin: func(r *http.Request) bool { return true },
}

type Client struct {
	Hub    *Hub
	Conn   *websocket.Conn
	DocID  string
	UserID string
	Send   chan []byte
	Role   access.Level
	Title  string

	// sections known to belong to DocID; only readPump touches it
	sections map[string]bool
}

// deliver queues an encoded message, dropping it when the buffer is full.
func (c *Client) deliver(msg WSMessage) {
	b, err := json.Marshal(msg)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling message for %s: %v", c.UserID, err)
		return
	}
	select {
	case c.Send <- b:
	default:
		logger.Sugar.Warnf("Client %s's send buffer is full, dropping %s", c.UserID, msg.Type)
	}
}

// ServeWs authorizes the caller on ?docId= and upgrades the connection.
// Callers without access get the same 404 as for a missing document.
func ServeWs(hub *Hub, w http.ResponseWriter, r *http.Request, userID string) {
	docID := r.URL.Query().Get("docId")
	if docID == "" {
		http.Error(w, "Missing docId parameter", http.StatusBadRequest)
		return
	}

	role, err := hub.resolver.Resolve(r.Context(), userID, docID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		logger.Sugar.Errorf("Database error resolving access to doc %s: %v", docID, err)
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}
	if role == access.None {
		logger.Sugar.Warnf("Connection rejected: user %s has no access to doc %s", userID, docID)
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	doc, err := hub.store.Get(r.Context(), docID)
	if err != nil {
		logger.Sugar.Errorf("Failed to load doc %s for websocket: %v", docID, err)
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Sugar.Error(err)
		return
	}

	client := &Client{
		Hub:    hub,
		Conn:   conn,
		DocID:  docID,
		UserID: userID,
		Role:   role,
		Title:  doc.Title,
		Send:   make(chan []byte, 256),

		sections: make(map[string]bool),
	}

	client.Hub.Register <- client

	go client.writePump()
	go client.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.Hub.Unregister <- c
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)

	role := c.Role
	checked := time.Now()

	for {
		_, rawMessage, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Sugar.Errorf("error: %v", err)
			}
			break
		}

		var msg WSMessage
		if err := json.Unmarshal(rawMessage, &msg); err != nil {
			logger.Sugar.Errorf("Error unmarshalling message: %v", err)
			continue
		}

		// server-authoritative fields
		msg.DocID = c.DocID
		msg.UserID = c.UserID

		switch msg.Type {
		case SectionEditType:
			if time.Since(checked) >= c.Hub.roleRecheck {
				role = c.resolveRole(role)
				checked = time.Now()
			}
			if role == access.None {
				logger.Sugar.Warnf("User %s lost access to doc %s, closing connection", c.UserID, c.DocID)
				return
			}
			if !role.AtLeast(access.Editor) {
				logger.Sugar.Warnf("Permission Denied: User %s (Role: %s) tried to edit doc %s", c.UserID, role, c.DocID)
				continue
			}
			var edit SectionEdit
			if err := json.Unmarshal(msg.Payload, &edit); err != nil || !c.ownsSection(edit.SectionID) {
				logger.Sugar.Warnf("Dropping edit from %s: section %q is not in doc %s", c.UserID, edit.SectionID, c.DocID)
				continue
			}
		case CursorType:
		default:
			// other event types only originate from the server
			continue
		}

		c.Hub.Broadcast <- msg
	}
}

// resolveRole looks the client's access up again. A lookup failure keeps the
// previous role.
func (c *Client) resolveRole(prev access.Level) access.Level {
	ctx, cancel := context.WithTimeout(context.Background(), lookupWait)
	defer cancel()

	role, err := c.Hub.resolver.Resolve(ctx, c.UserID, c.DocID)
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return access.None
	case err != nil:
		logger.Sugar.Errorf("Failed to re-resolve access of %s to doc %s: %v", c.UserID, c.DocID, err)
		return prev
	}
	return role
}

// ownsSection reports whether sectionID is a section of the client's document.
func (c *Client) ownsSection(sectionID string) bool {
	if sectionID == "" {
		return false
	}
	if c.sections[sectionID] {
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), lookupWait)
	defer cancel()
	section, err := c.Hub.store.GetSection(ctx, sectionID)
	if err != nil {
		if !errors.Is(err, apperr.ErrNotFound) {
			logger.Sugar.Errorf("Failed to look up section %s: %v", sectionID, err)
		}
		return false
	}
	if section.DocumentID != c.DocID {
		return false
	}
	c.sections[sectionID] = true
	return true
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
