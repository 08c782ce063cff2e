package socket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"gamedoc/internal/access"
	"gamedoc/internal/document/model"
	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
)

const (
	SectionEditType    = "SECTION_EDIT"    // live content edit from an editor
	CursorType         = "CURSOR"          // User moved their cursor
	PresenceUpdateType = "PRESENCE_UPDATE" // A user joined or left
	MetadataType       = "METADATA"        // Document title and the receiver's role

	SectionCreatedType = "SECTION_CREATED"
	SectionChangedType = "SECTION_CHANGED" // content replaced through the API
	SectionMetaType    = "SECTION_META"    // title or order changed
	SectionDeletedType = "SECTION_DELETED"
)

type WSMessage struct {
	Type    string          `json:"type"`
	DocID   string          `json:"document_id"`
	UserID  string          `json:"user_id"`
	Payload json.RawMessage `json:"payload"`
}

type SectionEdit struct {
	SectionID string     `json:"section_id"`
	Content   model.Node `json:"content"`
}

type UserStatus struct {
	UserID   string       `json:"user_id"`
	Role     access.Level `json:"role"`
	LastSeen time.Time    `json:"last_seen"`
}

// Store is what the hub needs from persistence. SaveSectionContent must only
// touch the section when it belongs to docID.
type Store interface {
	Get(ctx context.Context, docID string) (*model.Document, error)
	GetSection(ctx context.Context, sectionID string) (*model.Section, error)
	SaveSectionContent(ctx context.Context, docID, sectionID string, content model.Node) error
}

type Resolver interface {
	Resolve(ctx context.Context, userID, docID string) (access.Level, error)
}

// liveSection is unsaved content for one section. version grows on every edit
// so the save worker can tell whether content moved while it was writing.
type liveSection struct {
	docID   string
	content model.Node
	version uint64
	saved   uint64
}

func (s *liveSection) dirty() bool { return s.version != s.saved }

const defaultRoleRecheck = 30 * time.Second

type Hub struct {
	Rooms      map[string]map[*Client]bool
	Broadcast  chan WSMessage
	Register   chan *Client
	Unregister chan *Client

	store    Store
	resolver Resolver
	interval time.Duration
	// how long a client's role is trusted before an edit re-resolves it
	roleRecheck time.Duration

	// saveMu is held for every write of cached content. Lock order: saveMu, mu.
	saveMu   sync.Mutex
	mu       sync.Mutex
	sections map[string]*liveSection          // sectionID -> live content
	Presence map[string]map[string]UserStatus // docID -> userID -> status
}

func NewHub(store Store, resolver Resolver, saveInterval time.Duration) *Hub {
	if saveInterval <= 0 {
		saveInterval = 10 * time.Second
	}
	return &Hub{
		Rooms:       make(map[string]map[*Client]bool),
		Broadcast:   make(chan WSMessage, 256),
		Register:    make(chan *Client),
		Unregister:  make(chan *Client),
		store:       store,
		resolver:    resolver,
		interval:    saveInterval,
		roleRecheck: defaultRoleRecheck,
		sections:    make(map[string]*liveSection),
		Presence:    make(map[string]map[string]UserStatus),
	}
}

// Run processes registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.Register:
			h.register(client)
		case client := <-h.Unregister:
			h.unregister(ctx, client)
		case msg := <-h.Broadcast:
			h.broadcast(ctx, msg)
		}
	}
}

// Publish queues a service-originated event without blocking the caller.
func (h *Hub) Publish(msg WSMessage) {
	select {
	case h.Broadcast <- msg:
	default:
		logger.Sugar.Warnf("Hub broadcast queue full, dropping %s for doc %s", msg.Type, msg.DocID)
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	if h.Rooms[client.DocID] == nil {
		h.Rooms[client.DocID] = make(map[*Client]bool)
		h.Presence[client.DocID] = make(map[string]UserStatus)
	}
	h.Rooms[client.DocID][client] = true
	h.Presence[client.DocID][client.UserID] = UserStatus{UserID: client.UserID, Role: client.Role, LastSeen: time.Now()}

	// unsaved edits the newcomer has not seen through the API yet
	var pending []SectionEdit
	for id, s := range h.sections {
		if s.docID == client.DocID {
			pending = append(pending, SectionEdit{SectionID: id, Content: s.content})
		}
	}
	h.mu.Unlock()

	metaPayload, _ := json.Marshal(map[string]any{"title": client.Title, "role": client.Role})
	client.deliver(WSMessage{Type: MetadataType, DocID: client.DocID, UserID: client.UserID, Payload: metaPayload})
	for _, edit := range pending {
		payload, _ := json.Marshal(edit)
		client.deliver(WSMessage{Type: SectionEditType, DocID: client.DocID, Payload: payload})
	}

	h.broadcastPresenceUpdate(client.DocID)
}

func (h *Hub) unregister(ctx context.Context, client *Client) {
	h.mu.Lock()
	docID := client.DocID
	if _, ok := h.Rooms[docID][client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.Rooms[docID], client)
	close(client.Send)

	stillHere := false
	for other := range h.Rooms[docID] {
		if other.UserID == client.UserID {
			stillHere = true
			break
		}
	}
	if !stillHere {
		delete(h.Presence[docID], client.UserID)
	}

	roomEmpty := len(h.Rooms[docID]) == 0
	var toSave map[string]liveSection
	if roomEmpty {
		toSave = h.takeDocumentLocked(docID)
		delete(h.Rooms, docID)
		delete(h.Presence, docID)
	}
	h.mu.Unlock()

	if roomEmpty {
		h.saveMu.Lock()
		for id, s := range toSave {
			if err := h.store.SaveSectionContent(ctx, s.docID, id, s.content); err != nil && !errors.Is(err, apperr.ErrNotFound) {
				logger.Sugar.Errorf("Failed to save section %s on close: %v", id, err)
			}
		}
		h.saveMu.Unlock()
		logger.Sugar.Infof("Closed and cleaned up empty room: %s", docID)
		return
	}
	h.broadcastPresenceUpdate(docID)
}

// takeDocumentLocked removes every live section of docID from the cache and
// returns the dirty ones. h.mu must be held.
func (h *Hub) takeDocumentLocked(docID string) map[string]liveSection {
	dirty := make(map[string]liveSection)
	for id, s := range h.sections {
		if s.docID != docID {
			continue
		}
		if s.dirty() {
			dirty[id] = *s
		}
		delete(h.sections, id)
	}
	return dirty
}

func (h *Hub) broadcast(ctx context.Context, msg WSMessage) {
	h.mu.Lock()
	switch msg.Type {
	case SectionEditType:
		var edit SectionEdit
		if err := json.Unmarshal(msg.Payload, &edit); err != nil || edit.SectionID == "" {
			h.mu.Unlock()
			logger.Sugar.Warnf("Dropping malformed section edit from %s on doc %s", msg.UserID, msg.DocID)
			return
		}
		if err := edit.Content.Validate(); err != nil {
			h.mu.Unlock()
			logger.Sugar.Warnf("Dropping invalid section edit from %s on doc %s: %v", msg.UserID, msg.DocID, err)
			return
		}
		s := h.sections[edit.SectionID]
		if s == nil {
			s = &liveSection{docID: msg.DocID}
			h.sections[edit.SectionID] = s
		} else if s.docID != msg.DocID {
			h.mu.Unlock()
			logger.Sugar.Warnf("Dropping edit of section %s from doc %s room", edit.SectionID, msg.DocID)
			return
		}
		s.content = edit.Content
		s.version++
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		h.mu.Unlock()
		logger.Sugar.Errorf("Error marshalling broadcast message: %v", err)
		return
	}

	clientsToSend := make([]*Client, 0, len(h.Rooms[msg.DocID]))
	for client := range h.Rooms[msg.DocID] {
		if client.UserID != msg.UserID {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	for _, client := range clientsToSend {
		select {
		case client.Send <- payload:
		default:
			logger.Sugar.Warnf("Client %s's send buffer is full. Unregistering.", client.UserID)
			h.unregister(ctx, client)
		}
	}
}

// SaveWorker periodically persists dirty sections until ctx is done, then
// makes one final pass.
func (h *Hub) SaveWorker(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.flush(context.Background())
			return
		case <-ticker.C:
			h.flush(ctx)
		}
	}
}

func (h *Hub) flush(ctx context.Context) {
	type snapshot struct {
		docID   string
		content model.Node
		version uint64
	}
	toSave := make(map[string]snapshot)

	h.saveMu.Lock()
	defer h.saveMu.Unlock()

	h.mu.Lock()
	for id, s := range h.sections {
		if s.dirty() {
			toSave[id] = snapshot{docID: s.docID, content: s.content, version: s.version}
		}
	}
	h.mu.Unlock()

	for id, snap := range toSave {
		err := h.store.SaveSectionContent(ctx, snap.docID, id, snap.content)
		if errors.Is(err, apperr.ErrNotFound) {
			h.mu.Lock()
			delete(h.sections, id)
			h.mu.Unlock()
			continue
		}
		if err != nil {
			logger.Sugar.Errorf("Failed to save section %s: %v", id, err)
			continue // stays dirty, retried next tick
		}

		h.mu.Lock()
		if s, ok := h.sections[id]; ok && s.saved < snap.version {
			s.saved = snap.version
		}
		h.mu.Unlock()
		logger.Sugar.Debugf("Auto-saved section: %s", id)
	}
}

// Forget drops the cached live content of a section. It waits for a save in
// progress, so once it returns no older live edit can overwrite a write the
// caller makes next.
func (h *Hub) Forget(sectionID string) {
	h.saveMu.Lock()
	defer h.saveMu.Unlock()
	h.mu.Lock()
	delete(h.sections, sectionID)
	h.mu.Unlock()
}

// RemoveUser disconnects userID's clients from the document room. They have
// to reconnect, which resolves their access again.
func (h *Hub) RemoveUser(docID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.Rooms[docID] {
		if client.UserID == userID {
			client.Conn.Close()
		}
	}
}

// RemoveDocument forgets a deleted document and disconnects its clients.
func (h *Hub) RemoveDocument(docID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.takeDocumentLocked(docID)
	delete(h.Presence, docID)

	if clients, ok := h.Rooms[docID]; ok {
		for client := range clients {
			client.Conn.Close() // readPump exits and unregisters
		}
	}
}

func (h *Hub) broadcastPresenceUpdate(docID string) {
	var userStatuses []UserStatus
	var clientsToSend []*Client

	h.mu.Lock()
	if _, ok := h.Presence[docID]; ok {
		userStatuses = make([]UserStatus, 0, len(h.Presence[docID]))
		for _, status := range h.Presence[docID] {
			userStatuses = append(userStatuses, status)
		}

		clientsToSend = make([]*Client, 0, len(h.Rooms[docID]))
		for client := range h.Rooms[docID] {
			clientsToSend = append(clientsToSend, client)
		}
	}
	h.mu.Unlock()

	if len(clientsToSend) == 0 {
		return
	}

	payload, err := json.Marshal(userStatuses)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling presence broadcast: %v", err)
		return
	}
	broadcastPayload, _ := json.Marshal(WSMessage{Type: PresenceUpdateType, DocID: docID, Payload: payload})

	for _, client := range clientsToSend {
		select {
		case client.Send <- broadcastPayload:
		default:
			logger.Sugar.Warnf("Client %s's send buffer was full during presence update.", client.UserID)
		}
	}
}
