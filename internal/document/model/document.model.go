package model

import (
	"sort"
	"time"

	"gamedoc/internal/access"
)

const DefaultTitle = "Untitled Document"

type Document struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	GameID    *string   `json:"game_id,omitempty"`
	OwnerID   string    `json:"owner_id"`
	IsGDD     bool      `json:"is_gdd"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentMetadata is a list entry on the dashboard.
type DocumentMetadata struct {
	Document
	Access access.Level `json:"access"`
}

type Section struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title"`
	Content    Node      `json:"content"`
	OrderIndex int       `json:"order_index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// SortSections orders sections by order index, then creation time.
func SortSections(sections []Section) {
	sort.SliceStable(sections, func(i, j int) bool {
		if sections[i].OrderIndex != sections[j].OrderIndex {
			return sections[i].OrderIndex < sections[j].OrderIndex
		}
		return sections[i].CreatedAt.Before(sections[j].CreatedAt)
	})
}

type Collaborator struct {
	DocumentID string       `json:"document_id"`
	UserID     string       `json:"user_id"`
	Permission access.Level `json:"permission"`
	CanReshare bool         `json:"can_reshare"`
	GrantedBy  string       `json:"granted_by"`
	GrantedAt  time.Time    `json:"granted_at"`
}

type MemberResponse struct {
	UserID string       `json:"user_id"`
	Email  string       `json:"email"`
	Role   access.Level `json:"role"`
}

type CreateDocRequest struct {
	Title  string  `json:"title"`
	GameID *string `json:"game_id,omitempty"`
}

type UpdateDocRequest struct {
	Title string `json:"title"`
}

type NewSection struct {
	Title      string `json:"title"`
	Content    *Node  `json:"content,omitempty"`
	OrderIndex *int   `json:"order_index,omitempty"`
}

type CreateWithSectionsRequest struct {
	GameID   string       `json:"game_id"`
	Title    string       `json:"title"`
	Concept  *string      `json:"concept,omitempty"`
	Sections []NewSection `json:"sections"`
}

type CreateSectionRequest struct {
	DocID string `json:"document_id"`
	NewSection
}

type UpdateSectionRequest struct {
	Title      *string `json:"title,omitempty"`
	Content    *Node   `json:"content,omitempty"`
	OrderIndex *int    `json:"order_index,omitempty"`
}

type ReorderRequest struct {
	OrderIndex int `json:"order_index"`
}

type ResolveAccessResponse struct {
	DocumentID string       `json:"document_id"`
	Access     access.Level `json:"access"`
}
