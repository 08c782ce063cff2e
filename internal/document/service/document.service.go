package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gamedoc/internal/access"
	"gamedoc/internal/document/model"
	"gamedoc/internal/document/repository"
	gamerepo "gamedoc/internal/game/repository"
	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
	"gamedoc/socket"
	"gamedoc/store"
)

// Notifier receives section and document events for live rooms.
type Notifier interface {
	Publish(msg socket.WSMessage)
	RemoveDocument(docID string)
	RemoveUser(docID, userID string)
	// Forget drops unsaved live content of a section before the API
	// overwrites it.
	Forget(sectionID string)
}

type DocumentService struct {
	DB       *sql.DB
	Repo     *repository.DocumentRepository
	Games    *gamerepo.GameRepository
	Access   *access.Resolver
	Notifier Notifier
}

func NewDocumentService(db *sql.DB, notifier Notifier) *DocumentService {
	repo := repository.NewDocumentRepository(db)
	return &DocumentService{
		DB:       db,
		Repo:     repo,
		Games:    gamerepo.NewGameRepository(db),
		Access:   access.NewResolver(repo),
		Notifier: notifier,
	}
}

func (s *DocumentService) CreateDocument(ctx context.Context, userID string, req model.CreateDocRequest) (*model.Document, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = model.DefaultTitle
	}
	if req.GameID != nil {
		if _, err := s.Games.Get(ctx, *req.GameID, userID); err != nil {
			return nil, err
		}
	}

	doc := &model.Document{ID: uuid.NewString(), Title: title, GameID: req.GameID, OwnerID: userID}
	if err := s.Repo.Create(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *DocumentService) GetDocument(ctx context.Context, userID, docID string) (*model.DocumentMetadata, error) {
	level, err := s.Access.Require(ctx, userID, docID, access.Viewer)
	if err != nil {
		return nil, err
	}
	doc, err := s.Repo.Get(ctx, docID)
	if err != nil {
		return nil, err
	}
	return &model.DocumentMetadata{Document: *doc, Access: level}, nil
}

// GetGameDocument returns the primary design document of a game.
func (s *DocumentService) GetGameDocument(ctx context.Context, userID, gameID string) (*model.DocumentMetadata, error) {
	doc, err := s.Repo.GetPrimaryForGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return s.GetDocument(ctx, userID, doc.ID)
}

func (s *DocumentService) ListDocuments(ctx context.Context, userID string) ([]model.DocumentMetadata, error) {
	return s.Repo.ListForUser(ctx, userID)
}

func (s *DocumentService) UpdateTitle(ctx context.Context, docID, userID, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return apperr.Validation("title is required")
	}
	if _, err := s.Access.Require(ctx, userID, docID, access.Editor); err != nil {
		return err
	}
	rowsAffected, err := s.Repo.UpdateTitle(ctx, docID, title)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("document %s: %w", docID, apperr.ErrNotFound)
	}
	return nil
}

// DeleteDocument removes a document with its sections and grants. Only the
// owner may do it.
func (s *DocumentService) DeleteDocument(ctx context.Context, docID, userID string) error {
	if _, err := s.Access.Require(ctx, userID, docID, access.Owner); err != nil {
		return err
	}
	rowsAffected, err := s.Repo.Delete(ctx, docID)
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("document %s: %w", docID, apperr.ErrNotFound)
	}
	if s.Notifier != nil {
		s.Notifier.RemoveDocument(docID)
	}
	return nil
}

// ResolveAccess reports the caller's effective level on a document. Unknown
// documents are ErrNotFound.
func (s *DocumentService) ResolveAccess(ctx context.Context, userID, docID string) (access.Level, error) {
	return s.Access.Resolve(ctx, userID, docID)
}

func (s *DocumentService) ListMembers(ctx context.Context, userID, docID string) ([]model.MemberResponse, error) {
	if _, err := s.Access.Require(ctx, userID, docID, access.Viewer); err != nil {
		return nil, err
	}
	return s.Repo.GetDocumentMembers(ctx, docID)
}

// RemoveCollaborator revokes a grant. Owners may remove anyone; a
// collaborator may remove only themselves.
func (s *DocumentService) RemoveCollaborator(ctx context.Context, userID, docID, targetUserID string) error {
	need := access.Owner
	if userID == targetUserID {
		need = access.Viewer
	}
	if _, err := s.Access.Require(ctx, userID, docID, need); err != nil {
		return err
	}
	n, err := s.Repo.RemoveCollaborator(ctx, docID, targetUserID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("collaborator %s on %s: %w", targetUserID, docID, apperr.ErrNotFound)
	}
	if s.Notifier != nil {
		s.Notifier.RemoveUser(docID, targetUserID)
	}
	return nil
}

// ListSections returns the document's sections ordered by (order index,
// creation time). A document without sections yields an empty slice.
func (s *DocumentService) ListSections(ctx context.Context, userID, docID string) ([]model.Section, error) {
	if _, err := s.Access.Require(ctx, userID, docID, access.Viewer); err != nil {
		return nil, err
	}
	return s.Repo.ListSections(ctx, docID)
}

// CreateSection adds a section. Without an explicit order index it is
// appended after every index the document has handed out.
func (s *DocumentService) CreateSection(ctx context.Context, userID string, req model.CreateSectionRequest) (*model.Section, error) {
	section, err := buildSection(req.DocID, req.NewSection)
	if err != nil {
		return nil, err
	}
	if _, err := s.Access.Require(ctx, userID, req.DocID, access.Editor); err != nil {
		return nil, err
	}

	err = store.WithTx(ctx, s.DB, func(ctx context.Context, tx store.DBTX) error {
		repo := repository.NewDocumentRepository(tx)
		if req.OrderIndex == nil {
			next, err := repo.NextOrderIndex(ctx, req.DocID)
			if err != nil {
				return err
			}
			section.OrderIndex = next
		} else if err := repo.ClaimOrderIndex(ctx, req.DocID, section.OrderIndex); err != nil {
			return err
		}
		return repo.CreateSection(ctx, &section)
	})
	if err != nil {
		return nil, err
	}

	s.publish(socket.SectionCreatedType, req.DocID, userID, section)
	return &section, nil
}

// UpdateSection applies a partial update; an order index change touches only
// this section.
func (s *DocumentService) UpdateSection(ctx context.Context, userID, sectionID string, req model.UpdateSectionRequest) (*model.Section, error) {
	if req.Title != nil {
		t := strings.TrimSpace(*req.Title)
		if t == "" {
			return nil, apperr.Validation("section title cannot be empty")
		}
		req.Title = &t
	}
	if req.Content != nil {
		if err := req.Content.Validate(); err != nil {
			return nil, apperr.Validation(err.Error())
		}
	}

	current, err := s.Repo.GetSection(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Access.Require(ctx, userID, current.DocumentID, access.Editor); err != nil {
		return nil, err
	}

	if req.Content != nil && s.Notifier != nil {
		s.Notifier.Forget(sectionID)
	}

	var updated *model.Section
	err = store.WithTx(ctx, s.DB, func(ctx context.Context, tx store.DBTX) error {
		repo := repository.NewDocumentRepository(tx)
		var err error
		updated, err = repo.UpdateSection(ctx, sectionID, repository.SectionPatch{
			Title:      req.Title,
			Content:    req.Content,
			OrderIndex: req.OrderIndex,
		})
		if err != nil {
			return err
		}
		if req.OrderIndex != nil {
			return repo.ClaimOrderIndex(ctx, updated.DocumentID, *req.OrderIndex)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	eventType := socket.SectionMetaType
	if req.Content != nil {
		eventType = socket.SectionChangedType
	}
	s.publish(eventType, updated.DocumentID, userID, updated)
	return updated, nil
}

func (s *DocumentService) ReorderSection(ctx context.Context, userID, sectionID string, orderIndex int) (*model.Section, error) {
	return s.UpdateSection(ctx, userID, sectionID, model.UpdateSectionRequest{OrderIndex: &orderIndex})
}

// DeleteSection removes one section without renumbering its siblings.
func (s *DocumentService) DeleteSection(ctx context.Context, userID, sectionID string) error {
	current, err := s.Repo.GetSection(ctx, sectionID)
	if err != nil {
		return err
	}
	if _, err := s.Access.Require(ctx, userID, current.DocumentID, access.Editor); err != nil {
		return err
	}
	if s.Notifier != nil {
		s.Notifier.Forget(sectionID)
	}
	docID, err := s.Repo.DeleteSection(ctx, sectionID)
	if err != nil {
		return err
	}
	s.publish(socket.SectionDeletedType, docID, userID, map[string]string{"id": sectionID})
	return nil
}

// CreateDocumentWithSections updates the game's concept when given, creates
// the document and inserts every section in one transaction: either all of
// it is stored or none of it.
func (s *DocumentService) CreateDocumentWithSections(ctx context.Context, userID string, req model.CreateWithSectionsRequest) (*model.Document, []model.Section, error) {
	if strings.TrimSpace(req.GameID) == "" {
		return nil, nil, apperr.Validation("game_id is required")
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, nil, apperr.Validation("title is required")
	}
	if _, err := s.Games.Get(ctx, req.GameID, userID); err != nil {
		return nil, nil, err
	}

	gameID := req.GameID
	doc := &model.Document{ID: uuid.NewString(), Title: title, GameID: &gameID, OwnerID: userID}
	var sections []model.Section

	err := store.WithTx(ctx, s.DB, func(ctx context.Context, tx store.DBTX) error {
		if req.Concept != nil {
			n, err := gamerepo.NewGameRepository(tx).UpdateConcept(ctx, req.GameID, userID, *req.Concept)
			if err != nil {
				return err
			}
			if n == 0 {
				return fmt.Errorf("game %s: %w", req.GameID, apperr.ErrNotFound)
			}
		}
		var err error
		sections, err = InsertDocumentWithSections(ctx, repository.NewDocumentRepository(tx), doc, req.Sections)
		return err
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to create document with sections for game %s: %v", req.GameID, err)
		return nil, nil, err
	}
	return doc, sections, nil
}

// InsertDocumentWithSections creates doc and its sections through repo, which
// should be bound to a transaction. The first document of a game becomes its
// design document. Sections without an index take their position.
func InsertDocumentWithSections(ctx context.Context, repo *repository.DocumentRepository, doc *model.Document, newSections []model.NewSection) ([]model.Section, error) {
	sections := make([]model.Section, 0, len(newSections))
	for i, ns := range newSections {
		section, err := buildSection(doc.ID, ns)
		if err != nil {
			return nil, fmt.Errorf("section %d: %w", i, err)
		}
		if ns.OrderIndex == nil {
			section.OrderIndex = i
		}
		sections = append(sections, section)
	}

	if doc.GameID != nil && !doc.IsGDD {
		_, err := repo.GetPrimaryForGame(ctx, *doc.GameID)
		switch {
		case errors.Is(err, apperr.ErrNotFound):
			doc.IsGDD = true
		case err != nil:
			return nil, err
		}
	}

	if err := repo.Create(ctx, doc); err != nil {
		return nil, err
	}
	if err := repo.InsertSections(ctx, sections); err != nil {
		return nil, err
	}
	model.SortSections(sections)
	return sections, nil
}

func buildSection(docID string, ns model.NewSection) (model.Section, error) {
	title := strings.TrimSpace(ns.Title)
	if title == "" {
		return model.Section{}, apperr.Validation("section title is required")
	}
	content := model.EmptyContent()
	if ns.Content != nil {
		if err := ns.Content.Validate(); err != nil {
			return model.Section{}, apperr.Validation(err.Error())
		}
		content = *ns.Content
	}
	section := model.Section{ID: uuid.NewString(), DocumentID: docID, Title: title, Content: content}
	if ns.OrderIndex != nil {
		section.OrderIndex = *ns.OrderIndex
	}
	return section, nil
}

func (s *DocumentService) publish(eventType, docID, userID string, payload any) {
	if s.Notifier == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logger.Sugar.Errorf("Error marshalling %s event for doc %s: %v", eventType, docID, err)
		return
	}
	s.Notifier.Publish(socket.WSMessage{Type: eventType, DocID: docID, UserID: userID, Payload: b})
}
