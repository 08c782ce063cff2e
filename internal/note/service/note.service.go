package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"gamedoc/internal/note/model"
	"gamedoc/internal/note/repository"
	"gamedoc/pkg/apperr"
)

const maxTags = 32

type NoteService struct {
	Repo *repository.NoteRepository
}

func NewNoteService(db *sql.DB) *NoteService {
	return &NoteService{Repo: repository.NewNoteRepository(db)}
}

func (s *NoteService) Create(ctx context.Context, userID string, req model.NoteRequest) (*model.Note, error) {
	note := &model.Note{ID: uuid.NewString(), OwnerID: userID, Tags: []string{}}
	if err := apply(note, req); err != nil {
		return nil, err
	}
	if note.Title == nil && note.Content == nil {
		return nil, apperr.Validation("a note needs a title or content")
	}
	if err := s.Repo.Create(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *NoteService) Get(ctx context.Context, userID, noteID string) (*model.Note, error) {
	return s.Repo.Get(ctx, noteID, userID)
}

func (s *NoteService) List(ctx context.Context, userID, tag string) ([]model.Note, error) {
	return s.Repo.List(ctx, userID, strings.TrimSpace(tag))
}

func (s *NoteService) Update(ctx context.Context, userID, noteID string, req model.NoteRequest) (*model.Note, error) {
	note, err := s.Repo.Get(ctx, noteID, userID)
	if err != nil {
		return nil, err
	}
	if err := apply(note, req); err != nil {
		return nil, err
	}
	if err := s.Repo.Update(ctx, note); err != nil {
		return nil, err
	}
	return note, nil
}

func (s *NoteService) Delete(ctx context.Context, userID, noteID string) error {
	n, err := s.Repo.Delete(ctx, noteID, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("note %s: %w", noteID, apperr.ErrNotFound)
	}
	return nil
}

// apply copies the set fields of req onto n. Blank strings clear a field.
func apply(n *model.Note, req model.NoteRequest) error {
	if req.Title != nil {
		n.Title = optional(*req.Title)
	}
	if req.Content != nil {
		n.Content = optional(*req.Content)
	}
	if req.Game != nil {
		n.Game = optional(*req.Game)
	}
	if req.Tags != nil {
		tags := make([]string, 0, len(req.Tags))
		seen := make(map[string]bool, len(req.Tags))
		for _, t := range req.Tags {
			t = strings.TrimSpace(t)
			if t == "" || seen[t] {
				continue
			}
			seen[t] = true
			tags = append(tags, t)
		}
		if len(tags) > maxTags {
			return apperr.Validation(fmt.Sprintf("at most %d tags are allowed", maxTags))
		}
		n.Tags = tags
	}
	return nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
