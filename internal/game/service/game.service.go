package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	docmodel "gamedoc/internal/document/model"
	docrepo "gamedoc/internal/document/repository"
	docservice "gamedoc/internal/document/service"
	"gamedoc/internal/game/model"
	"gamedoc/internal/game/repository"
	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
	"gamedoc/store"
)

// DefaultSections seed the design document of every new game.
var DefaultSections = []string{
	"Overview",
	"Core Gameplay",
	"Story & Setting",
	"Characters",
	"Art & Audio",
	"Platforms & Technology",
}

var imageExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
}

// Presigner issues upload URLs for object keys.
type Presigner interface {
	PresignPut(ctx context.Context, key, contentType string) (string, time.Time, error)
}

type GameService struct {
	DB       *sql.DB
	Repo     *repository.GameRepository
	Docs     *docrepo.DocumentRepository
	Storage  Presigner
	Notifier docservice.Notifier
}

// NewGameService wires the service; storage and notifier may be nil.
func NewGameService(db *sql.DB, storage Presigner, notifier docservice.Notifier) *GameService {
	return &GameService{
		DB:       db,
		Repo:     repository.NewGameRepository(db),
		Docs:     docrepo.NewDocumentRepository(db),
		Storage:  storage,
		Notifier: notifier,
	}
}

// CreateGame stores the game together with its design document and the
// default sections in one transaction.
func (s *GameService) CreateGame(ctx context.Context, userID string, req model.CreateGameRequest) (*model.Game, *docmodel.Document, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, nil, apperr.Validation("name is required")
	}

	game := &model.Game{
		ID:        uuid.NewString(),
		Name:      name,
		Concept:   strings.TrimSpace(req.Concept),
		StartDate: req.StartDate,
		Timeline:  strings.TrimSpace(req.Timeline),
		Platforms: cleanPlatforms(req.Platforms),
		OwnerID:   userID,
	}
	gameID := game.ID
	doc := &docmodel.Document{
		ID:      uuid.NewString(),
		Title:   name + " Design Document",
		GameID:  &gameID,
		OwnerID: userID,
		IsGDD:   true,
	}

	sections := make([]docmodel.NewSection, len(DefaultSections))
	for i, title := range DefaultSections {
		sections[i] = docmodel.NewSection{Title: title}
	}
	if game.Concept != "" {
		overview := docmodel.Paragraph(game.Concept)
		sections[0].Content = &overview
	}

	err := store.WithTx(ctx, s.DB, func(ctx context.Context, tx store.DBTX) error {
		if err := repository.NewGameRepository(tx).Create(ctx, game); err != nil {
			return err
		}
		_, err := docservice.InsertDocumentWithSections(ctx, docrepo.NewDocumentRepository(tx), doc, sections)
		return err
	})
	if err != nil {
		logger.Sugar.Errorf("Failed to create game for user %s: %v", userID, err)
		return nil, nil, err
	}
	return game, doc, nil
}

func (s *GameService) GetGame(ctx context.Context, userID, gameID string) (*model.Game, error) {
	return s.Repo.Get(ctx, gameID, userID)
}

func (s *GameService) ListGames(ctx context.Context, userID string) ([]model.Game, error) {
	return s.Repo.ListByOwner(ctx, userID)
}

func (s *GameService) UpdateGame(ctx context.Context, userID, gameID string, req model.UpdateGameRequest) (*model.Game, error) {
	game, err := s.Repo.Get(ctx, gameID, userID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, apperr.Validation("name cannot be empty")
		}
		game.Name = name
	}
	if req.Concept != nil {
		game.Concept = strings.TrimSpace(*req.Concept)
	}
	if req.StartDate != nil {
		game.StartDate = req.StartDate
	}
	if req.Timeline != nil {
		game.Timeline = strings.TrimSpace(*req.Timeline)
	}
	if req.Platforms != nil {
		game.Platforms = cleanPlatforms(req.Platforms)
	}

	if err := s.Repo.Update(ctx, game); err != nil {
		return nil, err
	}
	return game, nil
}

// DeleteGame removes the game and, by cascade, every document under it.
func (s *GameService) DeleteGame(ctx context.Context, userID, gameID string) error {
	if _, err := s.Repo.Get(ctx, gameID, userID); err != nil {
		return err
	}
	docs, err := s.Docs.ListByGame(ctx, gameID)
	if err != nil {
		return err
	}

	n, err := s.Repo.Delete(ctx, gameID, userID)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("game %s: %w", gameID, apperr.ErrNotFound)
	}

	if s.Notifier != nil {
		for _, d := range docs {
			s.Notifier.RemoveDocument(d.ID)
		}
	}
	return nil
}

// RequestImageUpload presigns an upload URL for a new cover image key and
// stores the key on the game.
func (s *GameService) RequestImageUpload(ctx context.Context, userID, gameID, contentType string) (*model.ImageUploadResponse, error) {
	if s.Storage == nil {
		return nil, fmt.Errorf("image upload: %w", apperr.ErrInvalidState)
	}
	ext, ok := imageExtensions[contentType]
	if !ok {
		return nil, apperr.Validation("content_type must be image/png, image/jpeg or image/webp")
	}

	key := fmt.Sprintf("games/%s/%s%s", gameID, uuid.NewString(), ext)
	url, expires, err := s.Storage.PresignPut(ctx, key, contentType)
	if err != nil {
		logger.Sugar.Errorf("Failed to presign upload for game %s: %v", gameID, err)
		return nil, fmt.Errorf("%w: %v", apperr.ErrStorage, err)
	}

	n, err := s.Repo.SetImage(ctx, gameID, userID, key)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, fmt.Errorf("game %s: %w", gameID, apperr.ErrNotFound)
	}
	return &model.ImageUploadResponse{Key: key, UploadURL: url, ExpiresAt: expires}, nil
}

func cleanPlatforms(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, p := range in {
		p = strings.TrimSpace(p)
		if p == "" || seen[strings.ToLower(p)] {
			continue
		}
		seen[strings.ToLower(p)] = true
		out = append(out, p)
	}
	return out
}
