package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"

	"gamedoc/internal/game/model"
	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
	"gamedoc/store"
)

type GameRepository struct {
	DB store.DBTX
}

func NewGameRepository(db store.DBTX) *GameRepository {
	return &GameRepository{DB: db}
}

const gameColumns = `id, name, concept, start_date, timeline, platforms, image_key, user_id, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanGame(row scanner, g *model.Game) error {
	var platforms pq.StringArray
	if err := row.Scan(&g.ID, &g.Name, &g.Concept, &g.StartDate, &g.Timeline, &platforms, &g.ImageKey, &g.OwnerID, &g.CreatedAt, &g.UpdatedAt); err != nil {
		return err
	}
	g.Platforms = []string(platforms)
	if g.Platforms == nil {
		g.Platforms = []string{}
	}
	return nil
}

func (r *GameRepository) Create(ctx context.Context, g *model.Game) error {
	err := r.DB.QueryRowContext(ctx, `
		INSERT INTO games (id, name, concept, start_date, timeline, platforms, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at`,
		g.ID, g.Name, g.Concept, g.StartDate, g.Timeline, pq.Array(g.Platforms), g.OwnerID,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		logger.Sugar.Errorf("Failed to create game %s: %v", g.ID, err)
	}
	return apperr.FromDB(err, "create game")
}

// Get returns the game only when ownerID owns it.
func (r *GameRepository) Get(ctx context.Context, gameID, ownerID string) (*model.Game, error) {
	var g model.Game
	err := scanGame(r.DB.QueryRowContext(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1 AND user_id = $2`, gameID, ownerID), &g)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get game %s: %v", gameID, err)
		}
		return nil, apperr.FromDB(err, "get game")
	}
	return &g, nil
}

func (r *GameRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Game, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+gameColumns+` FROM games WHERE user_id = $1 ORDER BY updated_at DESC`, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to list games for user %s: %v", ownerID, err)
		return nil, apperr.FromDB(err, "list games")
	}
	defer rows.Close()

	games := []model.Game{}
	for rows.Next() {
		var g model.Game
		if err := scanGame(rows, &g); err != nil {
			return nil, apperr.FromDB(err, "scan game")
		}
		games = append(games, g)
	}
	return games, apperr.FromDB(rows.Err(), "list games")
}

// Update writes every mutable field of g, scoped to its owner.
func (r *GameRepository) Update(ctx context.Context, g *model.Game) error {
	err := r.DB.QueryRowContext(ctx, `
		UPDATE games
		SET name = $1, concept = $2, start_date = $3, timeline = $4, platforms = $5, updated_at = NOW()
		WHERE id = $6 AND user_id = $7
		RETURNING updated_at`,
		g.Name, g.Concept, g.StartDate, g.Timeline, pq.Array(g.Platforms), g.ID, g.OwnerID,
	).Scan(&g.UpdatedAt)
	if err != nil && err != sql.ErrNoRows {
		logger.Sugar.Errorf("Failed to update game %s: %v", g.ID, err)
	}
	return apperr.FromDB(err, "update game")
}

func (r *GameRepository) UpdateConcept(ctx context.Context, gameID, ownerID, concept string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, "UPDATE games SET concept = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3", concept, gameID, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to update concept for game %s: %v", gameID, err)
		return 0, apperr.FromDB(err, "update game concept")
	}
	return result.RowsAffected()
}

func (r *GameRepository) SetImage(ctx context.Context, gameID, ownerID, key string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, "UPDATE games SET image_key = $1, updated_at = NOW() WHERE id = $2 AND user_id = $3", key, gameID, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to set image for game %s: %v", gameID, err)
		return 0, apperr.FromDB(err, "set game image")
	}
	return result.RowsAffected()
}

// Delete removes the game; its documents, their sections and any pending
// invitations go with it by cascade.
func (r *GameRepository) Delete(ctx context.Context, gameID, ownerID string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, "DELETE FROM games WHERE id = $1 AND user_id = $2", gameID, ownerID)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete game %s: %v", gameID, err)
		return 0, apperr.FromDB(err, "delete game")
	}
	return result.RowsAffected()
}
