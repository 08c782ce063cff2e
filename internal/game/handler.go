package handler

import (
	"net/http"

	"gamedoc/internal/game/model"
	"gamedoc/internal/game/service"
	"gamedoc/middleware"
	"gamedoc/pkg/request"
	"gamedoc/pkg/response"
)

type GameHandler struct {
	Service *service.GameService
}

func NewGameHandler(service *service.GameService) *GameHandler {
	return &GameHandler{Service: service}
}

func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPost) {
		return
	}

	var req model.CreateGameRequest
	if !request.Decode(w, r, &req) {
		return
	}

	game, doc, err := h.Service.CreateGame(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusCreated, "data", map[string]any{"game": game, "document": doc})
}

func (h *GameHandler) GetGames(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}

	games, err := h.Service.ListGames(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "games", games)
}

func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}
	gameID, ok := request.Param(w, r, "gameId")
	if !ok {
		return
	}

	game, err := h.Service.GetGame(r.Context(), middleware.UserID(r.Context()), gameID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "game", game)
}

func (h *GameHandler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPut) {
		return
	}
	gameID, ok := request.Param(w, r, "gameId")
	if !ok {
		return
	}

	var req model.UpdateGameRequest
	if !request.Decode(w, r, &req) {
		return
	}

	game, err := h.Service.UpdateGame(r.Context(), middleware.UserID(r.Context()), gameID, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "game", game)
}

func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodDelete) {
		return
	}
	gameID, ok := request.Param(w, r, "gameId")
	if !ok {
		return
	}

	if err := h.Service.DeleteGame(r.Context(), middleware.UserID(r.Context()), gameID); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "", nil)
}

func (h *GameHandler) RequestImageUpload(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPost) {
		return
	}
	gameID, ok := request.Param(w, r, "gameId")
	if !ok {
		return
	}

	var req struct {
		ContentType string `json:"content_type"`
	}
	if !request.Decode(w, r, &req) {
		return
	}

	upload, err := h.Service.RequestImageUpload(r.Context(), middleware.UserID(r.Context()), gameID, req.ContentType)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "upload", upload)
}
