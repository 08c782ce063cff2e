package handler

import (
	"net/http"

	"gamedoc/internal/note/model"
	"gamedoc/internal/note/service"
	"gamedoc/middleware"
	"gamedoc/pkg/request"
	"gamedoc/pkg/response"
)

type NoteHandler struct {
	Service *service.NoteService
}

func NewNoteHandler(service *service.NoteService) *NoteHandler {
	return &NoteHandler{Service: service}
}

func (h *NoteHandler) CreateNote(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPost) {
		return
	}

	var req model.NoteRequest
	if !request.Decode(w, r, &req) {
		return
	}

	note, err := h.Service.Create(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusCreated, "note", note)
}

// GetNotes lists the caller's notes, optionally filtered by ?tag=.
func (h *NoteHandler) GetNotes(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}

	notes, err := h.Service.List(r.Context(), middleware.UserID(r.Context()), r.URL.Query().Get("tag"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "notes", notes)
}

func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}
	noteID, ok := request.Param(w, r, "noteId")
	if !ok {
		return
	}

	note, err := h.Service.Get(r.Context(), middleware.UserID(r.Context()), noteID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "note", note)
}

func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPut) {
		return
	}
	noteID, ok := request.Param(w, r, "noteId")
	if !ok {
		return
	}

	var req model.NoteRequest
	if !request.Decode(w, r, &req) {
		return
	}

	note, err := h.Service.Update(r.Context(), middleware.UserID(r.Context()), noteID, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "note", note)
}

func (h *NoteHandler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodDelete) {
		return
	}
	noteID, ok := request.Param(w, r, "noteId")
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), middleware.UserID(r.Context()), noteID); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "", nil)
}
