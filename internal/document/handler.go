package handler

import (
	"encoding/json"
	"net/http"

	"gamedoc/internal/document/model"
	"gamedoc/internal/document/service"
	"gamedoc/middleware"
	"gamedoc/pkg/request"
	"gamedoc/pkg/response"
)

type DocumentHandler struct {
	Service *service.DocumentService
}

func NewDocumentHandler(service *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{Service: service}
}

func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPost) {
		return
	}

	var req model.CreateDocRequest
	_ = json.NewDecoder(r.Body).Decode(&req) // empty body creates an untitled document

	doc, err := h.Service.CreateDocument(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusCreated, "document", doc)
}

func (h *DocumentHandler) CreateDocumentWithSections(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPost) {
		return
	}

	var req model.CreateWithSectionsRequest
	if !request.Decode(w, r, &req) {
		return
	}

	doc, sections, err := h.Service.CreateDocumentWithSections(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusCreated, "data", map[string]any{"document": doc, "sections": sections})
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}

	docs, err := h.Service.ListDocuments(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "documents", docs)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}

	userID := middleware.UserID(r.Context())
	var (
		doc *model.DocumentMetadata
		err error
	)
	if gameID := r.URL.Query().Get("gameId"); gameID != "" {
		doc, err = h.Service.GetGameDocument(r.Context(), userID, gameID)
	} else {
		docID, ok := request.Param(w, r, "docId")
		if !ok {
			return
		}
		doc, err = h.Service.GetDocument(r.Context(), userID, docID)
	}
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "document", doc)
}

func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPut) {
		return
	}
	docID, ok := request.Param(w, r, "docId")
	if !ok {
		return
	}

	var req model.UpdateDocRequest
	if !request.Decode(w, r, &req) {
		return
	}

	if err := h.Service.UpdateTitle(r.Context(), docID, middleware.UserID(r.Context()), req.Title); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "", nil)
}

func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodDelete) {
		return
	}
	docID, ok := request.Param(w, r, "docId")
	if !ok {
		return
	}

	if err := h.Service.DeleteDocument(r.Context(), docID, middleware.UserID(r.Context())); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "", nil)
}

func (h *DocumentHandler) ResolveAccess(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}
	docID, ok := request.Param(w, r, "docId")
	if !ok {
		return
	}

	level, err := h.Service.ResolveAccess(r.Context(), middleware.UserID(r.Context()), docID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "data", model.ResolveAccessResponse{DocumentID: docID, Access: level})
}

func (h *DocumentHandler) GetDocumentMembers(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}
	docID, ok := request.Param(w, r, "docId")
	if !ok {
		return
	}

	members, err := h.Service.ListMembers(r.Context(), middleware.UserID(r.Context()), docID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "members", members)
}

func (h *DocumentHandler) RemoveCollaborator(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodDelete) {
		return
	}
	docID, ok := request.Param(w, r, "docId")
	if !ok {
		return
	}
	targetID, ok := request.Param(w, r, "userId")
	if !ok {
		return
	}

	if err := h.Service.RemoveCollaborator(r.Context(), middleware.UserID(r.Context()), docID, targetID); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "", nil)
}

func (h *DocumentHandler) GetSections(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}
	docID, ok := request.Param(w, r, "docId")
	if !ok {
		return
	}

	sections, err := h.Service.ListSections(r.Context(), middleware.UserID(r.Context()), docID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "sections", sections)
}

func (h *DocumentHandler) CreateSection(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPost) {
		return
	}

	var req model.CreateSectionRequest
	if !request.Decode(w, r, &req) {
		return
	}
	if req.DocID == "" {
		response.Fail(w, http.StatusBadRequest, "document_id is required")
		return
	}

	section, err := h.Service.CreateSection(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusCreated, "section", section)
}

func (h *DocumentHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPut) {
		return
	}
	sectionID, ok := request.Param(w, r, "sectionId")
	if !ok {
		return
	}

	var req model.UpdateSectionRequest
	if !request.Decode(w, r, &req) {
		return
	}

	section, err := h.Service.UpdateSection(r.Context(), middleware.UserID(r.Context()), sectionID, req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "section", section)
}

func (h *DocumentHandler) ReorderSection(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPut) {
		return
	}
	sectionID, ok := request.Param(w, r, "sectionId")
	if !ok {
		return
	}

	var req model.ReorderRequest
	if !request.Decode(w, r, &req) {
		return
	}

	section, err := h.Service.ReorderSection(r.Context(), middleware.UserID(r.Context()), sectionID, req.OrderIndex)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "section", section)
}

func (h *DocumentHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodDelete) {
		return
	}
	sectionID, ok := request.Param(w, r, "sectionId")
	if !ok {
		return
	}

	if err := h.Service.DeleteSection(r.Context(), middleware.UserID(r.Context()), sectionID); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "", nil)
}
