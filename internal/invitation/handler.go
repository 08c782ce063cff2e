package handler

import (
	"net/http"

	"gamedoc/internal/invitation/model"
	"gamedoc/internal/invitation/service"
	"gamedoc/middleware"
	"gamedoc/pkg/request"
	"gamedoc/pkg/response"
)

type InvitationHandler struct {
	Service *service.InvitationService
}

func NewInvitationHandler(service *service.InvitationService) *InvitationHandler {
	return &InvitationHandler{Service: service}
}

func (h *InvitationHandler) Invite(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPost) {
		return
	}

	var req model.InviteRequest
	if !request.Decode(w, r, &req) {
		return
	}

	inv, err := h.Service.Invite(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusCreated, "invitation", inv)
}

// GetPending lists the caller's open invitations.
func (h *InvitationHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}

	invitations, err := h.Service.ListPending(r.Context(), middleware.Email(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "invitations", invitations)
}

// GetSent lists invitations for ?kind=document|team|game&targetId=.
func (h *InvitationHandler) GetSent(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}
	kind, ok := request.Param(w, r, "kind")
	if !ok {
		return
	}
	targetID, ok := request.Param(w, r, "targetId")
	if !ok {
		return
	}

	target := model.Target{Kind: model.TargetKind(kind), ID: targetID}
	invitations, err := h.Service.ListSent(r.Context(), middleware.UserID(r.Context()), target)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "invitations", invitations)
}

func (h *InvitationHandler) Accept(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPost) {
		return
	}

	ctx := r.Context()
	var (
		inv *model.Invitation
		err error
	)
	if token := r.URL.Query().Get("inviteToken"); token != "" && r.URL.Query().Get("invitationId") == "" {
		inv, err = h.Service.AcceptByToken(ctx, middleware.UserID(ctx), token)
	} else {
		id, ok := request.Param(w, r, "invitationId")
		if !ok {
			return
		}
		inv, err = h.Service.Accept(ctx, middleware.UserID(ctx), middleware.Email(ctx), id)
	}
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "invitation", inv)
}

func (h *InvitationHandler) Decline(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPost) {
		return
	}
	id, ok := request.Param(w, r, "invitationId")
	if !ok {
		return
	}

	ctx := r.Context()
	inv, err := h.Service.Decline(ctx, middleware.UserID(ctx), middleware.Email(ctx), id)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "invitation", inv)
}

func (h *InvitationHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodDelete) {
		return
	}
	id, ok := request.Param(w, r, "invitationId")
	if !ok {
		return
	}

	if err := h.Service.Revoke(r.Context(), middleware.UserID(r.Context()), id); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "", nil)
}
