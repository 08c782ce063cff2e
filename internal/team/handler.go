package handler

import (
	"net/http"

	"gamedoc/internal/team/model"
	"gamedoc/internal/team/service"
	"gamedoc/middleware"
	"gamedoc/pkg/request"
	"gamedoc/pkg/response"
)

type TeamHandler struct {
	Service *service.TeamService
}

func NewTeamHandler(service *service.TeamService) *TeamHandler {
	return &TeamHandler{Service: service}
}

func (h *TeamHandler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodPost) {
		return
	}

	var req model.CreateTeamRequest
	if !request.Decode(w, r, &req) {
		return
	}

	team, err := h.Service.CreateTeam(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusCreated, "team", team)
}

func (h *TeamHandler) GetTeams(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}

	teams, err := h.Service.ListTeams(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "teams", teams)
}

func (h *TeamHandler) GetTeam(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}
	teamID, ok := request.Param(w, r, "teamId")
	if !ok {
		return
	}

	team, err := h.Service.GetTeam(r.Context(), middleware.UserID(r.Context()), teamID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "team", team)
}

func (h *TeamHandler) GetMembers(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodGet) {
		return
	}
	teamID, ok := request.Param(w, r, "teamId")
	if !ok {
		return
	}

	members, err := h.Service.ListMembers(r.Context(), middleware.UserID(r.Context()), teamID)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "members", members)
}

func (h *TeamHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodDelete) {
		return
	}
	teamID, ok := request.Param(w, r, "teamId")
	if !ok {
		return
	}
	targetID, ok := request.Param(w, r, "userId")
	if !ok {
		return
	}

	if err := h.Service.RemoveMember(r.Context(), middleware.UserID(r.Context()), teamID, targetID); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "", nil)
}

func (h *TeamHandler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	if !request.Method(w, r, http.MethodDelete) {
		return
	}
	teamID, ok := request.Param(w, r, "teamId")
	if !ok {
		return
	}

	if err := h.Service.DeleteTeam(r.Context(), middleware.UserID(r.Context()), teamID); err != nil {
		response.Error(w, err)
		return
	}
	response.OK(w, http.StatusOK, "", nil)
}
