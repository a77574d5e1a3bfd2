package http

import (
	"net/http"

	"github.com/taskdeck/taskdeck/internal/application"
)

func (h *Handler) createTeamMember(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "create_team_member")
		return
	}
	var req application.CreateTeamMemberRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_team_member", err)
		return
	}

	res, err := h.service.CreateTeamMember(r.Context(), token, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_team_member", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) listTeamMembers(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_team_members")
		return
	}
	res, err := h.service.ListTeamMembers(r.Context(), token)
	if err != nil {
		writeMappedError(r.Context(), w, "list_team_members", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) assignTeamMembers(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "assign_team_members")
		return
	}
	var req application.AssignMembersRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "assign_team_members", err)
		return
	}

	if err := h.service.AssignTeamMembers(r.Context(), token, req); err != nil {
		writeMappedError(r.Context(), w, "assign_team_members", err)
		return
	}
	writeMessage(w, http.StatusOK, "Team members assigned successfully")
}

func (h *Handler) deleteTeamMember(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "delete_team_member")
		return
	}
	memberID, err := uuidParam(r, "member_id")
	if err != nil {
		writeValidationError(r.Context(), w, "delete_team_member", err)
		return
	}
	if err := h.service.DeleteTeamMember(r.Context(), token, memberID); err != nil {
		writeMappedError(r.Context(), w, "delete_team_member", err)
		return
	}
	writeMessage(w, http.StatusOK, "Team member removed successfully")
}
