package http

import (
	"net/http"

	"github.com/taskdeck/taskdeck/internal/application"
)

func (h *Handler) createProject(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "create_project")
		return
	}
	var req application.CreateProjectRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_project", err)
		return
	}

	res, err := h.service.CreateProject(r.Context(), token, req)
	if err != nil {
		writeMappedError(r.Context(), w, "create_project", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) listProjects(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_projects")
		return
	}
	res, err := h.service.ListProjects(r.Context(), token)
	if err != nil {
		writeMappedError(r.Context(), w, "list_projects", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) getProject(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "get_project")
		return
	}
	projectID, err := uuidParam(r, "project_id")
	if err != nil {
		writeValidationError(r.Context(), w, "get_project", err)
		return
	}
	res, err := h.service.GetProject(r.Context(), token, projectID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_project", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) updateProject(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "update_project")
		return
	}
	projectID, err := uuidParam(r, "project_id")
	if err != nil {
		writeValidationError(r.Context(), w, "update_project", err)
		return
	}
	var req application.UpdateProjectRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_project", err)
		return
	}

	res, err := h.service.UpdateProject(r.Context(), token, projectID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_project", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteProject(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "delete_project")
		return
	}
	projectID, err := uuidParam(r, "project_id")
	if err != nil {
		writeValidationError(r.Context(), w, "delete_project", err)
		return
	}
	if err := h.service.DeleteProject(r.Context(), token, projectID); err != nil {
		writeMappedError(r.Context(), w, "delete_project", err)
		return
	}
	writeMessage(w, http.StatusOK, "Project deleted successfully")
}
