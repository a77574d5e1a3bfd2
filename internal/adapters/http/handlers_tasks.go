package http

import (
	"net/http"
	"strings"

	"github.com/taskdeck/taskdeck/internal/application"
)

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "create_task")
		return
	}
	var req application.CreateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "create_task", err)
		return
	}

	res, err := h.service.CreateTask(r.Context(), token, req, strings.TrimSpace(r.Header.Get("Idempotency-Key")))
	if err != nil {
		writeMappedError(r.Context(), w, "create_task", err)
		return
	}
	writeSuccess(w, http.StatusCreated, res)
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "list_tasks")
		return
	}
	projectID, err := uuidQuery(r, "project")
	if err != nil {
		writeValidationError(r.Context(), w, "list_tasks", err)
		return
	}
	res, err := h.service.ListTasks(r.Context(), token, projectID)
	if err != nil {
		writeMappedError(r.Context(), w, "list_tasks", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

// nextTicketNumber previews the next allocation without reserving it. The
// number is only final once a create succeeds.
func (h *Handler) nextTicketNumber(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "next_ticket_number")
		return
	}
	projectID, err := uuidQuery(r, "project")
	if err != nil {
		writeValidationError(r.Context(), w, "next_ticket_number", err)
		return
	}
	number, err := h.service.NextTicketNumber(r.Context(), token, projectID)
	if err != nil {
		writeMappedError(r.Context(), w, "next_ticket_number", err)
		return
	}
	writeSuccess(w, http.StatusOK, map[string]any{"ticketNumber": number})
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "get_task")
		return
	}
	taskID, err := uuidParam(r, "task_id")
	if err != nil {
		writeValidationError(r.Context(), w, "get_task", err)
		return
	}
	res, err := h.service.GetTask(r.Context(), token, taskID)
	if err != nil {
		writeMappedError(r.Context(), w, "get_task", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "update_task")
		return
	}
	taskID, err := uuidParam(r, "task_id")
	if err != nil {
		writeValidationError(r.Context(), w, "update_task", err)
		return
	}
	var req application.UpdateTaskRequest
	if err := decodeBody(r, &req); err != nil {
		writeValidationError(r.Context(), w, "update_task", err)
		return
	}

	res, err := h.service.UpdateTask(r.Context(), token, taskID, req)
	if err != nil {
		writeMappedError(r.Context(), w, "update_task", err)
		return
	}
	writeSuccess(w, http.StatusOK, res)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	token, ok := tokenFromContext(r)
	if !ok {
		writeMissingBearerError(r.Context(), w, "delete_task")
		return
	}
	taskID, err := uuidParam(r, "task_id")
	if err != nil {
		writeValidationError(r.Context(), w, "delete_task", err)
		return
	}
	if err := h.service.DeleteTask(r.Context(), token, taskID); err != nil {
		writeMappedError(r.Context(), w, "delete_task", err)
		return
	}
	writeMessage(w, http.StatusOK, "Task deleted successfully")
}
