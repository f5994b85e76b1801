package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gotodo/apiserver/internal/services"
	"github.com/gotodo/apiserver/internal/store"
	"github.com/gotodo/apiserver/types"
	"github.com/sirupsen/logrus"
)

// TodoHandler provides HTTP handlers for todos.
type TodoHandler struct {
	todoService *services.TodoService
	logger      *logrus.Logger
}

// NewTodoHandler constructs a handler with the provided service.
func NewTodoHandler(todoService *services.TodoService, logger *logrus.Logger) *TodoHandler {
	return &TodoHandler{
		todoService: todoService,
		logger:      logger,
	}
}

// TodoRouter registers todo routes on the given router. Every route is
// behind the auth middleware; handlers only ever act on the todos of
// the authenticated subject.
func TodoRouter(
	r chi.Router,
	todoService *services.TodoService,
	authMiddleware func(http.Handler) http.Handler,
	logger *logrus.Logger,
) {
	handler := NewTodoHandler(todoService, logger)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Get("/todos", handler.ListTodos)
		r.Post("/todos", handler.CreateTodo)
		r.Put("/todos/{todoID}", handler.UpdateTodo)
		r.Delete("/todos/{todoID}", handler.DeleteTodo)
		r.Post("/toggle/{todoID}", handler.ToggleTodo)
		r.Get("/categories", handler.ListCategories)
	})
}

func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	todos, err := h.todoService.List(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("list todos failed")
		writeError(w, http.StatusInternalServerError, "failed to list todos")
		return
	}

	writeJSON(w, http.StatusOK, todos)
}

func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	input, err := parseTodoBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	created, err := h.todoService.Create(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, services.ErrInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.WithError(err).Error("create todo failed")
		writeError(w, http.StatusInternalServerError, "failed to create todo")
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (h *TodoHandler) ToggleTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "todo not found")
		return
	}

	todo, err := h.todoService.ToggleCompleted(r.Context(), userID, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "todo not found")
			return
		}
		h.logger.WithError(err).Error("toggle todo failed")
		writeError(w, http.StatusInternalServerError, "failed to toggle todo")
		return
	}

	writeJSON(w, http.StatusOK, todo)
}

func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "todo not found")
		return
	}

	input, err := parseTodoBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	updated, err := h.todoService.Update(r.Context(), userID, id, input)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidInput):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, store.ErrNotFound):
			writeError(w, http.StatusNotFound, "todo not found")
		default:
			h.logger.WithError(err).Error("update todo failed")
			writeError(w, http.StatusInternalServerError, "failed to update todo")
		}
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id, err := parseTodoID(r)
	if err != nil {
		writeError(w, http.StatusNotFound, "todo not found")
		return
	}

	if err := h.todoService.Delete(r.Context(), userID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "todo not found")
			return
		}
		h.logger.WithError(err).Error("delete todo failed")
		writeError(w, http.StatusInternalServerError, "failed to delete todo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TodoHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	categories, err := h.todoService.Categories(r.Context(), userID)
	if err != nil {
		h.logger.WithError(err).Error("list categories failed")
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	writeJSON(w, http.StatusOK, categories)
}

// TodoRequest is the JSON payload for creating or updating a todo.
type TodoRequest struct {
	Text     string          `json:"text"`
	Category *string         `json:"category"`
	Tags     []string        `json:"tags"`
	Priority *types.Priority `json:"priority"`
	DueDate  *time.Time      `json:"due_date"`
}

func parseTodoBody(r *http.Request) (services.NewTodo, error) {
	var req TodoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return services.NewTodo{}, err
	}
	return services.NewTodo{
		Text:     req.Text,
		Category: req.Category,
		Tags:     req.Tags,
		Priority: req.Priority,
		DueDate:  req.DueDate,
	}, nil
}

func parseTodoID(r *http.Request) (string, error) {
	id := strings.TrimSpace(chi.URLParam(r, "todoID"))
	if id == "" {
		return "", errors.New("invalid todo id")
	}
	return id, nil
}
