package server

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/satish1373/ag-devops/internal/service"
)

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req service.CreateTodoRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	todoResp, err := s.todos.CreateTodo(r.Context(), req)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to create todo")
		return
	}

	respondWithJSON(w, http.StatusCreated, todoResp)
}

func (s *Server) getAllTodosHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := parseListRequest(w, r)
	if !ok {
		return
	}

	todos, err := s.todos.GetAllTodos(r.Context(), req)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to retrieve todos")
		return
	}

	respondWithJSON(w, http.StatusOK, todos)
}

func (s *Server) getTodoByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTodoID(w, r)
	if !ok {
		return
	}

	todo, err := s.todos.GetTodoByID(r.Context(), id)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to retrieve todo")
		return
	}

	respondWithJSON(w, http.StatusOK, todo)
}

// updateTodoHandler serves both PUT and PATCH; fields left out of the body
// keep their stored values.
func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTodoID(w, r)
	if !ok {
		return
	}

	var req service.UpdateTodoRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	updatedTodo, err := s.todos.UpdateTodo(r.Context(), id, req)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to update todo")
		return
	}

	respondWithJSON(w, http.StatusOK, updatedTodo)
}

func (s *Server) toggleTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTodoID(w, r)
	if !ok {
		return
	}

	todo, err := s.todos.ToggleTodo(r.Context(), id)
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to toggle todo")
		return
	}

	respondWithJSON(w, http.StatusOK, todo)
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTodoID(w, r)
	if !ok {
		return
	}

	if err := s.todos.DeleteTodo(r.Context(), id); err != nil {
		s.respondWithServiceError(w, r, err, "Failed to delete todo")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) todoStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := s.todos.Stats(r.Context())
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to compute todo stats")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (s *Server) exportTodosHandler(w http.ResponseWriter, r *http.Request) {
	format, err := service.ParseExportFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondWithServiceError(w, r, err, "Failed to export todos")
		return
	}
	req, ok := parseListRequest(w, r)
	if !ok {
		return
	}

	// Buffer so a failure can still be reported with a proper status.
	var buf bytes.Buffer
	if err := s.todos.ExportTodos(r.Context(), req, format, &buf); err != nil {
		s.respondWithServiceError(w, r, err, "Failed to export todos")
		return
	}

	filename := fmt.Sprintf("todos-%s.%s", s.now().UTC().Format("20060102"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func parseTodoID(w http.ResponseWriter, r *http.Request) (uint, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid todo ID provided")
		return 0, false
	}
	return uint(id), true
}

func parseListRequest(w http.ResponseWriter, r *http.Request) (service.ListTodosRequest, bool) {
	q := r.URL.Query()
	req := service.ListTodosRequest{
		Priority: q.Get("priority"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}

	if v := q.Get("completed"); v != "" {
		completed, err := strconv.ParseBool(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid completed value %q", v))
			return req, false
		}
		req.Completed = &completed
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &req.Limit}, {"offset", &req.Offset}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Sprintf("Invalid %s value %q", p.name, v))
			return req, false
		}
		*p.dst = n
	}
	return req, true
}
