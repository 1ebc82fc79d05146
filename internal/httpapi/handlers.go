package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/documenter-search/mcp-server/tools"
)

// handleSearch runs a full-text search: /api/search?q=&max=&category=&version=
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input := tools.SearchDocumentationInput{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Version:  q.Get("version"),
	}
	if input.Query == "" {
		jsonError(w, "q query parameter is required", http.StatusBadRequest)
		return
	}
	if raw := q.Get("max"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			jsonError(w, "max must be a non-negative integer", http.StatusBadRequest)
			return
		}
		input.MaxResults = n
	}

	out, err := s.docs.Search(r.Context(), input)
	switch {
	case errors.Is(err, tools.ErrEmptyQuery):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, tools.ErrUnknownVersion):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		jsonError(w, "search failed: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handlePages lists the pages of a documentation version: /api/pages?version=
func (s *Server) handlePages(w http.ResponseWriter, r *http.Request) {
	out, err := s.docs.Pages(r.Context(), r.URL.Query().Get("version"))
	switch {
	case errors.Is(err, tools.ErrUnknownVersion):
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	case err != nil:
		jsonError(w, "failed to list pages: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}
