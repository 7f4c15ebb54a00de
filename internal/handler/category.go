package handler

import (
	"net/http"

	"github.com/dukerupert/billfold/internal/category"
)

type CategoryHandler struct{}

func NewCategoryHandler() *CategoryHandler {
	return &CategoryHandler{}
}

func kindParam(w http.ResponseWriter, r *http.Request) (category.Kind, bool) {
	kind, ok := category.ParseKind(r.URL.Query().Get("kind"))
	if !ok {
		writeMessage(w, http.StatusBadRequest, "kind must be expense, income or bill")
	}
	return kind, ok
}

// List returns the catalogue for ?kind=, defaulting to expense.
func (h *CategoryHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, category.List(kind))
}

func (h *CategoryHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"category": category.Suggest(kind, r.URL.Query().Get("title")),
	})
}
