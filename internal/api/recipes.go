package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/socialchef/recipebox/internal/errors"
	"github.com/socialchef/recipebox/internal/middleware"
	"github.com/socialchef/recipebox/internal/services/formatter"
	"github.com/socialchef/recipebox/internal/services/storage"
)

type RecipeListResponse struct {
	Recipes []storage.RecipeMeta `json:"recipes"`
	Total   int                  `json:"total"`
}

type AdminRecipeListResponse struct {
	Recipes []storage.RecipeMeta `json:"recipes"`
	Counts  map[string]int       `json:"counts"`
	Total   int                  `json:"total"`
}

type UpdateRecipeRequest struct {
	Content string `json:"content"`
}

func (s *Server) HandleListRecipes(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	recipes, err := s.store.List(r.Context(), userID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if recipes == nil {
		recipes = []storage.RecipeMeta{}
	}

	writeJSON(w, http.StatusOK, RecipeListResponse{Recipes: recipes, Total: len(recipes)})
}

// HandleGetRecipe returns the stored recipe as JSON, or as raw Markdown when
// the client asks for text/markdown.
func (s *Server) HandleGetRecipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	recipe, err := s.store.Get(r.Context(), userID, chi.URLParam(r, "name"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), "text/markdown") {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(recipe.Content))
		return
	}

	writeJSON(w, http.StatusOK, recipe)
}

// HandleUpdateRecipe replaces a recipe's Markdown. The title follows the new
// first heading; the source URL and creation time are kept.
func (s *Server) HandleUpdateRecipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req UpdateRecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, r, apperrors.NewValidationError("Content is required", "CONTENT_REQUIRED", "Send the full Markdown document."))
		return
	}

	name := chi.URLParam(r, "name")
	existing, err := s.store.Get(r.Context(), userID, name)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		writeStoreError(w, r, err)
		return
	}

	recipe := storage.Recipe{
		RecipeMeta: storage.RecipeMeta{Name: name, Owner: userID},
		Content:    req.Content,
	}
	status := http.StatusCreated
	fallbackTitle := formatter.DefaultTitle
	if existing != nil {
		recipe.SourceURL = existing.SourceURL
		recipe.Created = existing.Created
		fallbackTitle = existing.Title
		status = http.StatusOK
	}
	recipe.Title = formatter.DeriveTitle(req.Content, fallbackTitle)

	if err := s.store.Save(r.Context(), recipe); err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, status, recipe.RecipeMeta)
}

func (s *Server) HandleDeleteRecipe(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := s.store.Delete(r.Context(), userID, chi.URLParam(r, "name")); err != nil {
		writeStoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandleAdminListRecipes lists every owner's recipes. Routed behind
// middleware.RequireAdmin.
func (s *Server) HandleAdminListRecipes(w http.ResponseWriter, r *http.Request) {
	recipes, err := s.store.ListAll(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if recipes == nil {
		recipes = []storage.RecipeMeta{}
	}

	writeJSON(w, http.StatusOK, AdminRecipeListResponse{
		Recipes: recipes,
		Counts:  storage.CountByOwner(recipes),
		Total:   len(recipes),
	})
}
