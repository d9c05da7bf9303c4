package handlers

import (
	"net/http"

	"github.com/hutmovies/hutmovies/internal/controllers"
	"github.com/hutmovies/hutmovies/internal/models"
	"github.com/hutmovies/hutmovies/internal/utils"
	"github.com/sirupsen/logrus"
)

// CatalogHandler serves catalog reads, search and admin imports
type CatalogHandler struct {
	catalog *controllers.CatalogController
	logger  *logrus.Logger
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(catalog *controllers.CatalogController, logger *logrus.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// Show handles GET /api/shows/{id}
func (h *CatalogHandler) Show(w http.ResponseWriter, r *http.Request) {
	show, err := h.catalog.Show(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, show)
}

// Movie handles GET /api/movies/{id}
func (h *CatalogHandler) Movie(w http.ResponseWriter, r *http.Request) {
	movie, err := h.catalog.Movie(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, movie)
}

// Search handles GET /api/catalog/search?q=
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	hits, err := h.catalog.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if hits == nil {
		hits = []utils.SearchHit{}
	}
	writeJSON(w, http.StatusOK, hits)
}

// PutShow handles PUT /api/admin/shows/{id}
func (h *CatalogHandler) PutShow(w http.ResponseWriter, r *http.Request) {
	var show models.Show
	if !decodeJSON(w, r, &show) {
		return
	}
	show.ID = r.PathValue("id")

	if err := h.catalog.PutShow(r.Context(), &show); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &show)
}

// PutMovie handles PUT /api/admin/movies/{id}
func (h *CatalogHandler) PutMovie(w http.ResponseWriter, r *http.Request) {
	var movie models.Movie
	if !decodeJSON(w, r, &movie) {
		return
	}
	movie.ID = r.PathValue("id")

	if err := h.catalog.PutMovie(r.Context(), &movie); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, &movie)
}
