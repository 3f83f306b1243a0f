package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/rental-listing-scraper/internal/models"
	"github.com/maltedev/rental-listing-scraper/internal/storage"
)

// PageSize matches the number of results Craigslist shows per search page.
const PageSize = 48

// ListingReader reads stored scraper results.
type ListingReader interface {
	Sources() ([]string, error)
	Load(source string) ([]models.Listing, error)
}

type Handlers struct {
	store  ListingReader
	logger *slog.Logger
}

func NewHandlers(store ListingReader, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		store:  store,
		logger: logger.With("component", "api"),
	}
}

type SourcesResponse struct {
	Sources []string `json:"sources"`
}

// ListingsResponse is one page of a source's listings.
type ListingsResponse struct {
	Source     string           `json:"source"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	TotalPages int              `json:"totalPages"`
	Total      int              `json:"total"`
	Listings   []models.Listing `json:"listings"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) ListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := h.store.Sources()
	if err != nil {
		h.logger.Error("failed to list sources", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}

	h.respondJSON(w, http.StatusOK, SourcesResponse{Sources: sources})
}

// ListListings serves ?page=N (1-based) of a source's results.
func (h *Handlers) ListListings(w http.ResponseWriter, r *http.Request) {
	source := chi.URLParam(r, "source")

	page := 1
	if raw := r.URL.Query().Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.respondError(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = n
	}

	listings, err := h.store.Load(source)
	if errors.Is(err, storage.ErrSourceNotFound) {
		h.respondError(w, http.StatusNotFound, "source not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to load listings", "source", source, "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load listings")
		return
	}

	h.respondJSON(w, http.StatusOK, paginate(source, listings, page))
}

func paginate(source string, listings []models.Listing, page int) ListingsResponse {
	total := len(listings)
	totalPages := (total + PageSize - 1) / PageSize

	start := min((page-1)*PageSize, total)
	end := min(start+PageSize, total)

	window := listings[start:end]
	if window == nil {
		window = []models.Listing{}
	}

	return ListingsResponse{
		Source:     source,
		Page:       page,
		PageSize:   PageSize,
		TotalPages: totalPages,
		Total:      total,
		Listings:   window,
	}
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
