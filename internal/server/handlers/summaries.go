package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/namelens/sumlens/internal/errors"
	"github.com/namelens/sumlens/internal/store"
)

// SummaryReader reads persisted summaries.
type SummaryReader interface {
	ListSummaries(ctx context.Context, f store.SummaryFilter) ([]store.SummaryRecord, error)
	CountSummaries(ctx context.Context, f store.SummaryFilter) (int, error)
	GetSummary(ctx context.Context, id string) (*store.SummaryRecord, error)
}

// SummaryListResponse is one page of summaries, newest first.
type SummaryListResponse struct {
	Results []store.SummaryRecord `json:"results"`
	Count   int                   `json:"count"`
	Limit   int                   `json:"limit"`
	Offset  int                   `json:"offset"`
}

// SummariesHandler serves the summary history endpoints.
type SummariesHandler struct {
	Store SummaryReader
}

// NewSummariesHandler returns a handler over rs.
func NewSummariesHandler(rs SummaryReader) *SummariesHandler {
	return &SummariesHandler{Store: rs}
}

// List handles GET /api/summarizer/summaries.
func (h *SummariesHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("summary store is not configured"))
		return
	}

	q := r.URL.Query()
	filter := store.SummaryFilter{
		Email:    strings.TrimSpace(q.Get("email")),
		ClientIP: strings.TrimSpace(q.Get("client_ip")),
	}
	var err error
	if filter.Limit, err = queryInt(q.Get("limit")); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("limit must be a non-negative integer"))
		return
	}
	if filter.Offset, err = queryInt(q.Get("offset")); err != nil {
		respondWithError(w, r, apperrors.NewInvalidInputError("offset must be a non-negative integer"))
		return
	}

	records, err := h.Store.ListSummaries(r.Context(), filter)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "unable to list summaries"))
		return
	}
	count, err := h.Store.CountSummaries(r.Context(), filter)
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "unable to count summaries"))
		return
	}

	writeJSON(w, http.StatusOK, SummaryListResponse{
		Results: records,
		Count:   count,
		Limit:   filter.NormalizedLimit(),
		Offset:  filter.Offset,
	})
}

// Get handles GET /api/summarizer/summaries/{id}.
func (h *SummariesHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Store == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("summary store is not configured"))
		return
	}

	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("id is required"))
		return
	}

	rec, err := h.Store.GetSummary(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondWithError(w, r, apperrors.NewNotFoundError("summary not found"))
		return
	}
	if err != nil {
		respondWithError(w, r, apperrors.WrapDatabaseError(r.Context(), err, "unable to load summary"))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func queryInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
