package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/namelens/sumlens/internal/store"
)

type fakeReader struct {
	records []store.SummaryRecord
	filter  store.SummaryFilter
	err     error
}

func (f *fakeReader) ListSummaries(_ context.Context, filter store.SummaryFilter) ([]store.SummaryRecord, error) {
	f.filter = filter
	if f.err != nil {
		return nil, f.err
	}
	return f.records, nil
}

func (f *fakeReader) CountSummaries(context.Context, store.SummaryFilter) (int, error) {
	return len(f.records), f.err
}

func (f *fakeReader) GetSummary(_ context.Context, id string) (*store.SummaryRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	for i := range f.records {
		if f.records[i].ID == id {
			return &f.records[i], nil
		}
	}
	return nil, store.ErrNotFound
}

func summariesRouter(h *SummariesHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/api/summarizer/summaries", h.List)
	r.Get("/api/summarizer/summaries/{id}", h.Get)
	return r
}

func TestSummariesList(t *testing.T) {
	created := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	reader := &fakeReader{records: []store.SummaryRecord{
		{ID: "b", Email: "a@example.com", SummaryText: "second", Source: "gemini", UsedExternal: true, CreatedAt: created.Add(time.Minute)},
		{ID: "a", Email: "a@example.com", SummaryText: "first", Source: "extractive_fallback", CreatedAt: created},
	}}
	router := summariesRouter(NewSummariesHandler(reader))

	req := httptest.NewRequest(http.MethodGet, "/api/summarizer/summaries?email=a@example.com&client_ip=10.0.0.1&limit=500&offset=2", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SummaryListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "b", resp.Results[0].ID)
	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, store.MaxListLimit, resp.Limit)
	assert.Equal(t, 2, resp.Offset)

	assert.Equal(t, "a@example.com", reader.filter.Email)
	assert.Equal(t, "10.0.0.1", reader.filter.ClientIP)
	assert.Equal(t, 500, reader.filter.Limit)
}

func TestSummariesListRejectsBadPaging(t *testing.T) {
	router := summariesRouter(NewSummariesHandler(&fakeReader{}))

	for _, query := range []string{"limit=abc", "limit=-1", "offset=x"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summarizer/summaries?"+query, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, query)
	}
}

func TestSummariesGet(t *testing.T) {
	reader := &fakeReader{records: []store.SummaryRecord{{ID: "abc", SummaryText: "kept"}}}
	router := summariesRouter(NewSummariesHandler(reader))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summarizer/summaries/abc", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got store.SummaryRecord
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, "kept", got.SummaryText)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summarizer/summaries/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummariesStoreFailure(t *testing.T) {
	router := summariesRouter(NewSummariesHandler(&fakeReader{err: errors.New("disk gone")}))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/summarizer/summaries", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "DATABASE_ERROR", resp.Error.Code)
}

func TestSummariesWithoutStore(t *testing.T) {
	rec := httptest.NewRecorder()
	NewSummariesHandler(nil).List(rec, httptest.NewRequest(http.MethodGet, "/api/summarizer/summaries", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
