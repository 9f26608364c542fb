package handlers

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	apperrors "github.com/namelens/sumlens/internal/errors"
	"github.com/namelens/sumlens/internal/pipeline"
)

// MaxSummarizeBodyBytes bounds the request body of the summarize endpoint.
const MaxSummarizeBodyBytes = 1 << 20

// Rate limit headers set on every admitted or rejected request.
const (
	HeaderRateLimitLimit     = "X-RateLimit-Limit"
	HeaderRateLimitRemaining = "X-RateLimit-Remaining"
	HeaderRateLimitReset     = "X-RateLimit-Reset"
)

// Summarizer is the request pipeline behind the summarize endpoint.
type Summarizer interface {
	Summarize(ctx context.Context, req pipeline.Request) (*pipeline.Response, error)
}

// SummarizeHandler serves POST /api/summarizer/summarize.
type SummarizeHandler struct {
	Pipeline Summarizer
}

// NewSummarizeHandler returns a handler over p.
func NewSummarizeHandler(p Summarizer) *SummarizeHandler {
	return &SummarizeHandler{Pipeline: p}
}

func (h *SummarizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Pipeline == nil {
		respondWithError(w, r, apperrors.NewServiceUnavailableError("summarizer is not configured"))
		return
	}

	req, err := parseSummarizeRequest(w, r)
	if err != nil {
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, err.Error()))
		return
	}
	req.ClientID = ClientIP(r)

	resp, err := h.Pipeline.Summarize(r.Context(), req)
	if err != nil {
		var invalid *pipeline.InvalidInputError
		var limited *pipeline.RateLimitExceededError
		switch {
		case errors.As(err, &invalid):
			env := apperrors.NewInvalidInputError(invalid.Reason).WithDetails(map[string]interface{}{
				"field": invalid.Field,
			})
			respondWithError(w, r, env)
		case errors.As(err, &limited):
			d := limited.Decision
			setRateLimitHeaders(w, d.Limit, d.Remaining, d.ResetSeconds)
			respondWithError(w, r, apperrors.NewRateLimitedError("Rate limit exceeded", d.Remaining, d.ResetSeconds))
		default:
			respondWithError(w, r, apperrors.WrapInternal(r.Context(), err, "summarization failed"))
		}
		return
	}

	if d := resp.RateLimit; d.Limit > 0 {
		setRateLimitHeaders(w, d.Limit, d.Remaining, d.ResetSeconds)
	}
	writeJSON(w, http.StatusOK, resp)
}

func setRateLimitHeaders(w http.ResponseWriter, limit, remaining, reset int) {
	w.Header().Set(HeaderRateLimitLimit, strconv.Itoa(limit))
	w.Header().Set(HeaderRateLimitRemaining, strconv.Itoa(remaining))
	w.Header().Set(HeaderRateLimitReset, strconv.Itoa(reset))
}

// parseSummarizeRequest reads {text, tokens?, email?}. Blank text is left
// to the pipeline so it is reported the same way for every caller.
func parseSummarizeRequest(w http.ResponseWriter, r *http.Request) (pipeline.Request, error) {
	var req pipeline.Request

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxSummarizeBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return req, errors.New("request body is too large")
		}
		return req, errors.New("unable to read request body")
	}
	if !gjson.ValidBytes(body) {
		return req, errors.New("request body must be JSON")
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return req, errors.New("request body must be a JSON object")
	}

	switch text := doc.Get("text"); text.Type {
	case gjson.Null:
	case gjson.String:
		req.Text = text.String()
	default:
		return req, errors.New("text must be a string")
	}

	req.Tokens = coerceTokens(doc.Get("tokens"))

	if email := doc.Get("email"); email.Type == gjson.String {
		req.Email = strings.TrimSpace(email.String())
	}
	return req, nil
}

// coerceTokens accepts a JSON number or a numeric string. Anything else
// yields 0, which the pipeline replaces with its default.
func coerceTokens(v gjson.Result) int {
	switch v.Type {
	case gjson.Number:
		return int(v.Int())
	case gjson.String:
		n, err := strconv.Atoi(strings.TrimSpace(v.String()))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// ClientIP identifies the caller for rate limiting: the first entry of
// X-Forwarded-For when present, else the host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.TrimSpace(r.RemoteAddr)
	}
	return host
}
