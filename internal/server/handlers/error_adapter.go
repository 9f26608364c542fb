package handlers

import (
	"net/http"
	"sync/atomic"

	apperrors "github.com/namelens/sumlens/internal/errors"
)

type errorResponder func(http.ResponseWriter, *http.Request, error)

var httpErrorResponder atomic.Value

func init() {
	SetHTTPErrorResponder(nil)
}

// SetHTTPErrorResponder installs the server's error writer. nil restores
// apperrors.RespondWithError.
func SetHTTPErrorResponder(responder func(http.ResponseWriter, *http.Request, error)) {
	if responder == nil {
		responder = apperrors.RespondWithError
	}
	httpErrorResponder.Store(errorResponder(responder))
}

func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	httpErrorResponder.Load().(errorResponder)(w, r, err)
}
