package web

// errors.go maps pipeline errors to JSON responses.
//
// The import error taxonomy splits into user-facing failures (unsupported or
// malformed file, empty catalogue, unknown seller) and server-side ones
// (queue saturation, storage). Technical details are logged with the request
// ID; clients get the sentinel message plus a status code they can act on.

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/mwerther/catimport/internal/catalogue"
	"github.com/mwerther/catimport/internal/logging"
)

// ErrorResponse is the JSON structure for API error responses.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// respondError classifies err and writes the matching response.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)

	logging.FromContext(r.Context()).Error("import request failed",
		"path", r.URL.Path,
		"status", status,
		"code", code,
		"error", err.Error(),
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

// classify maps a pipeline error to an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, catalogue.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType, "unsupported_format"
	case errors.Is(err, catalogue.ErrMalformedDocument):
		return http.StatusBadRequest, "malformed_document"
	case errors.Is(err, catalogue.ErrEmptyCatalogue):
		return http.StatusBadRequest, "empty_catalogue"
	case errors.Is(err, catalogue.ErrSellerNotFound):
		return http.StatusUnprocessableEntity, "seller_not_found"
	case errors.Is(err, catalogue.ErrQueueFull):
		return http.StatusServiceUnavailable, "queue_full"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg, Code: http.StatusText(status)})
}
