package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/upmenu/menu-api/internal/auth"
	"github.com/upmenu/menu-api/internal/menu"
	"github.com/upmenu/menu-api/internal/obs"
)

// errorResponse is the stable error envelope. Internal error class names and
// stack traces never leave the process outside dev mode.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
	Path       string `json:"path"`
	Method     string `json:"method"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, code int, message, detail string) {
	resp := errorResponse{
		StatusCode: code,
		Message:    message,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		Path:       r.URL.Path,
		Method:     r.Method,
	}
	if a.devMode {
		resp.Error = detail
	}
	writeJSON(w, code, resp)
}

// handleError maps service errors onto the envelope. Unknown errors become a
// generic 500 with no internal detail leaked.
func (a *API) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized), errors.Is(err, auth.ErrInvalidToken):
		a.writeError(w, r, http.StatusUnauthorized, "Unauthorized", err.Error())
	case errors.Is(err, auth.ErrForbidden):
		a.writeError(w, r, http.StatusForbidden, "Insufficient permissions", err.Error())
	case errors.Is(err, auth.ErrNotFound), errors.Is(err, menu.ErrNotFound):
		a.writeError(w, r, http.StatusNotFound, "Resource not found", err.Error())
	case errors.Is(err, auth.ErrConflict), errors.Is(err, menu.ErrConflict):
		a.writeError(w, r, http.StatusConflict, "Resource already exists", err.Error())
	case errors.Is(err, auth.ErrInvalidInput), errors.Is(err, menu.ErrInvalidInput):
		a.writeError(w, r, http.StatusBadRequest, err.Error(), err.Error())
	default:
		obs.Error("request_failed", map[string]any{
			"path":   r.URL.Path,
			"method": r.Method,
			"error":  err.Error(),
		})
		a.writeError(w, r, http.StatusInternalServerError, "Internal server error", err.Error())
	}
}

func (a *API) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
