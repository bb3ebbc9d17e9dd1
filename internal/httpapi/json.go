package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/p-n-ai/pai-solutions/internal/platform/apierr"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("writing response", "error", err)
	}
}

// errorMessage is the client-facing text for err. Upstream failures are
// logged and reported generically.
func errorMessage(r *http.Request, err error) string {
	if apierr.KindOf(err) == apierr.KindUpstream {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		return "internal server error"
	}
	var e *apierr.Error
	if errors.As(err, &e) && e.Msg != "" {
		return e.Msg
	}
	return err.Error()
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeJSON(w, apierr.StatusOf(err), map[string]string{"error": errorMessage(r, err)})
}

// decodeJSON reads a JSON body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apierr.Validation("request body is empty")
		}
		return apierr.Validation("invalid request body: %v", err)
	}
	return nil
}
