// Package httputil keeps Content-Type, status codes and error bodies
// consistent across the feature handlers.
package httputil

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/strct-org/minicp/internal/errs"
)

// maxBody caps request bodies; every request here is a handful of fields.
const maxBody = 64 << 10

// JSON writes a JSON-encoded payload with the given HTTP status code.
// If encoding fails, it writes a plain 500 error instead.
func JSON(w http.ResponseWriter, code int, payload any) {
	b, err := json.Marshal(payload)
	if err != nil {
		slog.Error("httputil: failed to marshal JSON response", "err", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":"internal server error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(b)
}

// Error writes a JSON error body: {"error": "<message>"} with the given status code.
func Error(w http.ResponseWriter, code int, message string) {
	JSON(w, code, map[string]string{"error": message})
}

// OK writes a 200 JSON response. Convenience wrapper for the common case.
func OK(w http.ResponseWriter, payload any) {
	JSON(w, http.StatusOK, payload)
}

// NoContent writes 204 with no body. Use for actions with no return value.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Decode reads a JSON body into v. Malformed input is a KindInvalid error
// ready for errs.HTTPResponse.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	if err := dec.Decode(v); err != nil {
		return errs.E(errs.Op("httputil.Decode"), errs.KindInvalid, err, "invalid JSON body")
	}
	return nil
}
