package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"

	"github.com/sweater-ventures/gulp/app"
)

// maxIngestBodyBytes caps how much of an ingest request is read before
// signature verification.
const maxIngestBodyBytes = 1024 * 1024

// SignatureAuthMiddleware verifies the X-Signature header, a hex HMAC-SHA256
// of the raw request body, before the wrapped handler runs.  The body is
// re-buffered so the handler can read it again.
func SignatureAuthMiddleware(gulp *app.Application) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxIngestBodyBytes))
			if err != nil {
				jsonError(w, http.StatusBadRequest, "unable to read request body")
				return
			}

			signature := r.Header.Get("X-Signature")
			if signature == "" || !app.VerifySignature(gulp.Config.HmacSecret, body, signature) {
				log(r.Context()).Warn("Rejected request with bad signature", "path", r.URL.Path)
				jsonError(w, http.StatusUnauthorized, "invalid signature")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next.ServeHTTP(w, r)
		})
	}
}

func jsonError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
