package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/tair/retail-ledger/pkg/logger"
)

const (
	// HeaderKey is the request header carrying the client's idempotency key
	HeaderKey = "Idempotency-Key"
	// HeaderReplayed is set on responses served from a stored record
	HeaderReplayed = "Idempotent-Replayed"
)

// Middleware replays the stored response for a repeated Idempotency-Key.
// Requests without the header pass through. Responses with a 5xx status are
// not stored, so the client may retry them.
func Middleware(store Store, ttl time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			clientKey := r.Header.Get(HeaderKey)
			if store == nil || clientKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := storeKey(r, clientKey)

			existing, err := store.Begin(ctx, key, ttl)
			if err != nil {
				logger.Warn(ctx).Err(err).Msg("Idempotency store unavailable, executing request")
				next.ServeHTTP(w, r)
				return
			}
			if existing != nil {
				if existing.Pending() {
					writeJSONError(w, http.StatusConflict, "A request with this Idempotency-Key is still in progress")
					return
				}
				logger.Debug(ctx).Str("path", r.URL.Path).Int("status", existing.Status).Msg("Replaying idempotent response")
				if existing.ContentType != "" {
					w.Header().Set("Content-Type", existing.ContentType)
				}
				w.Header().Set(HeaderReplayed, "true")
				w.WriteHeader(existing.Status)
				w.Write(existing.Body)
				return
			}

			rec := &recordingWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			if rec.status >= http.StatusInternalServerError {
				if err := store.Abort(ctx, key); err != nil {
					logger.Warn(ctx).Err(err).Msg("Failed to release idempotency key")
				}
				return
			}
			record := Record{
				Status:      rec.status,
				ContentType: rec.Header().Get("Content-Type"),
				Body:        rec.body.Bytes(),
			}
			if err := store.Complete(ctx, key, record, ttl); err != nil {
				logger.Warn(ctx).Err(err).Msg("Failed to store idempotent response")
			}
		})
	}
}

// storeKey scopes the client key to the route and caller
func storeKey(r *http.Request, clientKey string) string {
	components := fmt.Sprintf("%s:%s:%s:%s", r.Method, r.URL.Path, r.Header.Get("Authorization"), clientKey)
	hash := sha256.Sum256([]byte(components))
	return hex.EncodeToString(hash[:])
}

// recordingWriter tees the response into a buffer
type recordingWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *recordingWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *recordingWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprintf(w, `{"success":false,"error":%q}`, message)
}
