package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/campuspay/wallet/internal/domain"
	"github.com/campuspay/wallet/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks a replayed response.
	IdempotencyReplayHeader = "X-Idempotency-Replay"
)

// storedResponse is what the store keeps for a completed request.
type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyMiddleware replays the first successful response for a repeated
// Idempotency-Key. Keys are scoped to the caller, so two users can never
// collide.
type IdempotencyMiddleware struct {
	store usecase.IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !mutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}

		scope := "anonymous"
		if id, ok := domain.IdentityFromContext(r.Context()); ok {
			scope = id.Username
		}
		key = scope + ":" + r.Method + ":" + r.URL.Path + ":" + key

		exists, cached, err := m.store.CheckAndSet(r.Context(), key, nil, m.ttl)
		if err != nil {
			zerolog.Ctx(r.Context()).Error().Err(err).Msg("idempotency check failed")
			writeError(w, http.StatusInternalServerError, "idempotency check failed")
			return
		}

		if exists {
			var stored storedResponse
			if cached == nil || json.Unmarshal(cached, &stored) != nil || stored.Status == 0 {
				writeError(w, http.StatusConflict, "a request with this idempotency key is still in progress")
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(IdempotencyReplayHeader, "true")
			w.WriteHeader(stored.Status)
			if len(stored.Body) > 0 && string(stored.Body) != "null" {
				_, _ = w.Write(stored.Body)
			}
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}

		// A panicking handler must not leave the key stuck in progress.
		defer func() {
			if p := recover(); p != nil {
				if err := m.store.Release(r.Context(), key); err != nil {
					zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to release idempotency key")
				}
				panic(p)
			}
		}()
		next.ServeHTTP(recorder, r)

		// Failures are not cached so the client can retry with the same key.
		if recorder.statusCode < 200 || recorder.statusCode >= 300 {
			if err := m.store.Release(r.Context(), key); err != nil {
				zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to release idempotency key")
			}
			return
		}

		var body json.RawMessage
		if recorder.body.Len() > 0 {
			body = recorder.body.Bytes()
		}
		raw, err := json.Marshal(storedResponse{Status: recorder.statusCode, Body: body})
		if err != nil {
			_ = m.store.Release(r.Context(), key)
			return
		}
		if err := m.store.Update(r.Context(), key, raw, m.ttl); err != nil {
			zerolog.Ctx(r.Context()).Warn().Err(err).Msg("failed to store idempotent response")
		}
	})
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return true
	default:
		return false
	}
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
