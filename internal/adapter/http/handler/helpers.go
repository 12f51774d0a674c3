package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/campuspay/wallet/internal/adapter/http/dto"
	"github.com/campuspay/wallet/internal/domain"
)

// Validator checks decoded request bodies.
type Validator interface {
	Struct(s any) error
}

var errInvalidBody = domain.NewError(domain.KindBadRequest, "invalid request body")

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError renders err with the status for its kind. Internal errors are
// logged and replaced by a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(domain.KindOf(err))

	var derr *domain.Error
	if status == http.StatusInternalServerError || !errors.As(err, &derr) {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("internal error")
		writeJSON(w, http.StatusInternalServerError, dto.NewErrorResponse("internal server error"))
		return
	}

	writeJSON(w, status, dto.ErrorFromDomain(derr))
}

// statusFor maps every error kind to its HTTP status.
func statusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindBadRequest, domain.KindInsufficientFunds:
		return http.StatusBadRequest
	case domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindValidation:
		return http.StatusUnprocessableEntity
	case domain.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// decode reads a JSON body into dst and validates it.
func decode(r *http.Request, v Validator, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidBody
	}
	return v.Struct(dst)
}

// identity returns the authenticated caller.
func identity(r *http.Request) (domain.Identity, error) {
	id, ok := domain.IdentityFromContext(r.Context())
	if !ok {
		return domain.Identity{}, domain.ErrUnauthenticated
	}
	return id, nil
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
