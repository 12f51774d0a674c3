package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/campuspay/wallet/internal/adapter/http/dto"
)

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.NewErrorResponse(message))
}
