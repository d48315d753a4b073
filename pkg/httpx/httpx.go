// Package httpx holds the gateway's JSON plumbing, including the
// mapping from taxonomy codes to HTTP statuses.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/Prompt-or-Die/ghostspeak-sub001/pkg/gserr"
)

func NewRequestID() string { return "req_" + uuid.NewString() }

func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func ReadJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func WriteError(w http.ResponseWriter, status int, code, message string, details any) {
	resp := map[string]any{
		"request_id": NewRequestID(),
		"error": map[string]any{
			"code": code, "message": message, "details": details,
		},
	}
	WriteJSON(w, status, resp)
}

// WriteCommandError renders err with the status its taxonomy code
// implies. Non-taxonomy errors are host faults and surface as 500.
func WriteCommandError(w http.ResponseWriter, err error) {
	code := gserr.CodeOf(err)
	if code == "" {
		WriteError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
		return
	}
	WriteError(w, StatusForCode(code), string(code), err.Error(), nil)
}

// StatusForCode buckets taxonomy codes into HTTP statuses.
func StatusForCode(code gserr.Code) int {
	switch code {
	case gserr.UnauthorizedAccess, gserr.InvalidSigner:
		return http.StatusForbidden
	case gserr.AccountNotInitialized:
		return http.StatusNotFound
	case gserr.AccountAlreadyInitialized:
		return http.StatusConflict
	case gserr.RateLimitExceeded:
		return http.StatusTooManyRequests
	case gserr.InsufficientFunds:
		return http.StatusPaymentRequired
	}
	return http.StatusUnprocessableEntity
}
