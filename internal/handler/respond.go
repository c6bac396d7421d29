package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tallyhq/tally/internal/crypto"
	"github.com/tallyhq/tally/internal/ctxkeys"
	"github.com/tallyhq/tally/internal/repository"
	"github.com/tallyhq/tally/internal/service"
	"github.com/tallyhq/tally/internal/validation"
)

// errorBody is the uniform JSON error envelope: a stable machine-readable
// code, a human message, and the request correlation id. Internal error text
// never reaches the client.
type errorBody struct {
	Error struct {
		Code      string `json:"code"`
		Message   string `json:"message"`
		RequestID string `json:"requestId,omitempty"`
	} `json:"error"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	var body errorBody
	body.Error.Code = code
	body.Error.Message = message
	body.Error.RequestID = ctxkeys.RequestID(r.Context())
	respondJSON(w, status, body)
}

// respondError maps service sentinels onto the error taxonomy. Anything
// unmapped is an internal failure: logged with the correlation id, surfaced
// as a bare SERVER_ERROR.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		respondErrorCode(w, r, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password")
	case errors.Is(err, service.ErrEmailNotVerified):
		respondErrorCode(w, r, http.StatusForbidden, "EMAIL_NOT_VERIFIED", "please verify your email address first")
	case errors.Is(err, service.ErrSessionInvalid), errors.Is(err, service.ErrInvalidAccessToken):
		respondErrorCode(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or expired token")
	case errors.Is(err, service.ErrTokenInvalid):
		respondErrorCode(w, r, http.StatusBadRequest, "INVALID_TOKEN", "invalid or expired token")
	case errors.Is(err, repository.ErrDuplicateEmail), errors.Is(err, service.ErrEmailTaken):
		respondErrorCode(w, r, http.StatusConflict, "DUPLICATE_EMAIL", "email already in use")
	case errors.Is(err, service.ErrInvalidEmail),
		errors.Is(err, service.ErrHasEmail),
		errors.Is(err, service.ErrNoEmail),
		errors.Is(err, service.ErrInvalidTransaction),
		errors.Is(err, validation.ErrNameRequired),
		errors.Is(err, validation.ErrNameTooLong),
		errors.Is(err, validation.ErrPasswordTooShort),
		errors.Is(err, validation.ErrPasswordTooLong),
		errors.Is(err, validation.ErrPasswordTooWeak),
		errors.Is(err, crypto.ErrChangeTooSoon):
		respondErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", err.Error())
	default:
		slog.Error("request failed", "error", err, "request_id", ctxkeys.RequestID(r.Context()), "path", r.URL.Path)
		respondErrorCode(w, r, http.StatusInternalServerError, "SERVER_ERROR", "something went wrong")
	}
}

// decodeJSON reads a JSON body into dst; a malformed body is an INVALID_INPUT.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil {
		respondErrorCode(w, r, http.StatusBadRequest, "INVALID_INPUT", "malformed request body")
		return false
	}
	return true
}
