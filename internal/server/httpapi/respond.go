package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/dmitrijs2005/credvault/internal/common"
	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/services"
)

type errorResponse struct {
	Error       string `json:"error"`
	LockedUntil string `json:"locked_until,omitempty"`
}

// writeJSON encodes v with the given status. Encoding failures are logged;
// the status line has already gone out by then.
func writeJSON(ctx context.Context, w http.ResponseWriter, logger logging.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error(ctx, "encoding response", "error", err)
	}
}

// writeError maps service errors onto HTTP statuses. Unrecognized errors
// become 500 with a generic body so internals never leak to clients.
func writeError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	var locked *common.LockedOutError
	if errors.As(err, &locked) {
		retryAfter := int(time.Until(locked.LockedUntil).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
		writeJSON(ctx, w, logger, http.StatusTooManyRequests, errorResponse{
			Error:       "too many failed attempts",
			LockedUntil: locked.LockedUntil.UTC().Format(time.RFC3339),
		})
		return
	}

	switch {
	case errors.Is(err, common.ErrorValidation):
		writeJSON(ctx, w, logger, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, common.ErrorInvalidCredentials),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrTokenMissing):
		writeJSON(ctx, w, logger, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, common.ErrorConflict):
		writeJSON(ctx, w, logger, http.StatusConflict, errorResponse{Error: "already exists"})
	case errors.Is(err, common.ErrorNotFound):
		writeJSON(ctx, w, logger, http.StatusNotFound, errorResponse{Error: "not found"})
	default:
		logger.Error(ctx, "request failed", "error", err)
		writeJSON(ctx, w, logger, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

// validateCaptcha gates a pre-auth operation on the verifier's verdict.
// A verifier outage is an external failure, not a client error.
func validateCaptcha(ctx context.Context, v services.CaptchaVerifier, token string) error {
	ok, err := v.Validate(ctx, token)
	if err != nil {
		return fmt.Errorf("%w: captcha check: %v", common.ErrorExternal, err)
	}
	if !ok {
		return fmt.Errorf("%w: captcha rejected", common.ErrorValidation)
	}
	return nil
}

// decodeJSON reads the request body into v, capping it at 1 MiB.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return common.ErrorValidation
	}
	return nil
}
