package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/credvault/internal/common"
	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/services"
)

// ResetHandler serves the password-reset routes.
type ResetHandler struct {
	reset   *services.ResetService
	captcha services.CaptchaVerifier
	logger  logging.Logger
}

func NewResetHandler(reset *services.ResetService, captcha services.CaptchaVerifier, logger logging.Logger) *ResetHandler {
	return &ResetHandler{reset: reset, captcha: captcha, logger: logger}
}

type resetRequestRequest struct {
	Login        string `json:"login"`
	CaptchaToken string `json:"captcha_token"`
}

// Request issues a reset token. An unknown login still gets 202 so the
// endpoint cannot be used to enumerate accounts.
func (h *ResetHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req resetRequestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	if err := validateCaptcha(r.Context(), h.captcha, req.CaptchaToken); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	if req.Login == "" {
		writeError(r.Context(), w, h.logger, common.ErrorValidation)
		return
	}

	if err := h.reset.Request(r.Context(), req.Login); err != nil && !errors.Is(err, common.ErrorNotFound) {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

type resetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (h *ResetHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req resetConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.reset.Confirm(r.Context(), req.Token, req.Password); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
