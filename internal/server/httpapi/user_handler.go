package httpapi

import (
	"net/http"
	"time"

	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/models"
	"github.com/dmitrijs2005/credvault/internal/server/services"
)

// UserHandler serves registration, login, and the profile routes.
type UserHandler struct {
	users   *services.UserService
	captcha services.CaptchaVerifier
	logger  logging.Logger
}

func NewUserHandler(users *services.UserService, captcha services.CaptchaVerifier, logger logging.Logger) *UserHandler {
	return &UserHandler{users: users, captcha: captcha, logger: logger}
}

type registerRequest struct {
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Login        string `json:"login"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

type loginRequest struct {
	Login        string `json:"login"`
	Password     string `json:"password"`
	CaptchaToken string `json:"captcha_token"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type userResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Login     string    `json:"login"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// toUserResponse strips the password hash before anything reaches the wire.
func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Login:     u.Login,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := validateCaptcha(r.Context(), h.captcha, req.CaptchaToken); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.FirstName, req.LastName, req.Login, req.Password)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(r.Context(), w, h.logger, http.StatusCreated, toUserResponse(user))
}

func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := validateCaptcha(r.Context(), h.captcha, req.CaptchaToken); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	token, err := h.users.Login(r.Context(), req.Login, req.Password)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(r.Context(), w, h.logger, http.StatusOK, tokenResponse{Token: token})
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(r.Context(), w, h.logger, http.StatusOK, toUserResponse(user))
}

type updateUserRequest struct {
	FirstName *string `json:"first_name"`
	LastName  *string `json:"last_name"`
	Password  *string `json:"password"`
}

func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	user, err := h.users.Update(r.Context(), userID, models.UserUpdate{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(r.Context(), w, h.logger, http.StatusOK, toUserResponse(user))
}

func (h *UserHandler) DeleteMe(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.users.Delete(r.Context(), userID); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
