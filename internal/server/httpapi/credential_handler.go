package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/dmitrijs2005/credvault/internal/common"
	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/filestore"
	"github.com/dmitrijs2005/credvault/internal/server/models"
	"github.com/dmitrijs2005/credvault/internal/server/services"
)

// CredentialHandler serves the credential record routes, the archive export,
// and the backup trigger.
type CredentialHandler struct {
	credentials *services.CredentialService
	backup      BackupUploader
	logger      logging.Logger
}

// BackupUploader is what the handler needs from the backup service.
type BackupUploader interface {
	Upload(ctx context.Context, userID string) (string, error)
}

func NewCredentialHandler(credentials *services.CredentialService, backup BackupUploader, logger logging.Logger) *CredentialHandler {
	return &CredentialHandler{credentials: credentials, backup: backup, logger: logger}
}

type credentialResponse struct {
	Platform  string    `json:"platform"`
	Login     string    `json:"login"`
	LogoURL   string    `json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toCredentialResponse(c *models.Credential) credentialResponse {
	return credentialResponse{
		Platform:  c.Platform,
		Login:     c.Login,
		LogoURL:   c.LogoURL,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

type createCredentialRequest struct {
	Platform string `json:"platform"`
	Login    string `json:"login"`
	LogoURL  string `json:"logo_url"`
	Secret   string `json:"secret"`
}

func (h *CredentialHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	var req createCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	created, err := h.credentials.Create(r.Context(), userID, services.CredentialInput{
		Platform: req.Platform,
		Login:    req.Login,
		LogoURL:  req.LogoURL,
		Secret:   req.Secret,
	})
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(r.Context(), w, h.logger, http.StatusCreated, toCredentialResponse(created))
}

func (h *CredentialHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	creds, err := h.credentials.List(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	out := make([]credentialResponse, 0, len(creds))
	for _, c := range creds {
		out = append(out, toCredentialResponse(c))
	}
	writeJSON(r.Context(), w, h.logger, http.StatusOK, out)
}

// credentialKey pulls the (platform, login) pair from the query string.
func credentialKey(r *http.Request) (string, string, error) {
	platform := r.URL.Query().Get("platform")
	login := r.URL.Query().Get("login")
	if platform == "" || login == "" {
		return "", "", common.ErrorValidation
	}
	return platform, login, nil
}

type secretResponse struct {
	Secret string `json:"secret"`
}

func (h *CredentialHandler) ReadSecret(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	platform, login, err := credentialKey(r)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	secret, err := h.credentials.ReadSecret(r.Context(), userID, platform, login)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(r.Context(), w, h.logger, http.StatusOK, secretResponse{Secret: string(secret)})
}

type updateSecretRequest struct {
	Platform string `json:"platform"`
	Login    string `json:"login"`
	Secret   string `json:"secret"`
}

func (h *CredentialHandler) UpdateSecret(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	var req updateSecretRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.credentials.UpdateSecret(r.Context(), userID, req.Platform, req.Login, req.Secret); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type replaceAllRequest struct {
	Credentials []updateSecretRequest `json:"credentials"`
}

func (h *CredentialHandler) ReplaceAll(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	var req replaceAllRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	updates := make([]services.CredentialUpdate, 0, len(req.Credentials))
	for _, c := range req.Credentials {
		updates = append(updates, services.CredentialUpdate{
			Platform: c.Platform,
			Login:    c.Login,
			Secret:   c.Secret,
		})
	}

	if err := h.credentials.ReplaceAll(r.Context(), userID, updates); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	platform, login, err := credentialKey(r)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if _, err := h.credentials.Delete(r.Context(), userID, platform, login); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Export streams the user's credential archive as a zip download.
func (h *CredentialHandler) Export(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filestore.ArchiveName(userID)+`"`)

	if err := h.credentials.Export(r.Context(), userID, w); err != nil {
		// Headers may already be out; all we can do is log.
		h.logger.Error(r.Context(), "streaming archive", "user_id", userID, "error", err)
	}
}

type backupResponse struct {
	Key string `json:"key"`
}

// Backup archives the user's files and pushes the archive to object storage.
func (h *CredentialHandler) Backup(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	key, err := h.backup.Upload(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	writeJSON(r.Context(), w, h.logger, http.StatusOK, backupResponse{Key: key})
}
