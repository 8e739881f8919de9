package httpapi

import (
	"net/http"

	"github.com/dmitrijs2005/credvault/internal/logging"
	"github.com/dmitrijs2005/credvault/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// DeviceHandler serves the trusted-device routes.
type DeviceHandler struct {
	devices *services.DeviceService
	logger  logging.Logger
}

func NewDeviceHandler(devices *services.DeviceService, logger logging.Logger) *DeviceHandler {
	return &DeviceHandler{devices: devices, logger: logger}
}

type deviceResponse struct {
	DeviceID  string `json:"device_id"`
	UserAgent string `json:"user_agent"`
	IsTrusted bool   `json:"is_trusted"`
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	devices, err := h.devices.List(r.Context(), userID)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	out := make([]deviceResponse, 0, len(devices))
	for _, d := range devices {
		out = append(out, deviceResponse{
			DeviceID:  d.DeviceID,
			UserAgent: d.UserAgent,
			IsTrusted: d.IsTrusted,
		})
	}
	writeJSON(r.Context(), w, h.logger, http.StatusOK, out)
}

type upsertDeviceRequest struct {
	Trusted bool `json:"trusted"`
}

func (h *DeviceHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	var req upsertDeviceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	deviceID := chi.URLParam(r, "deviceID")
	if err := h.devices.Upsert(r.Context(), userID, deviceID, r.UserAgent(), req.Trusted); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DeviceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := UserIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.devices.Delete(r.Context(), userID, chi.URLParam(r, "deviceID")); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
