package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apphttp "github.com/taskchain/taskchain/pkg/app/http"
	"github.com/taskchain/taskchain/pkg/auth"
	"github.com/taskchain/taskchain/pkg/user"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers the profile endpoints on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Get("/me", apphttp.HandleError(h.getProfile))
	r.Put("/me", apphttp.HandleError(h.updateProfile))
}

func (h *HTTP) getProfile(w http.ResponseWriter, r *http.Request) error {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		return err
	}

	usr, err := h.service.GetProfile(r.Context(), userID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, usr)
	return nil
}

func (h *HTTP) updateProfile(w http.ResponseWriter, r *http.Request) error {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		return err
	}

	var req user.ProfileRequest
	if err := apphttp.DecodeJSON(r, &req, false); err != nil {
		return err
	}

	usr, err := h.service.UpdateProfile(r.Context(), userID, &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, usr)
	return nil
}
