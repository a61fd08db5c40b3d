package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apphttp "github.com/taskchain/taskchain/pkg/app/http"
	"github.com/taskchain/taskchain/pkg/auth"
	"github.com/taskchain/taskchain/pkg/badge"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

type mintRequest struct {
	BadgeID string `json:"badge_id" validate:"required,max=64"`
}

type badgesResponse struct {
	Badges []badge.UserBadge `json:"badges"`
}

type eligibleResponse struct {
	Eligible []badge.Badge `json:"eligible"`
}

// RegisterRoutes registers the badge endpoints on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Route("/badges", func(r chi.Router) {
		r.Get("/", apphttp.HandleError(h.list))
		r.Get("/eligible", apphttp.HandleError(h.eligible))
		r.Post("/mint", apphttp.HandleError(h.mint))
	})
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) error {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		return err
	}

	badges, err := h.service.UserBadges(r.Context(), userID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, badgesResponse{Badges: badges})
	return nil
}

func (h *HTTP) eligible(w http.ResponseWriter, r *http.Request) error {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		return err
	}

	badges, err := h.service.CheckEligibleBadges(r.Context(), userID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, eligibleResponse{Eligible: badges})
	return nil
}

func (h *HTTP) mint(w http.ResponseWriter, r *http.Request) error {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		return err
	}

	var req mintRequest
	if err := apphttp.DecodeJSON(r, &req, false); err != nil {
		return err
	}

	m, err := h.service.MintBadge(r.Context(), userID, req.BadgeID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, m)
	return nil
}
