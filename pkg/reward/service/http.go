package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apphttp "github.com/taskchain/taskchain/pkg/app/http"
	"github.com/taskchain/taskchain/pkg/auth"
	"github.com/taskchain/taskchain/pkg/reward"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

type claimRequest struct {
	TxHash string `json:"tx_hash" validate:"omitempty,len=66,startswith=0x,hexadecimal"`
}

type listResponse struct {
	Rewards []*reward.Grant `json:"rewards"`
}

// RegisterRoutes registers the caller-facing reward endpoints on the given chi router.
// grantMiddleware guards POST /rewards; callers pass the admin organization check.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger, grantMiddleware ...func(http.Handler) http.Handler) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Route("/rewards", func(r chi.Router) {
		r.Get("/", apphttp.HandleError(h.list))
		r.Post("/claim", apphttp.HandleError(h.claim))
		r.With(grantMiddleware...).Post("/", apphttp.HandleError(h.grant))
	})
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) error {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		return err
	}

	grants, err := h.service.List(r.Context(), userID)
	if err != nil {
		return err
	}
	if grants == nil {
		grants = []*reward.Grant{}
	}

	apphttp.WriteJSON(w, http.StatusOK, listResponse{Rewards: grants})
	return nil
}

func (h *HTTP) claim(w http.ResponseWriter, r *http.Request) error {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		return err
	}

	var req claimRequest
	if err := apphttp.DecodeJSON(r, &req, true); err != nil {
		return err
	}

	g, err := h.service.ClaimNext(r.Context(), userID, req.TxHash)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, g)
	return nil
}

func (h *HTTP) grant(w http.ResponseWriter, r *http.Request) error {
	if _, err := auth.RequireUserID(r.Context()); err != nil {
		return err
	}

	var req reward.GrantRequest
	if err := apphttp.DecodeJSON(r, &req, false); err != nil {
		return err
	}

	g, err := h.service.Grant(r.Context(), &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusCreated, g)
	return nil
}
