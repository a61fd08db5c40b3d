package reconciler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apphttp "github.com/taskchain/taskchain/pkg/app/http"
	"github.com/taskchain/taskchain/pkg/auth"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers the mirroring endpoints on the given chi router.
// adminMiddleware guards the sweep trigger.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger, adminMiddleware ...func(http.Handler) http.Handler) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Post("/contributions/{id}/mirror", apphttp.HandleError(h.mirrorContribution))
	r.With(adminMiddleware...).Post("/reconciliation/sweep", apphttp.HandleError(h.sweep))
}

func (h *HTTP) mirrorContribution(w http.ResponseWriter, r *http.Request) error {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		return err
	}

	ev, err := h.service.SubmitContribution(r.Context(), chi.URLParam(r, "id"), userID)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, ev)
	return nil
}

func (h *HTTP) sweep(w http.ResponseWriter, r *http.Request) error {
	if _, err := auth.RequireUserID(r.Context()); err != nil {
		return err
	}

	res, err := h.service.Sweep(r.Context())
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, res)
	return nil
}
