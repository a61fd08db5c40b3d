package service

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	apphttp "github.com/taskchain/taskchain/pkg/app/http"
	"github.com/taskchain/taskchain/pkg/auth"
	"github.com/taskchain/taskchain/pkg/leaderboard"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

// RegisterRoutes registers the leaderboard endpoints on the given chi router
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Route("/leaderboard", func(r chi.Router) {
		r.Get("/", apphttp.HandleError(h.get))
		r.Get("/rank", apphttp.HandleError(h.rank))
	})
}

func (h *HTTP) get(w http.ResponseWriter, r *http.Request) error {
	period, err := periodQuery(r)
	if err != nil {
		return err
	}

	snap, err := h.service.GetLeaderboard(r.Context(), period)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, snap)
	return nil
}

func (h *HTTP) rank(w http.ResponseWriter, r *http.Request) error {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		return err
	}

	period, err := periodQuery(r)
	if err != nil {
		return err
	}

	res, err := h.service.GetUserRank(r.Context(), userID, period)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, res)
	return nil
}

func periodQuery(r *http.Request) (leaderboard.Period, error) {
	period, err := leaderboard.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		return "", apperrors.BadRequestError(err, "period must be one of weekly, monthly, all_time")
	}
	return period, nil
}
