package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	apphttp "github.com/taskchain/taskchain/pkg/app/http"
	"github.com/taskchain/taskchain/pkg/auth"
	"github.com/taskchain/taskchain/pkg/contribution"
)

// HTTP wraps the Service to provide HTTP endpoints
type HTTP struct {
	service Service
	logger  *zap.Logger
}

type recordRequest struct {
	UserID        string                `json:"user_id" validate:"required,max=128"`
	Kind          string                `json:"kind" validate:"required,max=32"`
	ExternalID    string                `json:"external_id" validate:"required,max=128"`
	RepositoryRef string                `json:"repository,omitempty" validate:"max=255"`
	Metadata      contribution.Metadata `json:"metadata,omitempty"`
	OccurredAt    *time.Time            `json:"occurred_at,omitempty"`
}

type recordResponse struct {
	Event   *contribution.Event `json:"event"`
	Created bool                `json:"created"`
}

type listResponse struct {
	Contributions []*contribution.Event `json:"contributions"`
}

// RegisterRoutes registers the contribution endpoints on the given chi router.
// ingestMiddleware guards POST /contributions and /contributions/sync, which
// credit arbitrary users; callers pass the admin organization check.
func RegisterRoutes(r chi.Router, service Service, logger *zap.Logger, ingestMiddleware ...func(http.Handler) http.Handler) {
	h := &HTTP{
		service: service,
		logger:  logger,
	}

	r.Route("/contributions", func(r chi.Router) {
		r.Get("/", apphttp.HandleError(h.list))
		r.With(ingestMiddleware...).Post("/", apphttp.HandleError(h.record))
		r.With(ingestMiddleware...).Post("/sync", apphttp.HandleError(h.sync))
		r.Get("/stats", apphttp.HandleError(h.stats))
	})
}

func (h *HTTP) record(w http.ResponseWriter, r *http.Request) error {
	if _, err := auth.RequireUserID(r.Context()); err != nil {
		return err
	}

	var req recordRequest
	if err := apphttp.DecodeJSON(r, &req, false); err != nil {
		return err
	}

	ev, created, err := h.service.Record(r.Context(), &contribution.RecordRequest{
		UserID:        req.UserID,
		Kind:          contribution.Kind(req.Kind),
		ExternalID:    req.ExternalID,
		RepositoryRef: req.RepositoryRef,
		Metadata:      req.Metadata,
		OccurredAt:    req.OccurredAt,
	})
	if err != nil {
		return err
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	apphttp.WriteJSON(w, status, recordResponse{Event: ev, Created: created})
	return nil
}

func (h *HTTP) sync(w http.ResponseWriter, r *http.Request) error {
	if _, err := auth.RequireUserID(r.Context()); err != nil {
		return err
	}

	var req contribution.SyncRequest
	if err := apphttp.DecodeJSON(r, &req, false); err != nil {
		return err
	}

	res, err := h.service.Sync(r.Context(), &req)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, res)
	return nil
}

func (h *HTTP) list(w http.ResponseWriter, r *http.Request) error {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		return err
	}

	limit, err := intQuery(r, "limit")
	if err != nil {
		return err
	}

	events, err := h.service.ListForUser(r.Context(), userID, limit)
	if err != nil {
		return err
	}
	if events == nil {
		events = []*contribution.Event{}
	}

	apphttp.WriteJSON(w, http.StatusOK, listResponse{Contributions: events})
	return nil
}

func (h *HTTP) stats(w http.ResponseWriter, r *http.Request) error {
	userID, err := auth.RequireUserID(r.Context())
	if err != nil {
		return err
	}

	days, err := intQuery(r, "days")
	if err != nil {
		return err
	}

	stats, err := h.service.Stats(r.Context(), userID, days)
	if err != nil {
		return err
	}

	apphttp.WriteJSON(w, http.StatusOK, stats)
	return nil
}

func intQuery(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperrors.BadRequestError(err, "invalid "+name)
	}
	return n, nil
}
