// Package service implements the contribution ledger operations: idempotent
// ingestion, source-control sync and the read-side aggregates.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/taskchain/taskchain/internal/metrics"
	apperrors "github.com/taskchain/taskchain/pkg/app/errors"
	"github.com/taskchain/taskchain/pkg/contribution"
	"github.com/taskchain/taskchain/pkg/user"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
	defaultStatsDays = 30
	maxStatsDays     = 365
)

// Store is the narrow data-access interface for the contribution ledger.
type Store interface {
	InsertEvent(ctx context.Context, ev *contribution.Event) (*contribution.Event, bool, error)
	ListEvents(ctx context.Context, userID string, limit int) ([]*contribution.Event, error)
	Aggregate(ctx context.Context, filter contribution.Filter) ([]contribution.AggregateRow, error)
	DailyHistory(ctx context.Context, userID string, since time.Time) ([]contribution.DailyCount, error)
}

// UserLookup resolves a source-control author to a TaskChain user.
type UserLookup interface {
	GetUserByGithubUsername(ctx context.Context, username string) (*user.User, error)
}

// Service defines the contribution ledger business logic
type Service interface {
	// Record ingests one event. A repeated natural key returns the stored event and created=false.
	Record(ctx context.Context, req *contribution.RecordRequest) (ev *contribution.Event, created bool, err error)
	ListForUser(ctx context.Context, userID string, limit int) ([]*contribution.Event, error)
	AggregateCounts(ctx context.Context, userID string, kinds []contribution.Kind, since *time.Time) (*contribution.Counts, error)
	Sync(ctx context.Context, req *contribution.SyncRequest) (*contribution.SyncResult, error)
	Stats(ctx context.Context, userID string, days int) (*contribution.Stats, error)
}

type contributionService struct {
	store  Store
	users  UserLookup
	policy *contribution.Policy
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new contribution service
func NewService(store Store, users UserLookup, policy *contribution.Policy, logger *zap.Logger) Service {
	return &contributionService{
		store:  store,
		users:  users,
		policy: policy,
		logger: logger,
		now:    time.Now,
	}
}

func (s *contributionService) Record(ctx context.Context, req *contribution.RecordRequest) (*contribution.Event, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, apperrors.BadRequestError(err, invalidInputMessage(err))
	}

	kind := contribution.ParseKind(string(req.Kind))
	points, err := s.policy.Points(kind)
	if err != nil {
		return nil, false, apperrors.BadRequestError(err, "invalid contribution kind")
	}

	createdAt := s.now()
	if req.OccurredAt != nil && !req.OccurredAt.IsZero() {
		createdAt = *req.OccurredAt
	}

	ev := &contribution.Event{
		ID:            uuid.NewString(),
		UserID:        req.UserID,
		Kind:          kind,
		ExternalID:    strings.TrimSpace(req.ExternalID),
		Points:        points,
		RepositoryRef: req.RepositoryRef,
		Metadata:      req.Metadata,
		CreatedAt:     createdAt.UTC().Truncate(time.Microsecond),
	}

	stored, created, err := s.store.InsertEvent(ctx, ev)
	if err != nil {
		return nil, false, apperrors.FromStore(err)
	}

	if created {
		metrics.ContributionsRecorded.WithLabelValues(string(kind), "created").Inc()
		metrics.PointsAwarded.WithLabelValues(string(kind)).Add(float64(points))
	} else {
		metrics.ContributionsRecorded.WithLabelValues(string(kind), "duplicate").Inc()
	}
	return stored, created, nil
}

func (s *contributionService) ListForUser(ctx context.Context, userID string, limit int) ([]*contribution.Event, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}

	events, err := s.store.ListEvents(ctx, userID, limit)
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	return events, nil
}

func (s *contributionService) AggregateCounts(
	ctx context.Context,
	userID string,
	kinds []contribution.Kind,
	since *time.Time,
) (*contribution.Counts, error) {
	rows, err := s.store.Aggregate(ctx, contribution.Filter{UserID: userID, Kinds: kinds, Since: since})
	if err != nil {
		return nil, apperrors.FromStore(err)
	}

	counts := contribution.NewCounts(userID)
	for _, row := range rows {
		counts.Add(row)
	}
	return counts, nil
}

// Sync records every candidate whose author is a known user.
// Unknown authors and kinds are counted as skipped. A storage failure aborts the
// pass; items recorded before it stay recorded and a retry is a no-op for them.
func (s *contributionService) Sync(ctx context.Context, req *contribution.SyncRequest) (*contribution.SyncResult, error) {
	result := &contribution.SyncResult{}
	authors := make(map[string]*user.User)

	for i := range req.Items {
		item := &req.Items[i]
		result.Processed++

		kind := contribution.ParseKind(item.Kind)
		if !s.policy.Known(kind) {
			result.Skipped++
			metrics.ContributionsRecorded.WithLabelValues("unknown", "skipped").Inc()
			continue
		}

		usr, err := s.resolveAuthor(ctx, authors, item.Author)
		if err != nil {
			return nil, err
		}
		if usr == nil {
			result.Skipped++
			metrics.ContributionsRecorded.WithLabelValues(string(kind), "skipped").Inc()
			continue
		}

		ev, created, err := s.Record(ctx, &contribution.RecordRequest{
			UserID:        usr.ID,
			Kind:          kind,
			ExternalID:    item.ExternalID,
			RepositoryRef: req.Repository,
			Metadata:      candidateMetadata(req.Repository, item),
			OccurredAt:    item.Timestamp,
		})
		if err != nil {
			if apperrors.Is(err, apperrors.CategoryDataError) {
				result.Skipped++
				continue
			}
			return nil, err
		}

		if created {
			result.Created++
			result.PointsAwarded += ev.Points
		} else {
			result.Duplicates++
		}
	}

	return result, nil
}

func (s *contributionService) resolveAuthor(ctx context.Context, cache map[string]*user.User, author string) (*user.User, error) {
	name := user.NormalizeUsername(author)
	if usr, ok := cache[name]; ok {
		return usr, nil
	}

	usr, err := s.users.GetUserByGithubUsername(ctx, name)
	if err != nil {
		if !errors.Is(err, user.ErrUserNotFound) {
			return nil, apperrors.FromStore(err)
		}
		usr = nil
	}
	cache[name] = usr
	return usr, nil
}

func (s *contributionService) Stats(ctx context.Context, userID string, days int) (*contribution.Stats, error) {
	switch {
	case days <= 0:
		days = defaultStatsDays
	case days > maxStatsDays:
		days = maxStatsDays
	}

	counts, err := s.AggregateCounts(ctx, userID, nil, nil)
	if err != nil {
		return nil, err
	}

	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))
	history, err := s.store.DailyHistory(ctx, userID, since)
	if err != nil {
		return nil, apperrors.FromStore(err)
	}
	if history == nil {
		history = []contribution.DailyCount{}
	}

	return &contribution.Stats{Counts: counts, History: history}, nil
}

func candidateMetadata(repository string, item *contribution.Candidate) contribution.Metadata {
	md := contribution.Metadata{}
	if item.Title != "" {
		_ = md.Set(contribution.MetaTitle, item.Title)
	}
	if item.Author != "" {
		_ = md.Set(contribution.MetaAuthor, item.Author)
	}
	if repository != "" {
		_ = md.Set(contribution.MetaRepository, repository)
	}
	return md
}

func invalidInputMessage(err error) string {
	msg := err.Error()
	if i := strings.LastIndex(msg, "\n"); i >= 0 {
		return msg[i+1:]
	}
	return msg
}
