// Package leaderboard ranks users by points over a time window and defines
// the expiring snapshot that caches the ranking.
package leaderboard

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/taskchain/taskchain/pkg/contribution"
)

var (
	ErrInvalidPeriod = errors.New("invalid leaderboard period")
	// ErrCacheMiss is returned by a Cache that holds no snapshot for a period.
	ErrCacheMiss = errors.New("leaderboard snapshot not cached")
)

// Period selects the leaderboard time window.
type Period string

const (
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
	PeriodAllTime Period = "all_time"
)

// ParsePeriod normalizes s. An empty string selects the weekly board.
func ParsePeriod(s string) (Period, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", string(PeriodWeekly):
		return PeriodWeekly, nil
	case string(PeriodMonthly):
		return PeriodMonthly, nil
	case string(PeriodAllTime), "alltime":
		return PeriodAllTime, nil
	}
	return "", ErrInvalidPeriod
}

// Since returns the start of the period's window ending at now, or nil when unbounded.
func (p Period) Since(now time.Time) *time.Time {
	var since time.Time
	switch p {
	case PeriodWeekly:
		since = now.Add(-7 * 24 * time.Hour)
	case PeriodMonthly:
		since = now.Add(-30 * 24 * time.Hour)
	default:
		return nil
	}
	return &since
}

// Entry is one ranked user.
type Entry struct {
	Rank               int                       `json:"rank"`
	UserID             string                    `json:"user_id"`
	GithubUsername     string                    `json:"github_username,omitzero"`
	TotalPoints        int                       `json:"total_points"`
	TotalContributions int                       `json:"total_contributions"`
	ByKind             map[contribution.Kind]int `json:"by_kind"`
	FirstContribution  time.Time                 `json:"first_contribution_at"`
}

// Stats summarizes a whole board.
type Stats struct {
	TotalContributors  int `json:"total_contributors"`
	TotalPoints        int `json:"total_points"`
	TotalContributions int `json:"total_contributions"`
}

// Snapshot is a derived, expiring ranking for one period. It can be discarded
// and recomputed at any time.
type Snapshot struct {
	Period     Period    `json:"period"`
	ComputedAt time.Time `json:"computed_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	Stats      Stats     `json:"stats"`
	Entries    []Entry   `json:"entries"`
}

// Fresh reports whether the snapshot may still be served at now.
func (s *Snapshot) Fresh(now time.Time) bool {
	return now.Before(s.ExpiresAt)
}

// EntryOf returns userID's ranked entry, or false when the user is absent.
func (s *Snapshot) EntryOf(userID string) (Entry, bool) {
	for _, e := range s.Entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return Entry{}, false
}

// Rank orders users by points descending. Ties go to the earlier first
// contribution, then to the smaller user id so recomputation is stable.
func Rank(counts map[string]*contribution.Counts) []Entry {
	entries := make([]Entry, 0, len(counts))
	for userID, c := range counts {
		byKind := make(map[contribution.Kind]int, len(c.ByKind))
		for k, n := range c.ByKind {
			byKind[k] = n
		}
		entries = append(entries, Entry{
			UserID:             userID,
			TotalPoints:        c.TotalPoints,
			TotalContributions: c.TotalContributions,
			ByKind:             byKind,
			FirstContribution:  c.FirstAt,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if !a.FirstContribution.Equal(b.FirstContribution) {
			return a.FirstContribution.Before(b.FirstContribution)
		}
		return a.UserID < b.UserID
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}

// Build ranks counts into a snapshot valid for ttl from now.
func Build(period Period, counts map[string]*contribution.Counts, now time.Time, ttl time.Duration) *Snapshot {
	entries := Rank(counts)
	snap := &Snapshot{
		Period:     period,
		ComputedAt: now,
		ExpiresAt:  now.Add(ttl),
		Entries:    entries,
	}
	snap.Stats.TotalContributors = len(entries)
	for _, e := range entries {
		snap.Stats.TotalPoints += e.TotalPoints
		snap.Stats.TotalContributions += e.TotalContributions
	}
	return snap
}
