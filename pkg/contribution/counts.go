package contribution

import (
	"time"
)

// Filter selects events for aggregation. Zero fields do not filter.
type Filter struct {
	UserID string
	Kinds  []Kind
	Since  *time.Time
}

// AggregateRow is one (user, kind) group produced by the store.
type AggregateRow struct {
	UserID  string    `bun:"user_id"`
	Kind    Kind      `bun:"kind"`
	Count   int       `bun:"count"`
	Points  int       `bun:"points"`
	FirstAt time.Time `bun:"first_at"`
}

// Counts is a per-user aggregate over a set of events.
type Counts struct {
	UserID             string       `json:"user_id"`
	ByKind             map[Kind]int `json:"by_kind"`
	TotalContributions int          `json:"total_contributions"`
	TotalPoints        int          `json:"total_points"`
	// FirstAt is the earliest CreatedAt among the aggregated events.
	FirstAt time.Time `json:"first_at,omitzero"`
}

// NewCounts returns an empty aggregate for userID.
func NewCounts(userID string) *Counts {
	return &Counts{UserID: userID, ByKind: make(map[Kind]int)}
}

// Add folds one aggregate row into c.
func (c *Counts) Add(row AggregateRow) {
	c.ByKind[row.Kind] += row.Count
	c.TotalContributions += row.Count
	c.TotalPoints += row.Points
	if !row.FirstAt.IsZero() && (c.FirstAt.IsZero() || row.FirstAt.Before(c.FirstAt)) {
		c.FirstAt = row.FirstAt
	}
}

// Count returns the number of events of kind.
func (c *Counts) Count(kind Kind) int {
	return c.ByKind[kind]
}

// Fold groups rows by user. Users appear in the result only if they have rows.
func Fold(rows []AggregateRow) map[string]*Counts {
	out := make(map[string]*Counts)
	for _, row := range rows {
		c, ok := out[row.UserID]
		if !ok {
			c = NewCounts(row.UserID)
			out[row.UserID] = c
		}
		c.Add(row)
	}
	return out
}
