// Package contribution defines contribution events, the kind enumeration,
// the scoring policy and the aggregate counts shared by badges and leaderboards.
package contribution

import (
	"errors"
	"strings"
	"time"
)

// Kind identifies what a contribution event records.
type Kind string

// Built-in kinds. The set is open: any kind present in the scoring table is accepted.
const (
	KindIssueClosed  Kind = "issue_closed"
	KindPROpened     Kind = "pr_opened"
	KindPRMerged     Kind = "pr_merged"
	KindCommitPushed Kind = "commit_pushed"
)

var (
	// ErrInvalidKind is returned for a kind the scoring policy does not know.
	ErrInvalidKind = errors.New("invalid contribution kind")
	// ErrInvalidInput is returned for a malformed record request.
	ErrInvalidInput = errors.New("invalid contribution input")
	// ErrNotFound is returned when an event id does not exist.
	ErrNotFound = errors.New("contribution not found")
	// ErrAlreadyMirrored is returned when an event already carries an on-chain hash.
	ErrAlreadyMirrored = errors.New("contribution already mirrored")
)

const (
	maxExternalIDLen = 128
	maxRepoRefLen    = 255
)

// ParseKind normalizes s into a Kind. It does not check the kind against a policy.
func ParseKind(s string) Kind {
	return Kind(strings.ToLower(strings.TrimSpace(s)))
}

// Event is one externally-sourced action attributed to a user.
// (UserID, ExternalID, Kind) is its natural key.
type Event struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Kind          Kind      `json:"kind"`
	ExternalID    string    `json:"external_id"`
	Points        int       `json:"points"`
	OnChainTxHash string    `json:"on_chain_tx_hash,omitzero"`
	RepositoryRef string    `json:"repository_ref,omitzero"`
	Metadata      Metadata  `json:"metadata,omitzero"`
	CreatedAt     time.Time `json:"created_at"`
}

// Mirrored reports whether the event has been logged on the external ledger.
func (e *Event) Mirrored() bool {
	return e.OnChainTxHash != ""
}

// RecordRequest carries the inputs of a single ingestion.
type RecordRequest struct {
	UserID        string
	Kind          Kind
	ExternalID    string
	RepositoryRef string
	Metadata      Metadata
	// OccurredAt becomes CreatedAt when set; otherwise ingestion time is used.
	OccurredAt *time.Time
}

// Validate checks the request fields that do not depend on the scoring policy.
func (r *RecordRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.UserID) == "":
		return errors.Join(ErrInvalidInput, errors.New("user id is required"))
	case strings.TrimSpace(r.ExternalID) == "":
		return errors.Join(ErrInvalidInput, errors.New("external id is required"))
	case len(r.ExternalID) > maxExternalIDLen:
		return errors.Join(ErrInvalidInput, errors.New("external id is too long"))
	case len(r.RepositoryRef) > maxRepoRefLen:
		return errors.Join(ErrInvalidInput, errors.New("repository reference is too long"))
	}
	return nil
}

// Candidate is one item produced by a source-control sync pass.
type Candidate struct {
	ExternalID string     `json:"external_id" validate:"required,max=128"`
	Kind       string     `json:"kind" validate:"required"`
	Author     string     `json:"author" validate:"required"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
	Title      string     `json:"title,omitempty"`
}

// SyncRequest is a batch of candidates from one repository.
type SyncRequest struct {
	Repository string      `json:"repository" validate:"max=255"`
	Items      []Candidate `json:"items" validate:"required,max=1000,dive"`
}

// SyncResult summarizes a sync pass.
type SyncResult struct {
	Processed     int `json:"processed"`
	Created       int `json:"created"`
	Duplicates    int `json:"duplicates"`
	Skipped       int `json:"skipped"`
	PointsAwarded int `json:"points_awarded"`
}

// DailyCount is the number of events and points on one UTC day.
type DailyCount struct {
	Date          string `json:"date" bun:"date"`
	Contributions int    `json:"contributions" bun:"contributions"`
	Points        int    `json:"points" bun:"points"`
}

// Stats is the caller-facing aggregate view.
type Stats struct {
	Counts  *Counts      `json:"counts"`
	History []DailyCount `json:"history"`
}
