// Package submissionstore persists in-flight chain submissions in PostgreSQL.
package submissionstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/uptrace/bun"

	"github.com/taskchain/taskchain/pkg/pgutil"
	"github.com/taskchain/taskchain/pkg/reconciler"
)

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the submission store
func NewStore(db *bun.DB) *pgStore {
	return &pgStore{db: db}
}

// GetSubmission returns the transaction on file for the record.
func (s *pgStore) GetSubmission(ctx context.Context, recordType reconciler.RecordType, recordID string) (*reconciler.Submission, error) {
	dao := new(SubmissionDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("cs.record_type = ?", string(recordType)).
		Where("cs.record_id = ?", recordID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, reconciler.ErrSubmissionNotFound
		}
		return nil, pgutil.WrapError("failed to get chain submission", err)
	}
	return toSubmission(dao), nil
}

// SaveSubmission records the latest transaction for the record, replacing any earlier one.
func (s *pgStore) SaveSubmission(ctx context.Context, sub *reconciler.Submission) error {
	_, err := s.db.NewInsert().
		Model(toSubmissionDao(sub)).
		On("CONFLICT (record_type, record_id) DO UPDATE").
		Set("tx_hash = EXCLUDED.tx_hash").
		Set("created_at = EXCLUDED.created_at").
		Exec(ctx)
	if err != nil {
		return pgutil.WrapError("failed to save chain submission", err)
	}
	return nil
}

// DeleteSubmission forgets the record's transaction. Deleting a missing row is not an error.
func (s *pgStore) DeleteSubmission(ctx context.Context, recordType reconciler.RecordType, recordID string) error {
	_, err := s.db.NewDelete().
		Model((*SubmissionDao)(nil)).
		Where("record_type = ?", string(recordType)).
		Where("record_id = ?", recordID).
		Exec(ctx)
	if err != nil {
		return pgutil.WrapError("failed to delete chain submission", err)
	}
	return nil
}
