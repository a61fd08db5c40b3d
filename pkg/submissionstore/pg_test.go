package submissionstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/taskchain/taskchain/pkg/pgutil"
	mghelper "github.com/taskchain/taskchain/pkg/pgutil/migrations"
	"github.com/taskchain/taskchain/pkg/reconciler"
)

func setupStore(t *testing.T) (context.Context, *pgStore) {
	t.Helper()

	ctx := context.Background()
	db, cleanup := pgutil.SetupTestDB(t)
	t.Cleanup(cleanup)

	if err := mghelper.CreateSchema(ctx, db, &SubmissionDao{}); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	return ctx, NewStore(db)
}

func TestSubmissionPGStore_SaveReplacesAndDeletes(t *testing.T) {
	ctx, s := setupStore(t)
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := s.GetSubmission(ctx, reconciler.RecordContribution, "e1")
	if !errors.Is(err, reconciler.ErrSubmissionNotFound) {
		t.Fatalf("expected ErrSubmissionNotFound, got %v", err)
	}

	first := &reconciler.Submission{RecordType: reconciler.RecordContribution, RecordID: "e1", TxHash: "0x01", CreatedAt: now}
	if err := s.SaveSubmission(ctx, first); err != nil {
		t.Fatalf("SaveSubmission() failed: %v", err)
	}
	other := &reconciler.Submission{RecordType: reconciler.RecordBadgeMint, RecordID: "e1", TxHash: "0x02", CreatedAt: now}
	if err := s.SaveSubmission(ctx, other); err != nil {
		t.Fatalf("SaveSubmission(other type) failed: %v", err)
	}

	replacement := &reconciler.Submission{RecordType: reconciler.RecordContribution, RecordID: "e1", TxHash: "0x03", CreatedAt: now.Add(time.Minute)}
	if err := s.SaveSubmission(ctx, replacement); err != nil {
		t.Fatalf("SaveSubmission(replacement) failed: %v", err)
	}

	got, err := s.GetSubmission(ctx, reconciler.RecordContribution, "e1")
	if err != nil {
		t.Fatalf("GetSubmission() failed: %v", err)
	}
	if got.TxHash != "0x03" || !got.CreatedAt.Equal(replacement.CreatedAt) {
		t.Fatalf("unexpected submission: %+v", got)
	}
	pgutil.AssertRowCount(t, s.db, "chain_submissions", 2)

	if err := s.DeleteSubmission(ctx, reconciler.RecordContribution, "e1"); err != nil {
		t.Fatalf("DeleteSubmission() failed: %v", err)
	}
	if err := s.DeleteSubmission(ctx, reconciler.RecordContribution, "e1"); err != nil {
		t.Fatalf("DeleteSubmission(missing) failed: %v", err)
	}
	pgutil.AssertRowCount(t, s.db, "chain_submissions", 1)

	kept, err := s.GetSubmission(ctx, reconciler.RecordBadgeMint, "e1")
	if err != nil {
		t.Fatalf("GetSubmission(other type) failed: %v", err)
	}
	if kept.TxHash != "0x02" {
		t.Fatalf("unexpected hash: %s", kept.TxHash)
	}
}
