package submissionstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/taskchain/taskchain/pkg/reconciler"
)

// SubmissionDao maps to the 'chain_submissions' table.
// (record_type, record_id) is the primary key.
type SubmissionDao struct {
	bun.BaseModel `bun:"table:chain_submissions,alias:cs"`
	RecordType    string    `bun:"record_type,pk,type:varchar(32)"`
	RecordID      string    `bun:"record_id,pk,type:varchar(64)"`
	TxHash        string    `bun:"tx_hash,notnull,type:varchar(66)"`
	CreatedAt     time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func toSubmissionDao(s *reconciler.Submission) *SubmissionDao {
	return &SubmissionDao{
		RecordType: string(s.RecordType),
		RecordID:   s.RecordID,
		TxHash:     s.TxHash,
		CreatedAt:  s.CreatedAt,
	}
}

func toSubmission(dao *SubmissionDao) *reconciler.Submission {
	return &reconciler.Submission{
		RecordType: reconciler.RecordType(dao.RecordType),
		RecordID:   dao.RecordID,
		TxHash:     dao.TxHash,
		CreatedAt:  dao.CreatedAt.UTC(),
	}
}
