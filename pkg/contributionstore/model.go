package contributionstore

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/taskchain/taskchain/pkg/contribution"
)

// EventDao maps to the 'contribution_events' table.
// (user_id, external_id, kind) carries a unique index.
type EventDao struct {
	bun.BaseModel `bun:"table:contribution_events,alias:ce"`
	ID            string                `bun:"id,pk,type:uuid"`
	UserID        string                `bun:"user_id,notnull,type:varchar(128)"`
	Kind          string                `bun:"kind,notnull,type:varchar(32)"`
	ExternalID    string                `bun:"external_id,notnull,type:varchar(128)"`
	Points        int                   `bun:"points,notnull"`
	OnChainTxHash *string               `bun:"on_chain_tx_hash,type:varchar(66)"`
	RepositoryRef *string               `bun:"repository_ref,type:varchar(255)"`
	Metadata      contribution.Metadata `bun:"metadata,type:jsonb"`
	CreatedAt     time.Time             `bun:"created_at,notnull,default:current_timestamp"`
}

func toEventDao(ev *contribution.Event) *EventDao {
	dao := &EventDao{
		ID:         ev.ID,
		UserID:     ev.UserID,
		Kind:       string(ev.Kind),
		ExternalID: ev.ExternalID,
		Points:     ev.Points,
		Metadata:   ev.Metadata,
		CreatedAt:  ev.CreatedAt,
	}
	if ev.OnChainTxHash != "" {
		dao.OnChainTxHash = &ev.OnChainTxHash
	}
	if ev.RepositoryRef != "" {
		dao.RepositoryRef = &ev.RepositoryRef
	}
	return dao
}

func toEvent(dao *EventDao) *contribution.Event {
	ev := &contribution.Event{
		ID:         dao.ID,
		UserID:     dao.UserID,
		Kind:       contribution.Kind(dao.Kind),
		ExternalID: dao.ExternalID,
		Points:     dao.Points,
		Metadata:   dao.Metadata,
		CreatedAt:  dao.CreatedAt.UTC(),
	}
	if dao.OnChainTxHash != nil {
		ev.OnChainTxHash = *dao.OnChainTxHash
	}
	if dao.RepositoryRef != nil {
		ev.RepositoryRef = *dao.RepositoryRef
	}
	return ev
}
