package apidb

import (
	"context"
	"log"

	"github.com/taskchain/taskchain/pkg/contributionstore"
	mghelper "github.com/taskchain/taskchain/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating contribution_events table...")
		if err := mghelper.CreateSchema(ctx, db, &contributionstore.EventDao{}); err != nil {
			return err
		}
		// One event per (user, external reference, kind)
		if err := mghelper.CreateModelUniqueIndex(ctx, db, &contributionstore.EventDao{}, "user_id", "external_id", "kind"); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &contributionstore.EventDao{}, "created_at", "on_chain_tx_hash")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping contribution_events table...")
		return mghelper.DropTables(ctx, db, &contributionstore.EventDao{})
	})
}
