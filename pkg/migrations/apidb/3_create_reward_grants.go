package apidb

import (
	"context"
	"log"

	mghelper "github.com/taskchain/taskchain/pkg/pgutil/migrations"
	"github.com/taskchain/taskchain/pkg/rewardstore"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating reward_grants table...")
		if err := mghelper.CreateSchema(ctx, db, &rewardstore.GrantDao{}); err != nil {
			return err
		}
		if err := mghelper.CreateModelIndexes(ctx, db, &rewardstore.GrantDao{}, "user_id", "grant_tx_hash"); err != nil {
			return err
		}
		return mghelper.CreateModelUniqueIndex(ctx, db, &rewardstore.GrantDao{}, "user_id", "chain_index")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping reward_grants table...")
		return mghelper.DropTables(ctx, db, &rewardstore.GrantDao{})
	})
}
