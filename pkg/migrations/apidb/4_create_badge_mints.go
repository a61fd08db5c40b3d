package apidb

import (
	"context"
	"log"

	"github.com/taskchain/taskchain/pkg/badgestore"
	mghelper "github.com/taskchain/taskchain/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating badge_mints table...")
		if err := mghelper.CreateSchema(ctx, db, &badgestore.MintDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelUniqueIndex(ctx, db, &badgestore.MintDao{}, "user_id", "badge_id")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping badge_mints table...")
		return mghelper.DropTables(ctx, db, &badgestore.MintDao{})
	})
}
