package apidb

import (
	"context"
	"log"

	"github.com/taskchain/taskchain/pkg/leaderboardstore"
	mghelper "github.com/taskchain/taskchain/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating leaderboard_cache table...")
		return mghelper.CreateSchema(ctx, db, &leaderboardstore.SnapshotDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping leaderboard_cache table...")
		return mghelper.DropTables(ctx, db, &leaderboardstore.SnapshotDao{})
	})
}
