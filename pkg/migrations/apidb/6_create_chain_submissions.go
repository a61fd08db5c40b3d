package apidb

import (
	"context"
	"log"

	mghelper "github.com/taskchain/taskchain/pkg/pgutil/migrations"
	"github.com/taskchain/taskchain/pkg/submissionstore"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating chain_submissions table...")
		return mghelper.CreateSchema(ctx, db, &submissionstore.SubmissionDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping chain_submissions table...")
		return mghelper.DropTables(ctx, db, &submissionstore.SubmissionDao{})
	})
}
