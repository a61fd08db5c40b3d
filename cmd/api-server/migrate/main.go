package main

import (
	"context"
	"flag"
	"log"

	"github.com/taskchain/taskchain/pkg/config"
	"github.com/taskchain/taskchain/pkg/migrations/apidb"
	"github.com/taskchain/taskchain/pkg/pgutil"
	mghelper "github.com/taskchain/taskchain/pkg/pgutil/migrations"

	"github.com/uptrace/bun/migrate"
)

func main() {
	cfgPath := flag.String("config", "config.example.yaml", "Path to configuration file")
	flag.Usage = mghelper.Usage
	flag.Parse()

	cfg, err := config.LoadAPIServer(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}

	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	log.Printf("Running migrations for TaskChain database (%s)...\n", cfg.Database.Database)

	migrator := migrate.NewMigrator(db, apidb.Migrations)

	err = mghelper.RunMigrations(context.Background(), migrator, flag.Args()...)
	if err != nil {
		mghelper.Exitf(err.Error())
	}
}
