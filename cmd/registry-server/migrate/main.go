package main

import (
	"flag"
	"log"

	"github.com/unordered-set/liquidaccess-nft/pkg/config"
	"github.com/unordered-set/liquidaccess-nft/pkg/migrations/registrydb"
	"github.com/unordered-set/liquidaccess-nft/pkg/pgutil"
	mghelper "github.com/unordered-set/liquidaccess-nft/pkg/pgutil/migrations"

	"github.com/uptrace/bun/migrate"
)

func main() {
	cfgPath := flag.String("config", "config.example.yaml", "Path to configuration file")
	flag.Usage = mghelper.Usage
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("error reading configuration file: %s", err.Error())
	}

	if cfg.Database.Host == "" {
		log.Fatal("database.host is not configured; the event store has nothing to migrate")
	}

	// Connect to database
	db, err := pgutil.ConnectDB(&cfg.Database)
	if err != nil {
		log.Fatalf("error connecting to database: %s", err.Error())
	}
	defer db.Close()

	log.Printf("Running migrations for registry event store (%s)...\n", cfg.Database.Database)

	// Create migrator
	migrator := migrate.NewMigrator(db, registrydb.Migrations)

	// Run migrations with args
	err = mghelper.RunMigrations(migrator, flag.Args()...)
	if err != nil {
		mghelper.Exitf(err.Error())
	}
}
