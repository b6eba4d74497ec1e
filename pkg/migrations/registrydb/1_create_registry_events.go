package registrydb

import (
	"context"
	"log"

	"github.com/unordered-set/liquidaccess-nft/pkg/eventstore"
	mghelper "github.com/unordered-set/liquidaccess-nft/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating registry_events table...")
		if err := mghelper.CreateSchema(ctx, db, &eventstore.EventDao{}); err != nil {
			return err
		}
		// Create indexes
		return mghelper.CreateModelIndexes(ctx, db, &eventstore.EventDao{}, "kind", "occurred_at")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping registry_events table...")
		return mghelper.DropTables(ctx, db, &eventstore.EventDao{})
	})
}
