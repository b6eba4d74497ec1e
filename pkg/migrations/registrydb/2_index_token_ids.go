package registrydb

import (
	"context"
	"log"

	mghelper "github.com/unordered-set/liquidaccess-nft/pkg/pgutil/migrations"

	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating token_ids index on registry_events...")
		// Token lookups match against the token_ids array, which needs a GIN index
		_, err := db.ExecContext(ctx, "CREATE INDEX IF NOT EXISTS idx_registry_events_token_ids ON registry_events USING GIN (token_ids)")
		return err
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping token_ids index on registry_events...")
		return mghelper.DropIndex(ctx, db, "idx_registry_events_token_ids")
	})
}
