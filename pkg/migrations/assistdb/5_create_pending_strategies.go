package assistdb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/finbound/defi-assistant/pkg/db/dao"
	mghelper "github.com/finbound/defi-assistant/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating pending_strategies table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.PendingStrategyDao{}); err != nil {
			return err
		}
		return mghelper.CreateIndexes(ctx, db, "pending_strategies", "user_id", "status")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping pending_strategies table...")
		return mghelper.DropTables(ctx, db, &dao.PendingStrategyDao{})
	})
}
