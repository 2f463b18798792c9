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
		log.Println("creating trading_activities table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.TradingActivityDao{}); err != nil {
			return err
		}
		return mghelper.CreateIndexes(ctx, db, "trading_activities", "user_id", "transaction_hash")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping trading_activities table...")
		return mghelper.DropTables(ctx, db, &dao.TradingActivityDao{})
	})
}
