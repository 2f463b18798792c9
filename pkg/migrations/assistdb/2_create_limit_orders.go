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
		log.Println("creating limit_orders table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.LimitOrderDao{}); err != nil {
			return err
		}
		return mghelper.CreateIndexes(ctx, db, "limit_orders", "user_id", "status")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping limit_orders table...")
		return mghelper.DropTables(ctx, db, &dao.LimitOrderDao{})
	})
}
