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
		log.Println("creating users table...")
		if err := mghelper.CreateSchema(ctx, db, &dao.UserDao{}); err != nil {
			return err
		}
		return mghelper.CreateIndexes(ctx, db, "users", "wallet_address")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping users table...")
		return mghelper.DropTables(ctx, db, &dao.UserDao{})
	})
}
