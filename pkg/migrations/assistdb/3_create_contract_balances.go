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
		log.Println("creating contract_balances table...")
		return mghelper.CreateSchema(ctx, db, &dao.ContractBalanceDao{})
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping contract_balances table...")
		return mghelper.DropTables(ctx, db, &dao.ContractBalanceDao{})
	})
}
