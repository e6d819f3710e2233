package bridgedb

import (
	"context"
	"log"

	"github.com/uptrace/bun"

	"github.com/koshlabs/stellar-evm-bridge/pkg/attemptstore"
	mghelper "github.com/koshlabs/stellar-evm-bridge/pkg/pgutil/migrations"
)

func init() {
	Migrations.MustRegister(func(ctx context.Context, db *bun.DB) error {
		log.Println("creating bridge_attempts table...")
		if err := mghelper.CreateSchema(ctx, db, &attemptstore.AttemptDao{}); err != nil {
			return err
		}
		return mghelper.CreateModelIndexes(ctx, db, &attemptstore.AttemptDao{},
			"user_address", "status", "lock_tx_hash")
	}, func(ctx context.Context, db *bun.DB) error {
		log.Println("dropping bridge_attempts table...")
		return mghelper.DropTables(ctx, db, &attemptstore.AttemptDao{})
	})
}
