package db

import (
	"context"
	"log"

	"festival-ticketing/internal/models"

	"github.com/uptrace/bun"
)

// Migrate creates the reconciliation tables if they don't exist.
func Migrate(db *bun.DB) {
	ctx := context.Background()

	tables := []interface{}{
		(*models.Order)(nil),
		(*models.Ticket)(nil),
		(*models.DiscountCode)(nil),
	}

	for _, model := range tables {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(ctx); err != nil {
			log.Fatalf("create table failed: %v", err)
		}
	}

	log.Println("orders, tickets and discount_codes tables ready")
}
