package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Order is a single purchase attempt. Status follows the gateway-driven
// state machine in internal/status; PaidAt is set once, on the first
// transition into a paid status.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID             int64      `bun:"id,pk,autoincrement" json:"id"`
	OrderNumber    string     `bun:"order_number,unique,notnull" json:"order_number"`
	BuyerName      string     `bun:"buyer_name" json:"buyer_name"`
	BuyerEmail     string     `bun:"buyer_email" json:"buyer_email"`
	BuyerPhone     string     `bun:"buyer_phone" json:"buyer_phone"`
	Category       string     `bun:"category" json:"category"`
	TicketQuantity int        `bun:"ticket_quantity,notnull" json:"ticket_quantity"`
	Amount         float64    `bun:"amount" json:"amount"`
	FinalAmount    float64    `bun:"final_amount" json:"final_amount"`
	Status         string     `bun:"status,notnull" json:"status"`
	PaidAt         *time.Time `bun:"paid_at,nullzero" json:"paid_at,omitempty"`
	SyncLocked     bool       `bun:"sync_locked,notnull,default:false" json:"sync_locked"`
	TransactionID  string     `bun:"transaction_id" json:"transaction_id,omitempty"`
	DiscountCode   string     `bun:"discount_code,nullzero" json:"discount_code,omitempty"`
	CreatedAt      time.Time  `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
	UpdatedAt      time.Time  `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

type OrderRequest struct {
	BuyerName      string  `json:"buyer_name"`
	BuyerEmail     string  `json:"buyer_email"`
	BuyerPhone     string  `json:"buyer_phone"`
	Category       string  `json:"category"`
	TicketQuantity int     `json:"ticket_quantity"`
	Amount         float64 `json:"amount"`
	DiscountCode   string  `json:"discount_code,omitempty"`
}

// OrderWithTickets bundles an order and its issued tickets for streaming
// to admin dashboards.
type OrderWithTickets struct {
	Order   Order    `json:"order"`
	Tickets []Ticket `json:"tickets"`
}
