package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Ticket statuses. A ticket only becomes valid when its owning order
// reaches a paid status; used tickets are never downgraded.
const (
	TicketPending     = "pending"
	TicketValid       = "valid"
	TicketUsed        = "used"
	TicketInvalidated = "invalidated"
)

type Ticket struct {
	bun.BaseModel `bun:"table:tickets"`

	ID           int64      `bun:"id,pk,autoincrement" json:"id"`
	TicketCode   string     `bun:"ticket_code,unique,notnull" json:"ticket_code"`
	OrderID      int64      `bun:"order_id,notnull" json:"order_id"`
	Status       string     `bun:"status,notnull" json:"status"`
	QRCode       []byte     `bun:"qr_code" json:"qr_code,omitempty"`
	IssuedAt     time.Time  `bun:"issued_at,notnull" json:"issued_at"`
	CheckedInAt  *time.Time `bun:"checked_in_at,nullzero" json:"checked_in_at,omitempty"`
	CheckedInBy  string     `bun:"checked_in_by" json:"checked_in_by,omitempty"`
	FrameCapture string     `bun:"frame_capture,nullzero" json:"frame_capture,omitempty"`
}
