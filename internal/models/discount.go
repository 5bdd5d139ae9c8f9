package models

import (
	"time"

	"github.com/uptrace/bun"
)

// DiscountCode is a referral/discount code with a bounded usage quota.
// CurrentUsage is incremented at most once per paid order that referenced
// the code and never past MaxUsage.
type DiscountCode struct {
	bun.BaseModel `bun:"table:discount_codes"`

	ID           int64     `bun:"id,pk,autoincrement" json:"id"`
	Code         string    `bun:"code,unique,notnull" json:"code"`
	Percentage   float64   `bun:"percentage" json:"percentage"`
	MaxUsage     int       `bun:"max_usage,notnull" json:"max_usage"`
	CurrentUsage int       `bun:"current_usage,notnull,default:0" json:"current_usage"`
	Active       bool      `bun:"active,notnull,default:true" json:"active"`
	CreatedAt    time.Time `bun:"created_at,notnull,default:current_timestamp" json:"created_at"`
}
