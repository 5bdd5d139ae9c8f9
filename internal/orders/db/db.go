package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"festival-ticketing/internal/models"
	"festival-ticketing/internal/status"

	"github.com/uptrace/bun"
)

// ErrNotFound is returned when no order matches. Callers treat it as a
// legitimate "already cleaned up" signal, not an anomaly.
var ErrNotFound = errors.New("order not found")

type DB struct {
	Bun *bun.DB
}

// StatusUpdate carries the fields a reconciliation transition writes.
// PaidAt is only non-nil on the first entry into a paid status.
type StatusUpdate struct {
	NewStatus     status.Status
	PaidAt        *time.Time
	TransactionID string
}

// GetByNumber fetches one order by its external order number.
func (d *DB) GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error) {
	var order models.Order
	err := d.Bun.NewSelect().
		Model(&order).
		Where("order_number = ?", orderNumber).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Create inserts a new order record (status pending, unpaid).
func (d *DB) Create(ctx context.Context, order *models.Order) error {
	if order.Status == "" {
		order.Status = string(status.Pending)
	}
	order.CreatedAt = time.Now()
	order.UpdatedAt = order.CreatedAt
	_, err := d.Bun.NewInsert().Model(order).Exec(ctx)
	return err
}

// UpdateStatusIf is the concurrency primitive the reconciliation engine
// depends on: a single conditional UPDATE keyed on the previously-read
// status. Returns applied=false when another writer already advanced the
// order (or flipped sync_locked), in which case nothing was written.
func (d *DB) UpdateStatusIf(ctx context.Context, orderID int64, expected status.Status, upd StatusUpdate) (bool, error) {
	q := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", string(upd.NewStatus)).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", orderID).
		Where("status = ?", string(expected)).
		Where("sync_locked = ?", false)

	if upd.PaidAt != nil {
		q = q.Set("paid_at = ?", *upd.PaidAt).Where("paid_at IS NULL")
	}
	if upd.TransactionID != "" {
		q = q.Set("transaction_id = ?", upd.TransactionID)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// PendingSince selects orders still eligible for automatic reconciliation:
// non-final status, not sync-locked, created within the window.
func (d *DB) PendingSince(ctx context.Context, window time.Duration, limit int) ([]models.Order, error) {
	nonFinal := []string{
		string(status.Pending),
		string(status.Authorize),
	}
	var orders []models.Order
	err := d.Bun.NewSelect().
		Model(&orders).
		Where("status IN (?)", bun.In(nonFinal)).
		Where("sync_locked = ?", false).
		Where("created_at > ?", time.Now().Add(-window)).
		Order("created_at ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// SetSyncLocked toggles the admin sync lock for an order.
func (d *DB) SetSyncLocked(ctx context.Context, orderNumber string, locked bool) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("sync_locked = ?", locked).
		Set("updated_at = ?", time.Now()).
		Where("order_number = ?", orderNumber).
		Exec(ctx)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// OverrideStatus applies an admin status override. It bypasses the state
// machine edges but always sets sync_locked so the sweep cannot revert the
// admin decision.
func (d *DB) OverrideStatus(ctx context.Context, orderNumber string, newStatus status.Status) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Order)(nil)).
		Set("status = ?", string(newStatus)).
		Set("sync_locked = ?", true).
		Set("updated_at = ?", time.Now()).
		Where("order_number = ?", orderNumber).
		Exec(ctx)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteStaleUnpaid removes long-stale orders that never reached a paid
// status. This is the explicit cleanup contract; reconciliation itself
// never deletes orders.
func (d *DB) DeleteStaleUnpaid(ctx context.Context, staleAfter time.Duration) (int64, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Order)(nil)).
		Where("paid_at IS NULL").
		Where("status IN (?)", bun.In([]string{
			string(status.Pending),
			string(status.Expire),
			string(status.Cancel),
			string(status.Deny),
			string(status.Failure),
		})).
		Where("sync_locked = ?", false).
		Where("created_at < ?", time.Now().Add(-staleAfter)).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
