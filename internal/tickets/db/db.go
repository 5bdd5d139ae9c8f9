package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"festival-ticketing/internal/models"

	"github.com/uptrace/bun"
)

var ErrNotFound = errors.New("ticket not found")

type DB struct {
	Bun *bun.DB
}

func (d *DB) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	_, err := d.Bun.NewInsert().Model(ticket).Exec(ctx)
	return err
}

func (d *DB) GetByCode(ctx context.Context, ticketCode string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_code = ?", ticketCode).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) GetByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("order_id = ?", orderID).
		Order("issued_at ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

// ActivatePending promotes an order's pending tickets to valid. Used and
// invalidated tickets are left alone.
func (d *DB) ActivatePending(ctx context.Context, orderID int64) error {
	_, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", models.TicketValid).
		Where("order_id = ?", orderID).
		Where("status = ?", models.TicketPending).
		Exec(ctx)
	return err
}

// MarkUsedIf flips a ticket to used only when it is currently valid. The
// rows-affected result makes re-scans of a used ticket a detectable no-op.
func (d *DB) MarkUsedIf(ctx context.Context, ticketCode, operator string) (bool, error) {
	res, err := d.Bun.NewUpdate().
		Model((*models.Ticket)(nil)).
		Set("status = ?", models.TicketUsed).
		Set("checked_in_at = ?", time.Now()).
		Set("checked_in_by = ?", operator).
		Where("ticket_code = ?", ticketCode).
		Where("status = ?", models.TicketValid).
		Exec(ctx)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
