package tickets

import (
	"context"
	"errors"
	"fmt"
	"time"

	"festival-ticketing/internal/logger"
	"festival-ticketing/internal/models"
	"festival-ticketing/internal/tickets/qr"
	"festival-ticketing/internal/utils"
)

// ErrTicketUsed signals a re-scan of an already used ticket. Check-in is
// idempotent; this is reported, never double-counted.
var ErrTicketUsed = errors.New("ticket already used")

var ErrTicketNotValid = errors.New("ticket not valid for check-in")

type TicketDBLayer interface {
	CreateTicket(ctx context.Context, ticket *models.Ticket) error
	GetByCode(ctx context.Context, ticketCode string) (*models.Ticket, error)
	GetByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error)
	ActivatePending(ctx context.Context, orderID int64) error
	MarkUsedIf(ctx context.Context, ticketCode, operator string) (bool, error)
}

type Service struct {
	DB     TicketDBLayer
	QR     *qr.Generator
	Logger *logger.Logger
}

func NewService(db TicketDBLayer, qrGen *qr.Generator, log *logger.Logger) *Service {
	return &Service{DB: db, QR: qrGen, Logger: log}
}

// EnsureIssued is the idempotent issuance/repair path: it creates only the
// shortfall up to the order's ticket quantity and promotes pending tickets
// to valid. Never duplicates, never downgrades a used ticket. Safe to call
// any number of times for an already-paid order.
func (s *Service) EnsureIssued(ctx context.Context, order *models.Order) ([]models.Ticket, error) {
	existing, err := s.DB.GetByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch tickets for order %s: %w", order.OrderNumber, err)
	}

	// Invalidated tickets don't count toward the order's quantity.
	active := 0
	for _, t := range existing {
		if t.Status != models.TicketInvalidated {
			active++
		}
	}

	missing := order.TicketQuantity - active
	for i := 0; i < missing; i++ {
		code := utils.GenerateTicketCode()
		qrBytes, err := s.QR.Encode(code)
		if err != nil {
			return nil, fmt.Errorf("generate QR for order %s: %w", order.OrderNumber, err)
		}
		ticket := &models.Ticket{
			TicketCode: code,
			OrderID:    order.ID,
			Status:     models.TicketValid,
			QRCode:     qrBytes,
			IssuedAt:   time.Now(),
		}
		if err := s.DB.CreateTicket(ctx, ticket); err != nil {
			return nil, fmt.Errorf("create ticket for order %s: %w", order.OrderNumber, err)
		}
	}

	if err := s.DB.ActivatePending(ctx, order.ID); err != nil {
		return nil, fmt.Errorf("activate tickets for order %s: %w", order.OrderNumber, err)
	}

	tickets, err := s.DB.GetByOrder(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("fetch tickets for order %s: %w", order.OrderNumber, err)
	}

	if s.Logger != nil && missing > 0 {
		s.Logger.Info("TICKETS", fmt.Sprintf("issued %d ticket(s) for order %s", missing, order.OrderNumber))
	}
	return tickets, nil
}

// CheckIn marks a ticket used. Re-scanning a used ticket returns
// ErrTicketUsed without mutating anything.
func (s *Service) CheckIn(ctx context.Context, ticketCode, operator string) (*models.Ticket, error) {
	applied, err := s.DB.MarkUsedIf(ctx, ticketCode, operator)
	if err != nil {
		return nil, fmt.Errorf("check in ticket %s: %w", ticketCode, err)
	}

	ticket, err := s.DB.GetByCode(ctx, ticketCode)
	if err != nil {
		return nil, err
	}

	if !applied {
		if ticket.Status == models.TicketUsed {
			return ticket, ErrTicketUsed
		}
		return ticket, ErrTicketNotValid
	}
	return ticket, nil
}

// TicketsForOrder returns the issued tickets for an order.
func (s *Service) TicketsForOrder(ctx context.Context, orderID int64) ([]models.Ticket, error) {
	return s.DB.GetByOrder(ctx, orderID)
}
