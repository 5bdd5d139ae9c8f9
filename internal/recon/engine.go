package recon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"festival-ticketing/internal/gateway"
	"festival-ticketing/internal/logger"
	"festival-ticketing/internal/mailer"
	"festival-ticketing/internal/models"
	"festival-ticketing/internal/orders/db"
	"festival-ticketing/internal/status"

	"github.com/google/uuid"
)

// StatusSource yields the authoritative gateway status for an order:
// either a live gateway query or a verified webhook payload.
type StatusSource interface {
	TransactionStatus(ctx context.Context, orderNumber string) (gatewayStatus string, transactionID string, err error)
}

// OrderStore is the persistence contract the engine depends on.
// UpdateStatusIf is the concurrency primitive: a conditional write keyed
// on the previously-read status.
type OrderStore interface {
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	UpdateStatusIf(ctx context.Context, orderID int64, expected status.Status, upd db.StatusUpdate) (bool, error)
}

type TicketIssuer interface {
	EnsureIssued(ctx context.Context, order *models.Order) ([]models.Ticket, error)
}

type DiscountRedeemer interface {
	Redeem(ctx context.Context, code string) error
}

type EventPublisher interface {
	PublishSettled(ctx context.Context, orderNumber, oldStatus, newStatus string) error
	PublishFailed(ctx context.Context, orderNumber, oldStatus, newStatus string) error
}

type FailureAuditor interface {
	Record(orderNumber, kind, detail string) error
}

// OrderLock is the per-order advisory lock. Optional: when nil (or when
// redis is down) the engine still behaves correctly via the conditional
// write; the lock only avoids duplicate gateway work.
type OrderLock interface {
	Acquire(ctx context.Context, orderNumber, token string) (bool, error)
	Release(ctx context.Context, orderNumber, token string) error
}

// StatusChangeNotifier receives every applied transition; used to push
// live updates to the buyer's pending-payment page.
type StatusChangeNotifier interface {
	EmitStatusChange(orderNumber string, result Result)
}

// Engine is the single reconciliation path all entry points route
// through: webhook, periodic sweep, manual resync and forced resync.
type Engine struct {
	Orders   OrderStore
	Tickets  TicketIssuer
	Discount DiscountRedeemer
	Mailer   mailer.Mailer
	Events   EventPublisher
	Audit    FailureAuditor
	Lock     OrderLock
	Notify   StatusChangeNotifier
	Logger   *logger.Logger
}

// Reconcile fetches the authoritative status for an order, maps it to the
// internal status and applies the transition at most once. Expected
// outcomes (no transition, not found, lock respected, lost race) come back
// as Result values; only gateway or storage faults are errors.
func (e *Engine) Reconcile(ctx context.Context, orderNumber string, src StatusSource) (Result, error) {
	result := Result{OrderNumber: orderNumber}

	order, err := e.Orders.GetByNumber(ctx, orderNumber)
	if errors.Is(err, db.ErrNotFound) {
		result.Outcome = OutcomeNotFound
		return result, nil
	}
	if err != nil {
		return result, fmt.Errorf("load order %s: %w", orderNumber, err)
	}

	current := status.Status(order.Status)
	result.OldStatus = current
	result.NewStatus = current

	if order.SyncLocked {
		result.Outcome = OutcomeLocked
		e.Logger.LogRecon(orderNumber, "sync locked, skipping")
		return result, nil
	}

	raw, txID, err := src.TransactionStatus(ctx, orderNumber)
	if err != nil {
		// No partial state is committed; the caller retries on a later
		// cycle. A missing gateway transaction just means still pending.
		if errors.Is(err, gateway.ErrTransactionNotFound) {
			result.Outcome = OutcomeNoTransition
			return result, nil
		}
		return result, fmt.Errorf("gateway status for %s: %w", orderNumber, err)
	}

	next := status.Map(raw)
	if next == current {
		result.Outcome = OutcomeNoTransition
		return result, nil
	}

	if !status.CanTransition(current, next) {
		// Out-of-order or duplicated notification; the stored status is
		// already ahead of what the gateway reported.
		e.Logger.LogRecon(orderNumber, fmt.Sprintf("ignoring %s → %s (not a forward edge)", current, next))
		result.Outcome = OutcomeNoTransition
		return result, nil
	}

	if e.Lock != nil {
		token := uuid.NewString()
		if ok, lockErr := e.Lock.Acquire(ctx, orderNumber, token); lockErr == nil && ok {
			defer e.Lock.Release(ctx, orderNumber, token)
		}
		// Lock denied or redis down: proceed anyway, the conditional
		// write below decides the race.
	}

	firstPaid := status.IsPaid(next) && !status.IsPaid(current)

	upd := db.StatusUpdate{NewStatus: next, TransactionID: txID}
	if firstPaid && order.PaidAt == nil {
		now := time.Now()
		upd.PaidAt = &now
	}

	applied, err := e.Orders.UpdateStatusIf(ctx, order.ID, current, upd)
	if err != nil {
		return result, fmt.Errorf("update order %s: %w", orderNumber, err)
	}
	if !applied {
		// A concurrent reconciliation won; it owns the side effects.
		result.Outcome = OutcomeLostRace
		e.Logger.LogRecon(orderNumber, "lost conditional update race, no-op")
		return result, nil
	}

	result.Outcome = OutcomeTransitioned
	result.NewStatus = next
	result.Transitioned = true
	e.Logger.LogRecon(orderNumber, fmt.Sprintf("%s → %s", current, next))

	order.Status = string(next)
	if upd.PaidAt != nil {
		order.PaidAt = upd.PaidAt
	}

	if firstPaid {
		// First successful payment: the side-effect set fires exactly
		// once per order, gated on the pre-write status we just swapped
		// out, never on a re-read.
		result.SideEffectsFired = true
		e.fireFirstPaidSideEffects(ctx, order, result)
	} else if status.IsTerminalFailure(next) && e.Events != nil {
		if err := e.Events.PublishFailed(ctx, orderNumber, string(current), string(next)); err != nil {
			e.Logger.Error("KAFKA", fmt.Sprintf("failed event for %s not published: %v", orderNumber, err))
		}
	}

	if e.Notify != nil {
		e.Notify.EmitStatusChange(orderNumber, result)
	}

	return result, nil
}

// fireFirstPaidSideEffects issues tickets, redeems the discount code,
// sends the confirmation mail and publishes the settled event. The status
// change is already committed: failures here are logged and audited, never
// rolled back. The repair endpoint re-runs ticket issuance idempotently.
func (e *Engine) fireFirstPaidSideEffects(ctx context.Context, order *models.Order, result Result) {
	tickets, err := e.Tickets.EnsureIssued(ctx, order)
	if err != nil {
		e.Logger.LogSideEffect("tickets", order.OrderNumber, err.Error())
		e.recordFailure(order.OrderNumber, "tickets", err)
	}

	if order.DiscountCode != "" && e.Discount != nil {
		if err := e.Discount.Redeem(ctx, order.DiscountCode); err != nil {
			e.Logger.LogSideEffect("discount", order.OrderNumber, err.Error())
			e.recordFailure(order.OrderNumber, "discount", err)
		}
	}

	if e.Mailer != nil {
		codes := make([]string, 0, len(tickets))
		for _, t := range tickets {
			codes = append(codes, t.TicketCode)
		}
		err := e.Mailer.Send(order.BuyerEmail, mailer.ConfirmationData{
			BuyerName:      order.BuyerName,
			OrderNumber:    order.OrderNumber,
			Category:       order.Category,
			TicketQuantity: order.TicketQuantity,
			FinalAmount:    order.FinalAmount,
			TicketCodes:    codes,
		})
		if err != nil {
			e.Logger.LogSideEffect("email", order.OrderNumber, err.Error())
			e.recordFailure(order.OrderNumber, "email", err)
		}
	}

	if e.Events != nil {
		if err := e.Events.PublishSettled(ctx, order.OrderNumber, string(result.OldStatus), string(result.NewStatus)); err != nil {
			e.Logger.Error("KAFKA", fmt.Sprintf("settled event for %s not published: %v", order.OrderNumber, err))
		}
	}
}

func (e *Engine) recordFailure(orderNumber, kind string, cause error) {
	if e.Audit == nil {
		return
	}
	if err := e.Audit.Record(orderNumber, kind, cause.Error()); err != nil {
		e.Logger.Error("AUDIT", fmt.Sprintf("audit write for %s failed: %v", orderNumber, err))
	}
}

// Repair re-runs ticket issuance for a paid order without re-sending the
// confirmation mail blindly: EnsureIssued checks ticket existence before
// creating, so repeated repairs converge on exactly ticket_quantity valid
// tickets.
func (e *Engine) Repair(ctx context.Context, orderNumber string) ([]models.Ticket, error) {
	order, err := e.Orders.GetByNumber(ctx, orderNumber)
	if errors.Is(err, db.ErrNotFound) {
		return nil, db.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load order %s: %w", orderNumber, err)
	}

	if !status.IsPaid(status.Status(order.Status)) && !status.IsPostPaidAdjustment(status.Status(order.Status)) {
		return nil, fmt.Errorf("order %s is not paid, nothing to repair", orderNumber)
	}

	tickets, err := e.Tickets.EnsureIssued(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("repair tickets for %s: %w", orderNumber, err)
	}

	e.Logger.LogRecon(orderNumber, fmt.Sprintf("repair complete, %d ticket(s)", len(tickets)))
	return tickets, nil
}
