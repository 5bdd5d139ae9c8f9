package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"festival-ticketing/internal/audit"
	"festival-ticketing/internal/logger"
	"festival-ticketing/internal/models"
	"festival-ticketing/internal/orders/db"
	"festival-ticketing/internal/recon"
	"festival-ticketing/internal/status"
	"festival-ticketing/internal/sweep"
	"festival-ticketing/internal/utils"

	"github.com/go-chi/chi/v5"
)

// ErrInvalidOverride marks a disallowed admin status override.
var ErrInvalidOverride = errors.New("invalid status override")

type ReconEngine interface {
	Reconcile(ctx context.Context, orderNumber string, src recon.StatusSource) (recon.Result, error)
	Repair(ctx context.Context, orderNumber string) ([]models.Ticket, error)
}

type OrderAdminStore interface {
	GetByNumber(ctx context.Context, orderNumber string) (*models.Order, error)
	SetSyncLocked(ctx context.Context, orderNumber string, locked bool) error
	OverrideStatus(ctx context.Context, orderNumber string, newStatus status.Status) error
}

type SweepRunner interface {
	RunOnce(ctx context.Context) (sweep.Summary, error)
	CleanupStale(ctx context.Context) (int64, error)
}

type AuditReader interface {
	ListUnresolved(limit int) ([]audit.SideEffectFailure, error)
	Resolve(orderNumber string) error
}

// Handler exposes the sync/admin surface: manual and forced resync, sweep
// trigger, status reads, lock toggling, overrides, repair and cleanup.
type Handler struct {
	Engine  ReconEngine
	Orders  OrderAdminStore
	Sweeper SweepRunner
	Gateway recon.StatusSource
	Audit   AuditReader
	Logger  *logger.Logger
}

// SyncOrder handles POST /sync/order/{orderNumber}: a single-order manual
// resync against the live gateway.
func (h *Handler) SyncOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	order, err := h.Orders.GetByNumber(r.Context(), orderNumber)
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", orderNumber))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not load order", err.Error()))
		return
	}

	// Orders in a final state have nothing left to sync; force skips
	// this check.
	if status.IsFinal(status.Status(order.Status)) {
		writeJSON(w, http.StatusOK, utils.SuccessResponse("Order already final", recon.Result{
			OrderNumber: orderNumber,
			Outcome:     recon.OutcomeNoTransition,
			OldStatus:   status.Status(order.Status),
			NewStatus:   status.Status(order.Status),
		}))
		return
	}

	h.reconcileAndRespond(w, r, orderNumber)
}

// ForceSyncOrder handles POST /sync/order/{orderNumber}/force: resync
// regardless of the order's current state. syncLocked is still honored by
// the engine.
func (h *Handler) ForceSyncOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")
	h.reconcileAndRespond(w, r, orderNumber)
}

func (h *Handler) reconcileAndRespond(w http.ResponseWriter, r *http.Request, orderNumber string) {
	result, err := h.Engine.Reconcile(r.Context(), orderNumber, h.Gateway)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, utils.ErrorResponse("Reconciliation failed, retry later", err.Error()))
		return
	}
	if result.Outcome == recon.OutcomeNotFound {
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", orderNumber))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Reconciled", result))
}

// SyncOrders handles POST /sync/orders: sweep all pending-ish recent
// orders now.
func (h *Handler) SyncOrders(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Sweeper.RunOnce(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Sweep failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Sweep complete", summary))
}

// OrderStatus handles GET /sync/order/{orderNumber}/status: read-only
// reconciled status.
func (h *Handler) OrderStatus(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	order, err := h.Orders.GetByNumber(r.Context(), orderNumber)
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", orderNumber))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not load order", err.Error()))
		return
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Order status", map[string]interface{}{
		"order_number": order.OrderNumber,
		"status":       order.Status,
		"paid_at":      order.PaidAt,
		"sync_locked":  order.SyncLocked,
	}))
}

// LockOrder / UnlockOrder toggle syncLocked. Locking freezes the order
// against automatic reconciliation; unlocking hands it back to the sweep.
func (h *Handler) LockOrder(w http.ResponseWriter, r *http.Request) {
	h.setLock(w, r, true)
}

func (h *Handler) UnlockOrder(w http.ResponseWriter, r *http.Request) {
	h.setLock(w, r, false)
}

func (h *Handler) setLock(w http.ResponseWriter, r *http.Request, locked bool) {
	orderNumber := chi.URLParam(r, "orderNumber")
	err := h.Orders.SetSyncLocked(r.Context(), orderNumber, locked)
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", orderNumber))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not update lock", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Lock updated", map[string]interface{}{
		"order_number": orderNumber,
		"sync_locked":  locked,
	}))
}

type overrideRequest struct {
	Status string `json:"status"`
}

// OverrideStatus handles POST /admin/order/{orderNumber}/override: an
// explicit admin escape hatch outside the normal state machine edges.
// Always sets syncLocked so the sweep cannot revert the decision.
func (h *Handler) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, utils.ErrorResponse("Invalid request body", err.Error()))
		return
	}

	target := status.Status(req.Status)
	if !status.Known(target) {
		writeJSON(w, http.StatusUnprocessableEntity, utils.ErrorResponse("Invalid override", ErrInvalidOverride.Error()))
		return
	}

	err := h.Orders.OverrideStatus(r.Context(), orderNumber, target)
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", orderNumber))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not override status", err.Error()))
		return
	}

	h.Logger.Warn("ADMIN", "status override applied for "+orderNumber+" → "+req.Status)
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Status overridden", map[string]interface{}{
		"order_number": orderNumber,
		"status":       req.Status,
		"sync_locked":  true,
	}))
}

// RepairOrder handles POST /admin/order/{orderNumber}/repair: idempotent
// ticket fix-up for a paid order.
func (h *Handler) RepairOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")

	tickets, err := h.Engine.Repair(r.Context(), orderNumber)
	if errors.Is(err, db.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, utils.ErrorResponse("Order not found", orderNumber))
		return
	}
	if err != nil {
		writeJSON(w, http.StatusConflict, utils.ErrorResponse("Repair failed", err.Error()))
		return
	}

	if h.Audit != nil {
		if err := h.Audit.Resolve(orderNumber); err != nil {
			h.Logger.Error("AUDIT", err.Error())
		}
	}

	writeJSON(w, http.StatusOK, utils.SuccessResponse("Repair complete", map[string]interface{}{
		"order_number": orderNumber,
		"ticket_count": len(tickets),
	}))
}

// SideEffectFailures handles GET /admin/side-effect-failures.
func (h *Handler) SideEffectFailures(w http.ResponseWriter, r *http.Request) {
	failures, err := h.Audit.ListUnresolved(100)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Could not list failures", err.Error()))
		return
	}
	if failures == nil {
		failures = []audit.SideEffectFailure{}
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Open side effect failures", failures))
}

// CleanupOrders handles POST /admin/orders/cleanup: delete long-stale
// unpaid orders.
func (h *Handler) CleanupOrders(w http.ResponseWriter, r *http.Request) {
	deleted, err := h.Sweeper.CleanupStale(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, utils.ErrorResponse("Cleanup failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, utils.SuccessResponse("Cleanup complete", map[string]interface{}{
		"deleted": deleted,
	}))
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}
