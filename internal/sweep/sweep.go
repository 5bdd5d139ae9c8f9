package sweep

import (
	"context"
	"fmt"
	"sync"
	"time"

	"festival-ticketing/internal/config"
	"festival-ticketing/internal/logger"
	"festival-ticketing/internal/models"
	"festival-ticketing/internal/recon"
)

// Reconciler is the single reconciliation contract every sweep entry goes
// through.
type Reconciler interface {
	Reconcile(ctx context.Context, orderNumber string, src recon.StatusSource) (recon.Result, error)
}

// OrderLister selects the orders a sweep pass looks at.
type OrderLister interface {
	PendingSince(ctx context.Context, window time.Duration, limit int) ([]models.Order, error)
	DeleteStaleUnpaid(ctx context.Context, staleAfter time.Duration) (int64, error)
}

// Summary reports what one sweep pass did.
type Summary struct {
	Checked int `json:"checked"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Sweeper periodically re-reconciles orders still in a pending state and
// cleans up long-stale unpaid ones. Every order is handled independently:
// one failing order never aborts the pass.
type Sweeper struct {
	Engine  Reconciler
	Orders  OrderLister
	Gateway recon.StatusSource
	Config  config.SweepConfig
	Logger  *logger.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
}

func NewSweeper(engine Reconciler, orders OrderLister, gw recon.StatusSource, cfg config.SweepConfig, log *logger.Logger) *Sweeper {
	return &Sweeper{
		Engine:  engine,
		Orders:  orders,
		Gateway: gw,
		Config:  cfg,
		Logger:  log,
	}
}

// RunOnce reconciles all pending-ish orders inside the recency window.
func (s *Sweeper) RunOnce(ctx context.Context) (Summary, error) {
	var summary Summary

	orders, err := s.Orders.PendingSince(ctx, s.Config.Window, s.Config.BatchSize)
	if err != nil {
		return summary, fmt.Errorf("select orders for sweep: %w", err)
	}

	for _, order := range orders {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Checked++

		result, err := s.Engine.Reconcile(ctx, order.OrderNumber, s.Gateway)
		if err != nil {
			// Transient gateway/storage fault for this order; the next
			// cycle retries. The sweep itself carries on.
			summary.Failed++
			s.Logger.Error("SWEEP", fmt.Sprintf("order %s: %v", order.OrderNumber, err))
			continue
		}

		switch result.Outcome {
		case recon.OutcomeTransitioned:
			summary.Updated++
		case recon.OutcomeNotFound:
			summary.Skipped++
		}
	}

	s.Logger.LogSweep(fmt.Sprintf("pass complete: checked=%d updated=%d failed=%d skipped=%d",
		summary.Checked, summary.Updated, summary.Failed, summary.Skipped))
	return summary, nil
}

// CleanupStale deletes long-stale orders that never reached a paid status.
// Distinct from reconciliation; runs on its own slower ticker.
func (s *Sweeper) CleanupStale(ctx context.Context) (int64, error) {
	deleted, err := s.Orders.DeleteStaleUnpaid(ctx, s.Config.StaleAfter)
	if err != nil {
		return 0, fmt.Errorf("cleanup stale orders: %w", err)
	}
	if deleted > 0 {
		s.Logger.LogSweep(fmt.Sprintf("cleanup removed %d stale unpaid order(s)", deleted))
	}
	return deleted, nil
}

// Start launches the periodic sweep and cleanup loops.
func (s *Sweeper) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.Config.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if _, err := s.RunOnce(runCtx); err != nil && runCtx.Err() == nil {
					s.Logger.Error("SWEEP", err.Error())
				}
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.Config.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				if _, err := s.CleanupStale(runCtx); err != nil && runCtx.Err() == nil {
					s.Logger.Error("SWEEP", err.Error())
				}
			}
		}
	}()
}

// Stop cancels the loops and waits for them to drain.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}
