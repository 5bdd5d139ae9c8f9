package discount

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"festival-ticketing/internal/logger"
	"festival-ticketing/internal/models"

	"github.com/uptrace/bun"
)

var ErrCodeNotFound = errors.New("discount code not found")

// ErrQuotaExhausted means the code's usage counter is at its quota; the
// redemption did not happen.
var ErrQuotaExhausted = errors.New("discount code quota exhausted")

type Store struct {
	Bun *bun.DB
	Log *logger.Logger
}

func (s *Store) GetByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var dc models.DiscountCode
	err := s.Bun.NewSelect().
		Model(&dc).
		Where("code = ?", code).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCodeNotFound
	}
	if err != nil {
		return nil, err
	}
	return &dc, nil
}

// Redeem increments the usage counter by one, guarded so the counter can
// never pass the quota even under concurrent redemption. The conditional
// update carries the race decision; the loser gets ErrQuotaExhausted.
func (s *Store) Redeem(ctx context.Context, code string) error {
	res, err := s.Bun.NewUpdate().
		Model((*models.DiscountCode)(nil)).
		Set("current_usage = current_usage + 1").
		Where("code = ?", code).
		Where("active = ?", true).
		Where("current_usage < max_usage").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("redeem code %s: %w", code, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, getErr := s.GetByCode(ctx, code); errors.Is(getErr, ErrCodeNotFound) {
			return ErrCodeNotFound
		}
		return ErrQuotaExhausted
	}
	if s.Log != nil {
		s.Log.Info("DISCOUNT", fmt.Sprintf("code %s redeemed", code))
	}
	return nil
}
