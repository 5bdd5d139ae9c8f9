package discount_test

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"festival-ticketing/internal/discount"
	"festival-ticketing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupStore(t *testing.T) (*discount.Store, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	// One connection only: every pooled connection would otherwise get its
	// own empty in-memory database.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().Model((*models.DiscountCode)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create discount_codes table: %v", err)
	}

	return &discount.Store{Bun: bunDB}, bunDB
}

func insertCode(t *testing.T, bunDB *bun.DB, code string, maxUsage int, active bool) {
	_, err := bunDB.NewInsert().Model(&models.DiscountCode{
		Code:     code,
		MaxUsage: maxUsage,
		Active:   active,
	}).Exec(context.Background())
	require.NoError(t, err)
}

func TestRedeem_IncrementsUpToQuota(t *testing.T) {
	store, bunDB := setupStore(t)
	defer bunDB.Close()

	insertCode(t, bunDB, "EARLYBIRD", 2, true)

	require.NoError(t, store.Redeem(context.Background(), "EARLYBIRD"))
	require.NoError(t, store.Redeem(context.Background(), "EARLYBIRD"))

	err := store.Redeem(context.Background(), "EARLYBIRD")
	assert.ErrorIs(t, err, discount.ErrQuotaExhausted)

	dc, err := store.GetByCode(context.Background(), "EARLYBIRD")
	require.NoError(t, err)
	assert.Equal(t, 2, dc.CurrentUsage)
}

func TestRedeem_UnknownCode(t *testing.T) {
	store, bunDB := setupStore(t)
	defer bunDB.Close()

	err := store.Redeem(context.Background(), "NOPE")
	assert.ErrorIs(t, err, discount.ErrCodeNotFound)
}

func TestRedeem_InactiveCode(t *testing.T) {
	store, bunDB := setupStore(t)
	defer bunDB.Close()

	insertCode(t, bunDB, "RETIRED", 100, false)

	err := store.Redeem(context.Background(), "RETIRED")
	assert.ErrorIs(t, err, discount.ErrQuotaExhausted)
}

func TestRedeem_ConcurrentNeverExceedsQuota(t *testing.T) {
	store, bunDB := setupStore(t)
	defer bunDB.Close()

	const maxUsage = 5
	insertCode(t, bunDB, "CREW", maxUsage, true)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.Redeem(context.Background(), "CREW"); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, maxUsage, succeeded)

	dc, err := store.GetByCode(context.Background(), "CREW")
	require.NoError(t, err)
	assert.Equal(t, maxUsage, dc.CurrentUsage, "counter can never pass the quota")
}
