package db_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"festival-ticketing/internal/models"
	"festival-ticketing/internal/tickets/db"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) (*db.DB, *bun.DB) {
	sqldb, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("Failed to connect to in-memory database: %v", err)
	}

	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = bunDB.NewCreateTable().Model((*models.Ticket)(nil)).Exec(context.Background())
	if err != nil {
		t.Fatalf("Failed to create tickets table: %v", err)
	}

	return &db.DB{Bun: bunDB}, bunDB
}

func TestCreateAndGetTicket(t *testing.T) {
	ticketDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	ticket := &models.Ticket{
		TicketCode: "AAA111",
		OrderID:    1,
		Status:     models.TicketValid,
		IssuedAt:   time.Now(),
	}
	require.NoError(t, ticketDB.CreateTicket(context.Background(), ticket))

	got, err := ticketDB.GetByCode(context.Background(), "AAA111")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.OrderID)
	assert.Equal(t, models.TicketValid, got.Status)

	_, err = ticketDB.GetByCode(context.Background(), "missing")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestGetByOrder(t *testing.T) {
	ticketDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	for i, code := range []string{"T1", "T2", "T3"} {
		require.NoError(t, ticketDB.CreateTicket(context.Background(), &models.Ticket{
			TicketCode: code,
			OrderID:    7,
			Status:     models.TicketValid,
			IssuedAt:   time.Now().Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, ticketDB.CreateTicket(context.Background(), &models.Ticket{
		TicketCode: "OTHER",
		OrderID:    8,
		Status:     models.TicketValid,
		IssuedAt:   time.Now(),
	}))

	tickets, err := ticketDB.GetByOrder(context.Background(), 7)
	require.NoError(t, err)
	assert.Len(t, tickets, 3)
	assert.Equal(t, "T1", tickets[0].TicketCode)
}

func TestActivatePending_LeavesUsedTicketsAlone(t *testing.T) {
	ticketDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	require.NoError(t, ticketDB.CreateTicket(context.Background(), &models.Ticket{
		TicketCode: "PEND",
		OrderID:    1,
		Status:     models.TicketPending,
		IssuedAt:   time.Now(),
	}))
	require.NoError(t, ticketDB.CreateTicket(context.Background(), &models.Ticket{
		TicketCode: "USED",
		OrderID:    1,
		Status:     models.TicketUsed,
		IssuedAt:   time.Now(),
	}))

	require.NoError(t, ticketDB.ActivatePending(context.Background(), 1))

	pend, err := ticketDB.GetByCode(context.Background(), "PEND")
	require.NoError(t, err)
	assert.Equal(t, models.TicketValid, pend.Status)

	used, err := ticketDB.GetByCode(context.Background(), "USED")
	require.NoError(t, err)
	assert.Equal(t, models.TicketUsed, used.Status, "used tickets are never downgraded")
}

func TestMarkUsedIf_IsIdempotent(t *testing.T) {
	ticketDB, bunDB := setupTestDB(t)
	defer bunDB.Close()

	require.NoError(t, ticketDB.CreateTicket(context.Background(), &models.Ticket{
		TicketCode: "SCAN",
		OrderID:    1,
		Status:     models.TicketValid,
		IssuedAt:   time.Now(),
	}))

	applied, err := ticketDB.MarkUsedIf(context.Background(), "SCAN", "gate-3")
	require.NoError(t, err)
	assert.True(t, applied)

	// Second scan of the same ticket is a detectable no-op.
	applied, err = ticketDB.MarkUsedIf(context.Background(), "SCAN", "gate-5")
	require.NoError(t, err)
	assert.False(t, applied)

	got, err := ticketDB.GetByCode(context.Background(), "SCAN")
	require.NoError(t, err)
	assert.Equal(t, models.TicketUsed, got.Status)
	assert.Equal(t, "gate-3", got.CheckedInBy, "the first scanner owns the check-in")
	assert.NotNil(t, got.CheckedInAt)
}
