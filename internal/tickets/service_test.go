package tickets_test

import (
	"context"
	"testing"
	"time"

	"festival-ticketing/internal/logger"
	"festival-ticketing/internal/models"
	"festival-ticketing/internal/tickets"
	"festival-ticketing/internal/tickets/qr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockTicketDB struct {
	mock.Mock
}

func (m *MockTicketDB) CreateTicket(ctx context.Context, ticket *models.Ticket) error {
	args := m.Called(ticket)
	return args.Error(0)
}

func (m *MockTicketDB) GetByCode(ctx context.Context, ticketCode string) (*models.Ticket, error) {
	args := m.Called(ticketCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Ticket), args.Error(1)
}

func (m *MockTicketDB) GetByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error) {
	args := m.Called(orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Ticket), args.Error(1)
}

func (m *MockTicketDB) ActivatePending(ctx context.Context, orderID int64) error {
	args := m.Called(orderID)
	return args.Error(0)
}

func (m *MockTicketDB) MarkUsedIf(ctx context.Context, ticketCode, operator string) (bool, error) {
	args := m.Called(ticketCode, operator)
	return args.Bool(0), args.Error(1)
}

func newService(db *MockTicketDB) *tickets.Service {
	return tickets.NewService(db, qr.NewGenerator("test-secret"), logger.NewTestLogger())
}

func TestEnsureIssued_CreatesOnlyTheShortfall(t *testing.T) {
	db := new(MockTicketDB)
	order := &models.Order{ID: 1, OrderNumber: "FEST-1-000001", TicketQuantity: 3}

	existing := []models.Ticket{
		{TicketCode: "HAVE-1", OrderID: 1, Status: models.TicketValid, IssuedAt: time.Now()},
	}
	full := append(existing,
		models.Ticket{TicketCode: "NEW-1", OrderID: 1, Status: models.TicketValid},
		models.Ticket{TicketCode: "NEW-2", OrderID: 1, Status: models.TicketValid},
	)

	db.On("GetByOrder", int64(1)).Return(existing, nil).Once()
	db.On("CreateTicket", mock.MatchedBy(func(tk *models.Ticket) bool {
		return tk.OrderID == 1 && tk.Status == models.TicketValid && len(tk.QRCode) > 0
	})).Return(nil).Twice()
	db.On("ActivatePending", int64(1)).Return(nil)
	db.On("GetByOrder", int64(1)).Return(full, nil).Once()

	svc := newService(db)
	got, err := svc.EnsureIssued(context.Background(), order)

	require.NoError(t, err)
	assert.Len(t, got, 3)
	db.AssertExpectations(t)
}

func TestEnsureIssued_IsIdempotentWhenAlreadyComplete(t *testing.T) {
	db := new(MockTicketDB)
	order := &models.Order{ID: 2, OrderNumber: "FEST-1-000002", TicketQuantity: 2}

	existing := []models.Ticket{
		{TicketCode: "A", OrderID: 2, Status: models.TicketValid},
		{TicketCode: "B", OrderID: 2, Status: models.TicketUsed},
	}
	db.On("GetByOrder", int64(2)).Return(existing, nil)
	db.On("ActivatePending", int64(2)).Return(nil)

	svc := newService(db)
	got, err := svc.EnsureIssued(context.Background(), order)

	require.NoError(t, err)
	assert.Len(t, got, 2)
	db.AssertNotCalled(t, "CreateTicket", mock.Anything)
}

func TestEnsureIssued_InvalidatedTicketsDoNotCount(t *testing.T) {
	db := new(MockTicketDB)
	order := &models.Order{ID: 3, OrderNumber: "FEST-1-000003", TicketQuantity: 1}

	existing := []models.Ticket{
		{TicketCode: "VOID", OrderID: 3, Status: models.TicketInvalidated},
	}
	replaced := append(existing, models.Ticket{TicketCode: "FRESH", OrderID: 3, Status: models.TicketValid})

	db.On("GetByOrder", int64(3)).Return(existing, nil).Once()
	db.On("CreateTicket", mock.Anything).Return(nil).Once()
	db.On("ActivatePending", int64(3)).Return(nil)
	db.On("GetByOrder", int64(3)).Return(replaced, nil).Once()

	svc := newService(db)
	_, err := svc.EnsureIssued(context.Background(), order)

	require.NoError(t, err)
	db.AssertNumberOfCalls(t, "CreateTicket", 1)
}

func TestCheckIn(t *testing.T) {
	db := new(MockTicketDB)
	svc := newService(db)

	db.On("MarkUsedIf", "SCAN-1", "gate-1").Return(true, nil)
	db.On("GetByCode", "SCAN-1").Return(&models.Ticket{TicketCode: "SCAN-1", Status: models.TicketUsed}, nil)

	ticket, err := svc.CheckIn(context.Background(), "SCAN-1", "gate-1")
	require.NoError(t, err)
	assert.Equal(t, models.TicketUsed, ticket.Status)
}

func TestCheckIn_ReScanReportsUsed(t *testing.T) {
	db := new(MockTicketDB)
	svc := newService(db)

	db.On("MarkUsedIf", "SCAN-2", "gate-1").Return(false, nil)
	db.On("GetByCode", "SCAN-2").Return(&models.Ticket{TicketCode: "SCAN-2", Status: models.TicketUsed}, nil)

	ticket, err := svc.CheckIn(context.Background(), "SCAN-2", "gate-1")
	assert.ErrorIs(t, err, tickets.ErrTicketUsed)
	assert.NotNil(t, ticket)
}

func TestCheckIn_PendingTicketRejected(t *testing.T) {
	db := new(MockTicketDB)
	svc := newService(db)

	db.On("MarkUsedIf", "SCAN-3", "gate-1").Return(false, nil)
	db.On("GetByCode", "SCAN-3").Return(&models.Ticket{TicketCode: "SCAN-3", Status: models.TicketPending}, nil)

	_, err := svc.CheckIn(context.Background(), "SCAN-3", "gate-1")
	assert.ErrorIs(t, err, tickets.ErrTicketNotValid)
}
