package gateway_test

import (
	"context"
	"crypto/sha512"
	"encoding/hex"
	"testing"

	"festival-ticketing/internal/gateway"
	"festival-ticketing/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedNotification(serverKey string) models.GatewayNotification {
	n := models.GatewayNotification{
		OrderID:           "FEST-1-000001",
		TransactionID:     "tx-1",
		TransactionStatus: "settlement",
		StatusCode:        "200",
		GrossAmount:       "150000.00",
	}
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + serverKey))
	n.SignatureKey = hex.EncodeToString(sum[:])
	return n
}

func TestSHA512Verifier(t *testing.T) {
	verifier := gateway.SHA512Verifier{ServerKey: "sk-test"}

	assert.True(t, verifier.Verify(signedNotification("sk-test")))
	assert.False(t, verifier.Verify(signedNotification("wrong-key")))

	tampered := signedNotification("sk-test")
	tampered.GrossAmount = "1.00"
	assert.False(t, verifier.Verify(tampered))
}

func TestNotificationSource(t *testing.T) {
	src := gateway.NotificationSource{Notification: models.GatewayNotification{
		TransactionStatus: "capture",
		TransactionID:     "tx-7",
	}}

	status, txID, err := src.TransactionStatus(context.Background(), "FEST-1-000001")
	require.NoError(t, err)
	assert.Equal(t, "capture", status)
	assert.Equal(t, "tx-7", txID)
}
