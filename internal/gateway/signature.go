package gateway

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"

	"festival-ticketing/internal/models"
)

// SignatureVerifier checks the authenticity of a webhook notification.
// The gateway-specific scheme is a collaborator; swap the implementation
// when the gateway changes.
type SignatureVerifier interface {
	Verify(n models.GatewayNotification) bool
}

// SHA512Verifier implements the common sha512(order_id + status_code +
// gross_amount + server_key) webhook signature scheme.
type SHA512Verifier struct {
	ServerKey string
}

func (v SHA512Verifier) Verify(n models.GatewayNotification) bool {
	sum := sha512.Sum512([]byte(n.OrderID + n.StatusCode + n.GrossAmount + v.ServerKey))
	expected := hex.EncodeToString(sum[:])
	return subtle.ConstantTimeCompare([]byte(expected), []byte(n.SignatureKey)) == 1
}

// NotificationSource adapts a verified webhook payload to the engine's
// status source contract, so webhook deliveries avoid a round trip to the
// gateway.
type NotificationSource struct {
	Notification models.GatewayNotification
}

func (s NotificationSource) TransactionStatus(ctx context.Context, orderNumber string) (string, string, error) {
	return s.Notification.TransactionStatus, s.Notification.TransactionID, nil
}
