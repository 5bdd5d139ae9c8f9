package models

// GatewayNotification is the JSON body the payment gateway posts to the
// webhook endpoint. Only the fields the reconciliation core consumes are
// declared; the rest of the payload is ignored.
type GatewayNotification struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
}

// GatewayTransaction is the response of the gateway's query-by-reference
// API for a single order.
type GatewayTransaction struct {
	OrderID           string `json:"order_id"`
	TransactionID     string `json:"transaction_id"`
	TransactionStatus string `json:"transaction_status"`
	GrossAmount       string `json:"gross_amount"`
}

// PaymentStatusResponse is what the buyer's pending-payment page polls.
// It exposes derived booleans only, never gateway tokens or keys.
type PaymentStatusResponse struct {
	OrderNumber  string `json:"order_number"`
	Status       string `json:"status"`
	IsSuccessful bool   `json:"is_successful"`
	IsFailed     bool   `json:"is_failed"`
	IsPending    bool   `json:"is_pending"`
}
