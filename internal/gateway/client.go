package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"

	"festival-ticketing/internal/config"
	"festival-ticketing/internal/logger"
	"festival-ticketing/internal/models"
)

// ErrGatewayUnavailable marks transient gateway faults (network, timeout,
// 5xx). Callers retry on a later cycle; no order state changes.
var ErrGatewayUnavailable = errors.New("payment gateway unavailable")

// ErrTransactionNotFound means the gateway has no transaction for the order
// reference yet. The order stays pending; this is not a failure status.
var ErrTransactionNotFound = errors.New("transaction not found at gateway")

// Client queries the gateway's status-by-reference API.
type Client struct {
	baseURL    *url.URL
	serverKey  string
	httpClient *http.Client
	log        *logger.Logger
}

func NewClient(cfg config.GatewayConfig, log *logger.Logger) (*Client, error) {
	parsed, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse gateway url: %w", err)
	}
	if !parsed.IsAbs() {
		return nil, errors.New("gateway url must be absolute")
	}
	return &Client{
		baseURL:   parsed,
		serverKey: cfg.ServerKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}, nil
}

// TransactionStatus fetches the authoritative transaction status for an
// order reference. Returns the raw gateway status string and the gateway's
// transaction id.
func (c *Client) TransactionStatus(ctx context.Context, orderNumber string) (string, string, error) {
	endpoint := *c.baseURL
	endpoint.Path = path.Join(endpoint.Path, "/v2", orderNumber, "status")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.serverKey, "")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
		}
		var tx models.GatewayTransaction
		if err := json.Unmarshal(body, &tx); err != nil {
			return "", "", fmt.Errorf("decode gateway response: %w", err)
		}
		return tx.TransactionStatus, tx.TransactionID, nil
	case http.StatusNotFound:
		return "", "", ErrTransactionNotFound
	default:
		body, _ := io.ReadAll(resp.Body)
		c.log.Error("GATEWAY", fmt.Sprintf("status query for %s failed: %d %s", orderNumber, resp.StatusCode, string(body)))
		return "", "", fmt.Errorf("%w: status %d", ErrGatewayUnavailable, resp.StatusCode)
	}
}
