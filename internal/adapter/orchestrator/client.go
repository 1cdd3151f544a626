// Package orchestrator is the merchant gateway's HTTP client for the orchestrator.
package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"payrelay/internal/core/domain"
	"payrelay/internal/core/ports"
)

// DefaultTimeout bounds one forwarded request.
const DefaultTimeout = 15 * time.Second

// HTTPClient allows mocking HTTP calls in tests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

var routes = map[domain.Operation]string{
	domain.OperationSale:   "/orchestrator/sale",
	domain.OperationRefund: "/orchestrator/refund",
	domain.OperationVoid:   "/orchestrator/void",
}

// Client implements ports.OrchestratorClient.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	timeout    time.Duration
}

// NewClient creates a client for the orchestrator at baseURL.
func NewClient(baseURL string, httpClient HTTPClient, timeout time.Duration) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		timeout:    timeout,
	}
}

// Forward posts req to the orchestrator route for op and returns whatever it answered.
func (c *Client) Forward(ctx context.Context, op domain.Operation, req domain.TransactionRequest) (*ports.ForwardResponse, error) {
	route, ok := routes[op]
	if !ok {
		return nil, fmt.Errorf("unsupported operation %q", op)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+route, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post %s: %w", route, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &ports.ForwardResponse{StatusCode: resp.StatusCode, Body: respBody}, nil
}
