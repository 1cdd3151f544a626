package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"payrelay/internal/core/domain"

	"github.com/h2non/gock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBaseURL = "http://orchestrator.test"

type mockHTTPClient struct {
	doFunc func(req *http.Request) (*http.Response, error)
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	return m.doFunc(req)
}

func TestClient_Forward(t *testing.T) {
	tests := []struct {
		name string
		op   domain.Operation
		path string
	}{
		{"sale", domain.OperationSale, "/orchestrator/sale"},
		{"refund", domain.OperationRefund, "/orchestrator/refund"},
		{"void", domain.OperationVoid, "/orchestrator/void"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer gock.Off()
			gock.New(testBaseURL).
				Post(tt.path).
				MatchType("json").
				BodyString(`"merchantReference":"order_1"`).
				Reply(http.StatusOK).
				JSON(map[string]string{"status": "PENDING"})

			c := NewClient(testBaseURL+"/", nil, time.Second)
			resp, err := c.Forward(context.Background(), tt.op, domain.TransactionRequest{
				MerchantReference: "order_1",
				IdempotencyKey:    "k",
			})

			require.NoError(t, err)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.JSONEq(t, `{"status":"PENDING"}`, string(resp.Body))
			assert.True(t, gock.IsDone())
		})
	}
}

func TestClient_ForwardPassesErrorStatus(t *testing.T) {
	defer gock.Off()
	gock.New(testBaseURL).
		Post("/orchestrator/sale").
		Reply(http.StatusBadGateway).
		JSON(map[string]any{"status": "FAILED", "error": map[string]string{"code": "BT_NETWORK"}})

	resp, err := NewClient(testBaseURL, nil, time.Second).Forward(context.Background(), domain.OperationSale, domain.TransactionRequest{})

	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Contains(t, string(resp.Body), "BT_NETWORK")
}

func TestClient_ForwardTransportError(t *testing.T) {
	defer gock.Off()
	gock.New(testBaseURL).
		Post("/orchestrator/void").
		ReplyError(errors.New("connection refused"))

	resp, err := NewClient(testBaseURL, nil, time.Second).Forward(context.Background(), domain.OperationVoid, domain.TransactionRequest{})

	assert.Nil(t, resp)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestClient_ForwardAppliesTimeout(t *testing.T) {
	client := &mockHTTPClient{doFunc: func(req *http.Request) (*http.Response, error) {
		deadline, ok := req.Context().Deadline()
		require.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(250*time.Millisecond), deadline, 200*time.Millisecond)
		return nil, context.DeadlineExceeded
	}}

	_, err := NewClient(testBaseURL, client, 250*time.Millisecond).Forward(context.Background(), domain.OperationSale, domain.TransactionRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestClient_UnsupportedOperation(t *testing.T) {
	_, err := NewClient(testBaseURL, nil, 0).Forward(context.Background(), domain.Operation("capture"), domain.TransactionRequest{})
	assert.Error(t, err)
}
