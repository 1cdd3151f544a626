package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"payrelay/internal/core/domain"
	"payrelay/internal/core/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultNotifyTimeout bounds a single callback delivery.
const DefaultNotifyTimeout = 10 * time.Second

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// CallbackNotifier implements ports.Notifier with a single HTTP POST per result.
// When a secret is configured the request carries X-Signature, X-Timestamp
// and X-Nonce over METHOD|PATH|TIMESTAMP|NONCE|BODY.
type CallbackNotifier struct {
	httpClient HTTPClient
	sigSvc     ports.SignatureService
	secret     string
	timeout    time.Duration
	log        zerolog.Logger
	now        func() time.Time
}

// NewCallbackNotifier creates a notifier. sigSvc may be nil when secret is empty.
func NewCallbackNotifier(httpClient HTTPClient, sigSvc ports.SignatureService, secret string, timeout time.Duration, log zerolog.Logger) *CallbackNotifier {
	if timeout <= 0 {
		timeout = DefaultNotifyTimeout
	}
	return &CallbackNotifier{
		httpClient: httpClient,
		sigSvc:     sigSvc,
		secret:     secret,
		timeout:    timeout,
		log:        log,
		now:        time.Now,
	}
}

// Notify delivers result to callbackURL once. It never retries and never fails;
// the outcome is only reported in the returned NotifyResult.
func (n *CallbackNotifier) Notify(ctx context.Context, callbackURL string, result domain.CanonicalResult) domain.NotifyResult {
	if callbackURL == "" {
		return domain.NotifyResult{Sent: false, Error: domain.NotifyErrNoCallback}
	}

	body, err := json.Marshal(result)
	if err != nil {
		return domain.NotifyResult{Sent: false, Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, callbackURL, bytes.NewReader(body))
	if err != nil {
		return domain.NotifyResult{Sent: false, Error: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	if n.secret != "" && n.sigSvc != nil {
		n.sign(req, body)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		n.log.Warn().Err(err).Str("merchant_reference", result.MerchantReference).Msg("callback: delivery failed")
		return domain.NotifyResult{Sent: false, Error: err.Error()}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		n.log.Warn().
			Int("status", resp.StatusCode).
			Str("merchant_reference", result.MerchantReference).
			Msg("callback: non-2xx response")
		return domain.NotifyResult{
			Sent:   false,
			Status: resp.StatusCode,
			Error:  fmt.Sprintf("callback returned status %d", resp.StatusCode),
		}
	}

	n.log.Debug().
		Int("status", resp.StatusCode).
		Str("merchant_reference", result.MerchantReference).
		Msg("callback: delivered")
	return domain.NotifyResult{Sent: true, Status: resp.StatusCode}
}

func (n *CallbackNotifier) sign(req *http.Request, body []byte) {
	ts := n.now().Unix()
	nonce := uuid.NewString()
	canonical := n.sigSvc.BuildCanonicalString(req.Method, req.URL.Path, ts, nonce, string(body))

	req.Header.Set(ports.HeaderTimestamp, strconv.FormatInt(ts, 10))
	req.Header.Set(ports.HeaderNonce, nonce)
	req.Header.Set(ports.HeaderSignature, n.sigSvc.Sign(n.secret, canonical))
}
