// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package payout

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/hashicorp/go-retryablehttp"
)

const (
	// IdempotencyHeader carries the call sequence number. A receiver must
	// treat repeated deliveries with the same key as one payout
	IdempotencyHeader = "Idempotency-Key"

	DefaultWebhookTimeout      = 10 * time.Second
	DefaultWebhookRetryMax     = 3
	DefaultWebhookRetryWaitMin = 100 * time.Millisecond
	DefaultWebhookRetryWaitMax = 2 * time.Second
)

var ErrNoCall = errors.New("payout: transfer outside of a ledger call")

// WebhookRequest is the JSON body POSTed for every payout
type WebhookRequest struct {
	To     string `json:"to"`
	Amount uint64 `json:"amount"`
	Seq    uint64 `json:"seq"`
}

// Webhook is a transferer that POSTs each payout to an HTTP endpoint and
// treats any 2xx response as success
type Webhook struct {
	url    string
	client *retryablehttp.Client
	logger *slog.Logger
}

type WebhookOption func(*webhookOptions)

type webhookOptions struct {
	logger       *slog.Logger
	httpClient   *http.Client
	timeout      time.Duration
	retryMax     int
	retryWaitMin time.Duration
	retryWaitMax time.Duration
}

// WithWebhookLogger specifies the logger object to use for logging messages
func WithWebhookLogger(logger *slog.Logger) WebhookOption {
	return func(o *webhookOptions) {
		o.logger = logger
	}
}

// WithWebhookHTTPClient sets the underlying HTTP client. Its timeout is
// left untouched
func WithWebhookHTTPClient(hc *http.Client) WebhookOption {
	return func(o *webhookOptions) {
		o.httpClient = hc
	}
}

// WithWebhookTimeout sets the timeout of a single attempt
func WithWebhookTimeout(timeout time.Duration) WebhookOption {
	return func(o *webhookOptions) {
		o.timeout = timeout
	}
}

// WithWebhookRetry sets how many times a failed delivery is retried and the
// bounds of the backoff between attempts
func WithWebhookRetry(retryMax int, waitMin, waitMax time.Duration) WebhookOption {
	return func(o *webhookOptions) {
		o.retryMax = retryMax
		o.retryWaitMin = waitMin
		o.retryWaitMax = waitMax
	}
}

// NewWebhook creates a webhook transferer for an http or https endpoint
func NewWebhook(endpoint string, opts ...WebhookOption) (*Webhook, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse webhook URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported webhook URL scheme: %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("webhook URL has no host")
	}
	o := webhookOptions{
		timeout:      DefaultWebhookTimeout,
		retryMax:     DefaultWebhookRetryMax,
		retryWaitMin: DefaultWebhookRetryWaitMin,
		retryWaitMax: DefaultWebhookRetryWaitMax,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		o.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	client := retryablehttp.NewClient()
	if o.httpClient != nil {
		client.HTTPClient = o.httpClient
	} else {
		client.HTTPClient.Timeout = o.timeout
	}
	client.RetryMax = o.retryMax
	client.RetryWaitMin = o.retryWaitMin
	client.RetryWaitMax = o.retryWaitMax
	client.Logger = o.logger.With("component", "payout")
	return &Webhook{
		url:    u.String(),
		client: client,
		logger: o.logger,
	}, nil
}

// Transfer delivers the payout. The sequence number of the executing call
// is the idempotency key, so retries of one delivery are safe
func (w *Webhook) Transfer(
	ctx context.Context,
	to ledger.Address,
	amount uint64,
) error {
	c, ok := ledger.FromContext(ctx)
	if !ok {
		return ErrNoCall
	}
	seq := c.Seq()
	body, err := json.Marshal(WebhookRequest{
		To:     to.String(),
		Amount: amount,
		Seq:    seq,
	})
	if err != nil {
		return fmt.Errorf("encode payout: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(
		ctx,
		http.MethodPost,
		w.url,
		bytes.NewReader(body),
	)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(IdempotencyHeader, strconv.FormatUint(seq, 10))
	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		bodyBytes, _ := io.ReadAll(
			io.LimitReader(resp.Body, 1024),
		)
		return fmt.Errorf(
			"unexpected status %d: %s",
			resp.StatusCode,
			string(bodyBytes),
		)
	}
	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
	w.logger.Debug(
		fmt.Sprintf("delivered payout of %d to %s", amount, to),
		"component", "payout",
		"seq", seq,
	)
	return nil
}
