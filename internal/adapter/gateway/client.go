package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"payment-reconciler/config"
	"payment-reconciler/internal/core/domain"
	"payment-reconciler/internal/core/ports"
	"payment-reconciler/pkg/metrics"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

const maxResponseBytes = 1 << 20

var (
	ErrTransactionNotFound = errors.New("transaction not found at gateway")
	ErrEmptyTransaction    = errors.New("gateway response carries no transaction")
)

// StatusError is a non-success HTTP answer from the gateway.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway returned HTTP %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.GatewayClient against the Wompi REST API.
type Client struct {
	cfg   config.GatewayConfig
	http  HTTPClient
	cache ports.GatewayCache
	group singleflight.Group
	log   zerolog.Logger
}

// NewClient builds a gateway client. Each attempt is bounded by cfg.Timeout.
// A nil cache disables caching.
func NewClient(cfg config.GatewayConfig, httpClient HTTPClient, cache ports.GatewayCache, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		cfg:   cfg,
		http:  httpClient,
		cache: cache,
		log:   log,
	}
}

type fetchResult struct {
	tx  *domain.Transaction
	raw []byte
}

// GetTransaction returns the gateway's current view of a transaction.
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*domain.Transaction, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, errors.New("gateway: empty transaction id")
	}
	start := time.Now()

	if tx := c.cached(ctx, transactionID); tx != nil {
		metrics.RecordGatewayRequest("cached", time.Since(start))
		return tx, nil
	}

	// The shared fetch outlives any single caller; each caller only stops waiting.
	ch := c.group.DoChan(transactionID, func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)
		res, err := c.fetch(fetchCtx, transactionID)
		if err != nil {
			return nil, err
		}
		c.store(fetchCtx, transactionID, res)
		return res, nil
	})

	var r singleflight.Result
	select {
	case <-ctx.Done():
		metrics.RecordGatewayRequest("error", time.Since(start))
		return nil, fmt.Errorf("waiting for transaction %s: %w", transactionID, ctx.Err())
	case r = <-ch:
	}
	if r.Err != nil {
		metrics.RecordGatewayRequest("error", time.Since(start))
		return nil, r.Err
	}
	metrics.RecordGatewayRequest("ok", time.Since(start))

	tx := *r.Val.(*fetchResult).tx
	return &tx, nil
}

func (c *Client) cached(ctx context.Context, transactionID string) *domain.Transaction {
	if c.cache == nil || c.cfg.CacheTTL <= 0 {
		return nil
	}
	payload, err := c.cache.Get(ctx, transactionID)
	if err != nil {
		c.log.Warn().Err(err).Str("transaction_id", transactionID).Msg("gateway cache read failed")
		return nil
	}
	if payload == nil {
		return nil
	}
	tx, err := ParseTransaction(payload)
	if err != nil {
		c.log.Warn().Err(err).Str("transaction_id", transactionID).Msg("discarding unreadable cached gateway response")
		return nil
	}
	return tx
}

func (c *Client) store(ctx context.Context, transactionID string, res *fetchResult) {
	if c.cache == nil || c.cfg.CacheTTL <= 0 || !res.tx.Status.IsFinal() {
		return
	}
	if err := c.cache.Set(ctx, transactionID, res.raw, c.cfg.CacheTTL); err != nil {
		c.log.Warn().Err(err).Str("transaction_id", transactionID).Msg("gateway cache write failed")
	}
}

func (c *Client) fetch(ctx context.Context, transactionID string) (*fetchResult, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/transactions/" + url.PathEscape(transactionID)

	eb := backoff.NewExponentialBackOff()
	if c.cfg.InitialBackoff > 0 {
		eb.InitialInterval = c.cfg.InitialBackoff
	}
	if c.cfg.MaxBackoff > 0 {
		eb.MaxInterval = c.cfg.MaxBackoff
	}
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, c.cfg.MaxRetries), ctx)

	attempt := 0
	op := func() (*fetchResult, error) {
		attempt++
		res, err := c.attempt(ctx, endpoint)
		if err == nil {
			return res, nil
		}
		var se *StatusError
		if errors.Is(err, ErrTransactionNotFound) || errors.Is(err, ErrEmptyTransaction) ||
			(errors.As(err, &se) && !se.Retryable()) {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}
	notify := func(err error, wait time.Duration) {
		c.log.Warn().
			Err(err).
			Str("transaction_id", transactionID).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("gateway request failed, retrying")
	}

	res, err := backoff.RetryNotifyWithData(op, policy, notify)
	if err != nil {
		return nil, fmt.Errorf("fetching transaction %s: %w", transactionID, err)
	}
	return res, nil
}

func (c *Client) attempt(ctx context.Context, endpoint string) (*fetchResult, error) {
	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("building gateway request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading gateway response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrTransactionNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	}

	tx, err := ParseTransaction(body)
	if err != nil {
		return nil, err
	}
	return &fetchResult{tx: tx, raw: body}, nil
}

// ParseTransaction reads a gateway response body. The transaction sits under
// data.transaction or directly under data.
func ParseTransaction(body []byte) (*domain.Transaction, error) {
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("decoding gateway response: %w", err)
	}
	if len(envelope.Data) == 0 || string(envelope.Data) == "null" {
		return nil, ErrEmptyTransaction
	}

	var nested struct {
		Transaction *domain.Transaction `json:"transaction"`
	}
	if err := json.Unmarshal(envelope.Data, &nested); err != nil {
		return nil, fmt.Errorf("decoding gateway data: %w", err)
	}
	tx := nested.Transaction
	if tx == nil {
		tx = &domain.Transaction{}
		if err := json.Unmarshal(envelope.Data, tx); err != nil {
			return nil, fmt.Errorf("decoding gateway transaction: %w", err)
		}
	}
	if tx.ID == "" {
		return nil, ErrEmptyTransaction
	}
	return tx, nil
}
