// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package admin

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/rpc/v2/json2"
	"go.uber.org/zap"

	"github.com/luxfi/duorpc"
)

const (
	maxRetries    = 3
	retryBaseWait = 500 * time.Millisecond
)

// Options are per-call HTTP settings.
type Options struct {
	headers     http.Header
	queryParams url.Values
}

type Option func(*Options)

func NewOptions(ops []Option) *Options {
	o := &Options{
		headers:     http.Header{},
		queryParams: url.Values{},
	}
	for _, op := range ops {
		op(o)
	}
	return o
}

func WithHeader(key, val string) Option {
	return func(o *Options) { o.headers.Set(key, val) }
}

func WithQueryParam(key, val string) Option {
	return func(o *Options) { o.queryParams.Set(key, val) }
}

// newHTTPClient creates a fresh HTTP client with disabled connection reuse.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			DisableKeepAlives: true,
		},
	}
}

// CleanlyCloseBody drains and closes an HTTP response body so the
// connection is not torn down with unread data.
func CleanlyCloseBody(body io.ReadCloser) error {
	if body == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, body)
	return body.Close()
}

// isRetryableError checks if an error is transient and worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	if errors.Is(err, io.EOF) || strings.Contains(errStr, "EOF") {
		return true
	}
	return strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "broken pipe")
}

// SendJSONRequest posts one JSON-RPC 2.0 call, retrying transient transport
// errors with exponential backoff.
func SendJSONRequest(
	ctx context.Context,
	uri *url.URL,
	method string,
	params interface{},
	reply interface{},
	log *zap.Logger,
	options ...Option,
) error {
	requestBodyBytes, err := json2.EncodeClientRequest(method, params)
	if err != nil {
		return fmt.Errorf("failed to encode client params: %w", err)
	}

	ops := NewOptions(options)
	target := *uri
	target.RawQuery = ops.queryParams.Encode()

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			waitTime := retryBaseWait * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(waitTime):
			}
		}

		// The body buffer is consumed by each attempt.
		request, err := http.NewRequestWithContext(
			ctx,
			http.MethodPost,
			target.String(),
			bytes.NewBuffer(requestBodyBytes),
		)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}

		request.Header = ops.headers.Clone()
		request.Header.Set("Content-Type", "application/json")

		resp, err := newHTTPClient().Do(request)
		if err != nil {
			lastErr = err
			log.Debug("admin request attempt failed",
				zap.String("method", method),
				zap.Int("attempt", attempt+1),
				zap.Bool("retryable", isRetryableError(err)),
				zap.Error(err),
			)
			if isRetryableError(err) {
				continue
			}
			return fmt.Errorf("failed to issue request: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			_ = CleanlyCloseBody(resp.Body)
			return fmt.Errorf("received status code: %d", resp.StatusCode)
		}

		if err := json2.DecodeClientResponse(resp.Body, reply); err != nil {
			_ = CleanlyCloseBody(resp.Body)
			return fmt.Errorf("failed to decode client response: %w", err)
		}
		_ = CleanlyCloseBody(resp.Body)
		return nil
	}

	return fmt.Errorf("failed to issue request after %d retries: %w", maxRetries, lastErr)
}

// Client calls the admin API of one node.
type Client struct {
	uri *url.URL
	log *zap.Logger
}

// NewClient accepts a base URL such as "http://127.0.0.1:7302"; the RPC
// path is appended when missing.
func NewClient(endpoint string, log *zap.Logger) (*Client, error) {
	uri, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("admin endpoint %q: %w", endpoint, err)
	}
	if uri.Scheme == "" || uri.Host == "" {
		return nil, fmt.Errorf("admin endpoint %q: scheme and host required", endpoint)
	}
	if !strings.HasSuffix(uri.Path, RPCPath) {
		uri.Path = strings.TrimSuffix(uri.Path, "/") + RPCPath
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{uri: uri, log: log}, nil
}

func (c *Client) Procedures(ctx context.Context, opts ...Option) ([]duorpc.ProcedureInfo, error) {
	var reply ProceduresReply
	err := SendJSONRequest(ctx, c.uri, "Dispatcher.Procedures", &NoArgs{}, &reply, c.log, opts...)
	return reply.Procedures, err
}

func (c *Client) Pending(ctx context.Context, opts ...Option) ([]duorpc.PendingInfo, error) {
	var reply PendingReply
	err := SendJSONRequest(ctx, c.uri, "Dispatcher.Pending", &NoArgs{}, &reply, c.log, opts...)
	return reply.Pending, err
}

func (c *Client) Stats(ctx context.Context, opts ...Option) (duorpc.Stats, error) {
	var reply StatsReply
	err := SendJSONRequest(ctx, c.uri, "Dispatcher.Stats", &NoArgs{}, &reply, c.log, opts...)
	return reply.Stats, err
}

func (c *Client) Sessions(ctx context.Context, opts ...Option) ([]duorpc.SessionInfo, error) {
	var reply SessionsReply
	err := SendJSONRequest(ctx, c.uri, "HighSpeed.Sessions", &NoArgs{}, &reply, c.log, opts...)
	return reply.Sessions, err
}
