// Package api implements the authenticated HTTP client for the collector.
// Every call is signed (see internal/auth) and classified into one of three
// outcomes: success, an APIError carrying the collector's response verbatim,
// or a TransportError for network-level failures. The client never retries on
// its own — delivery cadence and retry policy belong to the scheduler.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/frhanjav/vm-monitor/internal/auth"
	"github.com/frhanjav/vm-monitor/internal/monitor"
)

// requestTimeout bounds every call so the scheduler's loop can never stall
// indefinitely on a single request.
const requestTimeout = 30 * time.Second

// Client issues signed requests to the collector on behalf of one agent
// identity. Safe for sequential use by a single owner; it keeps no request
// state between calls.
type Client struct {
	baseURL    string
	instanceID string
	apiKey     string
	http       *retryablehttp.Client
	logger     *zap.Logger

	// now is the wall clock used for request timestamps; overridden in tests.
	now func() time.Time
}

// New creates a client for the given collector URL and agent identity.
// An empty credential is rejected immediately: without it no request can be
// signed, and the condition never resolves on its own.
func New(baseURL, instanceID, apiKey string, logger *zap.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, ErrNoCredential
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 0
	rc.Logger = nil
	rc.HTTPClient.Timeout = requestTimeout
	// Retry is the scheduler's job, on its own cadence. The default policy
	// would also treat 429/5xx responses as retryable and surface them as
	// bare errors; every response must instead reach the status
	// classification below with its body intact.
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		return false, err
	}

	return &Client{
		baseURL:    baseURL,
		instanceID: instanceID,
		apiKey:     apiKey,
		http:       rc,
		logger:     logger,
		now:        time.Now,
	}, nil
}

// RegistrationResponse is the collector's acknowledgment of a new agent.
type RegistrationResponse struct {
	Message string `json:"message"`
}

type registrationPayload struct {
	InstanceID    string `json:"instance_id"`
	InstanceName  string `json:"instance_name"`
	CloudProvider string `json:"cloud_provider"`
	AgentAPIKey   string `json:"agent_api_key"`
}

type metricsBatchPayload struct {
	Metrics []monitor.SystemMetrics `json:"metrics"`
}

type heartbeatPayload struct {
	InstanceID string `json:"instance_id"`
}

// Register enrolls this agent with the collector. The registration payload
// is the only request that carries the credential in its body — the
// collector stores it to verify all future signatures. Any failure here
// (transport or API) must abort initialization: configuration is only
// persisted for an identity the collector has acknowledged.
func (c *Client) Register(ctx context.Context, instanceName string, cloudProvider string) (*RegistrationResponse, error) {
	payload := registrationPayload{
		InstanceID:    c.instanceID,
		InstanceName:  instanceName,
		CloudProvider: cloudProvider,
		AgentAPIKey:   c.apiKey,
	}
	return call[RegistrationResponse](ctx, c, http.MethodPost, "/v1/agent/register", payload)
}

// SendMetricsBatch delivers a batch of snapshots.
func (c *Client) SendMetricsBatch(ctx context.Context, metrics []monitor.SystemMetrics) error {
	payload := metricsBatchPayload{Metrics: metrics}
	_, err := call[struct{}](ctx, c, http.MethodPost, "/v1/agent/metrics", payload)
	return err
}

// SendHeartbeat tells the collector this agent is alive. Carries no metrics.
func (c *Client) SendHeartbeat(ctx context.Context) error {
	payload := heartbeatPayload{InstanceID: c.instanceID}
	_, err := call[struct{}](ctx, c, http.MethodPost, "/v1/agent/heartbeat", payload)
	return err
}

// CheckStatus probes the collector's health endpoint. Used for diagnostics
// only; its failure is reported, never fatal.
func (c *Client) CheckStatus(ctx context.Context) error {
	_, err := call[struct{}](ctx, c, http.MethodGet, "/v1/health", nil)
	return err
}

// call issues one signed request and decodes the response as R. The body is
// serialized exactly once and that text is both sent and signed — the
// collector verifies the signature against the raw bytes it receives.
func call[R any](ctx context.Context, c *Client, method, path string, body any) (*R, error) {
	bodyText := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling request body: %w", err)
		}
		bodyText = string(data)
	}

	// Timestamp is wall-clock at send time, never the sample time.
	timestamp := c.now().Unix()
	signature := auth.Sign(c.apiKey, timestamp, method, path, bodyText)

	var payload io.Reader
	if bodyText != "" {
		payload = bytes.NewReader([]byte(bodyText))
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("X-Request-Timestamp", strconv.FormatInt(timestamp, 10))
	req.Header.Set("X-Request-Signature", signature)
	req.Header.Set("X-Instance-Id", c.instanceID)
	if bodyText != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug("Sending API request",
		zap.String("method", method),
		zap.String("path", path))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Warn("API request rejected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(respBody)))
		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}

	var result R
	if len(respBody) == 0 {
		// Success with an empty body is still a success.
		return &result, nil
	}
	if err := json.Unmarshal(respBody, &result); err != nil {
		// The raw body travels with the error for diagnostics.
		return nil, &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	return &result, nil
}
