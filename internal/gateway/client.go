package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// MetricsRecorder observes command outcomes. *metrics.Metrics satisfies it;
// a nil recorder disables instrumentation.
type MetricsRecorder interface {
	RecordGatewayCommand(action string, duration time.Duration)
	RecordGatewayError(action, kind string)
}

// Client sends one JSON command per HTTP exchange against the videoserver
// control endpoint. Routing is purely request/response: the transaction id
// is carried for tracing only. Nothing at this layer is retried.
type Client struct {
	httpClient *http.Client
	metrics    MetricsRecorder
	log        *zap.Logger
}

// NewClient creates a gateway protocol client
func NewClient(timeout time.Duration, metrics MetricsRecorder, log *zap.Logger) *Client {
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		metrics:    metrics,
		log:        log,
	}
}

// Send posts a command to url and decodes the typed response. A network or
// non-2xx failure wraps ErrTransport, an undecodable body wraps ErrProtocol.
// Success-sentinel checking is per command and left to the caller.
func (c *Client) Send(ctx context.Context, url string, req *Request) (*Response, error) {
	start := time.Now()
	resp, err := c.exchange(ctx, url, req)
	if c.metrics != nil {
		c.metrics.RecordGatewayCommand(req.Janus, time.Since(start))
		if err != nil {
			c.metrics.RecordGatewayError(req.Janus, errorKind(err))
		}
	}
	return resp, err
}

func (c *Client) exchange(ctx context.Context, url string, req *Request) (*Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("%w, cannot marshal %s command: %v", ErrProtocol, req.Janus, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w, cannot build %s request: %v", ErrTransport, req.Janus, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	c.log.Debug("videoserver command",
		zap.String("action", req.Janus),
		zap.String("transaction", req.Transaction),
		zap.String("url", url),
	)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w, %s request failed: %v", ErrTransport, req.Janus, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w, cannot read %s response: %v", ErrTransport, req.Janus, err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, fmt.Errorf("%w, %s returned HTTP %d", ErrTransport, req.Janus, httpResp.StatusCode)
	}

	var resp Response
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	if err := decoder.Decode(&resp); err != nil {
		return nil, fmt.Errorf("%w, cannot unmarshal %s response: %v", ErrProtocol, req.Janus, err)
	}
	if resp.Janus == "" {
		return nil, fmt.Errorf("%w, %s response has no status", ErrProtocol, req.Janus)
	}

	return &resp, nil
}

// errorKind labels a command failure for the error counter.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrRejected):
		return "rejected"
	case errors.Is(err, ErrProtocol):
		return "protocol"
	case errors.Is(err, ErrTransport):
		return "transport"
	}
	return "unknown"
}
