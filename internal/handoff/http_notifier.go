package handoff

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/heimdex/reelquiz/internal/logging"
)

const RequestIDHeader = "X-Reelquiz-Request-Id"

// HandoffError is a non-2xx answer from the handoff endpoint.
type HandoffError struct {
	StatusCode int
	Body       string
}

func (e *HandoffError) Error() string {
	return fmt.Sprintf("handoff failed: HTTP %d: %s", e.StatusCode, e.Body)
}

// IsRetryable returns true for server errors (5xx).
// Client errors (4xx) are considered permanent.
func (e *HandoffError) IsRetryable() bool {
	return e.StatusCode >= 500
}

// HTTPNotifier POSTs the completion as JSON to a fixed URL.
type HTTPNotifier struct {
	url        string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPNotifier(url, token string, timeout time.Duration, logger *slog.Logger) *HTTPNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPNotifier{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (n *HTTPNotifier) NotifyComplete(ctx context.Context, c Completion) error {
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal completion: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if n.token != "" {
		req.Header.Set("Authorization", "Bearer "+n.token)
	}

	n.logger.Info("sending handoff",
		"url", n.url,
		"request_id", requestID,
		"session_id", c.SessionID,
		"token", logging.SanitizeToken(n.token),
	)

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		n.logger.Info("handoff accepted", "request_id", requestID, "status", resp.StatusCode)
		return nil
	}

	return &HandoffError{StatusCode: resp.StatusCode, Body: string(respBody)}
}
