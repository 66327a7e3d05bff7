// Package rest talks to a hosted PostgREST-style backend that owns the
// devices, sensor_readings and device_alerts tables.
package rest

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
	"strings"
	"time"

	devicedomain "github.com/micro-ha/iot-dashboard/internal/domain/device"
)

const (
	defaultTimeout = 10 * time.Second

	foreignKeyViolation = "23503"
)

// Client is a minimal REST client for the hosted table API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient builds a client for baseURL. apiKey is sent both as apikey and bearer token.
func NewClient(baseURL, apiKey string, logger *slog.Logger) (*Client, error) {
	baseURL = strings.TrimSuffix(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(apiKey),
		http:    &http.Client{Timeout: defaultTimeout},
		logger:  logger,
	}, nil
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusError is returned for non-2xx responses.
type statusError struct {
	op     string
	status int
	body   apiError
}

func (e *statusError) Error() string {
	if e.body.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.op, e.status, e.body.Message)
	}
	return fmt.Sprintf("%s: status %d", e.op, e.status)
}

func (c *Client) do(
	ctx context.Context,
	op string,
	method string,
	table string,
	query url.Values,
	body any,
	prefer string,
	out any,
) error {
	endpoint := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w: %w", op, devicedomain.ErrQuery, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, devicedomain.ErrQuery, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", op, devicedomain.ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		statusErr := &statusError{op: op, status: resp.StatusCode}
		_ = json.Unmarshal(raw, &statusErr.body)
		if statusErr.body.Message == "" {
			statusErr.body.Message = strings.TrimSpace(string(raw))
		}
		c.logger.Debug("backend request failed", "op", op, "status", resp.StatusCode, "code", statusErr.body.Code)
		if resp.StatusCode >= 500 {
			return fmt.Errorf("%w: %w", devicedomain.ErrBackendUnavailable, statusErr)
		}
		return fmt.Errorf("%w: %w", devicedomain.ErrQuery, statusErr)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: decode response: %w: %w", op, devicedomain.ErrQuery, err)
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var statusErr *statusError
	if !errors.As(err, &statusErr) {
		return false
	}
	return statusErr.status == http.StatusConflict && statusErr.body.Code == foreignKeyViolation
}

func eq(value string) string {
	return "eq." + value
}

func limitParam(limit int) string {
	if limit <= 0 {
		limit = 1
	}
	return strconv.Itoa(limit)
}
