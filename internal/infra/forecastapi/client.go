package forecastapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/yanqian/route-forecast/internal/domain/forecast"
)

// Client is a forecast.Gateway backed by another instance's forecast endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     *slog.Logger
}

// NewClient builds the remote gateway client.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "forecast-api",
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
		}),
		logger: logger.With("component", "forecastapi.client"),
	}
}

// FetchForecast implements forecast.Gateway.
func (c *Client) FetchForecast(ctx context.Context, city string, days int) ([]forecast.DaySummary, error) {
	endpoint := fmt.Sprintf("%s/api/v1/forecasts/%s?days=%s", c.baseURL, url.PathEscape(city), strconv.Itoa(days))

	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("build forecast request: %w", err)
		}
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return nil, fmt.Errorf("read forecast response: %w", err)
		}
		switch {
		case resp.StatusCode == http.StatusServiceUnavailable, resp.StatusCode == http.StatusTooManyRequests:
			return nil, fmt.Errorf("%w: status=%d", forecast.ErrServiceUnavailable, resp.StatusCode)
		case resp.StatusCode >= http.StatusInternalServerError && resp.StatusCode != http.StatusGatewayTimeout:
			// still a breaker failure, but the upstream answered
			return nil, fmt.Errorf("%w: status=%d reason=%s", forecast.ErrTransport, resp.StatusCode, reason(body))
		}
		return response{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		return nil, classify(ctx, err)
	}

	resp := result.(response)
	switch resp.status {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %q", forecast.ErrCityNotFound, city)
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: %s", forecast.ErrInvalidRequest, reason(resp.body))
	case http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: upstream timed out", forecast.ErrTimeout)
	default:
		return nil, fmt.Errorf("%w: status=%d reason=%s", forecast.ErrTransport, resp.status, reason(resp.body))
	}

	var out []forecast.DaySummary
	if err := json.Unmarshal(resp.body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode forecast response: %v", forecast.ErrTransport, err)
	}
	c.logger.Debug("remote forecast fetched", "city", city, "days", len(out))
	return out, nil
}

type response struct {
	status int
	body   []byte
}

// reason extracts the message from the API error envelope.
func reason(body []byte) string {
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(body))
}

func classify(ctx context.Context, err error) error {
	var netErr net.Error
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: %v", forecast.ErrServiceUnavailable, err)
	case errors.Is(err, forecast.ErrServiceUnavailable), errors.Is(err, forecast.ErrTransport):
		return err
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return fmt.Errorf("%w: %v", forecast.ErrTimeout, err)
	case errors.As(err, &netErr) && netErr.Timeout():
		return fmt.Errorf("%w: %v", forecast.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %v", forecast.ErrTransport, err)
	}
}

var _ forecast.Gateway = (*Client)(nil)
