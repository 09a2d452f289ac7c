// Package camunda connects to the Zeebe gateway and runs job workers on it.
package camunda

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"

	"travel-planner/internal/common/config"
	"travel-planner/internal/common/logger"
)

// Client wraps the Zeebe gRPC client.
type Client struct {
	client zbc.Client
	config *ClientConfig
}

type ClientConfig struct {
	GatewayAddress         string
	UsePlaintextConnection bool
	ConnectionTimeout      time.Duration
	RetryConfig            *RetryConfig
}

// RetryConfig controls how long startup keeps trying to reach the gateway.
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

var DefaultRetryConfig = &RetryConfig{
	MaxRetries: 10,
	BaseDelay:  2 * time.Second,
	MaxDelay:   30 * time.Second,
}

// ClientConfigFrom maps the camunda config section.
func ClientConfigFrom(cfg config.CamundaConfig) *ClientConfig {
	timeout := config.GetDuration(cfg.RequestTimeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ClientConfig{
		GatewayAddress:         cfg.BrokerAddress,
		UsePlaintextConnection: true,
		ConnectionTimeout:      timeout,
		RetryConfig:            DefaultRetryConfig,
	}
}

// Connect creates the Zeebe client and waits for a topology response,
// backing off between attempts on transient failures.
func Connect(ctx context.Context, cfg *ClientConfig, log logger.Logger) (*Client, error) {
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = DefaultRetryConfig
	}

	var lastErr error
	for attempt := 0; attempt <= cfg.RetryConfig.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(cfg.RetryConfig, attempt-1)
			log.Warn("zeebe connection failed, retrying", map[string]interface{}{
				"attempt":     attempt,
				"maxRetries":  cfg.RetryConfig.MaxRetries,
				"nextRetryIn": delay.String(),
				"error":       lastErr,
			})
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, fmt.Errorf("connect to zeebe at %s: %w", cfg.GatewayAddress, ctx.Err())
			}
		}

		c, err := dial(ctx, cfg)
		if err == nil {
			return c, nil
		}
		lastErr = err
		if !isRetryableZeebeError(err) {
			break
		}
	}
	return nil, fmt.Errorf("connect to zeebe at %s: %w", cfg.GatewayAddress, lastErr)
}

func dial(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	zeebeClient, err := zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         cfg.GatewayAddress,
		UsePlaintextConnection: cfg.UsePlaintextConnection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Zeebe client: %w", err)
	}

	topologyCtx, cancel := context.WithTimeout(ctx, cfg.ConnectionTimeout)
	defer cancel()
	if _, err := zeebeClient.NewTopologyCommand().Send(topologyCtx); err != nil {
		_ = zeebeClient.Close()
		return nil, fmt.Errorf("topology request failed: %w", err)
	}

	return &Client{client: zeebeClient, config: cfg}, nil
}

func backoffDelay(rc *RetryConfig, attempt int) time.Duration {
	delay := rc.BaseDelay * time.Duration(1<<attempt)
	if delay <= 0 || delay > rc.MaxDelay {
		delay = rc.MaxDelay
	}
	return delay
}

func isRetryableZeebeError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, phrase := range []string{
		"connection refused",
		"connection reset",
		"timeout",
		"deadline exceeded",
		"unavailable",
		"unreachable",
		"broken pipe",
	} {
		if strings.Contains(msg, phrase) {
			return true
		}
	}
	return false
}

// GetClient returns the raw Zeebe client.
func (c *Client) GetClient() zbc.Client {
	return c.client
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.config.ConnectionTimeout)
	defer cancel()

	if _, err := c.client.NewTopologyCommand().Send(ctx); err != nil {
		return fmt.Errorf("zeebe health check failed: %w", err)
	}
	return nil
}
