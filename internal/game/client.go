package game

import (
	"context"
	"fmt"

	"dragontiger-bot-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// SurfaceInterface is the contract the engine has with the remote game
// surface: session lifecycle, observation, and bet execution.
type SurfaceInterface interface {
	// Acquire opens a table session. Failure is fatal to the caller.
	Acquire(ctx context.Context) error
	// Release closes the session. Safe to call after a failed Acquire.
	Release()
	GetTableState() (*TableState, error)
	GetBalance() (float64, error)
	// PlaceBet returns whether the table accepted the bet.
	PlaceBet(side Side, amount float64) (bool, error)
	// ResolveOutcome returns the raw result of the most recent round,
	// or ResultUnknown when the provider could not report one.
	ResolveOutcome() (RawResult, error)
}

// Client talks to a live-table provider's HTTP API.
// It implements SurfaceInterface.
type Client struct {
	client  *resty.Client
	cfg     *config.Game
	logger  *zap.Logger
	limiter *rate.Limiter
	session string
}

var _ SurfaceInterface = (*Client)(nil)

// NewClient creates a new table API client.
func NewClient(cfg *config.Game, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(cfg.BaseURL)

	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:  client,
		cfg:     cfg,
		logger:  logger,
		limiter: limiter,
	}
}

// doRequest executes a single request behind the rate limiter.
// Requests are not retried here: the engine re-enters its observation
// state on the next round, so retries are round-granular.
func (c *Client) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait failed: %w", err)
	}

	c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
	}
	return resp, nil
}

type sessionResponse struct {
	Token string `json:"token"`
}

// Acquire logs in and joins the configured table.
func (c *Client) Acquire(ctx context.Context) error {
	req := c.client.R().
		SetBody(map[string]string{
			"username": c.cfg.Username,
			"password": c.cfg.Password,
			"table_id": c.cfg.TableID,
		}).
		SetResult(&sessionResponse{})

	resp, err := c.doRequest(ctx, "POST", "/sessions", req)
	if err != nil {
		return fmt.Errorf("failed to acquire table session: %w", err)
	}

	c.session = resp.Result().(*sessionResponse).Token
	c.client.SetHeader("X-Session-Token", c.session)
	c.logger.Info("Table session acquired", zap.String("table_id", c.cfg.TableID))
	return nil
}

// Release closes the session. Errors are logged, not returned, because
// Release runs on every exit path.
func (c *Client) Release() {
	if c.session == "" {
		return
	}
	req := c.client.R()
	if _, err := c.doRequest(context.Background(), "DELETE", "/sessions/current", req); err != nil {
		c.logger.Warn("Failed to release table session", zap.Error(err))
	}
	c.session = ""
	c.logger.Info("Table session released")
}

// GetTableState fetches the current between-rounds table snapshot.
func (c *Client) GetTableState() (*TableState, error) {
	var state TableState
	req := c.client.R().
		SetResult(&state).
		SetHeader("Content-Type", "application/json")

	resp, err := c.doRequest(context.Background(), "GET", "/tables/"+c.cfg.TableID+"/state", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get table state: %w", err)
	}
	return resp.Result().(*TableState), nil
}

type balanceResponse struct {
	Balance float64 `json:"balance"`
}

// GetBalance fetches the player balance for the session.
func (c *Client) GetBalance() (float64, error) {
	req := c.client.R().
		SetResult(&balanceResponse{}).
		SetHeader("Content-Type", "application/json")

	resp, err := c.doRequest(context.Background(), "GET", "/account/balance", req)
	if err != nil {
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}
	return resp.Result().(*balanceResponse).Balance, nil
}

type betResponse struct {
	Accepted bool   `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

// PlaceBet stakes amount on side for the next round.
func (c *Client) PlaceBet(side Side, amount float64) (bool, error) {
	req := c.client.R().
		SetBody(map[string]interface{}{
			"side":   string(side),
			"amount": amount,
		}).
		SetResult(&betResponse{})

	resp, err := c.doRequest(context.Background(), "POST", "/tables/"+c.cfg.TableID+"/bets", req)
	if err != nil {
		return false, fmt.Errorf("failed to place bet: %w", err)
	}

	result := resp.Result().(*betResponse)
	if !result.Accepted {
		c.logger.Warn("Bet rejected by table",
			zap.String("side", string(side)),
			zap.Float64("amount", amount),
			zap.String("reason", result.Reason))
	}
	return result.Accepted, nil
}

type resultResponse struct {
	Result string `json:"result"`
}

// ResolveOutcome fetches the raw result of the latest settled round.
func (c *Client) ResolveOutcome() (RawResult, error) {
	req := c.client.R().
		SetResult(&resultResponse{}).
		SetHeader("Content-Type", "application/json")

	resp, err := c.doRequest(context.Background(), "GET", "/tables/"+c.cfg.TableID+"/rounds/latest", req)
	if err != nil {
		return ResultUnknown, fmt.Errorf("failed to resolve outcome: %w", err)
	}

	switch RawResult(resp.Result().(*resultResponse).Result) {
	case ResultDragon:
		return ResultDragon, nil
	case ResultTiger:
		return ResultTiger, nil
	case ResultTie:
		return ResultTie, nil
	default:
		return ResultUnknown, nil
	}
}
