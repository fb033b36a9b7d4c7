// Package ledger talks JSON-over-HTTP to the session ledger service that
// owns paper sessions, their balances and order history.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/paperledger/internal/entity"
)

const requestTimeout = 10 * time.Second

// Client is a thin wrapper over the ledger service REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: requestTimeout},
	}
}

// envelope is the common response wrapper of the ledger service.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// ListRunningSessions fetches running paper sessions with manager-role
// visibility, so all users' sessions are returned.
func (c *Client) ListRunningSessions(ctx context.Context, page, limit int) ([]entity.Session, error) {
	endpoint := fmt.Sprintf("/api/v1/execute/paper-sessions?status=running&role=1&page=%d&limit=%d", page, limit)
	env, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "list running sessions")
	}
	if len(env.Data) == 0 {
		return nil, nil
	}

	var raw []map[string]any
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return nil, errors.Wrap(err, "decode sessions")
	}

	sessions := make([]entity.Session, 0, len(raw))
	for _, item := range raw {
		key := firstString(item, sessionKeyAliases)
		if key == "" {
			continue
		}
		exchange := strings.ToLower(firstString(item, exchangeAliases))
		if exchange == "" {
			exchange = "binance"
		}
		sessions = append(sessions, entity.Session{Key: key, Exchange: exchange})
	}
	return sessions, nil
}

// FetchBalances returns the session's per-asset balance rows.
// An unsuccessful response yields an empty map, not an error: a session
// without balances is nothing to reconcile.
func (c *Client) FetchBalances(ctx context.Context, sessionKey string) (entity.Balances, error) {
	endpoint := "/api/v1/execute/paper/balances?session_key=" + url.QueryEscape(sessionKey)
	env, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch balances for %s", sessionKey)
	}
	if !env.Success || len(env.Data) == 0 {
		return entity.Balances{}, nil
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		return nil, errors.Wrapf(err, "decode balances for %s", sessionKey)
	}

	balances := make(entity.Balances, len(raw))
	for asset, fields := range raw {
		row := &entity.BalanceRow{
			Asset:     asset,
			Available: firstFloat(fields, []string{"available"}),
			Locked:    firstFloat(fields, []string{"locked"}),
		}
		if _, ok := fields["total"]; ok {
			row.Total = firstFloat(fields, []string{"total"})
		} else {
			row.Total = row.Available
		}
		balances[asset] = row
	}
	return balances, nil
}

// FetchOrders returns the session's historical paper orders, normalized via
// the field alias tables. The payload may be a bare list or {items: [...]}.
func (c *Client) FetchOrders(ctx context.Context, sessionKey string, page, limit int) ([]entity.Order, error) {
	endpoint := fmt.Sprintf("/api/v1/execute/paper-orders?session_key=%s&page=%d&limit=%d",
		url.QueryEscape(sessionKey), page, limit)
	env, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch orders for %s", sessionKey)
	}
	if !env.Success || len(env.Data) == 0 {
		return nil, nil
	}

	var raw []map[string]any
	if err := json.Unmarshal(env.Data, &raw); err != nil {
		var paged struct {
			Items []map[string]any `json:"items"`
		}
		if err := json.Unmarshal(env.Data, &paged); err != nil {
			return nil, errors.Wrapf(err, "decode orders for %s", sessionKey)
		}
		raw = paged.Items
	}

	orders := make([]entity.Order, 0, len(raw))
	for _, item := range raw {
		orders = append(orders, normalizeOrder(item))
	}
	return orders, nil
}

type updateBalanceRequest struct {
	SessionKey         string  `json:"session_key"`
	CurrentBalance     float64 `json:"current_balance"`
	CurrentTokensValue string  `json:"current_tokens_value"`
}

// UpdateBalance publishes the session's net balance together with the raw
// per-token valuation snapshot. The write is idempotent per session key.
func (c *Client) UpdateBalance(ctx context.Context, sessionKey string, netBalance float64, tokensValueJSON string) error {
	payload, err := json.Marshal(updateBalanceRequest{
		SessionKey:         sessionKey,
		CurrentBalance:     netBalance,
		CurrentTokensValue: tokensValueJSON,
	})
	if err != nil {
		return errors.Wrap(err, "marshal update-balance payload")
	}

	env, err := c.post(ctx, "/api/v1/execute/paper/update-balance", payload)
	if err != nil {
		return errors.Wrapf(err, "update balance for %s", sessionKey)
	}
	if !env.Success {
		return errors.Errorf("ledger rejected balance update for %s", sessionKey)
	}
	return nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*envelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("ledger returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, errors.Wrap(err, "decode response envelope")
	}
	return &env, nil
}
