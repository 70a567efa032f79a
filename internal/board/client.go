// Package board mirrors tickets onto a Trello board. A nil *Client is
// valid and turns every call into a no-op, so callers never need to guard
// on whether Trello is configured.
package board

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"deskhub_backend/platform/config"
	"deskhub_backend/platform/logger"
)

const trelloBaseURL = "https://api.trello.com/1"

type Client struct {
	key     string
	token   string
	cfg     config.TrelloConfig
	baseURL string
	http    *http.Client
	log     *logger.Logger
}

// NewClient returns nil when Trello credentials are not configured.
func NewClient(cfg config.TrelloConfig, log *logger.Logger) *Client {
	if !cfg.IsTrelloEnabled() {
		return nil
	}

	return &Client{
		key:     cfg.GetTrelloKey(),
		token:   cfg.GetTrelloToken(),
		cfg:     cfg,
		baseURL: trelloBaseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		log:     log,
	}
}

// ListIDForStatus resolves the configured Trello list for a ticket status.
func (c *Client) ListIDForStatus(status string) string {
	if c == nil {
		return ""
	}
	return c.cfg.GetTrelloListID(status)
}

// CreateCard creates a card on the given list and returns its Trello ID.
func (c *Client) CreateCard(ctx context.Context, listID, name, description string) (string, error) {
	if c == nil || listID == "" {
		return "", nil
	}

	params := url.Values{}
	params.Set("idList", listID)
	params.Set("name", name)
	params.Set("desc", description)

	var card struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/cards", params, &card); err != nil {
		return "", err
	}

	c.log.Info("trello card created", "cardId", card.ID, "list", listID)
	return card.ID, nil
}

// MoveCard moves an existing card to the given list.
func (c *Client) MoveCard(ctx context.Context, cardID, listID string) error {
	if c == nil || cardID == "" || listID == "" {
		return nil
	}

	params := url.Values{}
	params.Set("idList", listID)

	if err := c.do(ctx, http.MethodPut, "/cards/"+url.PathEscape(cardID), params, nil); err != nil {
		return err
	}

	c.log.Info("trello card moved", "cardId", cardID, "list", listID)
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, out any) error {
	params.Set("key", c.key)
	params.Set("token", c.token)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("trello request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("trello returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode trello response: %w", err)
	}
	return nil
}
