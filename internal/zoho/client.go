// Package zoho pushes clients to Zoho CRM and paid invoices to Zoho Books.
// A nil *Client is valid and turns every call into a no-op, so callers
// never need to guard on whether Zoho is configured.
package zoho

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"deskhub_backend/platform/config"
	"deskhub_backend/platform/logger"
)

type Client struct {
	cfg  config.ZohoConfig
	http *http.Client
	log  *logger.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

// NewClient returns nil when Zoho credentials are not configured.
func NewClient(cfg config.ZohoConfig, log *logger.Logger) *Client {
	if !cfg.IsZohoEnabled() {
		return nil
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 15 * time.Second},
		log:  log,
	}
}

// Contact is the subset of a client record pushed to Zoho CRM.
type Contact struct {
	Name    string
	Email   string
	Phone   string
	Company string
}

// InvoiceLine is one invoice item pushed to Zoho Books.
type InvoiceLine struct {
	Description string
	Quantity    string
	Rate        string
}

// Invoice is the subset of an invoice record pushed to Zoho Books.
type Invoice struct {
	Number      string
	ClientName  string
	ClientEmail string
	Total       string
	PaidDate    string
	Lines       []InvoiceLine
}

// SyncContact upserts a contact in Zoho CRM, keyed on email.
func (c *Client) SyncContact(ctx context.Context, contact Contact) error {
	if c == nil {
		return nil
	}

	nameParts := strings.SplitN(strings.TrimSpace(contact.Name), " ", 2)
	firstName := nameParts[0]
	lastName := firstName
	if len(nameParts) == 2 {
		lastName = nameParts[1]
	}

	payload := map[string]any{
		"data": []map[string]any{{
			"First_Name":   firstName,
			"Last_Name":    lastName,
			"Email":        contact.Email,
			"Phone":        contact.Phone,
			"Account_Name": contact.Company,
		}},
		"duplicate_check_fields": []string{"Email"},
	}

	if err := c.post(ctx, c.cfg.GetZohoCRMURL()+"/crm/v2/Contacts/upsert", payload); err != nil {
		return fmt.Errorf("zoho crm contact upsert: %w", err)
	}

	c.log.Info("zoho contact synced", "email", contact.Email)
	return nil
}

// SyncInvoice records a paid invoice in Zoho Books and returns the Books
// invoice ID.
func (c *Client) SyncInvoice(ctx context.Context, invoice Invoice) (string, error) {
	if c == nil {
		return "", nil
	}

	lines := make([]map[string]any, len(invoice.Lines))
	for i, line := range invoice.Lines {
		lines[i] = map[string]any{
			"description": line.Description,
			"quantity":    line.Quantity,
			"rate":        line.Rate,
		}
	}

	payload := map[string]any{
		"reference_number": invoice.Number,
		"customer_name":    invoice.ClientName,
		"email":            invoice.ClientEmail,
		"total":            invoice.Total,
		"date":             invoice.PaidDate,
		"line_items":       lines,
	}

	endpoint := fmt.Sprintf("%s/books/v3/invoices?organization_id=%s",
		strings.TrimRight(c.cfg.GetZohoBooksURL(), "/"),
		url.QueryEscape(c.cfg.GetZohoOrganizationID()),
	)

	var result struct {
		Invoice struct {
			InvoiceID string `json:"invoice_id"`
		} `json:"invoice"`
	}
	if err := c.postDecode(ctx, endpoint, payload, &result); err != nil {
		return "", fmt.Errorf("zoho books invoice: %w", err)
	}

	c.log.Info("zoho invoice synced", "number", invoice.Number, "booksId", result.Invoice.InvoiceID)
	return result.Invoice.InvoiceID, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any) error {
	return c.postDecode(ctx, endpoint, payload, nil)
}

func (c *Client) postDecode(ctx context.Context, endpoint string, payload, out any) error {
	token, err := c.token(ctx)
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal zoho payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("zoho request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("zoho returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode zoho response: %w", err)
	}
	return nil
}

// token returns a cached access token, refreshing it via the OAuth
// refresh-token grant when missing or within a minute of expiry.
func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Until(c.expiresAt) > time.Minute {
		return c.accessToken, nil
	}

	params := url.Values{}
	params.Set("grant_type", "refresh_token")
	params.Set("refresh_token", c.cfg.GetZohoRefreshToken())
	params.Set("client_id", c.cfg.GetZohoClientID())
	params.Set("client_secret", c.cfg.GetZohoClientSecret())

	endpoint := strings.TrimRight(c.cfg.GetZohoAccountsURL(), "/") + "/oauth/v2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(params.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("zoho token refresh failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("zoho token endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var token struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("decode zoho token: %w", err)
	}
	if token.AccessToken == "" {
		return "", fmt.Errorf("zoho token endpoint returned an empty access token")
	}

	c.accessToken = token.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	return c.accessToken, nil
}
