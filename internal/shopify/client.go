package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shoplytics/shoplytics/internal/webhooks"
)

// APIVersion is the pinned Admin REST API version.
const APIVersion = "2024-10"

// Client pages entities from the Shopify Admin REST API for one store. Page
// shapes intentionally match the webhook payloads so reconciliation and
// ingestion share one conversion path.
type Client struct {
	shop    string
	token   string
	version string
	http    *http.Client
}

// NewClient constructs a Client for the shop using its access token.
func NewClient(shop, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{shop: shop, token: token, version: APIVersion, http: httpClient}
}

// Customers returns one page of customers with external id greater than sinceID.
func (c *Client) Customers(ctx context.Context, sinceID int64, limit int) ([]webhooks.CustomerPayload, error) {
	var page struct {
		Customers []webhooks.CustomerPayload `json:"customers"`
	}
	if err := c.get(ctx, "customers", sinceID, limit, &page); err != nil {
		return nil, err
	}
	return page.Customers, nil
}

// Products returns one page of products with their variants.
func (c *Client) Products(ctx context.Context, sinceID int64, limit int) ([]webhooks.ProductPayload, error) {
	var page struct {
		Products []webhooks.ProductPayload `json:"products"`
	}
	if err := c.get(ctx, "products", sinceID, limit, &page); err != nil {
		return nil, err
	}
	return page.Products, nil
}

// Orders returns one page of orders, any status.
func (c *Client) Orders(ctx context.Context, sinceID int64, limit int) ([]webhooks.OrderPayload, error) {
	var page struct {
		Orders []webhooks.OrderPayload `json:"orders"`
	}
	if err := c.get(ctx, "orders", sinceID, limit, &page, "status", "any"); err != nil {
		return nil, err
	}
	return page.Orders, nil
}

func (c *Client) get(ctx context.Context, resource string, sinceID int64, limit int, target any, extra ...string) error {
	if limit <= 0 || limit > 250 {
		limit = 250
	}
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/%s.json?limit=%d&since_id=%d", c.shop, c.version, resource, limit, sinceID)
	for i := 0; i+1 < len(extra); i += 2 {
		endpoint += "&" + extra[i] + "=" + extra[i+1]
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("shopify %s page: %w", resource, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("shopify %s page status %d: %s", resource, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("decode %s page: %w", resource, err)
	}
	return nil
}
