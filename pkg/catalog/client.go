package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
)

// Client talks to the product catalog service the cart subsystem consumes.
type Client struct {
	config     Config
	httpClient *http.Client
}

// NewClient creates a new catalog client with the given configuration
func NewClient(config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	httpClient := &http.Client{
		Timeout: config.Timeout,
	}

	return &Client{
		config:     config,
		httpClient: httpClient,
	}, nil
}

// GetProduct fetches product metadata. An unknown product is (nil, nil);
// the caller translates that into its own not-found error kind.
func (c *Client) GetProduct(ctx context.Context, productID string) (*ProductInfo, error) {
	endpoint := fmt.Sprintf("products/%s", url.PathEscape(productID))

	body, status, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch product: %w", err)
	}
	if status == http.StatusNotFound {
		return nil, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, status)
	}

	var product ProductInfo
	if err := json.Unmarshal(body, &product); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product response: %w", err)
	}
	return &product, nil
}

// CheckInventory asks the catalog whether the requested quantity can be
// served.
func (c *Client) CheckInventory(ctx context.Context, productID string, quantity int) (*InventoryStatus, error) {
	endpoint := fmt.Sprintf("products/%s/inventory?quantity=%s",
		url.PathEscape(productID), strconv.Itoa(quantity))

	body, status, err := c.doRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to check inventory: %w", err)
	}
	if status == http.StatusNotFound {
		return &InventoryStatus{Available: 0, IsAvailable: false}, nil
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, status)
	}

	var inventory InventoryStatus
	if err := json.Unmarshal(body, &inventory); err != nil {
		return nil, fmt.Errorf("failed to unmarshal inventory response: %w", err)
	}
	return &inventory, nil
}

// ReserveInventory places a catalog-side hold. False means the catalog
// declined; the caller maps that to its own error kind.
func (c *Client) ReserveInventory(ctx context.Context, productID string, quantity int) (bool, error) {
	endpoint := fmt.Sprintf("products/%s/reserve", url.PathEscape(productID))

	body, status, err := c.doRequest(ctx, http.MethodPost, endpoint, reserveRequest{Quantity: quantity})
	if err != nil {
		return false, fmt.Errorf("failed to reserve inventory: %w", err)
	}
	if status == http.StatusNotFound || status == http.StatusConflict {
		return false, nil
	}
	if status != http.StatusOK {
		return false, fmt.Errorf("%w: unexpected status %d", ErrUnavailable, status)
	}

	var resp reserveResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return false, fmt.Errorf("failed to unmarshal reserve response: %w", err)
	}
	return resp.Reserved, nil
}

// doRequest performs an HTTP request to the catalog API
func (c *Client) doRequest(ctx context.Context, method, endpoint string, payload interface{}) ([]byte, int, error) {
	var reqBody io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewBuffer(encoded)
	}

	requestURL := fmt.Sprintf("%s/%s", c.config.BaseURL, endpoint)

	req, err := http.NewRequestWithContext(ctx, method, requestURL, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	if c.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, resp.StatusCode, ErrUnauthorized
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}

	return body, resp.StatusCode, nil
}
