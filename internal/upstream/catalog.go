package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopsphere/cart-service/internal/models"
)

// CatalogClient fetches product details from the catalog service. Any
// non-200, decode failure or network error is reported the same way:
// enrichment is unavailable for that product.
type CatalogClient struct {
	baseURL string
	httpc   *http.Client
}

func NewCatalogClient(baseURL string, timeout time.Duration) *CatalogClient {
	return &CatalogClient{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: timeout},
	}
}

const (
	catalogAttempts = 2
	catalogBackoff  = 100 * time.Millisecond
)

// GetProduct looks up one product. A 404 is models.ErrProductNotFound;
// everything else that goes wrong is models.ErrUpstreamUnavailable.
// Transient failures get one bounded retry.
func (c *CatalogClient) GetProduct(ctx context.Context, productID string) (*models.ProductSnapshot, error) {
	var lastErr error
	for attempt := 1; attempt <= catalogAttempts; attempt++ {
		snapshot, retryable, err := c.fetch(ctx, productID)
		if err == nil {
			return snapshot, nil
		}
		lastErr = err
		if !retryable || attempt == catalogAttempts {
			break
		}
		timer := time.NewTimer(catalogBackoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("catalog lookup %s: %v: %w", productID, ctx.Err(), models.ErrUpstreamUnavailable)
		case <-timer.C:
		}
	}
	return nil, lastErr
}

func (c *CatalogClient) fetch(ctx context.Context, productID string) (*models.ProductSnapshot, bool, error) {
	url := fmt.Sprintf("%s/products/%s", c.baseURL, productID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("catalog request %s: %v: %w", productID, err, models.ErrUpstreamUnavailable)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, true, fmt.Errorf("catalog lookup %s: %v: %w", productID, err, models.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, fmt.Errorf("catalog lookup %s: %w", productID, models.ErrProductNotFound)
	case resp.StatusCode >= 500:
		return nil, true, fmt.Errorf("catalog lookup %s: status %d: %w", productID, resp.StatusCode, models.ErrUpstreamUnavailable)
	default:
		return nil, false, fmt.Errorf("catalog lookup %s: status %d: %w", productID, resp.StatusCode, models.ErrUpstreamUnavailable)
	}

	var snapshot models.ProductSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snapshot); err != nil {
		return nil, false, fmt.Errorf("catalog decode %s: %v: %w", productID, err, models.ErrUpstreamUnavailable)
	}
	return &snapshot, false, nil
}
