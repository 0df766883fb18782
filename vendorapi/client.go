package vendorapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
)

// RemoteProxy is one entry of the vendor's IPv4 inventory.
type RemoteProxy struct {
	ID            string     `json:"id"`
	IP            string     `json:"ip"`
	Port          int        `json:"port"`
	Username      string     `json:"login"`
	Password      string     `json:"password"`
	CountryCode   string     `json:"country_code"`
	Active        bool       `json:"active"`
	DaysRemaining int        `json:"days_remaining"`
	ExpiryAt      *time.Time `json:"expiry_at,omitempty"`
}

// Client talks to the proxy vendor's inventory API. The raw inventory is
// cached in Redis when a cache client is configured; a nil cache disables
// caching entirely.
type Client struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Cache      *redis.Client
	CacheTTL   time.Duration
}

const cacheKeyIPv4 = "vendorapi:inventory:ipv4"

func NewClient(baseURL, apiKey string, cache *redis.Client) *Client {
	return &Client{
		BaseURL: baseURL,
		APIKey:  apiKey,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Cache:    cache,
		CacheTTL: 10 * time.Minute,
	}
}

// FetchIPv4 returns the vendor's IPv4 inventory, serving from the Redis cache
// when possible.
func (c *Client) FetchIPv4(ctx context.Context) ([]RemoteProxy, error) {
	if c.Cache != nil {
		if raw, err := c.Cache.Get(ctx, cacheKeyIPv4).Bytes(); err == nil {
			var cached []RemoteProxy
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
			// Unreadable cache entry: fall through to a fresh fetch.
			log.Printf("[vendorapi] discarding unreadable cache entry: %v", err)
		}
	}

	proxies, err := c.fetchIPv4(ctx)
	if err != nil {
		return nil, err
	}

	if c.Cache != nil {
		if raw, err := json.Marshal(proxies); err == nil {
			if err := c.Cache.Set(ctx, cacheKeyIPv4, raw, c.CacheTTL).Err(); err != nil {
				log.Printf("[vendorapi] failed to cache inventory: %v", err)
			}
		}
	}
	return proxies, nil
}

func (c *Client) fetchIPv4(ctx context.Context) ([]RemoteProxy, error) {
	u, err := url.Parse(fmt.Sprintf("%s/proxies/ipv4", c.BaseURL))
	if err != nil {
		return nil, fmt.Errorf("failed to parse vendor base URL: %w", err)
	}
	q := u.Query()
	q.Set("api_key", c.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call vendor API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("vendor API returned status %d: %s", resp.StatusCode, string(body))
	}

	var response struct {
		Proxies []RemoteProxy `json:"proxies"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to decode vendor response: %w", err)
	}
	return response.Proxies, nil
}

// InvalidateCache drops the cached inventory so the next fetch goes to the
// vendor. A refresh is InvalidateCache followed by FetchIPv4.
func (c *Client) InvalidateCache(ctx context.Context) error {
	if c.Cache == nil {
		return nil
	}
	return c.Cache.Del(ctx, cacheKeyIPv4).Err()
}

// TestConnection checks that the vendor API is reachable and the key is valid.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.fetchIPv4(ctx)
	return err
}
