package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Token cache keys live under payments:token:<provider>. The cached TTL is
// shortened by this margin so a token is refreshed before it actually
// expires at the provider.
const tokenExpiryMargin = 60 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// TokenClient performs the client-credentials exchange against a provider's
// auth endpoint and caches the bearer token in Redis until near-expiry.
// Callers invalidate on 401 and retry once.
type TokenClient struct {
	Provider     string
	ClientID     string
	ClientSecret string
	TokenURL     string

	HTTPClient *http.Client
	Cache      *redis.Client
}

func NewTokenClient(provider, clientID, clientSecret, tokenURL string, cache *redis.Client) *TokenClient {
	return &TokenClient{
		Provider:     provider,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
		HTTPClient: &http.Client{
			Timeout: 15 * time.Second,
		},
		Cache: cache,
	}
}

func (c *TokenClient) cacheKey() string {
	return "payments:token:" + c.Provider
}

// Token returns a valid bearer token, from cache when possible.
func (c *TokenClient) Token(ctx context.Context) (string, error) {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return "", fmt.Errorf("%s client credentials are not configured", c.Provider)
	}

	if c.Cache != nil {
		if token, err := c.Cache.Get(ctx, c.cacheKey()).Result(); err == nil && token != "" {
			return token, nil
		}
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%s token exchange failed: status=%d body=%s", c.Provider, resp.StatusCode, string(body))
	}

	var out tokenResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.AccessToken) == "" {
		return "", errors.New(c.Provider + " token exchange returned empty access_token")
	}

	if c.Cache != nil && out.ExpiresIn > 0 {
		ttl := time.Duration(out.ExpiresIn)*time.Second - tokenExpiryMargin
		if ttl > 0 {
			// Cache write is best-effort; the next call just re-exchanges.
			_ = c.Cache.Set(ctx, c.cacheKey(), out.AccessToken, ttl).Err()
		}
	}

	return out.AccessToken, nil
}

// Invalidate drops the cached token, forcing a fresh exchange on the next
// call. Used when the provider answers 401 with a token that should still
// have been valid.
func (c *TokenClient) Invalidate(ctx context.Context) {
	if c.Cache != nil {
		_ = c.Cache.Del(ctx, c.cacheKey()).Err()
	}
}
