package payments

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ProductPlan is the plan shape a provider product API reports for one
// product. DurationDays == nil means a one-time purchase, i.e. lifetime
// access.
type ProductPlan struct {
	PlanType     string
	DurationDays *int
}

const (
	monthlyDurationDays = 30
	annualDurationDays  = 365
)

// HotmartCatalogClient reads product/plan data from the Hotmart payments
// API using a client-credentials bearer token.
type HotmartCatalogClient struct {
	APIBaseURL string
	Tokens     *TokenClient
	HTTPClient *http.Client
}

func NewHotmartCatalogClient(apiBaseURL string, tokens *TokenClient) *HotmartCatalogClient {
	return &HotmartCatalogClient{
		APIBaseURL: strings.TrimRight(apiBaseURL, "/"),
		Tokens:     tokens,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// GetProductPlan resolves a Hotmart product id to plan semantics.
func (c *HotmartCatalogClient) GetProductPlan(ctx context.Context, productID string) (*ProductPlan, error) {
	var raw struct {
		ID               json.Number `json:"id"`
		Name             string      `json:"name"`
		IsSubscription   bool        `json:"is_subscription"`
		RecurrencePeriod string      `json:"recurrence_period"`
	}
	url := fmt.Sprintf("%s/products/%s", c.APIBaseURL, productID)
	if err := getJSONWithToken(ctx, c.HTTPClient, c.Tokens, url, &raw); err != nil {
		return nil, err
	}

	if !raw.IsSubscription {
		return &ProductPlan{PlanType: "lifetime"}, nil
	}
	switch strings.ToUpper(strings.TrimSpace(raw.RecurrencePeriod)) {
	case "MONTHLY":
		d := monthlyDurationDays
		return &ProductPlan{PlanType: "monthly", DurationDays: &d}, nil
	case "YEARLY", "ANNUAL":
		d := annualDurationDays
		return &ProductPlan{PlanType: "annual", DurationDays: &d}, nil
	default:
		return nil, fmt.Errorf("hotmart product %s has unsupported recurrence %q", productID, raw.RecurrencePeriod)
	}
}

// DoppusCatalogClient reads product data from the Doppus API.
type DoppusCatalogClient struct {
	APIBaseURL string
	Tokens     *TokenClient
	HTTPClient *http.Client
}

func NewDoppusCatalogClient(apiBaseURL string, tokens *TokenClient) *DoppusCatalogClient {
	return &DoppusCatalogClient{
		APIBaseURL: strings.TrimRight(apiBaseURL, "/"),
		Tokens:     tokens,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// GetProductPlan resolves a Doppus product code to plan semantics.
func (c *DoppusCatalogClient) GetProductPlan(ctx context.Context, productCode string) (*ProductPlan, error) {
	var raw struct {
		Success bool `json:"success"`
		Data    struct {
			Code        string `json:"code"`
			BillingType string `json:"billing_type"`
			Recurrence  string `json:"recurrence"`
		} `json:"data"`
	}
	url := fmt.Sprintf("%s/products/%s", c.APIBaseURL, productCode)
	if err := getJSONWithToken(ctx, c.HTTPClient, c.Tokens, url, &raw); err != nil {
		return nil, err
	}
	if !raw.Success {
		return nil, fmt.Errorf("doppus product lookup for %s was not successful", productCode)
	}

	if strings.EqualFold(raw.Data.BillingType, "single") {
		return &ProductPlan{PlanType: "lifetime"}, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw.Data.Recurrence)) {
	case "monthly":
		d := monthlyDurationDays
		return &ProductPlan{PlanType: "monthly", DurationDays: &d}, nil
	case "annual", "yearly":
		d := annualDurationDays
		return &ProductPlan{PlanType: "annual", DurationDays: &d}, nil
	default:
		return nil, fmt.Errorf("doppus product %s has unsupported recurrence %q", productCode, raw.Data.Recurrence)
	}
}

// getJSONWithToken performs an authenticated GET and decodes the response.
// A 401 invalidates the cached token and retries once with a fresh one.
func getJSONWithToken(ctx context.Context, client *http.Client, tokens *TokenClient, url string, out interface{}) error {
	for attempt := 0; attempt < 2; attempt++ {
		token, err := tokens.Token(ctx)
		if err != nil {
			return err
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Accept", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			tokens.Invalidate(ctx)
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("provider request failed: status=%d body=%s", resp.StatusCode, string(body))
		}
		return json.Unmarshal(body, out)
	}
	return fmt.Errorf("provider request failed after token refresh")
}
