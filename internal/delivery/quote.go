// Package delivery is the client for the external delivery-pricing service,
// which turns an address into a fee, a distance and coordinates.
package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

var ErrNotConfigured = errors.New("delivery pricing is not configured")

type Quote struct {
	Fee        decimal.Decimal
	DistanceKm decimal.Decimal
	Lat        *float64
	Lng        *float64
}

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

type quoteResponse struct {
	Fee        decimal.Decimal `json:"fee"`
	DistanceKm decimal.Decimal `json:"distance_km"`
	Lat        *float64        `json:"lat"`
	Lng        *float64        `json:"lng"`
	Error      string          `json:"error"`
}

// Quote asks the pricing service for the delivery fee to address.
func (c *Client) Quote(ctx context.Context, address string) (Quote, error) {
	if c == nil || c.baseURL == "" {
		return Quote{}, ErrNotConfigured
	}

	u, err := url.Parse(c.baseURL)
	if err != nil {
		return Quote{}, fmt.Errorf("parse quote url: %w", err)
	}
	q := u.Query()
	q.Set("address", address)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build quote request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Quote{}, fmt.Errorf("request quote: %w", err)
	}
	defer resp.Body.Close()

	var body quoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Quote{}, fmt.Errorf("decode quote (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		if body.Error != "" {
			return Quote{}, fmt.Errorf("quote rejected: %s", body.Error)
		}
		return Quote{}, fmt.Errorf("quote service returned %d", resp.StatusCode)
	}
	if body.Fee.IsNegative() {
		return Quote{}, fmt.Errorf("quote service returned negative fee %s", body.Fee)
	}

	return Quote{
		Fee:        body.Fee.Round(2),
		DistanceKm: body.DistanceKm.Round(2),
		Lat:        body.Lat,
		Lng:        body.Lng,
	}, nil
}
