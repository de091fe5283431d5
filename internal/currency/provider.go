package currency

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const DefaultProviderTimeout = 5 * time.Second

// HTTPProvider reads rate tables from an exchangerate-api style endpoint:
// GET {BaseURL}/{base} answering {"rates":{...}} or {"conversion_rates":{...}}.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &HTTPProvider{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: timeout},
	}
}

type rateTable struct {
	Result          string             `json:"result"`
	Rates           map[string]float64 `json:"rates"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
}

func (p *HTTPProvider) FetchRates(ctx context.Context, base string) (map[string]float64, error) {
	u := p.BaseURL + "/" + url.PathEscape(base)
	if p.APIKey != "" {
		u += "?apikey=" + url.QueryEscape(p.APIKey)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build rate request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rate provider: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("rate provider returned status %d", resp.StatusCode)
	}

	var table rateTable
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&table); err != nil {
		return nil, fmt.Errorf("decode rate table: %w", err)
	}
	if table.Result == "error" {
		return nil, fmt.Errorf("rate provider reported an error for %s", base)
	}
	if len(table.Rates) > 0 {
		return table.Rates, nil
	}
	if len(table.ConversionRates) > 0 {
		return table.ConversionRates, nil
	}
	return nil, fmt.Errorf("rate provider returned an empty table for %s", base)
}
