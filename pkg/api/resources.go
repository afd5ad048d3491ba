package api

import (
	"context"
	"net/url"
)

// ProductLine is one entry of the product-line reference list.
type ProductLine struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// OfflinePlaceholderID marks the synthetic product line served by the
// cache layer when both network and cache miss.
const OfflinePlaceholderID = "offline"

// InsightSummary is one row of the insight listing.
type InsightSummary struct {
	ID            string  `json:"id"`
	ProductLineID string  `json:"productLineId"`
	TerritoryID   *string `json:"territoryId"`
	Type          string  `json:"type"`
	Text          string  `json:"text"`
	AudioURL      string  `json:"audioUrl"`
	PhotoURL      string  `json:"photoUrl"`
	CreatedAt     string  `json:"createdAt"`
}

// InsightFilter narrows the insight listing.
type InsightFilter struct {
	Type          string
	ProductLineID string
	Query         string
}

// ProductLines fetches the product-line reference list.
func (c *Client) ProductLines(ctx context.Context) ([]ProductLine, error) {
	var lines []ProductLine
	if err := c.GetJSON(ctx, "/product-lines", &lines); err != nil {
		return nil, err
	}
	return lines, nil
}

// ListInsights fetches insight summaries matching the filter.
func (c *Client) ListInsights(ctx context.Context, filter InsightFilter) ([]InsightSummary, error) {
	q := url.Values{}
	if filter.Type != "" {
		q.Set("type", filter.Type)
	}
	if filter.ProductLineID != "" {
		q.Set("productLineId", filter.ProductLineID)
	}
	if filter.Query != "" {
		q.Set("q", filter.Query)
	}

	path := "/insights"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var items []InsightSummary
	if err := c.GetJSON(ctx, path, &items); err != nil {
		return nil, err
	}
	return items, nil
}
