package crm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// GetDealProperties fetches the requested property fields for one deal.
// Absent fields come back as empty strings so callers can apply defaults
// uniformly.
func (c *Client) GetDealProperties(ctx context.Context, dealID string, fields []string) (map[string]string, error) {
	if strings.TrimSpace(dealID) == "" {
		return nil, errors.New("crm: deal id is required")
	}
	path := "/crm/v3/objects/deals/" + url.PathEscape(dealID) +
		"?properties=" + url.QueryEscape(strings.Join(fields, ","))
	var out struct {
		Properties map[string]*string `json:"properties"`
	}
	if err := c.do(ctx, "get_deal_properties", http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	props := make(map[string]string, len(fields))
	for _, field := range fields {
		if v, ok := out.Properties[field]; ok && v != nil {
			props[field] = *v
		} else {
			props[field] = ""
		}
	}
	return props, nil
}

// UpdateDealProperties applies a partial property update to one deal.
func (c *Client) UpdateDealProperties(ctx context.Context, dealID string, properties map[string]string) error {
	if strings.TrimSpace(dealID) == "" {
		return errors.New("crm: deal id is required")
	}
	if len(properties) == 0 {
		return nil
	}
	body := map[string]any{"properties": properties}
	path := "/crm/v3/objects/deals/" + url.PathEscape(dealID)
	var out struct {
		ID string `json:"id"`
	}
	return c.do(ctx, "update_deal_properties", http.MethodPatch, path, body, &out)
}
