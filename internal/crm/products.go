package crm

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-quotes/internal/catalog"
)

// Product properties requested from the CRM. Price and frequency arrive as
// strings; the exclusion flag is a checkbox property serialised as "true".
const productProperties = "name,price,recurringbillingfrequency,exclude_from_total,hs_object_id"

const productPageLimit = 100

type productPage struct {
	Results []struct {
		ID         string `json:"id"`
		Properties struct {
			Name                      string `json:"name"`
			Price                     string `json:"price"`
			RecurringBillingFrequency string `json:"recurringbillingfrequency"`
			ExcludeFromTotal          string `json:"exclude_from_total"`
		} `json:"properties"`
	} `json:"results"`
	Paging struct {
		Next struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging"`
}

// ListProducts pages through the CRM product object and returns catalog
// entries. When allowedIDs is non-empty only those ids are returned; the
// catalog exposes a curated subset of everything the CRM can sell.
func (c *Client) ListProducts(ctx context.Context, allowedIDs []string) ([]catalog.Product, error) {
	allowed := make(map[string]struct{}, len(allowedIDs))
	for _, id := range allowedIDs {
		if trimmed := strings.TrimSpace(id); trimmed != "" {
			allowed[trimmed] = struct{}{}
		}
	}

	var products []catalog.Product
	after := ""
	for {
		path := "/crm/v3/objects/products?limit=" + strconv.Itoa(productPageLimit) +
			"&archived=false&properties=" + url.QueryEscape(productProperties)
		if after != "" {
			path += "&after=" + url.QueryEscape(after)
		}
		var page productPage
		if err := c.do(ctx, "list_products", http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		for _, row := range page.Results {
			if len(allowed) > 0 {
				if _, ok := allowed[row.ID]; !ok {
					continue
				}
			}
			products = append(products, catalog.Product{
				ID:               row.ID,
				Name:             row.Properties.Name,
				Price:            parsePrice(row.Properties.Price),
				Frequency:        normaliseFrequency(row.Properties.RecurringBillingFrequency),
				ExcludeFromTotal: strings.EqualFold(strings.TrimSpace(row.Properties.ExcludeFromTotal), "true"),
			})
		}
		after = page.Paging.Next.After
		if after == "" {
			break
		}
	}
	return products, nil
}

func parsePrice(value string) decimal.Decimal {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return decimal.Zero
	}
	price, err := decimal.NewFromString(trimmed)
	if err != nil {
		return decimal.Zero
	}
	return price
}

// normaliseFrequency lowers the CRM billing frequency; products without one
// are one-time charges.
func normaliseFrequency(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return "one_time"
	}
	return trimmed
}
