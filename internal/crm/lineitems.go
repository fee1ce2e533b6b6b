package crm

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// dealAssociationTypeID is the CRM-defined association type linking a line
// item to its deal.
const dealAssociationTypeID = 20

// LineItemInput carries the property set for one line item to create.
type LineItemInput struct {
	Properties map[string]string
}

// CreatedLineItem identifies a line item created by a batch call.
type CreatedLineItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type batchCreateResponse struct {
	Results []struct {
		ID         string `json:"id"`
		Properties struct {
			Name string `json:"name"`
		} `json:"properties"`
	} `json:"results"`
}

// BatchCreateLineItems creates all inputs in one batch call, associating each
// to the deal. The CRM does not guarantee batch atomicity; callers treat
// partial results as best effort.
func (c *Client) BatchCreateLineItems(ctx context.Context, dealID string, inputs []LineItemInput) ([]CreatedLineItem, error) {
	if strings.TrimSpace(dealID) == "" {
		return nil, errors.New("crm: deal id is required")
	}
	if len(inputs) == 0 {
		return nil, errors.New("crm: no line items to create")
	}

	type association struct {
		To    map[string]string `json:"to"`
		Types []map[string]any  `json:"types"`
	}
	type input struct {
		Properties   map[string]string `json:"properties"`
		Associations []association     `json:"associations"`
	}

	payload := struct {
		Inputs []input `json:"inputs"`
	}{Inputs: make([]input, 0, len(inputs))}
	for _, in := range inputs {
		payload.Inputs = append(payload.Inputs, input{
			Properties: in.Properties,
			Associations: []association{{
				To: map[string]string{"id": dealID},
				Types: []map[string]any{{
					"associationCategory": "HUBSPOT_DEFINED",
					"associationTypeId":   dealAssociationTypeID,
				}},
			}},
		})
	}

	var out batchCreateResponse
	if err := c.do(ctx, "batch_create_line_items", http.MethodPost, "/crm/v3/objects/line_items/batch/create", payload, &out); err != nil {
		return nil, err
	}
	created := make([]CreatedLineItem, 0, len(out.Results))
	for _, row := range out.Results {
		created = append(created, CreatedLineItem{ID: row.ID, Name: row.Properties.Name})
	}
	return created, nil
}

// ListAssociatedLineItems returns the ids of all line items associated with
// the deal, following pagination.
func (c *Client) ListAssociatedLineItems(ctx context.Context, dealID string) ([]string, error) {
	if strings.TrimSpace(dealID) == "" {
		return nil, errors.New("crm: deal id is required")
	}
	var ids []string
	after := ""
	for {
		path := "/crm/v3/objects/deals/" + url.PathEscape(dealID) + "/associations/line_items?limit=500"
		if after != "" {
			path += "&after=" + url.QueryEscape(after)
		}
		var page struct {
			Results []struct {
				ID string `json:"id"`
			} `json:"results"`
			Paging struct {
				Next struct {
					After string `json:"after"`
				} `json:"next"`
			} `json:"paging"`
		}
		if err := c.do(ctx, "list_associated_line_items", http.MethodGet, path, nil, &page); err != nil {
			return nil, err
		}
		for _, row := range page.Results {
			ids = append(ids, row.ID)
		}
		after = page.Paging.Next.After
		if after == "" {
			break
		}
	}
	return ids, nil
}

// BatchArchiveLineItems archives the given line items in one batch call.
func (c *Client) BatchArchiveLineItems(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	type input struct {
		ID string `json:"id"`
	}
	payload := struct {
		Inputs []input `json:"inputs"`
	}{Inputs: make([]input, 0, len(ids))}
	for _, id := range ids {
		payload.Inputs = append(payload.Inputs, input{ID: id})
	}
	return c.do(ctx, "batch_archive_line_items", http.MethodPost, "/crm/v3/objects/line_items/batch/archive", payload, nil)
}
