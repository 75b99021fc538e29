package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/richmansdream/crmdesk/internal/errors"
	"github.com/richmansdream/crmdesk/internal/model"
)

// ListResult is one decoded page of a list endpoint
type ListResult[T any] struct {
	Items []T
	Total int
	// Pages is the server-reported page count, 0 when absent
	Pages int
}

// ListPage issues req (GET when no method is set) and decodes a body shaped
// {"<itemsKey>": [...], "total": n, "pages": n}.
func ListPage[T any](ctx context.Context, c *Client, req Request, itemsKey, credential string) (ListResult[T], error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	var raw map[string]json.RawMessage
	if err := c.Do(ctx, req, credential, &raw); err != nil {
		return ListResult[T]{}, err
	}

	var result ListResult[T]
	if items, ok := raw[itemsKey]; ok && string(items) != "null" {
		if err := json.Unmarshal(items, &result.Items); err != nil {
			return ListResult[T]{}, errors.Wrap(errors.ErrCodeDecode,
				fmt.Sprintf("failed to decode %q", itemsKey), err)
		}
	}
	for key, dst := range map[string]*int{"total": &result.Total, "pages": &result.Pages} {
		v, ok := raw[key]
		if !ok {
			continue
		}
		if err := json.Unmarshal(v, dst); err != nil {
			return ListResult[T]{}, errors.Wrap(errors.ErrCodeDecode,
				fmt.Sprintf("failed to decode %q", key), err)
		}
	}
	if result.Items == nil {
		result.Items = []T{}
	}
	return result, nil
}

// GetLead fetches a single lead
func (c *Client) GetLead(ctx context.Context, id, credential string) (*model.Lead, error) {
	var resp struct {
		Lead model.Lead `json:"lead"`
	}
	path := "/leads/" + url.PathEscape(id)
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: path}, credential, &resp); err != nil {
		return nil, err
	}
	return &resp.Lead, nil
}

// GetEmail fetches a single email
func (c *Client) GetEmail(ctx context.Context, id, credential string) (*model.Email, error) {
	var resp struct {
		Email model.Email `json:"email"`
	}
	path := "/emails/" + url.PathEscape(id)
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: path}, credential, &resp); err != nil {
		return nil, err
	}
	return &resp.Email, nil
}

// EmailTemplates lists the active email templates
func (c *Client) EmailTemplates(ctx context.Context, credential string) ([]model.EmailTemplate, error) {
	var resp struct {
		Templates []model.EmailTemplate `json:"templates"`
	}
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/emails/templates"}, credential, &resp); err != nil {
		return nil, err
	}
	return resp.Templates, nil
}

// DashboardStats fetches the headline numbers
func (c *Client) DashboardStats(ctx context.Context, credential string) (*model.DashboardStats, error) {
	var stats model.DashboardStats
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/dashboard/stats"}, credential, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// DashboardCharts fetches the chart series
func (c *Client) DashboardCharts(ctx context.Context, credential string) (*model.DashboardCharts, error) {
	var charts model.DashboardCharts
	if err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/dashboard/charts"}, credential, &charts); err != nil {
		return nil, err
	}
	return &charts, nil
}
