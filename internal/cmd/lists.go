package cmd

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/richmansdream/crmdesk/internal/query"
)

// listRequest is one page read issued by a list command
type listRequest struct {
	Page    int
	Search  string
	Filters map[string]string
}

// readPage reads one page of cfg's list from src through a list controller.
// A page past the last one is a usage error.
func readPage[T any](ctx context.Context, cfg query.Config, src query.Source[T], req listRequest, opts ...query.Option) (query.Snapshot[T], error) {
	if req.Page < 1 {
		return query.Snapshot[T]{}, pageRangeError(req.Page, 0)
	}
	for name, value := range req.Filters {
		opts = append(opts, query.WithFilter(name, value))
	}

	ctrl := query.NewController(cfg, src, opts...)
	ctrl.SetSearchTerm(req.Search)
	snap := ctrl.GoToPage(ctx, req.Page)
	if snap.Err != nil {
		return query.Snapshot[T]{}, snap.Err
	}
	if last := max(snap.PageCount, 1); req.Page > last {
		return query.Snapshot[T]{}, pageRangeError(req.Page, last)
	}
	return snap, nil
}

// pageFooter renders the pagination line below a list
func pageFooter[T any](snap query.Snapshot[T]) string {
	footer := snap.Summary()
	if snap.PageCount > 1 {
		footer += fmt.Sprintf(" · page %d of %d", snap.Page, snap.PageCount)
	}
	return footer
}

// listOutput is the structured form of a list command result
type listOutput[T any] struct {
	Items []T `json:"items" yaml:"items"`
	Page  int `json:"page" yaml:"page"`
	Limit int `json:"limit" yaml:"limit"`
	Total int `json:"total" yaml:"total"`
	Pages int `json:"pages" yaml:"pages"`
}

func newListOutput[T any](snap query.Snapshot[T]) listOutput[T] {
	items := snap.Items
	if items == nil {
		items = []T{}
	}
	return listOutput[T]{
		Items: items,
		Page:  snap.Page,
		Limit: snap.Limit,
		Total: snap.Total,
		Pages: snap.PageCount,
	}
}

// checkChoice validates a filter flag against its allowed values
func checkChoice(flag, value string, valid []string) error {
	if value == "" || slices.Contains(valid, value) {
		return nil
	}
	return flagValueError(flag, value, valid)
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().Int("page", 1, "page number")
	cmd.Flags().StringP("search", "s", "", "search term")
	cmd.Flags().String("status", query.AllFilter, "status filter")
}

func listFlags(cmd *cobra.Command) (listRequest, error) {
	page, err := cmd.Flags().GetInt("page")
	if err != nil {
		return listRequest{}, err
	}
	search, err := cmd.Flags().GetString("search")
	if err != nil {
		return listRequest{}, err
	}
	status, err := cmd.Flags().GetString("status")
	if err != nil {
		return listRequest{}, err
	}
	return listRequest{
		Page:    page,
		Search:  search,
		Filters: map[string]string{"status": status},
	}, nil
}
