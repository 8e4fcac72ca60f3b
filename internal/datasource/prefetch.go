package datasource

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vanderheijden86/treeline/pkg/debug"
)

// PageResult is one fetched page of a paginated parent.
type PageResult struct {
	Page  int
	Items []any
}

// prefetchConcurrency bounds parallel page fetches against one source.
const prefetchConcurrency = 4

// PrefetchPages fetches the given pages of a parent concurrently. Results
// come back in the order of pages; the first failure cancels the rest.
// Callers apply the results on their own goroutine, so the engine never
// sees concurrent mutation.
func PrefetchPages(ctx context.Context, src Source, id string, pages []int) ([]PageResult, error) {
	if len(pages) == 0 {
		return nil, nil
	}
	results := make([]PageResult, len(pages))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(prefetchConcurrency)
	for i, page := range pages {
		g.Go(func() error {
			items, err := src.LoadPage(ctx, id, page)
			if err != nil {
				return fmt.Errorf("page %d of %q: %w", page, id, err)
			}
			results[i] = PageResult{Page: page, Items: items}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	debug.Log("prefetch: %d pages of %s", len(pages), id)
	return results, nil
}
