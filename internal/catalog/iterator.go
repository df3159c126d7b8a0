package catalog

import (
	"context"
	"time"
)

// Pager fetches one page of products at the given cursor.
type Pager interface {
	FetchPage(ctx context.Context, cursor string, pageSize int) (Page, error)
}

// Iterator walks the catalog's cursor pagination from the start, yielding
// product batches until the catalog reports no further pages. A fetch error
// stops iteration permanently; callers must treat it as fatal rather than
// continue with a truncated catalog.
type Iterator struct {
	pager     Pager
	pageSize  int
	pageDelay time.Duration

	cursor  string
	started bool
	done    bool
}

// NewIterator creates an iterator over the full catalog.
func NewIterator(pager Pager, pageSize int, pageDelay time.Duration) *Iterator {
	return &Iterator{
		pager:     pager,
		pageSize:  pageSize,
		pageDelay: pageDelay,
	}
}

// Next returns the next batch of products. A nil batch with nil error means
// the catalog is exhausted. After an error or exhaustion Next keeps
// returning the terminal result.
func (it *Iterator) Next(ctx context.Context) ([]ProductRecord, error) {
	if it.done {
		return nil, nil
	}

	// Small pause between page fetches to stay inside the catalog's
	// call-rate limits.
	if it.started && it.pageDelay > 0 {
		select {
		case <-time.After(it.pageDelay):
		case <-ctx.Done():
			it.done = true
			return nil, ctx.Err()
		}
	}
	it.started = true

	page, err := it.pager.FetchPage(ctx, it.cursor, it.pageSize)
	if err != nil {
		it.done = true
		return nil, err
	}

	if len(page.Products) == 0 {
		it.done = true
		return nil, nil
	}

	it.cursor = page.NextCursor
	if !page.HasMore {
		it.done = true
	}

	return page.Products, nil
}
