package sync

import (
	"context"

	"github.com/agentstation/metasync/pkg/errors"
)

// PageFunc fetches the page with the given zero-based index.
type PageFunc[T any] func(ctx context.Context, index int) ([]T, error)

// Paginate fetches pages of size records and hands each to visit until a page
// holds fewer than size records. That short page, even when non-empty, is the
// last one. It returns the number of pages fetched.
func Paginate[T any](ctx context.Context, size int, fetch PageFunc[T], visit func(page []T) error) (int, error) {
	if size < 1 {
		return 0, errors.NewValidationError("size", size, "page size must be positive")
	}
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return index, errors.ErrCanceled
		}
		page, err := fetch(ctx, index)
		if err != nil {
			return index, err
		}
		if err := visit(page); err != nil {
			return index + 1, err
		}
		if len(page) < size {
			return index + 1, nil
		}
	}
}

// Collect gathers every record of a paginated listing.
func Collect[T any](ctx context.Context, size int, fetch PageFunc[T]) ([]T, error) {
	var all []T
	_, err := Paginate(ctx, size, fetch, func(page []T) error {
		all = append(all, page...)
		return nil
	})
	return all, err
}
