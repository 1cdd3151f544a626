package service

import (
	"context"
)

// withRetry calls fn and, while it fails, calls it again up to retries more
// times with the same arguments. It stops early once ctx is done.
func withRetry[T any](ctx context.Context, retries int, fn func(context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	for i := 0; err != nil && i < retries; i++ {
		if ctx.Err() != nil {
			break
		}
		v, err = fn(ctx)
	}
	return v, err
}
