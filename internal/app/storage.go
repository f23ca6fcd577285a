package app

import (
	"context"
	"fmt"
	"time"

	"partyvote/internal/domain"
)

// DefaultStoreTimeout bounds a store round trip when none is configured
const DefaultStoreTimeout = 5 * time.Second

func storeContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// storageError marks a store failure as domain.ErrStorageUnavailable, keeping the cause
func storageError(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}
