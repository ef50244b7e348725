package locker

import (
	"context"
	"errors"
)

var ErrLockTimeout = errors.New("lock not acquired")

// Locker serializes writers of one record. Unlock must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
