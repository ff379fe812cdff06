package familylock

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/pkg/dbctx"
	"github.com/yungbote/briefs-backend/internal/versioning"
)

// ErrBusy is returned by TryLock when another holder owns the family.
var ErrBusy = errors.New("family lock busy")

// Locker hands out exclusive access to one family at a time. TryLock never waits.
// release must be called on every exit path.
type Locker interface {
	TryLock(dbc dbctx.Context, rootID uuid.UUID) (release func(), err error)
	// TxScoped backends need dbc.Tx and keep the lock until that transaction ends. The others
	// must be taken before the transaction begins and released after it commits or rolls back.
	TxScoped() bool
	Name() string
}

// Policy bounds how long a caller keeps retrying a busy family.
type Policy struct {
	MaxWait         time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxWait:         2 * time.Second,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     200 * time.Millisecond,
	}
}

// Retry runs attempt until it returns something other than ErrBusy. When the policy's wait
// is exhausted the result is versioning.ErrContention; other errors are returned as-is.
func Retry(ctx context.Context, p Policy, rootID uuid.UUID, attempt func() error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}

	opts := []backoff.RetryOption{backoff.WithBackOff(b)}
	if p.MaxWait > 0 {
		opts = append(opts, backoff.WithMaxElapsedTime(p.MaxWait))
	} else {
		opts = append(opts, backoff.WithMaxTries(1))
	}

	attempts := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempts++
		err := attempt()
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, ErrBusy):
			return struct{}{}, err
		default:
			return struct{}{}, backoff.Permanent(err)
		}
	}, opts...)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBusy) {
		return versioning.Contentionf("family %s still locked after %d attempts", rootID, attempts)
	}
	return err
}
