package game

import (
	"context"

	"github.com/Digital-Creators-Team/slot-machine-registry/errors"
)

type guardKey string

const (
	guardSpin    guardKey = "spin"
	guardJackpot guardKey = "jackpot"
)

// enterGuard marks the context as executing the named guarded operation.
// A context already carrying the mark means a call re-entered the operation
// it is nested inside of, which is always a bug or an attack; the nested
// call is rejected. Honest callers on separate requests carry separate
// contexts and are unaffected.
func enterGuard(ctx context.Context, key guardKey) (context.Context, error) {
	if ctx.Value(key) != nil {
		return nil, errors.Newf(errors.ErrReentrancy, "reentrant call into %s", string(key))
	}
	return context.WithValue(ctx, key, struct{}{}), nil
}
