package console

import (
	"context"
	"errors"
	"fmt"

	"github.com/terra-clan/quiz-console/internal/opstate"
)

// run drives one operation through its machine: Begin, the remote call on the
// ticket's context, then Succeed with apply or Fail with the error message.
// A completion whose ticket was cancelled is dropped and reported as
// ErrCancelled.
func run[R any](
	ctx context.Context,
	c *Console,
	entity Entity,
	kind opstate.Kind,
	target string,
	call func(ctx context.Context) (R, error),
	apply func(R),
) (R, error) {
	var zero R

	m, err := c.lookup(entity, kind)
	if err != nil {
		return zero, err
	}

	t, err := m.Begin(ctx)
	if err != nil {
		return zero, fmt.Errorf("%s %s: %w", kind, entity, err)
	}
	c.publish(entity, kind, m, target)

	v, err := call(t.Context())
	if err != nil {
		if ferr := m.Fail(t, err.Error()); ferr != nil {
			c.logger.Debug("dropping stale failure", "entity", entity, "op", kind, "error", err)
			return zero, ErrCancelled
		}
		c.logger.Warn("operation failed", "entity", entity, "op", kind, "target", target, "error", err)
		c.publish(entity, kind, m, target)
		return zero, err
	}

	if err := m.Succeed(t, func() {
		if apply != nil {
			apply(v)
		}
	}); err != nil {
		c.logger.Debug("dropping stale completion", "entity", entity, "op", kind, "target", target)
		return zero, ErrCancelled
	}

	c.logger.Debug("operation succeeded", "entity", entity, "op", kind, "target", target)
	c.publish(entity, kind, m, target)
	return v, nil
}

// exec is run for calls that return nothing
func exec(
	ctx context.Context,
	c *Console,
	entity Entity,
	kind opstate.Kind,
	target string,
	call func(ctx context.Context) error,
	apply func(),
) error {
	_, err := run(ctx, c, entity, kind, target,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, call(ctx)
		},
		func(struct{}) {
			if apply != nil {
				apply()
			}
		},
	)
	return err
}

// refresh re-runs a fetch that a previous success depends on. An attempt
// already in flight started before that success, so it is cancelled; a
// finished one is dismissed.
func (c *Console) refresh(ctx context.Context, entity Entity, fetch func(context.Context) error) error {
	m, err := c.lookup(entity, opstate.KindFetch)
	if err != nil {
		return err
	}

	if m.State().Status == opstate.StatusLoading {
		m.CancelCurrent()
	}
	if err := m.Reset(); err != nil && !errors.Is(err, opstate.ErrBusy) {
		return err
	}

	if err := fetch(ctx); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrRefreshFailed, entity, err)
	}
	return nil
}
