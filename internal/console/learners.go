package console

import (
	"context"

	"github.com/terra-clan/quiz-console/internal/opstate"
)

// FetchLearners replaces the learner collection with the server's
func (c *Console) FetchLearners(ctx context.Context) error {
	_, err := run(ctx, c, Learners, opstate.KindFetch, "", c.gw.ListLearners, c.Learners.store.ReplaceAll)
	return err
}

// EnableLearner enables an account, then re-fetches every learner. The local
// Enabled flag is never flipped; the UI sees the change only after the
// re-fetch lands.
func (c *Console) EnableLearner(ctx context.Context, id string) error {
	return c.toggleLearner(ctx, id, opstate.KindEnable, c.gw.EnableLearner)
}

// DisableLearner disables an account, then re-fetches every learner
func (c *Console) DisableLearner(ctx context.Context, id string) error {
	return c.toggleLearner(ctx, id, opstate.KindDisable, c.gw.DisableLearner)
}

func (c *Console) toggleLearner(ctx context.Context, id string, kind opstate.Kind, call func(context.Context, string) error) error {
	err := exec(ctx, c, Learners, kind, id,
		func(ctx context.Context) error { return call(ctx, id) },
		nil,
	)
	if err != nil {
		return err
	}
	return c.refresh(ctx, Learners, c.FetchLearners)
}
