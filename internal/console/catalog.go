package console

import (
	"context"

	"github.com/terra-clan/quiz-console/internal/models"
	"github.com/terra-clan/quiz-console/internal/opstate"
)

// Levels

// FetchLevels replaces the level collection with the server's
func (c *Console) FetchLevels(ctx context.Context) error {
	_, err := run(ctx, c, Levels, opstate.KindFetch, "", c.gw.ListLevels, c.Levels.store.ReplaceAll)
	return err
}

// GetLevel loads one level for editing. Stores are not touched.
func (c *Console) GetLevel(ctx context.Context, id string) (models.Level, error) {
	return c.gw.GetLevel(ctx, id)
}

// AddLevel creates a level and appends it to the collection
func (c *Console) AddLevel(ctx context.Context, in models.LevelInput) (models.Level, error) {
	if err := c.check(in); err != nil {
		return models.Level{}, err
	}
	return run(ctx, c, Levels, opstate.KindAdd, "",
		func(ctx context.Context) (models.Level, error) { return c.gw.CreateLevel(ctx, in) },
		c.Levels.store.Insert,
	)
}

// UpdateLevel changes a level and replaces it in place
func (c *Console) UpdateLevel(ctx context.Context, id string, in models.LevelInput) (models.Level, error) {
	if err := c.check(in); err != nil {
		return models.Level{}, err
	}
	return run(ctx, c, Levels, opstate.KindUpdate, id,
		func(ctx context.Context) (models.Level, error) { return c.gw.UpdateLevel(ctx, id, in) },
		func(l models.Level) { c.Levels.store.ReplaceByID(l) },
	)
}

// DeleteLevel removes a level
func (c *Console) DeleteLevel(ctx context.Context, id string) error {
	return exec(ctx, c, Levels, opstate.KindDelete, id,
		func(ctx context.Context) error { return c.gw.DeleteLevel(ctx, id) },
		func() { c.Levels.store.RemoveByID(id) },
	)
}

// Pools

// FetchPools replaces the pool collection with the server's
func (c *Console) FetchPools(ctx context.Context) error {
	_, err := run(ctx, c, Pools, opstate.KindFetch, "", c.gw.ListPools, c.Pools.store.ReplaceAll)
	return err
}

// GetPool loads one pool for editing
func (c *Console) GetPool(ctx context.Context, id string) (models.Pool, error) {
	return c.gw.GetPool(ctx, id)
}

// AddPool creates a pool
func (c *Console) AddPool(ctx context.Context, in models.PoolInput) (models.Pool, error) {
	if err := c.check(in); err != nil {
		return models.Pool{}, err
	}
	return run(ctx, c, Pools, opstate.KindAdd, "",
		func(ctx context.Context) (models.Pool, error) { return c.gw.CreatePool(ctx, in) },
		c.Pools.store.Insert,
	)
}

// UpdatePool renames a pool
func (c *Console) UpdatePool(ctx context.Context, id string, in models.PoolInput) (models.Pool, error) {
	if err := c.check(in); err != nil {
		return models.Pool{}, err
	}
	return run(ctx, c, Pools, opstate.KindUpdate, id,
		func(ctx context.Context) (models.Pool, error) { return c.gw.UpdatePool(ctx, id, in) },
		func(p models.Pool) { c.Pools.store.ReplaceByID(p) },
	)
}

// DeletePool removes a pool
func (c *Console) DeletePool(ctx context.Context, id string) error {
	return exec(ctx, c, Pools, opstate.KindDelete, id,
		func(ctx context.Context) error { return c.gw.DeletePool(ctx, id) },
		func() { c.Pools.store.RemoveByID(id) },
	)
}
