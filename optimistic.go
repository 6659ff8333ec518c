package squallcache

import "github.com/bytedance/sonic"

// Updater computes a full replacement entity object given the
// currently visible value for an entity key (overlay first, then
// base, then none).
type Updater func(current map[string]any, found bool) map[string]any

// ApplyOptimisticUpdate writes updater's result into the optimistic
// overlay under entityKey and records mutationID as owning that key.
// If two mutations target the same entity, the second
// overwrites the first in the overlay; both mutation ids remain
// recorded, and rolling back the second does not restore the first —
// callers that care must serialize conflicting mutations (documented,
// not enforced).
func (c *Cache) ApplyOptimisticUpdate(mutationID, entityKey string, updater Updater) *Cache {
	current, found := lookupEntity(entityKey, c.optimisticEntities, c.entities)
	replacement := updater(current, found)

	next := c.clone()
	next.optimisticEntities = cloneShallow(next.optimisticEntities)
	next.optimisticEntities[entityKey] = replacement
	next.optimisticMutations = cloneShallow(next.optimisticMutations)
	next.optimisticMutations[mutationID] = entityKey
	next.metrics.OptimisticApplied(mutationID)
	return next
}

// RollbackOptimistic discards the overlay entry owned by mutationID,
// restoring the prior visible value for its entity. An unknown
// mutationID is a no-op.
func (c *Cache) RollbackOptimistic(mutationID string) *Cache {
	entityKey, ok := c.optimisticMutations[mutationID]
	if !ok {
		return c
	}
	next := c.clone()
	next.optimisticEntities = cloneShallow(next.optimisticEntities)
	delete(next.optimisticEntities, entityKey)
	next.optimisticMutations = cloneShallow(next.optimisticMutations)
	delete(next.optimisticMutations, mutationID)
	next.metrics.OptimisticRolledBack(mutationID)
	return next
}

// CommitOptimistic parses responseBody, normalizes it, merges its
// entities into the base entity table, then removes the overlay entry
// and mutation record for mutationID. If responseBody fails to
// parse, the overlay/mutation entries are still removed — by this
// point in an update cycle the authoritative response has already
// flowed through StoreQuery, so there is nothing left to merge here.
// An unknown mutationID is a no-op.
func (c *Cache) CommitOptimistic(mutationID, responseBody string) *Cache {
	entityKey, ok := c.optimisticMutations[mutationID]
	if !ok {
		return c
	}

	next := c.clone()

	var tree Value
	if err := sonic.UnmarshalString(responseBody, &tree); err == nil {
		entities, _ := Normalize(tree)
		next.entities = mergeTables(next.entities, entities)
	}

	next.optimisticEntities = cloneShallow(next.optimisticEntities)
	delete(next.optimisticEntities, entityKey)
	next.optimisticMutations = cloneShallow(next.optimisticMutations)
	delete(next.optimisticMutations, mutationID)
	next.metrics.OptimisticCommitted(mutationID)
	return next
}
