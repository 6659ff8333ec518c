package squallcache

// mergeEntities combines two versions of the same entity field by
// field: the union of field names is computed, and for each field the
// value from newEntity wins if present, else the value from existing
// is kept. Values are not deep-merged — a field's value in
// newEntity replaces the entire value in existing, since the
// normalizer has already pulled any nested entity out by reference
// before merge ever sees it.
func mergeEntities(existing, newEntity map[string]any) map[string]any {
	out := make(map[string]any, len(existing)+len(newEntity))
	for field, val := range existing {
		out[field] = val
	}
	for field, val := range newEntity {
		out[field] = val
	}
	return out
}

// mergeTables folds incoming into base: entities absent from base are
// inserted as-is, entities present in both are combined with
// mergeEntities. base is not mutated; a new table is returned.
func mergeTables(base, incoming EntityTable) EntityTable {
	out := make(EntityTable, len(base)+len(incoming))
	for key, entity := range base {
		out[key] = entity
	}
	for key, entity := range incoming {
		if existing, ok := out[key]; ok {
			out[key] = mergeEntities(existing, entity)
		} else {
			out[key] = entity
		}
	}
	return out
}
