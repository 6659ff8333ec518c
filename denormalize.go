package squallcache

// Denormalize walks skeleton and substitutes each {__ref: key}
// placeholder by resolving key against overlay, then base.
// Resolution is recursive: the looked-up entity is itself a skeleton
// and is denormalized in the same pass. Cyclic entity graphs (e.g.
// author <-> post) are terminated by tracking keys already resolved on
// the current path; a reference revisited on its own path is left
// unresolved instead of recursing forever. An unresolved
// reference — one whose key is absent from both stores — is passed
// through unchanged.
func Denormalize(skeleton Value, overlay, base EntityTable) Value {
	return denormalize(skeleton, overlay, base, map[string]bool{})
}

func denormalize(node Value, overlay, base EntityTable, onPath map[string]bool) Value {
	if key, ok := isReference(node); ok {
		if onPath[key] {
			return node
		}
		entity, found := lookupEntity(key, overlay, base)
		if !found {
			return node
		}
		onPath[key] = true
		resolved := denormalizeObject(entity, overlay, base, onPath)
		delete(onPath, key)
		return resolved
	}

	switch v := node.(type) {
	case map[string]any:
		return denormalizeObject(v, overlay, base, onPath)
	case []any:
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = denormalize(elem, overlay, base, onPath)
		}
		return out
	default:
		return v
	}
}

func denormalizeObject(obj map[string]any, overlay, base EntityTable, onPath map[string]bool) map[string]any {
	out := make(map[string]any, len(obj))
	for field, val := range obj {
		out[field] = denormalize(val, overlay, base, onPath)
	}
	return out
}

// lookupEntity resolves an entity key against overlay first, then
// base.
func lookupEntity(key string, overlay, base EntityTable) (map[string]any, bool) {
	if e, ok := overlay[key]; ok {
		return e, true
	}
	if e, ok := base[key]; ok {
		return e, true
	}
	return nil, false
}
