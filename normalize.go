package squallcache

import "strings"

// reservedPathSegments are skipped when inferring a typename from path.
var reservedPathSegments = map[string]bool{
	"data":    true,
	"results": true,
	"edges":   true,
	"node":    true,
}

// EntityTable maps an entity key to its normalized object (itself a
// skeleton: nested entities are referenced, not inlined).
type EntityTable map[string]map[string]any

// Normalize walks tree and extracts every entity it finds (an object
// carrying a string id) into entities, replacing each extracted
// subtree with a {__ref: entity_key} placeholder in the returned
// skeleton.
func Normalize(tree Value) (entities EntityTable, skeleton Value) {
	entities = EntityTable{}
	skeleton = normalizeNode(nil, tree, entities)
	return entities, skeleton
}

// normalizeNode classifies a single node by path and recurses.
func normalizeNode(path []string, node Value, entities EntityTable) Value {
	switch v := node.(type) {
	case map[string]any:
		if isEntityObject(v) {
			return normalizeEntity(path, v, entities)
		}
		return normalizePlainObject(path, v, entities)
	case []any:
		if isEdgesArray(v) {
			return normalizeEdges(path, v, entities)
		}
		out := make([]any, len(v))
		for i, elem := range v {
			out[i] = normalizeNode(path, elem, entities)
		}
		return out
	default:
		return v
	}
}

// normalizePlainObject recurses into an object with no usable id,
// preserving field identity and emitting no entity for the node
// itself.
func normalizePlainObject(path []string, obj map[string]any, entities EntityTable) map[string]any {
	out := make(map[string]any, len(obj))
	for field, val := range obj {
		out[field] = normalizeNode(append(append([]string(nil), path...), field), val, entities)
	}
	return out
}

// normalizeEntity extracts obj as an entity, merging it with any
// same-key entity already emitted earlier in this traversal, and
// returns a reference placeholder for it.
func normalizeEntity(path []string, obj map[string]any, entities EntityTable) map[string]any {
	id, _ := stringField(obj, "id")
	typename := entityTypename(path, obj)
	key := EntityKey(typename, id)

	normalized := normalizePlainObject(path, obj, entities)

	if existing, ok := entities[key]; ok {
		entities[key] = mergeEntities(existing, normalized)
	} else {
		entities[key] = normalized
	}
	return newReference(key)
}

// entityTypename determines an entity's typename: its own __typename
// field if present, else a heuristic inferred from path.
func entityTypename(path []string, obj map[string]any) string {
	if tn, ok := stringField(obj, "__typename"); ok {
		return tn
	}
	return inferTypename(path)
}

// inferTypename scans path from deepest to shallowest, skipping
// reserved segments, and singularizes the first remaining segment by
// stripping a single trailing "s" and upper-casing its first
// character. Falls back to "Entity" if nothing qualifies.
func inferTypename(path []string) string {
	for i := len(path) - 1; i >= 0; i-- {
		segment := path[i]
		if reservedPathSegments[segment] {
			continue
		}
		return singularizeAndCapitalize(segment)
	}
	return "Entity"
}

func singularizeAndCapitalize(segment string) string {
	singular := strings.TrimSuffix(segment, "s")
	if singular == "" {
		singular = segment
	}
	return strings.ToUpper(singular[:1]) + singular[1:]
}

// normalizeEdges handles Relay-style connection-edge deduplication:
// edges whose node repeats an already-seen entity key are
// dropped entirely (their entities are not re-emitted); the first
// occurrence is authoritative.
func normalizeEdges(path []string, arr []any, entities EntityTable) []any {
	nodePath := append(append([]string(nil), path...), "node")

	seen := make(map[string]bool)
	out := make([]any, 0, len(arr))
	for _, edge := range arr {
		edgeObj, ok := Object(edge)
		if !ok {
			out = append(out, normalizeNode(path, edge, entities))
			continue
		}

		if key, ok := edgeNodeKey(nodePath, edgeObj); ok {
			if seen[key] {
				continue
			}
			seen[key] = true
		}

		out = append(out, normalizePlainObject(path, edgeObj, entities))
	}
	return out
}

// edgeNodeKey computes the entity key for an edge's node field, if the
// node is an object carrying a string id.
func edgeNodeKey(nodePath []string, edgeObj map[string]any) (string, bool) {
	nodeObj, ok := Object(edgeObj["node"])
	if !ok {
		return "", false
	}
	id, ok := stringField(nodeObj, "id")
	if !ok {
		return "", false
	}
	typename := entityTypename(nodePath, nodeObj)
	return EntityKey(typename, id), true
}
