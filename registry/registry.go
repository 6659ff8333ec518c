// Package registry provides default squallcache.Registry
// implementations backed by a YAML manifest or a plain map.
package registry

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	squallcache "github.com/bigmoves/squall-cache"
)

// MapRegistry is a squallcache.Registry backed by a plain map, useful
// for tests and small embedded query sets.
type MapRegistry map[string]string

// Get implements squallcache.Registry.
func (r MapRegistry) Get(name string) (squallcache.QueryInfo, error) {
	query, ok := r[name]
	if !ok {
		return squallcache.QueryInfo{}, fmt.Errorf("%w: %s", squallcache.ErrQueryNotRegistered, name)
	}
	return squallcache.QueryInfo{Query: query}, nil
}

// YAMLRegistry is a squallcache.Registry loaded from a YAML document
// mapping query names to GraphQL query text:
//
//	GetSettings: |
//	  query GetSettings { settings { domainAuthority } }
type YAMLRegistry struct {
	queries map[string]string
}

// LoadYAML parses a YAML document of name -> query-text pairs.
func LoadYAML(data []byte) (*YAMLRegistry, error) {
	var queries map[string]string
	if err := yaml.Unmarshal(data, &queries); err != nil {
		return nil, fmt.Errorf("parsing registry manifest: %w", err)
	}
	return &YAMLRegistry{queries: queries}, nil
}

// LoadYAMLFile reads and parses a YAML registry manifest from path.
func LoadYAMLFile(path string) (*YAMLRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry manifest %s: %w", path, err)
	}
	return LoadYAML(data)
}

// Get implements squallcache.Registry.
func (r *YAMLRegistry) Get(name string) (squallcache.QueryInfo, error) {
	query, ok := r.queries[name]
	if !ok {
		return squallcache.QueryInfo{}, fmt.Errorf("%w: %s", squallcache.ErrQueryNotRegistered, name)
	}
	return squallcache.QueryInfo{Query: query}, nil
}

// Names returns the registered query names, for diagnostics.
func (r *YAMLRegistry) Names() []string {
	names := make([]string, 0, len(r.queries))
	for name := range r.queries {
		names = append(names, name)
	}
	return names
}
