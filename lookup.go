package blockview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"sync"
)

// Lookup maps material and biome ordinals to names. It must be loaded
// once before any query.
type Lookup struct {
	fetcher Fetcher
	layout  Layout

	mu        sync.RWMutex
	loaded    bool
	materials map[int]string
	biomes    map[int]string
}

func NewLookup(f Fetcher, layout Layout) *Lookup {
	return &Lookup{fetcher: f, layout: layout}
}

// Load fetches the materials map and, when present, the biomes map.
func (l *Lookup) Load(ctx context.Context) error {
	materials, err := l.fetchTable(ctx, l.layout.Materials)
	if err != nil {
		return err
	}
	biomes, err := l.fetchTable(ctx, l.layout.Biomes)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	l.mu.Lock()
	l.materials, l.biomes, l.loaded = materials, biomes, true
	l.mu.Unlock()
	return nil
}

func (l *Lookup) fetchTable(ctx context.Context, uri string) (map[int]string, error) {
	data, err := l.fetcher.Fetch(ctx, uri)
	if err != nil {
		return nil, &AssetLoadError{URI: uri, Err: err}
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &AssetLoadError{URI: uri, Err: err}
	}
	out := make(map[int]string, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil {
			return nil, &AssetLoadError{URI: uri, Err: fmt.Errorf("key %q: %w", k, err)}
		}
		out[n] = v
	}
	return out, nil
}

func (l *Lookup) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

func (l *Lookup) MaterialName(ordinal int) (string, error) {
	return l.name(ordinal, func() map[int]string { return l.materials }, "material")
}

func (l *Lookup) BiomeName(ordinal int) (string, error) {
	return l.name(ordinal, func() map[int]string { return l.biomes }, "biome")
}

func (l *Lookup) name(ordinal int, table func() map[int]string, what string) (string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.loaded {
		return "", ErrLookupNotLoaded
	}
	name, ok := table()[ordinal]
	if !ok {
		return "", fmt.Errorf("unknown %s ordinal %d", what, ordinal)
	}
	return name, nil
}

var airMaterials = map[string]bool{
	"air":      true,
	"cave_air": true,
	"void_air": true,
}

// IsVisibleMaterial reports whether a block of this material produces geometry.
func IsVisibleMaterial(name string) bool {
	return name != "" && !airMaterials[StripNamespace(name)]
}
