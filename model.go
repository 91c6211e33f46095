package blockview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

type Direction string

const (
	Down  Direction = "down"
	Up    Direction = "up"
	North Direction = "north"
	South Direction = "south"
	West  Direction = "west"
	East  Direction = "east"
)

// Directions in emission order.
var Directions = [6]Direction{Down, Up, North, South, West, East}

func (d Direction) normalize() Direction {
	if d == "bottom" {
		return Down
	}
	return d
}

// Normal is the outward unit normal (+Y up, north is -Z, east is +X).
func (d Direction) Normal() mgl32.Vec3 {
	switch d {
	case Down:
		return mgl32.Vec3{0, -1, 0}
	case Up:
		return mgl32.Vec3{0, 1, 0}
	case North:
		return mgl32.Vec3{0, 0, -1}
	case South:
		return mgl32.Vec3{0, 0, 1}
	case West:
		return mgl32.Vec3{-1, 0, 0}
	case East:
		return mgl32.Vec3{1, 0, 0}
	}
	return mgl32.Vec3{}
}

// directionOf maps a unit axis vector back to its direction.
func directionOf(n mgl32.Vec3) Direction {
	best, bestDot := Up, float32(-2)
	for _, d := range Directions {
		if dot := d.Normal().Dot(n); dot > bestDot {
			best, bestDot = d, dot
		}
	}
	return best
}

// ModelDoc is one model document as stored, before parent flattening.
type ModelDoc struct {
	Parent           string            `json:"parent,omitempty"`
	AmbientOcclusion *bool             `json:"ambientocclusion,omitempty"`
	Textures         map[string]string `json:"textures,omitempty"`
	Elements         []Element         `json:"elements,omitempty"`
}

type Element struct {
	From     mgl32.Vec3         `json:"from"`
	To       mgl32.Vec3         `json:"to"`
	Rotation *ElementRotation   `json:"rotation,omitempty"`
	Shade    *bool              `json:"shade,omitempty"`
	Faces    map[Direction]Face `json:"faces"`
}

type ElementRotation struct {
	Origin  mgl32.Vec3 `json:"origin"`
	Axis    string     `json:"axis"`
	Angle   float32    `json:"angle"`
	Rescale bool       `json:"rescale,omitempty"`
}

type Face struct {
	UV        *[4]float32 `json:"uv,omitempty"`
	Texture   string      `json:"texture"`
	CullFace  Direction   `json:"cullface,omitempty"`
	Rotation  int         `json:"rotation,omitempty"`
	TintIndex *int        `json:"tintindex,omitempty"`
}

func (f Face) Tinted() bool { return f.TintIndex != nil && *f.TintIndex >= 0 }

// ResolvedModel is a model with its parent chain folded in.
type ResolvedModel struct {
	URI              string
	Textures         map[string]string
	Elements         []Element
	AmbientOcclusion bool
}

// ResolveTexture follows "#name" references through the texture map.
func (m *ResolvedModel) ResolveTexture(ref string, maxChase int) (string, error) {
	cur := ref
	for hops := 0; strings.HasPrefix(cur, "#"); hops++ {
		if hops >= maxChase {
			return "", &UnresolvedTextureReferenceError{Model: m.URI, Ref: ref}
		}
		next, ok := m.Textures[cur[1:]]
		if !ok {
			return "", &UnresolvedTextureReferenceError{Model: m.URI, Ref: ref}
		}
		cur = next
	}
	if cur == "" {
		return "", &UnresolvedTextureReferenceError{Model: m.URI, Ref: ref}
	}
	return cur, nil
}

func isBuiltinModel(uri string) bool {
	return strings.HasPrefix(StripNamespace(uri), "builtin/")
}

// ModelLoader fetches model documents and flattens parent chains. Documents
// and flattened models are cached until Reset.
type ModelLoader struct {
	fetcher Fetcher
	layout  Layout
	limits  Limits
	schema  *jsonschema.Schema
	log     Logger

	docs *flightCache[*ModelDoc]

	mu       sync.RWMutex
	resolved map[string]*ResolvedModel
}

func NewModelLoader(f Fetcher, layout Layout, limits Limits, validate bool, log Logger) *ModelLoader {
	l := &ModelLoader{
		fetcher:  f,
		layout:   layout,
		limits:   limits.WithDefaults(),
		log:      orNop(log),
		docs:     newFlightCache[*ModelDoc](),
		resolved: make(map[string]*ResolvedModel),
	}
	if validate {
		l.schema = modelSchema
	}
	return l
}

// Doc returns the unflattened document for uri.
func (l *ModelLoader) Doc(ctx context.Context, uri string) (*ModelDoc, error) {
	path := l.layout.ModelPath(uri)
	doc, _, err := l.docs.do(ctx, path, func(ctx context.Context) (*ModelDoc, error) {
		data, err := l.fetcher.Fetch(ctx, path)
		if err != nil {
			return nil, &AssetLoadError{URI: path, Err: err}
		}
		return parseModel(path, data, l.schema)
	})
	return doc, err
}

func parseModel(path string, data []byte, schema *jsonschema.Schema) (*ModelDoc, error) {
	if err := validateDocument(schema, data); err != nil {
		return nil, &AssetLoadError{URI: path, Err: err}
	}
	var doc ModelDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &AssetLoadError{URI: path, Err: err}
	}
	for i := range doc.Elements {
		el := &doc.Elements[i]
		faces := make(map[Direction]Face, len(el.Faces))
		for d, f := range el.Faces {
			f.CullFace = f.CullFace.normalize()
			faces[d.normalize()] = f
		}
		el.Faces = faces
	}
	return &doc, nil
}

// Resolve flattens uri's parent chain. Textures merge key-wise with the
// child winning, the nearest declared elements list wins wholesale, and the
// nearest ambientocclusion wins. A chain that never declares elements is an
// IncompleteModelError.
func (l *ModelLoader) Resolve(ctx context.Context, uri string) (*ResolvedModel, error) {
	key := l.layout.ModelPath(uri)
	l.mu.RLock()
	m, ok := l.resolved[key]
	l.mu.RUnlock()
	if ok {
		return m, nil
	}

	var chain []*ModelDoc
	seen := make(map[string]bool)
	for cur := uri; cur != "" && !isBuiltinModel(cur); {
		path := l.layout.ModelPath(cur)
		if seen[path] {
			return nil, &AssetLoadError{URI: path, Err: fmt.Errorf("parent cycle in model %s", uri)}
		}
		seen[path] = true
		if len(chain) >= l.limits.MaxParentDepth {
			return nil, &TooManyPartsError{
				What:  fmt.Sprintf("model %s parent depth", uri),
				Count: len(chain) + 1,
				Limit: l.limits.MaxParentDepth,
			}
		}
		doc, err := l.Doc(ctx, cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, doc)
		cur = doc.Parent
	}

	m = &ResolvedModel{URI: uri, Textures: make(map[string]string), AmbientOcclusion: true}
	declared := false
	for i := len(chain) - 1; i >= 0; i-- {
		doc := chain[i]
		for k, v := range doc.Textures {
			m.Textures[k] = v
		}
		if doc.Elements != nil {
			m.Elements = doc.Elements
			declared = true
		}
		if doc.AmbientOcclusion != nil {
			m.AmbientOcclusion = *doc.AmbientOcclusion
		}
	}
	if !declared {
		return nil, &IncompleteModelError{Model: uri}
	}
	l.log.Debugf("model %s flattened from %d documents", uri, len(chain))

	l.mu.Lock()
	l.resolved[key] = m
	l.mu.Unlock()
	return m, nil
}

func (l *ModelLoader) Reset() {
	l.docs.reset()
	l.mu.Lock()
	l.resolved = make(map[string]*ResolvedModel)
	l.mu.Unlock()
}
