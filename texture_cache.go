package blockview

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/png"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
)

// Texture is a loaded block texture. Vertical strips (animated textures)
// address their first square frame.
type Texture struct {
	URI    string
	Width  int
	Height int
	Asset  AssetId
}

// FrameScale is the fraction of the image height covered by one frame.
func (t *Texture) FrameScale() float32 {
	if t == nil || t.Height <= t.Width || t.Height == 0 {
		return 1
	}
	return float32(t.Width) / float32(t.Height)
}

// TextureCache loads each texture once per backend.
type TextureCache struct {
	fetcher Fetcher
	layout  Layout
	backend Backend
	log     Logger
	cache   *flightCache[*Texture]
}

func NewTextureCache(f Fetcher, layout Layout, backend Backend, log Logger) *TextureCache {
	return &TextureCache{
		fetcher: f,
		layout:  layout,
		backend: backend,
		log:     orNop(log),
		cache:   newFlightCache[*Texture](),
	}
}

func (c *TextureCache) Get(ctx context.Context, uri string) (*Texture, error) {
	if uri == "" {
		return nil, &AssetLoadError{URI: uri, Err: errors.New("empty texture uri")}
	}
	path := c.layout.TexturePath(uri)
	tex, _, err := c.cache.do(ctx, path, func(ctx context.Context) (*Texture, error) {
		return c.load(ctx, uri, path)
	})
	return tex, err
}

func (c *TextureCache) load(ctx context.Context, uri, path string) (*Texture, error) {
	data, err := c.fetcher.Fetch(ctx, path)
	if err != nil {
		return nil, &AssetLoadError{URI: path, Err: err}
	}
	rgba, err := decodeRGBA(data)
	if err != nil {
		return nil, &AssetLoadError{URI: path, Err: err}
	}
	b := rgba.Bounds()
	id, err := c.backend.LoadTexture(TextureData{
		URI:    uri,
		Width:  uint32(b.Dx()),
		Height: uint32(b.Dy()),
		Format: TextureFormatRGBA8UnormSrgb,
		Texels: rgba.Pix,
	})
	if err != nil {
		return nil, fmt.Errorf("upload texture %s: %w", path, err)
	}
	c.log.Debugf("texture %s loaded (%dx%d)", path, b.Dx(), b.Dy())
	return &Texture{URI: uri, Width: b.Dx(), Height: b.Dy(), Asset: id}, nil
}

func (c *TextureCache) Len() int { return c.cache.len() }

// Release drops every cached texture and frees its backend asset.
func (c *TextureCache) Release() {
	for _, t := range c.cache.reset() {
		c.backend.Release(t.Asset)
	}
}

func decodeRGBA(data []byte) (*image.RGBA, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) && rgba.Stride == 4*rgba.Bounds().Dx() {
		return rgba, nil
	}
	b := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	return rgba, nil
}
