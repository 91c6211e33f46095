package blockview

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io/fs"
	"sync"
	"time"
)

// mapFetcher serves fixed documents from memory.
type mapFetcher map[string][]byte

func (m mapFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, ok := m[uri]
	if !ok {
		return nil, fmt.Errorf("%s: %w", uri, fs.ErrNotExist)
	}
	return data, nil
}

// slowFetcher delays every fetch so concurrent callers overlap.
type slowFetcher struct {
	next  Fetcher
	delay time.Duration
}

func (s slowFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	time.Sleep(s.delay)
	return s.next.Fetch(ctx, uri)
}

// delayFetcher holds the listed URIs for a fixed time before delegating and
// gives up early when ctx is done.
type delayFetcher struct {
	next   Fetcher
	delays map[string]time.Duration
}

func (d delayFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if delay, ok := d.delays[uri]; ok {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return d.next.Fetch(ctx, uri)
}

// flakyFetcher fails the first n fetches it sees, then delegates.
type flakyFetcher struct {
	next Fetcher
	n    int

	mu    sync.Mutex
	tries int
}

func (f *flakyFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	f.mu.Lock()
	f.tries++
	try := f.tries
	f.mu.Unlock()
	if try <= f.n {
		return nil, fmt.Errorf("%s: transient failure", uri)
	}
	return f.next.Fetch(ctx, uri)
}

func pngBytes(w, h int) []byte {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 16), G: uint8(y * 16), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// testAssets is a small asset tree shared by resolver and scene tests.
func testAssets() mapFetcher {
	tex := pngBytes(16, 16)
	return mapFetcher{
		"blockstates/stone.json": []byte(`{"variants":{"":{"model":"minecraft:block/stone"}}}`),
		"blockstates/grass_block.json": []byte(`{"variants":{
			"snowy=false":[{"model":"block/grass_block"},{"model":"block/grass_block","y":90}],
			"snowy=true":{"model":"block/grass_block_snow"}}}`),
		"blockstates/fence.json": []byte(`{"multipart":[
			{"apply":{"model":"block/fence_post"}},
			{"when":{"north":"true"},"apply":{"model":"block/fence_side","uvlock":true}},
			{"when":{"south":"true"},"apply":{"model":"block/fence_side","y":180,"uvlock":true}},
			{"when":{"OR":[{"east":"true"},{"west":"true"}]},"apply":{"model":"block/fence_side","y":90}}]}`),
		"blockstates/stairs.json": []byte(`{"variants":{
			"facing=east,half=bottom":{"model":"block/stone"},
			"facing=west,half=bottom":{"model":"block/stone","y":180}}}`),
		"blockstates/water.json":  []byte(`{"variants":{"":{"model":"block/water"}}}`),
		"blockstates/broken.json": []byte(`{"variants":{"":{"model":"block/missing"}}}`),
		"blockstates/both.json":   []byte(`{"variants":{},"multipart":[]}`),
		"models/block/block.json": []byte(`{"ambientocclusion":true}`),
		"models/block/cube.json": []byte(`{"parent":"block/block","elements":[{"from":[0,0,0],"to":[16,16,16],"faces":{
			"down":{"texture":"#down","cullface":"down"},
			"up":{"texture":"#up","cullface":"up"},
			"north":{"texture":"#north","cullface":"north"},
			"south":{"texture":"#south","cullface":"south"},
			"west":{"texture":"#west","cullface":"west"},
			"east":{"texture":"#east","cullface":"east"}}}]}`),
		"models/block/cube_all.json": []byte(`{"parent":"block/cube","textures":{"particle":"#all","down":"#all","up":"#all","north":"#all","east":"#all","south":"#all","west":"#all"}}`),
		"models/block/stone.json":    []byte(`{"parent":"minecraft:block/cube_all","textures":{"all":"minecraft:block/stone"}}`),
		"models/block/grass_block.json": []byte(`{"parent":"block/cube","textures":{"down":"block/dirt","up":"block/grass_block_top","north":"block/dirt","south":"block/dirt","east":"block/dirt","west":"block/dirt"},
			"elements":[{"from":[0,0,0],"to":[16,16,16],"faces":{"up":{"texture":"#up","tintindex":0},"down":{"texture":"#down"}}}]}`),
		"models/block/grass_block_snow.json": []byte(`{"parent":"block/cube_all","textures":{"all":"block/snow"}}`),
		"models/block/fence_post.json": []byte(`{"textures":{"texture":"block/oak_planks"},"elements":[{"from":[6,0,6],"to":[10,16,10],"faces":{
			"up":{"texture":"#texture"},"down":{"texture":"#texture"},"north":{"texture":"#texture"}}}]}`),
		"models/block/fence_side.json": []byte(`{"textures":{"texture":"block/oak_planks"},"elements":[{"from":[7,12,0],"to":[9,15,9],"faces":{
			"up":{"texture":"#texture"},"west":{"texture":"#texture"}}}]}`),
		"models/block/water.json": []byte(`{"textures":{"all":"block/water_still"},"elements":[{"from":[0,0,0],"to":[16,14,16],"faces":{
			"up":{"texture":"#all","tintindex":0}}}]}`),
		"textures/block/stone.png":           tex,
		"textures/block/dirt.png":            tex,
		"textures/block/grass_block_top.png": tex,
		"textures/block/snow.png":            tex,
		"textures/block/oak_planks.png":      tex,
		"textures/block/water_still.png":     pngBytes(16, 64),
		"materials.json":                     []byte(`{"0":"minecraft:air","1":"minecraft:stone","2":"minecraft:grass_block","3":"minecraft:water","4":"minecraft:broken","5":"minecraft:cave_air"}`),
		"biomes.json":                        []byte(`{"0":"minecraft:plains","1":"minecraft:swamp"}`),
	}
}
