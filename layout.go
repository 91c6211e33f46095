package blockview

import (
	"fmt"
	"path"
	"strings"
)

// Layout maps block names and resource URIs to fetcher paths.
type Layout struct {
	BlockStates string `yaml:"blockstates"`
	Models      string `yaml:"models"`
	Textures    string `yaml:"textures"`
	Materials   string `yaml:"materials"`
	Biomes      string `yaml:"biomes"`
	Server      string `yaml:"server"`
}

func DefaultLayout() Layout {
	return Layout{
		BlockStates: "blockstates",
		Models:      "models/block",
		Textures:    "textures/block",
		Materials:   "materials.json",
		Biomes:      "biomes.json",
		Server:      "server.json",
	}
}

func (l Layout) BlockStatePath(block string) string {
	return path.Join(l.BlockStates, resourceName(block)+".json")
}

func (l Layout) ModelPath(uri string) string {
	return path.Join(l.Models, resourceName(uri)+".json")
}

func (l Layout) TexturePath(uri string) string {
	return path.Join(l.Textures, resourceName(uri)+".png")
}

func (l Layout) ChunkPath(world string, pos ChunkPos) string {
	return path.Join(world, fmt.Sprintf("%d.%d.json", pos.X, pos.Z))
}

// resourceName reduces "minecraft:block/stone" or "block/stone" to "stone".
func resourceName(uri string) string {
	if i := strings.LastIndexByte(uri, ':'); i >= 0 {
		uri = uri[i+1:]
	}
	if i := strings.LastIndexByte(uri, '/'); i >= 0 {
		uri = uri[i+1:]
	}
	return uri
}

// StripNamespace drops a leading "ns:" from a block or resource name.
func StripNamespace(name string) string {
	if i := strings.IndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}
