package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"runtime"
	"time"

	"github.com/gekko3d/blockview"
	"github.com/gekko3d/blockview/gpu"
)

func init() {
	// GLFW must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "pack" {
		if err := packCmd(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "pack:", err)
			os.Exit(1)
		}
		return
	}
	if err := viewCmd(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, "blockview:", err)
		os.Exit(1)
	}
}

type options struct {
	cfg      blockview.Config
	headless bool
	radius   int
}

func parseOptions(args []string) (options, error) {
	fset := flag.NewFlagSet("blockview", flag.ContinueOnError)
	configPath := fset.String("config", "", "YAML config file")
	root := fset.String("assets", "", "asset directory (overrides config)")
	baseURL := fset.String("url", "", "asset base URL (overrides config)")
	archive := fset.String("archive", "", "sqlite asset archive (overrides config)")
	compressed := fset.Bool("zstd", false, "prefer .zst compressed assets")
	world := fset.String("world", "", "world name from server.json")
	radius := fset.Int("radius", -1, "load chunks within this radius of spawn instead of the configured list")
	headless := fset.Bool("headless", false, "resolve without a window and print statistics")
	watch := fset.Bool("watch", false, "reload when files under the asset directory change")
	debug := fset.Bool("debug", false, "debug logging")
	if err := fset.Parse(args); err != nil {
		return options{}, err
	}

	cfg := blockview.Defaults()
	if *configPath != "" {
		var err error
		if cfg, err = blockview.LoadConfig(*configPath); err != nil {
			return options{}, err
		}
	}
	switch {
	case *root != "":
		cfg.Assets = blockview.AssetsConfig{Root: *root, Validate: cfg.Assets.Validate, Watch: cfg.Assets.Watch}
	case *baseURL != "":
		cfg.Assets = blockview.AssetsConfig{BaseURL: *baseURL, Validate: cfg.Assets.Validate}
	case *archive != "":
		cfg.Assets = blockview.AssetsConfig{Archive: *archive, Validate: cfg.Assets.Validate}
	}
	if *compressed {
		cfg.Assets.Compressed = true
	}
	if *watch {
		cfg.Assets.Watch = true
	}
	if *world != "" {
		cfg.World.Name = *world
	}
	if *debug {
		cfg.Log.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return options{}, err
	}
	return options{cfg: cfg, headless: *headless, radius: *radius}, nil
}

func viewCmd(args []string) error {
	opts, err := parseOptions(args)
	if err != nil {
		return err
	}
	cfg := opts.cfg
	log := blockview.NewDefaultLogger(cfg.Log.Prefix, cfg.Log.Debug)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fetcher, closeFetcher, err := blockview.OpenFetcher(cfg.Assets)
	if err != nil {
		return err
	}
	defer closeFetcher()

	worldName, chunks, spawn, err := pickWorld(ctx, fetcher, cfg, opts.radius, log)
	if err != nil {
		return err
	}

	if opts.headless {
		return runHeadless(ctx, cfg, fetcher, worldName, chunks, log)
	}
	return runWindow(ctx, cfg, fetcher, worldName, chunks, spawn, log)
}

// pickWorld chooses the world and chunk list from server.json when it is
// exported, falling back to the configured values.
func pickWorld(ctx context.Context, f blockview.Fetcher, cfg blockview.Config, radius int, log blockview.Logger) (string, []blockview.ChunkPos, blockview.BlockPos, error) {
	name, chunks := cfg.World.Name, cfg.ChunkList()
	var spawn blockview.BlockPos
	manifest, err := blockview.LoadServerManifest(ctx, f, cfg.Layout)
	switch {
	case err == nil:
		w, err := manifest.World(cfg.World.Name)
		if err != nil {
			return "", nil, spawn, err
		}
		name, spawn = w.Name, w.Spawn.BlockPos()
		if manifest.Motd != "" {
			log.Infof("server: %s", manifest.Motd)
		}
	case errors.Is(err, fs.ErrNotExist):
		log.Debugf("no server manifest, using configured world")
	default:
		return "", nil, spawn, err
	}
	if name == "" {
		return "", nil, spawn, errors.New("no world name configured and no server manifest")
	}
	if radius >= 0 {
		chunks = blockview.ChunksAround(spawn, radius)
	}
	return name, chunks, spawn, nil
}

func newScene(cfg blockview.Config, backend blockview.Backend, f blockview.Fetcher, log blockview.Logger) (*blockview.Scene, error) {
	return blockview.NewScene(blockview.SceneConfig{
		Backend:  backend,
		Fetcher:  f,
		Layout:   cfg.Layout,
		Limits:   cfg.Limits,
		Selector: cfg.Selector(),
		Validate: cfg.Assets.Validate,
		Logger:   log,
	})
}

func newLoader(cfg blockview.Config, scene *blockview.Scene, f blockview.Fetcher, log blockview.Logger) *blockview.WorldLoader {
	return &blockview.WorldLoader{
		Scene:       scene,
		Lookup:      blockview.NewLookup(f, cfg.Layout),
		Fetcher:     f,
		Layout:      cfg.Layout,
		Concurrency: cfg.Limits.Concurrency,
		Placeholder: cfg.World.Placeholder,
		Logger:      log,
	}
}

func runHeadless(ctx context.Context, cfg blockview.Config, f blockview.Fetcher, world string, chunks []blockview.ChunkPos, log blockview.Logger) error {
	server := blockview.NewAssetServer()
	scene, err := newScene(cfg, server, f, log)
	if err != nil {
		return err
	}
	defer scene.Close()

	start := time.Now()
	res, err := newLoader(cfg, scene, f, log).LoadChunks(ctx, world, chunks)
	if err != nil {
		return err
	}
	st := scene.Stats()
	fmt.Printf("world %s: %d chunks (%d missing), %d blocks, %d skipped\n",
		world, res.Chunks, len(res.MissingChunks), len(res.Instances), res.Skipped)
	fmt.Printf("cache: %d block states, %d textures, %d materials, %d instances in %s\n",
		st.BlockStates, st.Textures, st.Materials, st.Instances, time.Since(start).Round(time.Millisecond))
	for kind, n := range res.FailureCounts() {
		fmt.Printf("failures %s: %d\n", kind, n)
	}
	for _, d := range res.Diagnostics {
		log.Debugf("%s", d)
	}
	return nil
}

func runWindow(ctx context.Context, cfg blockview.Config, f blockview.Fetcher, world string, chunks []blockview.ChunkPos, spawn blockview.BlockPos, log blockview.Logger) error {
	win, err := gpu.NewWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title)
	if err != nil {
		return err
	}
	defer win.Destroy()
	gctx, err := gpu.NewContext(win)
	if err != nil {
		return err
	}
	defer gctx.Release()
	backend, err := gpu.NewBackend(gctx)
	if err != nil {
		return err
	}
	defer backend.Close()

	scene, err := newScene(cfg, backend, f, log)
	if err != nil {
		return err
	}
	defer scene.Close()

	loader := newLoader(cfg, scene, f, log)
	load := func() {
		go func() {
			if _, err := loader.LoadChunks(ctx, world, chunks); err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("load %s: %v", world, err)
			}
		}()
	}
	load()

	if cfg.Assets.Watch && cfg.Assets.Root != "" {
		w, err := blockview.WatchAssets(cfg.Assets.Root, scene, 300*time.Millisecond, load, log)
		if err != nil {
			return err
		}
		defer w.Close()
	}

	camera := gpu.NewOrbitCamera(spawn.Vec3())
	err = gpu.NewViewer(win, gctx, backend, camera, log).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
