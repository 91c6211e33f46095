package blockview

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Fetcher retrieves raw asset bytes by relative URI. Missing assets are
// reported with an error wrapping fs.ErrNotExist.
type Fetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

type FetcherFunc func(ctx context.Context, uri string) ([]byte, error)

func (f FetcherFunc) Fetch(ctx context.Context, uri string) ([]byte, error) { return f(ctx, uri) }

// DirFetcher reads assets below Root.
type DirFetcher struct {
	Root string
}

func NewDirFetcher(root string) *DirFetcher { return &DirFetcher{Root: root} }

func (f *DirFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return os.ReadFile(f.path(uri))
}

func (f *DirFetcher) path(uri string) string {
	// Clean against "/" so ".." cannot climb out of Root.
	return filepath.Join(f.Root, filepath.FromSlash(path.Clean("/"+uri)))
}

// HTTPFetcher GETs assets relative to BaseURL.
type HTTPFetcher struct {
	BaseURL string
	Client  *http.Client
}

func NewHTTPFetcher(baseURL string) *HTTPFetcher {
	return &HTTPFetcher{BaseURL: strings.TrimSuffix(baseURL, "/"), Client: http.DefaultClient}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	url := f.BaseURL + "/" + strings.TrimPrefix(uri, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("GET %s: %w", url, fs.ErrNotExist)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// ZstdFetcher prefers a ".zst" sibling of each asset and decodes it,
// falling back to the plain asset when no compressed copy exists.
type ZstdFetcher struct {
	next Fetcher
	dec  *zstd.Decoder
}

func NewZstdFetcher(next Fetcher) (*ZstdFetcher, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	return &ZstdFetcher{next: next, dec: dec}, nil
}

func (f *ZstdFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	data, err := f.next.Fetch(ctx, uri+".zst")
	if errors.Is(err, fs.ErrNotExist) {
		return f.next.Fetch(ctx, uri)
	}
	if err != nil {
		return nil, err
	}
	out, err := f.dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%s.zst: %w", uri, err)
	}
	return out, nil
}

func (f *ZstdFetcher) Close() { f.dec.Close() }

// CountingFetcher records how often each URI was requested.
type CountingFetcher struct {
	next Fetcher

	mu     sync.Mutex
	counts map[string]int
}

func NewCountingFetcher(next Fetcher) *CountingFetcher {
	return &CountingFetcher{next: next, counts: make(map[string]int)}
}

func (f *CountingFetcher) Fetch(ctx context.Context, uri string) ([]byte, error) {
	f.mu.Lock()
	f.counts[uri]++
	f.mu.Unlock()
	return f.next.Fetch(ctx, uri)
}

func (f *CountingFetcher) Count(uri string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[uri]
}

func (f *CountingFetcher) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.counts {
		n += c
	}
	return n
}

// OpenFetcher builds the fetcher chain described by cfg.
func OpenFetcher(cfg AssetsConfig) (Fetcher, func() error, error) {
	var (
		f       Fetcher
		closeFn = func() error { return nil }
	)
	switch {
	case cfg.Root != "":
		f = NewDirFetcher(cfg.Root)
	case cfg.BaseURL != "":
		f = NewHTTPFetcher(cfg.BaseURL)
	case cfg.Archive != "":
		a, err := OpenArchive(cfg.Archive)
		if err != nil {
			return nil, nil, err
		}
		f, closeFn = a, a.Close
	default:
		return nil, nil, errors.New("no asset source configured")
	}
	if cfg.Compressed {
		z, err := NewZstdFetcher(f)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		inner := closeFn
		f = z
		closeFn = func() error {
			z.Close()
			return inner()
		}
	}
	return f, closeFn, nil
}
