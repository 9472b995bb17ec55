package imagepkg

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"

	"github.com/youruser/cardsmith/internal/util"
)

// SVGSize is the pixel size SVG references are rasterized at before being
// scaled into their box.
const SVGSize = 256

// DefaultCacheEntries bounds how many decoded images a Loader keeps.
const DefaultCacheEntries = 128

var (
	ErrEmptyRef       = errors.New("empty image reference")
	ErrUnsupportedRef = errors.New("unsupported image reference")
)

// Fetcher downloads a remote reference.
type Fetcher func(ctx context.Context, url string) ([]byte, error)

// Loader resolves opaque image references: data URIs, http(s) URLs,
// mounted prefixes and paths under Root. Decoded images are kept in an LRU
// cache keyed by reference; data URIs are decoded on every load.
type Loader struct {
	Root  string
	Fetch Fetcher
	// Mounts serve references starting with a prefix, e.g. "/assets/".
	// The fetcher receives the reference with the prefix removed.
	Mounts map[string]Fetcher
	// CacheEntries caps the cache; zero means DefaultCacheEntries. It is
	// read once, on the first cached load.
	CacheEntries int

	mu    sync.Mutex
	cache *lru.Cache[string, image.Image]
}

func NewLoader(root string) *Loader {
	return &Loader{Root: root, Fetch: util.GetBytes}
}

// Load returns the decoded image for ref.
func (l *Loader) Load(ctx context.Context, ref string) (image.Image, error) {
	if ref == "" {
		return nil, ErrEmptyRef
	}
	cacheable := !strings.HasPrefix(ref, "data:")
	if cacheable {
		if img, ok := l.images().Get(ref); ok {
			return img, nil
		}
	}

	data, err := l.read(ctx, ref)
	if err != nil {
		return nil, err
	}
	img, err := DecodeImage(data)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", shortRef(ref), err)
	}
	if cacheable {
		l.images().Add(ref, img)
	}
	return img, nil
}

// Forget drops a cached reference, e.g. after the asset was deleted or an
// icon file changed.
func (l *Loader) Forget(ref string) {
	l.images().Remove(ref)
}

// Cached reports how many decoded images are held.
func (l *Loader) Cached() int {
	return l.images().Len()
}

func (l *Loader) images() *lru.Cache[string, image.Image] {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.cache == nil {
		size := l.CacheEntries
		if size <= 0 {
			size = DefaultCacheEntries
		}
		// only fails on a non-positive size
		l.cache, _ = lru.New[string, image.Image](size)
	}
	return l.cache
}

// Mount routes references with the given prefix to fetch.
func (l *Loader) Mount(prefix string, fetch Fetcher) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.Mounts == nil {
		l.Mounts = map[string]Fetcher{}
	}
	l.Mounts[prefix] = fetch
}

// DirFetcher reads mounted references as files under dir. Paths cannot
// climb out of dir.
func DirFetcher(dir string) Fetcher {
	return func(_ context.Context, rest string) ([]byte, error) {
		p := filepath.Join(dir, filepath.Clean("/"+filepath.FromSlash(rest)))
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read image %s: %w", rest, err)
		}
		return b, nil
	}
}

func (l *Loader) mounted(ref string) (Fetcher, string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for prefix, fetch := range l.Mounts {
		if rest, ok := strings.CutPrefix(ref, prefix); ok {
			return fetch, rest, true
		}
	}
	return nil, "", false
}

func (l *Loader) read(ctx context.Context, ref string) ([]byte, error) {
	if fetch, rest, ok := l.mounted(ref); ok {
		return fetch(ctx, rest)
	}
	switch {
	case strings.HasPrefix(ref, "data:"):
		return decodeDataURI(ref)
	case strings.HasPrefix(ref, "http://"), strings.HasPrefix(ref, "https://"):
		fetch := l.Fetch
		if fetch == nil {
			fetch = util.GetBytes
		}
		return fetch(ctx, ref)
	}
	if u, err := url.Parse(ref); err == nil && u.Scheme != "" && u.Scheme != "file" && len(u.Scheme) > 1 {
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedRef, u.Scheme)
	}
	// with a Root every path, absolute or not, stays inside it
	path := strings.TrimPrefix(ref, "file://")
	if l.Root != "" {
		path = filepath.Join(l.Root, filepath.Clean("/"+filepath.FromSlash(path)))
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", ref, err)
	}
	return b, nil
}

func decodeDataURI(ref string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(ref, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data uri", ErrUnsupportedRef)
	}
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedRef, err)
		}
		return b, nil
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedRef, err)
	}
	return []byte(s), nil
}

// DecodeImage decodes PNG, JPEG, GIF, BMP, TIFF or SVG bytes.
func DecodeImage(data []byte) (image.Image, error) {
	if isSVG(data) {
		return RasterizeSVG(data, SVGSize, SVGSize)
	}
	return imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
}

func isSVG(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return bytes.Contains(bytes.ToLower(head), []byte("<svg"))
}

// RasterizeSVG renders an SVG document into a w×h RGBA image.
func RasterizeSVG(data []byte, w, h int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, fmt.Errorf("parse svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	icon.Draw(rasterx.NewDasher(w, h, scanner), 1)
	return rgba, nil
}

func shortRef(ref string) string {
	if len(ref) > 64 {
		return ref[:61] + "..."
	}
	return ref
}
