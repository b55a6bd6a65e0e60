// Package assetcache keeps a versioned copy of the web shell's static assets
// in blob storage so the UI keeps working without network connectivity.
// Navigations are served network-first, every other asset cache-first, and
// bumping the version tag evicts all previous namespaces on activation.
package assetcache

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/kompvlz/zakupki/internal/blob"
	"github.com/kompvlz/zakupki/internal/metrics"
)

// EntryPath is the canonical shell document. Successful navigation fetches
// are stored under it, and offline navigations fall back to it.
const EntryPath = "/index.html"

// activePointerKey stores the version tag currently in control.
const activePointerKey = "asset_active_version"

// DefaultManifest lists every asset that must be cacheable at install time.
func DefaultManifest() []string {
	return []string{
		"/",
		"/index.html",
		"/styles.css",
		"/app.js",
		"/manifest.webmanifest",
		"/assets/icon-72.png",
		"/assets/icon-96.png",
		"/assets/icon-128.png",
		"/assets/icon-144.png",
		"/assets/icon-152.png",
		"/assets/icon-192.png",
		"/assets/icon-256.png",
		"/assets/icon-384.png",
		"/assets/icon-512.png",
	}
}

// Asset is one cached response.
type Asset struct {
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Fetcher retrieves an asset from the origin.
type Fetcher interface {
	Fetch(ctx context.Context, path string) (*Asset, error)
}

// OriginFetcher fetches assets over HTTP from a base URL.
type OriginFetcher struct {
	Base   *url.URL
	Client *http.Client
}

func NewOriginFetcher(base string) (*OriginFetcher, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse origin %q: %w", base, err)
	}
	return &OriginFetcher{Base: u, Client: http.DefaultClient}, nil
}

func (f *OriginFetcher) Fetch(ctx context.Context, path string) (*Asset, error) {
	u := *f.Base
	u.Path = strings.TrimSuffix(u.Path, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	res, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d", path, res.StatusCode)
	}
	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	return &Asset{ContentType: res.Header.Get("Content-Type"), Body: body}, nil
}

// Cache is one installed worker instance serving a fixed manifest.
type Cache struct {
	version  string
	manifest []string
	blobs    blob.Store
	origin   Fetcher
	log      *logrus.Logger

	mu     sync.Mutex
	active string // version tag currently serving requests
}

func New(version string, manifest []string, blobs blob.Store, origin Fetcher, log *logrus.Logger) *Cache {
	c := &Cache{version: version, manifest: manifest, blobs: blobs, origin: origin, log: log}
	if raw, err := blobs.Get(activePointerKey); err == nil {
		c.active = string(raw)
	}
	return c
}

// ActiveVersion returns the namespace currently in control, empty when no
// install has ever activated.
func (c *Cache) ActiveVersion() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Install fetches every manifest asset into this version's namespace. Any
// fetch failure aborts the whole install: nothing is written and the
// previously active namespace stays in control.
func (c *Cache) Install(ctx context.Context) error {
	staged := make(map[string]*Asset, len(c.manifest))
	for _, path := range c.manifest {
		a, err := c.origin.Fetch(ctx, path)
		if err != nil {
			return fmt.Errorf("install %s: %w", path, err)
		}
		staged[path] = a
	}
	for path, a := range staged {
		if err := c.put(path, a); err != nil {
			return fmt.Errorf("install %s: %w", path, err)
		}
	}
	c.log.WithFields(logrus.Fields{"version": c.version, "assets": len(staged)}).Info("asset cache installed")
	return nil
}

// Activate marks this version as the one serving requests and evicts every
// other namespace wholesale.
func (c *Cache) Activate() error {
	if err := c.blobs.Put(activePointerKey, []byte(c.version)); err != nil {
		return fmt.Errorf("activate %s: %w", c.version, err)
	}
	c.mu.Lock()
	c.active = c.version
	c.mu.Unlock()

	keys, err := c.blobs.Keys("asset:")
	if err != nil {
		return fmt.Errorf("list namespaces: %w", err)
	}
	prefix := nsPrefix(c.version)
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			continue
		}
		if err := c.blobs.Delete(k); err != nil {
			return fmt.Errorf("evict %s: %w", k, err)
		}
	}
	c.log.WithField("version", c.version).Info("asset cache activated")
	return nil
}

// ServeHTTP intercepts asset requests. Navigations go network-first with the
// cached shell as offline fallback; everything else is cache-first, with a
// miss fetched and stored for next time. A miss that also fails on the
// network propagates as a bad gateway.
func (c *Cache) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET,HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if isNavigation(r) {
		c.serveNavigation(w, r)
		return
	}
	c.serveAsset(w, r)
}

func (c *Cache) serveNavigation(w http.ResponseWriter, r *http.Request) {
	a, err := c.origin.Fetch(r.Context(), r.URL.Path)
	if err == nil {
		metrics.CacheRequests.WithLabelValues("network").Inc()
		if perr := c.put(EntryPath, a); perr != nil {
			c.log.WithError(perr).Warn("store navigation copy")
		}
		writeAsset(w, a)
		return
	}
	cached, cerr := c.get(EntryPath)
	if cerr != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		http.Error(w, "offline and no cached shell", http.StatusBadGateway)
		return
	}
	metrics.CacheRequests.WithLabelValues("hit").Inc()
	writeAsset(w, cached)
}

func (c *Cache) serveAsset(w http.ResponseWriter, r *http.Request) {
	if cached, err := c.get(r.URL.Path); err == nil {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		writeAsset(w, cached)
		return
	}
	a, err := c.origin.Fetch(r.Context(), r.URL.Path)
	if err != nil {
		metrics.CacheRequests.WithLabelValues("error").Inc()
		http.Error(w, "asset unavailable", http.StatusBadGateway)
		return
	}
	metrics.CacheRequests.WithLabelValues("miss").Inc()
	if perr := c.put(r.URL.Path, a); perr != nil {
		c.log.WithError(perr).Warn("store fetched asset")
	}
	writeAsset(w, a)
}

// put stores into this instance's own namespace; get reads from whichever
// namespace is active (the previous version keeps serving until Activate).
func (c *Cache) put(path string, a *Asset) error {
	raw, err := encodeAsset(a)
	if err != nil {
		return err
	}
	return c.blobs.Put(nsPrefix(c.version)+path, raw)
}

func (c *Cache) get(path string) (*Asset, error) {
	c.mu.Lock()
	active := c.active
	c.mu.Unlock()
	if active == "" {
		return nil, blob.ErrNotFound
	}
	raw, err := c.blobs.Get(nsPrefix(active) + path)
	if err != nil {
		return nil, err
	}
	return decodeAsset(raw)
}

func nsPrefix(version string) string {
	return "asset:" + version + ":"
}

func isNavigation(r *http.Request) bool {
	if mode := r.Header.Get("Sec-Fetch-Mode"); mode != "" {
		return mode == "navigate"
	}
	return r.URL.Path == "/" || strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeAsset(w http.ResponseWriter, a *Asset) {
	if a.ContentType != "" {
		w.Header().Set("Content-Type", a.ContentType)
	}
	if _, err := w.Write(a.Body); err != nil {
		_ = err
	}
}

var errBadEnvelope = errors.New("assetcache: malformed cached asset")
