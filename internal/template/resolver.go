package template

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jmcallister/fleetreport/internal/pdfutil"
)

//go:embed templates/default.html
var embeddedDefault string

// defaultKeyword is the bare identifier that always resolves to the bundled
// default markup template.
const defaultKeyword = "default"

// ResolverConfig carries the collaborators a Resolver needs.
type ResolverConfig struct {
	Objects      ObjectSource
	HTTPClient   *http.Client
	TemplatesDir string
	DefaultID    string
	Logger       *zap.Logger
}

// Resolver loads and classifies report templates.
type Resolver struct {
	objects    ObjectSource
	client     *http.Client
	dir        string
	defaultID  string
	log        *zap.Logger
	cache      *contentCache
	strategies []strategy
}

// strategy pairs an identifier shape with its loader. Strategies are tried in
// order; the bundled loader matches everything and therefore goes last.
type strategy struct {
	name    string
	matches func(id string) bool
	load    func(ctx context.Context, id string) (*Resource, error)
}

// NewResolver constructs a Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	r := &Resolver{
		objects:   cfg.Objects,
		client:    cfg.HTTPClient,
		dir:       cfg.TemplatesDir,
		defaultID: cfg.DefaultID,
		log:       cfg.Logger,
		cache:     newContentCache(),
	}
	if r.client == nil {
		r.client = http.DefaultClient
	}
	if r.defaultID == "" {
		r.defaultID = defaultKeyword
	}
	if r.log == nil {
		r.log = zap.NewNop()
	}
	r.strategies = []strategy{
		{
			name:    "storage",
			matches: func(id string) bool { return strings.HasPrefix(id, "storage://") },
			load:    r.loadFromStorage,
		},
		{
			name: "remote",
			matches: func(id string) bool {
				return strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://")
			},
			load: r.loadFromURL,
		},
		{
			name:    "bundled",
			matches: func(id string) bool { return true },
			load:    r.loadBundled,
		},
	}
	return r
}

// Resolve loads the template for the given identifier. An empty identifier
// falls back to the configured default, itself defaulting to the bundled
// default template.
func (r *Resolver) Resolve(ctx context.Context, id string) (*Resource, error) {
	if strings.TrimSpace(id) == "" {
		id = r.defaultID
	}
	for _, s := range r.strategies {
		if s.matches(id) {
			return s.load(ctx, id)
		}
	}
	return nil, fmt.Errorf("no template strategy for %q", id)
}

func (r *Resolver) loadFromStorage(ctx context.Context, id string) (*Resource, error) {
	ref := strings.TrimPrefix(id, "storage://")
	parts := strings.SplitN(ref, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return nil, &ConfigError{Ref: id, Reason: "expected storage://bucket/path"}
	}
	if r.objects == nil {
		return nil, &ConfigError{Ref: id, Reason: "no object storage configured"}
	}
	data, err := r.objects.Fetch(ctx, parts[0], parts[1])
	if err != nil {
		return nil, &ConfigError{Ref: id, Reason: fmt.Sprintf("fetch failed: %v", err)}
	}
	return r.classify(id, data, "")
}

func (r *Resolver) loadFromURL(ctx context.Context, id string) (*Resource, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, id, nil)
	if err != nil {
		return nil, &ConfigError{Ref: id, Reason: err.Error()}
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch template %s: %w", id, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch template %s: unexpected status %d", id, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", id, err)
	}
	return r.classify(id, data, resp.Header.Get("Content-Type"))
}

// loadBundled resolves a template file under the templates directory. A name
// without extension gets ".html" appended; a missing file falls back to the
// default template rather than failing the request.
func (r *Resolver) loadBundled(ctx context.Context, id string) (*Resource, error) {
	if id == defaultKeyword {
		return r.loadDefault()
	}
	name := id
	if filepath.Ext(name) == "" {
		name += ".html"
	}
	path := filepath.Join(r.dir, filepath.Base(name))
	data, err := os.ReadFile(path)
	if err != nil {
		r.log.Warn("bundled template missing, using default",
			zap.String("template", id), zap.Error(err))
		return r.loadDefault()
	}
	return r.classify(id, data, "")
}

// loadDefault returns the process-wide cached default markup, preferring an
// on-disk override under the templates directory over the embedded copy.
func (r *Resolver) loadDefault() (*Resource, error) {
	if content, ok := r.cache.get(defaultKeyword); ok {
		return &Resource{ID: defaultKeyword, Kind: KindMarkup, Markup: content}, nil
	}
	content := embeddedDefault
	if r.dir != "" {
		if data, err := os.ReadFile(filepath.Join(r.dir, "default.html")); err == nil {
			content = string(data)
		}
	}
	r.cache.put(defaultKeyword, content)
	return &Resource{ID: defaultKeyword, Kind: KindMarkup, Markup: content}, nil
}

// classify decides markup vs prebuilt-document from the file extension and
// the response content type. Prebuilt documents are probed so a truncated or
// mislabeled PDF fails here instead of deep inside the renderer.
func (r *Resolver) classify(id string, data []byte, contentType string) (*Resource, error) {
	isPDF := strings.HasSuffix(strings.ToLower(id), ".pdf") ||
		strings.Contains(strings.ToLower(contentType), "pdf")
	if !isPDF {
		return &Resource{ID: id, Kind: KindMarkup, Markup: string(data)}, nil
	}
	if _, err := pdfutil.PageCount(data); err != nil {
		return nil, fmt.Errorf("template %s: not a readable pdf: %w", id, err)
	}
	return &Resource{ID: id, Kind: KindPrebuilt, Document: data}, nil
}
