package render

import (
	"errors"
	"fmt"
	"mime"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// ErrRendererNotFound is returned when a lookup misses.
var ErrRendererNotFound = errors.New("render: renderer not found")

// Registry maps renderer names and aliases to renderers. Lookups ignore case.
type Registry struct {
	mu      sync.RWMutex
	byName  map[string]Renderer
	aliases map[string]string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byName:  make(map[string]Renderer),
		aliases: make(map[string]string),
	}
}

// Register adds renderer under its Name() plus any aliases. A name or alias
// may only be claimed once.
func (r *Registry) Register(renderer Renderer, aliases ...string) error {
	if renderer == nil {
		return errors.New("render: renderer is required")
	}
	name := normaliseName(renderer.Name())
	if name == "" {
		return errors.New("render: renderer name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	keys := []string{name}
	for _, alias := range aliases {
		if alias = normaliseName(alias); alias != "" && alias != name {
			keys = append(keys, alias)
		}
	}
	for _, key := range keys {
		if r.claimedLocked(key) {
			return fmt.Errorf("render: renderer %q already registered", key)
		}
	}

	r.byName[name] = renderer
	for _, alias := range keys[1:] {
		r.aliases[alias] = name
	}
	return nil
}

// MustRegister panics on registration failure.
func (r *Registry) MustRegister(renderer Renderer, aliases ...string) {
	if err := r.Register(renderer, aliases...); err != nil {
		panic(err)
	}
}

// Get retrieves a renderer by name or alias.
func (r *Registry) Get(name string) (Renderer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if renderer, ok := r.lookupLocked(normaliseName(name)); ok {
		return renderer, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrRendererNotFound, name)
}

// List returns the registered renderer names, sorted. Aliases are omitted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.namesLocked()
}

// Has reports whether name or alias resolves to a renderer.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.lookupLocked(normaliseName(name))
	return ok
}

// Negotiate picks the renderer whose content type best matches an HTTP
// Accept header. Wildcard-only or empty headers match nothing so callers
// fall back to their default.
func (r *Registry) Negotiate(accept string) (Renderer, bool) {
	ranges := parseAccept(accept)
	if len(ranges) == 0 {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.namesLocked()
	for _, want := range ranges {
		for _, name := range names {
			renderer := r.byName[name]
			if mediaMatches(want, renderer.ContentType()) {
				return renderer, true
			}
		}
	}
	return nil, false
}

func (r *Registry) claimedLocked(key string) bool {
	_, named := r.byName[key]
	_, aliased := r.aliases[key]
	return named || aliased
}

func (r *Registry) lookupLocked(key string) (Renderer, bool) {
	if renderer, ok := r.byName[key]; ok {
		return renderer, true
	}
	if target, ok := r.aliases[key]; ok {
		renderer, ok := r.byName[target]
		return renderer, ok
	}
	return nil, false
}

func (r *Registry) namesLocked() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normaliseName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// parseAccept returns the non-wildcard media ranges of an Accept header,
// highest quality first. Ranges with q=0 are dropped.
func parseAccept(header string) []string {
	type weighted struct {
		media string
		q     float64
	}
	var ranges []weighted
	for _, part := range strings.Split(header, ",") {
		media, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil || media == "*/*" {
			continue
		}
		q := 1.0
		if raw, ok := params["q"]; ok {
			if parsed, err := strconv.ParseFloat(raw, 64); err == nil {
				q = parsed
			}
		}
		if q <= 0 {
			continue
		}
		ranges = append(ranges, weighted{media: media, q: q})
	}
	sort.SliceStable(ranges, func(i, j int) bool { return ranges[i].q > ranges[j].q })

	out := make([]string, len(ranges))
	for i, item := range ranges {
		out[i] = item.media
	}
	return out
}

func mediaMatches(want, contentType string) bool {
	have, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return false
	}
	if prefix, ok := strings.CutSuffix(want, "/*"); ok {
		return strings.HasPrefix(have, prefix+"/")
	}
	return want == have
}
