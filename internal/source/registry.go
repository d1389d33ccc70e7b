package source

import (
	"context"
	"log"
	"sync"
	"time"

	"monodash/internal/model"
)

// DetectionResult records whether one source was usable when last probed.
type DetectionResult struct {
	Installed     bool
	Authenticated bool
	CheckedAt     time.Time
}

// Usable reports whether the source can actually fetch.
func (d DetectionResult) Usable() bool {
	return d.Installed && d.Authenticated
}

// Registry probes which registered sources are usable and caches the
// answer. The cache has no TTL; it is invalidated only by registering a
// source or an explicit Invalidate (the manual-refresh recheck).
type Registry struct {
	mu      sync.Mutex
	sources []Source
	cache   map[string]DetectionResult
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a source to the probe set and invalidates the cache.
func (r *Registry) Register(src Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, src)
	r.cache = nil
}

// Invalidate clears the cached detection results so the next query
// re-probes every source.
func (r *Registry) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache = nil
}

// DetectAll probes availability and authentication for every registered
// source concurrently. External auth calls are bounded by the shared permit
// pool inside each source's executor. The combined result is cached and a
// defensive copy returned, so callers can never corrupt the cache.
func (r *Registry) DetectAll(ctx context.Context) map[string]DetectionResult {
	r.mu.Lock()
	sources := make([]Source, len(r.sources))
	copy(sources, r.sources)
	r.mu.Unlock()

	results := make([]DetectionResult, len(sources))
	var wg sync.WaitGroup
	for i, src := range sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			res := DetectionResult{
				Installed: src.IsAvailable(),
				CheckedAt: time.Now(),
			}
			if res.Installed {
				res.Authenticated = src.CheckAuth(ctx)
			}
			results[i] = res
		}(i, src)
	}
	wg.Wait()

	cache := make(map[string]DetectionResult, len(sources))
	for i, src := range sources {
		cache[src.Name()] = results[i]
		if !results[i].Usable() {
			log.Printf("source %s unusable (installed=%v authenticated=%v)",
				src.Name(), results[i].Installed, results[i].Authenticated)
		}
	}

	r.mu.Lock()
	r.cache = cache
	r.mu.Unlock()

	return copyResults(cache)
}

// Detections returns a copy of the cached results, probing first if no
// cache exists yet.
func (r *Registry) Detections(ctx context.Context) map[string]DetectionResult {
	r.mu.Lock()
	cached := r.cache
	r.mu.Unlock()

	if cached == nil {
		return r.DetectAll(ctx)
	}
	return copyResults(cached)
}

// Available returns the usable sources feeding the given section, in
// registration order. It probes on first use and otherwise serves from the
// cache.
func (r *Registry) Available(ctx context.Context, section model.Section) []Source {
	detections := r.Detections(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	var usable []Source
	for _, src := range r.sources {
		if src.Section() != section {
			continue
		}
		if detections[src.Name()].Usable() {
			usable = append(usable, src)
		}
	}
	return usable
}

// Sources returns all registered sources for the given section, usable or
// not, in registration order.
func (r *Registry) Sources(section model.Section) []Source {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Source
	for _, src := range r.sources {
		if src.Section() == section {
			out = append(out, src)
		}
	}
	return out
}

func copyResults(in map[string]DetectionResult) map[string]DetectionResult {
	out := make(map[string]DetectionResult, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
