package parsing

import (
	"strings"

	"github.com/zombor/pantry-tracker/internal/normalize"
)

// Registry maps store names to strategies. Lookups fall back to the generic strategy.
// Register is not safe to call concurrently with lookups; build the registry up front.
type Registry struct {
	keys     []string
	parsers  map[string]Strategy
	fallback Strategy
}

// NewRegistry returns a registry with the Lidl and Alphamega strategies and the generic fallback.
func NewRegistry() *Registry {
	r := &Registry{
		parsers:  make(map[string]Strategy),
		fallback: NewGenericParser(),
	}
	r.Register("lidl", NewLidlParser())

	alphamega := NewAlphamegaParser()
	r.Register("alphamega", alphamega)
	r.Register("alpha mega", alphamega)
	r.Register("άλφαμεγα", alphamega)
	return r
}

// Register adds or replaces the strategy for key. Keys match case- and accent-insensitively.
func (r *Registry) Register(key string, s Strategy) {
	k := normalize.Fold(strings.TrimSpace(key))
	if _, ok := r.parsers[k]; !ok {
		r.keys = append(r.keys, k)
	}
	r.parsers[k] = s
}

// Get returns the strategy for storeName. An exact key wins; otherwise the first registered
// key contained in the name is used, and the generic strategy when none is.
func (r *Registry) Get(storeName string) Strategy {
	name := normalize.Fold(strings.TrimSpace(storeName))
	if name == "" {
		return r.fallback
	}
	if s, ok := r.parsers[name]; ok {
		return s
	}
	for _, k := range r.keys {
		if strings.Contains(name, k) {
			return r.parsers[k]
		}
	}
	return r.fallback
}

// Detect picks a strategy from the receipt text itself, using the first line that names a known store.
func (r *Registry) Detect(rawText string) Strategy {
	for _, line := range splitLines(rawText) {
		folded := normalize.Fold(line)
		for _, k := range r.keys {
			if strings.Contains(folded, k) {
				return r.parsers[k]
			}
		}
	}
	return r.fallback
}

// Fallback returns the strategy used when no store matches.
func (r *Registry) Fallback() Strategy {
	return r.fallback
}
