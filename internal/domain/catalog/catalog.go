// Package catalog lists the concepts each vertical can render.
package catalog

import (
	"encoding/json"
	"sort"
	"sync"
)

// Domain names of the verticals.
const (
	DomainAlgorithms = "algorithms"
	DomainPhysics    = "physics"
	DomainMath       = "math"
	DomainChemistry  = "chemistry"
	DomainFinance    = "finance"
)

// Level is a difficulty label.
type Level string

// Difficulty levels.
const (
	Beginner     Level = "beginner"
	Intermediate Level = "intermediate"
	Advanced     Level = "advanced"
)

// Entry describes one renderable concept.
type Entry struct {
	Domain  string          `json:"domain"`
	Kind    string          `json:"kind"`
	Title   string          `json:"title"`
	Summary string          `json:"summary"`
	Level   Level           `json:"level"`
	Tags    []string        `json:"tags,omitempty"`
	Example json.RawMessage `json:"example,omitempty"`
}

// Catalog indexes entries by domain and kind.
type Catalog struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// New builds a Catalog from entries; later duplicates replace earlier ones.
func New(entries ...Entry) *Catalog {
	c := &Catalog{entries: make(map[string]Entry, len(entries))}
	c.Add(entries...)
	return c
}

func key(domain, kind string) string { return domain + "/" + kind }

// Add registers entries.
func (c *Catalog) Add(entries ...Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		c.entries[key(e.Domain, e.Kind)] = e
	}
}

// Lookup returns the entry for domain/kind.
func (c *Catalog) Lookup(domain, kind string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key(domain, kind)]
	return e, ok
}

// List returns entries sorted by domain then kind. An empty domain lists everything.
func (c *Catalog) List(domain string) []Entry {
	c.mu.RLock()
	out := make([]Entry, 0, len(c.entries))
	for _, e := range c.entries {
		if domain == "" || e.Domain == domain {
			out = append(out, e)
		}
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Domain != out[j].Domain {
			return out[i].Domain < out[j].Domain
		}
		return out[i].Kind < out[j].Kind
	})
	return out
}

// Domains returns the distinct domains, sorted.
func (c *Catalog) Domains() []string {
	c.mu.RLock()
	seen := make(map[string]struct{})
	for _, e := range c.entries {
		seen[e.Domain] = struct{}{}
	}
	c.mu.RUnlock()

	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Len returns the number of entries.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Example marshals v for Entry.Example and panics on failure; used with literal params.
func Example(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return raw
}
