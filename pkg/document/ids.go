package document

import (
	"strconv"
	"strings"
	"sync"
)

// IDGenerator hands out block ids that are unique for the lifetime of one
// store. Each store owns its own generator.
type IDGenerator struct {
	mu     sync.Mutex
	prefix string
	next   uint64
}

// NewIDGenerator creates a generator producing ids like "b1", "b2".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "b"
	}
	return &IDGenerator{prefix: prefix, next: 1}
}

// Next returns a fresh id.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.prefix + strconv.FormatUint(g.next, 10)
	g.next++
	return id
}

// Observe advances the counter past an existing id so loaded notes never
// collide with generated ids.
func (g *IDGenerator) Observe(id string) {
	rest, ok := strings.CutPrefix(id, g.prefix)
	if !ok {
		return
	}
	n, err := strconv.ParseUint(rest, 10, 64)
	if err != nil {
		return
	}
	g.mu.Lock()
	if n >= g.next {
		g.next = n + 1
	}
	g.mu.Unlock()
}
