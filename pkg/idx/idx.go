// Package idx generates lexicographically sortable ULID request identifiers.
// Every outbound API call carries one in X-Request-ID so a single logical
// operation can be correlated across its fallback attempts in backend logs.
package idx

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a ULID string.
type ID string

func (id ID) String() string { return string(id) }

var (
	genOnce sync.Once
	gen     *generator
)

// generator produces ULIDs from a shared monotonic entropy source so that
// IDs minted within the same millisecond still sort in creation order.
type generator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func (g *generator) new() ID {
	g.mu.Lock()
	defer g.mu.Unlock()

	u := ulid.MustNew(ulid.Timestamp(time.Now().UTC()), g.entropy)
	return ID(u.String())
}

// New returns a fresh request ID.
func New() ID {
	genOnce.Do(func() {
		gen = &generator{entropy: ulid.Monotonic(rand.Reader, 0)}
	})
	return gen.new()
}
