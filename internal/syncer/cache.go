package syncer

import (
	"sync/atomic"

	"github.com/dvloznov/saldo/internal/ledger"
)

// Cache holds the current snapshot. Readers never block; the Refresher is
// the only writer.
type Cache struct {
	current atomic.Pointer[ledger.Snapshot]
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{}
}

// Current returns the last stored snapshot, or nil before the first load.
func (c *Cache) Current() *ledger.Snapshot {
	return c.current.Load()
}

// Checksum is the checksum of the content the current snapshot was built
// from.
func (c *Cache) Checksum() string {
	if s := c.current.Load(); s != nil {
		return s.Checksum
	}
	return ""
}

func (c *Cache) store(s *ledger.Snapshot) {
	c.current.Store(s)
}
