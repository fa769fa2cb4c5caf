package mem

import (
	"sync"

	"golang.org/x/text/cases"

	"github.com/goserg/poolrating/internal/domain"
)

// Cache keeps the last computed leaderboard until the next backfill.
// Every Invalidate starts a new generation; snapshots computed during an
// older generation are dropped by Update.
type Cache struct {
	mu      sync.RWMutex
	gen     uint64
	valid   bool
	entries []domain.LeaderboardEntry
	players map[string]domain.LeaderboardEntry
}

func New() *Cache {
	return &Cache{
		players: make(map[string]domain.LeaderboardEntry),
	}
}

// key folds case; a Caser is stateful so one is built per call.
func key(name string) string {
	return cases.Fold().String(name)
}

// Generation is captured before reading the data a snapshot is built from.
func (c *Cache) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Update stores entries computed during generation gen. It reports false and
// keeps the cache untouched when an Invalidate happened since.
func (c *Cache) Update(gen uint64, entries []domain.LeaderboardEntry) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return false
	}

	c.entries = make([]domain.LeaderboardEntry, len(entries))
	copy(c.entries, entries)
	c.players = make(map[string]domain.LeaderboardEntry, len(entries))
	for i := range entries {
		c.players[key(entries[i].Player)] = entries[i]
	}
	c.valid = true
	return true
}

// Get returns a copy of the cached leaderboard and whether it is valid.
func (c *Cache) Get() ([]domain.LeaderboardEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.valid {
		return nil, false
	}
	entries := make([]domain.LeaderboardEntry, len(c.entries))
	copy(entries, c.entries)
	return entries, true
}

func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.valid = false
	c.entries = nil
	c.players = make(map[string]domain.LeaderboardEntry)
}

func (c *Cache) GetPlayerByName(name string) (domain.LeaderboardEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	player, ok := c.players[key(name)]
	return player, ok
}
