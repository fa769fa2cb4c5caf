package tgbot

import (
	"sync"

	mapset "github.com/deckarep/golang-set/v2"
	"golang.org/x/text/cases"
)

// subscriptions maps a player name to the chats following it.
type subscriptions struct {
	mu sync.RWMutex
	m  map[string]mapset.Set[int64]
}

func newSubs() *subscriptions {
	return &subscriptions{
		m: make(map[string]mapset.Set[int64]),
	}
}

func subKey(player string) string {
	return cases.Fold().String(player)
}

func (s *subscriptions) Add(player string, chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := subKey(player)
	if s.m[k] == nil {
		s.m[k] = mapset.NewSet[int64]()
	}
	s.m[k].Add(chatID)
}

// Remove reports whether the chat was subscribed.
func (s *subscriptions) Remove(player string, chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	set := s.m[subKey(player)]
	if set == nil || !set.Contains(chatID) {
		return false
	}
	set.Remove(chatID)
	return true
}

// ChatIDs returns every chat following at least one of the players.
func (s *subscriptions) ChatIDs(players ...string) []int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := mapset.NewThreadUnsafeSet[int64]()
	for _, p := range players {
		set := s.m[subKey(p)]
		if set == nil {
			continue
		}
		for _, id := range set.ToSlice() {
			ids.Add(id)
		}
	}
	return ids.ToSlice()
}
