package cache

import (
	"sort"
	"sync"

	"github.com/teammap/teammap/pkg/core"
)

// RosterCache holds the team roster fetched at startup so marker clicks and
// popups don't go back to the API.
type RosterCache struct {
	m      sync.Mutex
	people map[string]core.Person
}

func NewRosterCache() *RosterCache {
	return &RosterCache{
		people: make(map[string]core.Person),
	}
}

func (c *RosterCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.people = make(map[string]core.Person)
}

func (c *RosterCache) Get(id string) (core.Person, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	p, ok := c.people[id]
	return p, ok
}

func (c *RosterCache) Add(p core.Person) {
	c.m.Lock()
	defer c.m.Unlock()
	c.people[p.ID] = p
}

// All returns the roster ordered by ID.
func (c *RosterCache) All() []core.Person {
	c.m.Lock()
	defer c.m.Unlock()
	out := make([]core.Person, 0, len(c.people))
	for _, p := range c.people {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (c *RosterCache) Len() int {
	c.m.Lock()
	defer c.m.Unlock()
	return len(c.people)
}
