// Package state defines the single mutable root of the simulation.
// This package is PURE and must NOT import any infrastructure packages.
package state

import "time"

// CurrentVersion is the schema version written by this build.
const CurrentVersion = 2

// CategoryID identifies one of the four production lines.
type CategoryID string

const (
	Reactor       CategoryID = "reactor"
	Processor     CategoryID = "processor"
	CrewQuarters  CategoryID = "crewQuarters"
	Manufacturing CategoryID = "manufacturing"
)

// CategoryOrder is the fixed iteration order for categories.
var CategoryOrder = []CategoryID{Reactor, Processor, CrewQuarters, Manufacturing}

// ResourceType is the resource a category produces.
type ResourceType string

const (
	Energy  ResourceType = "energy"
	Insight ResourceType = "insight"
	Crew    ResourceType = "crew"
	Scrap   ResourceType = "scrap"
)

var categoryResources = map[CategoryID]ResourceType{
	Reactor:       Energy,
	Processor:     Insight,
	CrewQuarters:  Crew,
	Manufacturing: Scrap,
}

// ResourceFor returns the resource produced by a category.
func ResourceFor(id CategoryID) (ResourceType, bool) {
	r, ok := categoryResources[id]
	return r, ok
}

// CategoryFor returns the category that stores a resource.
func CategoryFor(r ResourceType) (CategoryID, bool) {
	for id, res := range categoryResources {
		if res == r {
			return id, true
		}
	}
	return "", false
}

// Stats are derived values. Only the upgrade engine writes them.
type Stats struct {
	Capacity       float64 `json:"capacity"`
	PerSecond      float64 `json:"perSecond"`
	PerClick       float64 `json:"perClick"`
	AutomationRate float64 `json:"automationRate"` // automated clicks per second
}

// Category is one production line.
type Category struct {
	ID        CategoryID     `json:"id"`
	Resource  ResourceType   `json:"resource"`
	Amount    float64        `json:"amount"` // 0..Stats.Capacity
	Stats     Stats          `json:"stats"`
	Upgrades  map[string]int `json:"upgrades"`
	Unlocked  bool           `json:"unlocked"`
	Automated bool           `json:"automated"`
}

// Level returns the level of an upgrade, zero when never purchased.
func (c *Category) Level(upgradeID string) int {
	if c == nil || c.Upgrades == nil {
		return 0
	}
	return c.Upgrades[upgradeID]
}

// Ship holds the player's persistent combat stats between battles.
type Ship struct {
	Health    float64 `json:"health"`
	MaxHealth float64 `json:"maxHealth"`
	Shield    float64 `json:"shield"`
	MaxShield float64 `json:"maxShield"`
}

// Reward is an amount of a resource granted (or taken, when negative).
type Reward struct {
	Resource ResourceType `json:"resource" yaml:"resource"`
	Amount   float64      `json:"amount" yaml:"amount"`
}

// Navigation tracks where the ship is and how far it has explored.
type Navigation struct {
	CurrentRegion    string          `json:"currentRegion"`
	CurrentSubRegion string          `json:"currentSubRegion"`
	CompletedRegions map[string]bool `json:"completedRegions"`
	RegionProgress   map[string]int  `json:"regionProgress"`
	JumpUnlocked     bool            `json:"jumpUnlocked"`
	TotalJumps       int             `json:"totalJumps"`
}

// LogEntry is a discovered narrative log.
type LogEntry struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Content      string     `json:"content"`
	Category     CategoryID `json:"category"`
	DiscoveredAt time.Time  `json:"discoveredAt"`
	Read         bool       `json:"read"`
}

// Logs holds every discovered log and the ordered unread list.
type Logs struct {
	Discovered map[string]*LogEntry `json:"discovered"`
	Unread     []string             `json:"unread"`
}

// GameState is the root of everything the engine simulates.
type GameState struct {
	Version    int                      `json:"version"`
	Categories map[CategoryID]*Category `json:"categories"`
	Ship       Ship                     `json:"ship"`
	Combat     *CombatState             `json:"combat,omitempty"`
	Encounters Encounters               `json:"encounters"`
	Navigation Navigation               `json:"navigation"`
	Logs       Logs                     `json:"logs"`
}

// Category looks up a category by id.
func (s *GameState) Category(id CategoryID) (*Category, bool) {
	if s == nil || s.Categories == nil {
		return nil, false
	}
	c, ok := s.Categories[id]
	return c, ok && c != nil
}

// Starting location for a new game.
const (
	StartRegion    = "sol-fringe"
	StartSubRegion = "derelict-shipyard"
)

// BaseStats returns the level-zero stats of a category.
func BaseStats(id CategoryID) Stats {
	switch id {
	case Reactor:
		return Stats{Capacity: 100, PerClick: 1}
	case Processor:
		return Stats{Capacity: 50, PerClick: 1}
	case CrewQuarters:
		return Stats{Capacity: 10, PerClick: 1}
	case Manufacturing:
		return Stats{Capacity: 100, PerClick: 1}
	}
	return Stats{}
}

// BaseShip returns the ship's level-zero combat stats.
func BaseShip() Ship {
	return Ship{Health: 100, MaxHealth: 100, Shield: 20, MaxShield: 20}
}

// NewCategory builds a fresh category with base stats.
func NewCategory(id CategoryID) *Category {
	res, _ := ResourceFor(id)
	return &Category{
		ID:       id,
		Resource: res,
		Stats:    BaseStats(id),
		Upgrades: make(map[string]int),
		Unlocked: id != CrewQuarters,
	}
}

// New creates a fresh game.
func New() *GameState {
	s := &GameState{
		Version:    CurrentVersion,
		Categories: make(map[CategoryID]*Category, len(CategoryOrder)),
		Ship:       BaseShip(),
		Encounters: Encounters{History: []EncounterRecord{}},
		Navigation: Navigation{
			CurrentRegion:    StartRegion,
			CurrentSubRegion: StartSubRegion,
			CompletedRegions: make(map[string]bool),
			RegionProgress:   make(map[string]int),
		},
		Logs: Logs{
			Discovered: make(map[string]*LogEntry),
			Unread:     []string{},
		},
	}
	for _, id := range CategoryOrder {
		s.Categories[id] = NewCategory(id)
	}
	return s
}
