package state

// Clone returns a deep copy. Nothing in the copy aliases the original, so
// callers outside the engine may keep or mutate it freely.
func (s *GameState) Clone() *GameState {
	if s == nil {
		return nil
	}
	out := &GameState{
		Version:    s.Version,
		Ship:       s.Ship,
		Encounters: s.Encounters.Clone(),
		Navigation: s.Navigation.Clone(),
		Logs:       s.Logs.Clone(),
	}
	if s.Categories != nil {
		out.Categories = make(map[CategoryID]*Category, len(s.Categories))
		for id, c := range s.Categories {
			out.Categories[id] = c.Clone()
		}
	}
	if s.Combat != nil {
		out.Combat = s.Combat.Clone()
	}
	return out
}

// Clone deep-copies a category.
func (c *Category) Clone() *Category {
	if c == nil {
		return nil
	}
	out := *c
	out.Upgrades = cloneMap(c.Upgrades)
	return &out
}

// Clone deep-copies the navigation state.
func (n Navigation) Clone() Navigation {
	out := n
	out.CompletedRegions = cloneMap(n.CompletedRegions)
	out.RegionProgress = cloneMap(n.RegionProgress)
	return out
}

// Clone deep-copies the log book.
func (l Logs) Clone() Logs {
	out := Logs{Unread: cloneSlice(l.Unread)}
	if l.Discovered != nil {
		out.Discovered = make(map[string]*LogEntry, len(l.Discovered))
		for id, e := range l.Discovered {
			if e == nil {
				out.Discovered[id] = nil
				continue
			}
			cp := *e
			out.Discovered[id] = &cp
		}
	}
	return out
}

// Clone deep-copies the active encounter and history.
func (e Encounters) Clone() Encounters {
	out := Encounters{History: cloneSlice(e.History)}
	if e.Active != nil {
		out.Active = e.Active.Clone()
	}
	return out
}

// Clone deep-copies an encounter, including every story branch.
func (e *Encounter) Clone() *Encounter {
	if e == nil {
		return nil
	}
	out := *e
	out.Rewards = cloneSlice(e.Rewards)
	if e.Choices != nil {
		out.Choices = make([]StoryChoice, len(e.Choices))
		for i, c := range e.Choices {
			out.Choices[i] = c.Clone()
		}
	}
	return &out
}

// Clone deep-copies a story branch.
func (c StoryChoice) Clone() StoryChoice {
	out := c
	out.Rewards = cloneSlice(c.Rewards)
	if c.Combat != nil {
		trigger := *c.Combat
		out.Combat = &trigger
	}
	return out
}

// Clone deep-copies a battle.
func (c *CombatState) Clone() *CombatState {
	if c == nil {
		return nil
	}
	out := *c
	out.Player = c.Player.Clone()
	out.Enemy = c.Enemy.Clone()
	out.Cooldowns = cloneMap(c.Cooldowns)
	out.Log = cloneSlice(c.Log)
	out.Loot = cloneSlice(c.Loot)
	return &out
}

// Clone deep-copies a combatant.
func (c Combatant) Clone() Combatant {
	out := c
	out.Effects = cloneSlice(c.Effects)
	return out
}

func cloneMap[K comparable, V any](m map[K]V) map[K]V {
	if m == nil {
		return nil
	}
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneSlice[T any](s []T) []T {
	if s == nil {
		return nil
	}
	out := make([]T, len(s))
	copy(out, s)
	return out
}
