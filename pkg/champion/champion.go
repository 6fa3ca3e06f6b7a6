package champion

import (
	"maps"
	"math/rand/v2"
	"slices"
)

// Terminator marks the end of a nickname in the transition table. It never
// appears in generated output.
const Terminator rune = 0

// Table maps a character to its successors and how many times each one
// followed it during training.
type Table map[rune]map[rune]uint64

// Champion holds the learned nickname statistics for one champion id.
type Champion struct {
	id     uint32
	values Table
	rng    *rand.Rand
}

// Option configures a Champion.
type Option func(*Champion)

// WithRand makes the champion draw from r instead of the global source.
// A seeded r makes Gen reproducible.
func WithRand(r *rand.Rand) Option {
	return func(c *Champion) { c.rng = r }
}

// New returns an empty champion for the given id.
func New(id uint32, opts ...Option) *Champion {
	c := &Champion{
		id:     id,
		values: make(Table),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Id returns the champion's id.
func (c *Champion) Id() uint32 {
	return c.id
}

// Empty reports whether the champion has never learned a transition.
func (c *Champion) Empty() bool {
	return len(c.values) == 0
}

// pair is one adjacent (from, to) transition of a terminated nickname.
type pair struct {
	from rune
	to   rune
}

// splitNickname returns every adjacent pair of nickname+Terminator. A
// nickname of n characters yields n pairs, the last one ending in Terminator.
func splitNickname(nickname string) []pair {
	var pairs []pair
	prev, started := rune(0), false
	for _, r := range nickname {
		if started {
			pairs = append(pairs, pair{from: prev, to: r})
		}
		prev, started = r, true
	}
	if started {
		pairs = append(pairs, pair{from: prev, to: Terminator})
	}
	return pairs
}

// Feed learns from a nickname. Nicknames that Contains already reports as
// known are skipped and Feed returns false. An empty nickname is a caller
// bug and returns ErrEmptyInput.
func (c *Champion) Feed(nickname string) (bool, error) {
	if nickname == "" {
		return false, ErrEmptyInput
	}
	if c.Contains(nickname) {
		return false, nil
	}
	for _, p := range splitNickname(nickname) {
		successors, ok := c.values[p.from]
		if !ok {
			successors = make(map[rune]uint64)
			c.values[p.from] = successors
		}
		successors[p.to]++
	}
	return true, nil
}

// Contains reports whether every adjacent pair of nickname+Terminator is
// already a known transition.
//
// The check is pairwise, not per nickname: after feeding "raloud",
// Contains("oud") is true even though "oud" was never fed.
func (c *Champion) Contains(nickname string) bool {
	pairs := splitNickname(nickname)
	if len(pairs) == 0 {
		return false
	}
	for _, p := range pairs {
		successors, ok := c.values[p.from]
		if !ok {
			return false
		}
		if _, ok = successors[p.to]; !ok {
			return false
		}
	}
	return true
}

// Equal reports whether both champions share an id and hold identical
// transitions and counts.
func (c *Champion) Equal(other *Champion) bool {
	if other == nil {
		return false
	}
	return c.id == other.id && maps.EqualFunc(c.values, other.values, func(a, b map[rune]uint64) bool {
		return maps.Equal(a, b)
	})
}

func sortedKeys[V any](m map[rune]V) []rune {
	return slices.Sorted(maps.Keys(m))
}

func (c *Champion) intN(n int) int {
	if c.rng != nil {
		return c.rng.IntN(n)
	}
	return rand.IntN(n)
}

func (c *Champion) uint64N(n uint64) uint64 {
	if c.rng != nil {
		return c.rng.Uint64N(n)
	}
	return rand.Uint64N(n)
}
