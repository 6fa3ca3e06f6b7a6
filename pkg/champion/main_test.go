package champion

import (
	"math/rand/v2"
	"testing"
)

// newTestChampion creates a champion with a pinned random source and feeds it
// the given nicknames.
func newTestChampion(t testing.TB, nicknames ...string) *Champion {
	t.Helper()
	c := New(10, WithRand(rand.New(rand.NewPCG(7, 42))))
	for _, nickname := range nicknames {
		if _, err := c.Feed(nickname); err != nil {
			t.Fatalf("setup: Feed(%q) failed: %v", nickname, err)
		}
	}
	return c
}

// restoredChampion builds a champion straight from a snapshot, bypassing Feed.
func restoredChampion(t testing.TB, snap Snapshot) *Champion {
	t.Helper()
	c := New(10, WithRand(rand.New(rand.NewPCG(7, 42))))
	if err := c.Restore(snap); err != nil {
		t.Fatalf("setup: Restore() failed: %v", err)
	}
	return c
}

var benchmarkNicknames = []string{
	"Faker", "Bjergsen", "Doublelift", "Uzi", "Rekkles", "Caps", "Perkz",
	"xPeke", "Froggen", "Dyrus", "Sneaky", "Jensen", "ShowMaker", "Chovy",
	"Ruler", "Deft", "Mata", "Ambition", "Score", "Pawn", "Kuro", "Bang",
}
