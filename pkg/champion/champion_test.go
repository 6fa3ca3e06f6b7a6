package champion

import (
	"errors"
	"maps"
	"testing"
)

func TestNew(t *testing.T) {
	c := New(10)
	if c.Id() != 10 {
		t.Errorf("expected id 10, got %d", c.Id())
	}
	if !c.Empty() {
		t.Error("expected a new champion to be empty")
	}
}

func TestFeedThenContains(t *testing.T) {
	for _, nickname := range []string{"A", "foo", "Foo bar baz hello world", "Bonne soirée", "日本語"} {
		t.Run(nickname, func(t *testing.T) {
			c := New(10)
			changed, err := c.Feed(nickname)
			if err != nil {
				t.Fatalf("Feed(%q) failed: %v", nickname, err)
			}
			if !changed {
				t.Errorf("expected Feed(%q) on an empty champion to change the table", nickname)
			}
			if !c.Contains(nickname) {
				t.Errorf("expected Contains(%q) to be true after feeding it", nickname)
			}
		})
	}
}

func TestFeedEmpty(t *testing.T) {
	c := New(10)
	changed, err := c.Feed("")
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if changed || !c.Empty() {
		t.Error("expected the table to stay empty after a rejected feed")
	}
}

func TestFeedCounts(t *testing.T) {
	c := New(10)
	if _, err := c.Feed("abab"); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}

	expected := Table{
		'a': {'b': 2},
		'b': {'a': 1, Terminator: 1},
	}
	if !maps.EqualFunc(c.values, expected, func(x, y map[rune]uint64) bool { return maps.Equal(x, y) }) {
		t.Errorf("expected table %v, got %v", expected, c.values)
	}
}

func TestFeedSkipsKnownNickname(t *testing.T) {
	c := newTestChampion(t, "foo")
	before := c.Snapshot()

	changed, err := c.Feed("foo")
	if err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if changed {
		t.Error("expected feeding a known nickname to be skipped")
	}
	if !maps.EqualFunc(before, c.Snapshot(), func(x, y map[string]uint64) bool { return maps.Equal(x, y) }) {
		t.Error("expected counts to be unchanged after a skipped feed")
	}
}

func TestFeedOnlyIncrements(t *testing.T) {
	c := newTestChampion(t, "bar")
	if _, err := c.Feed("baz"); err != nil {
		t.Fatalf("Feed failed: %v", err)
	}
	if got := c.values['b']['a']; got != 2 {
		t.Errorf("expected b->a to be seen twice, got %d", got)
	}
	if got := c.values['a']['r']; got != 1 {
		t.Errorf("expected a->r to keep its count of 1, got %d", got)
	}
	if got := c.values['a']['z']; got != 1 {
		t.Errorf("expected a->z to be created with a count of 1, got %d", got)
	}
}

func TestContains(t *testing.T) {
	c := newTestChampion(t, "raloud")

	testCases := []struct {
		name     string
		nickname string
		expected bool
	}{
		{name: "Fed verbatim", nickname: "raloud", expected: true},
		{name: "Trailing substring", nickname: "oud", expected: true},
		{name: "Last character", nickname: "d", expected: true},
		{name: "Inner substring does not end a nickname", nickname: "alo", expected: false},
		{name: "Unknown first character", nickname: "xoud", expected: false},
		{name: "Unknown pair", nickname: "rd", expected: false},
		{name: "Empty nickname", nickname: "", expected: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := c.Contains(tc.nickname); got != tc.expected {
				t.Errorf("Contains(%q) = %v, want %v", tc.nickname, got, tc.expected)
			}
		})
	}
}

func TestContainsAcrossNicknames(t *testing.T) {
	// "ab" and "bc" together make every pair of "abc" known.
	c := newTestChampion(t, "ab", "bc")
	if !c.Contains("abc") {
		t.Error("expected pairs learned from different nicknames to satisfy Contains")
	}
	changed, _ := c.Feed("abc")
	if changed {
		t.Error("expected Feed to skip a nickname whose pairs are all known")
	}
}

func TestEqual(t *testing.T) {
	c1 := New(10)
	c2 := New(10)
	for _, nickname := range []string{"foo", "bar"} {
		_, _ = c1.Feed(nickname)
		_, _ = c2.Feed(nickname)
	}
	if !c1.Equal(c2) {
		t.Error("expected champions fed the same nicknames to be equal")
	}

	c3 := New(11)
	_, _ = c3.Feed("foo")
	_, _ = c3.Feed("bar")
	if c1.Equal(c3) {
		t.Error("expected champions with different ids to differ")
	}

	_, _ = c2.Feed("baz")
	if c1.Equal(c2) {
		t.Error("expected champions with different tables to differ")
	}
	if c1.Equal(nil) {
		t.Error("expected a champion to differ from nil")
	}
}

func TestStats(t *testing.T) {
	c := newTestChampion(t, "abab", "b")
	s := c.Stats()
	// "b" is already known, so only "abab" counts.
	expected := Stats{Keys: 2, Edges: 3, Endings: 1, TotalFrequency: 4}
	if s != expected {
		t.Errorf("expected stats %+v, got %+v", expected, s)
	}
}

func BenchmarkFeed(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		c := New(10)
		for _, nickname := range benchmarkNicknames {
			_, _ = c.Feed(nickname)
		}
	}
}
