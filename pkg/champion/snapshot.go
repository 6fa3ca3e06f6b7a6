package champion

import (
	"fmt"
	"math"
	"unicode/utf8"

	"github.com/goccy/go-json"
)

// Snapshot is the portable form of a transition table. Every key is a
// single-character string; the terminator is encoded as "\u0000".
//
// A Snapshot does not carry the champion id.
type Snapshot map[string]map[string]uint64

// Snapshot returns a copy of the transition table in portable form.
func (c *Champion) Snapshot() Snapshot {
	snap := make(Snapshot, len(c.values))
	for from, successors := range c.values {
		inner := make(map[string]uint64, len(successors))
		for to, freq := range successors {
			inner[string(to)] = freq
		}
		snap[string(from)] = inner
	}
	return snap
}

// Serialize encodes the transition table as JSON.
func (c *Champion) Serialize() ([]byte, error) {
	return json.Marshal(c.Snapshot())
}

// Deserialize replaces the transition table with the one encoded in data.
// On error the champion is left untouched.
func (c *Champion) Deserialize(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return &SnapshotError{Reason: "invalid json", Err: err}
	}
	if snap == nil {
		return &SnapshotError{Reason: "snapshot is not an object"}
	}
	return c.Restore(snap)
}

// Restore replaces the transition table with snap after validating it.
// On error the champion is left untouched.
func (c *Champion) Restore(snap Snapshot) error {
	values := make(Table, len(snap))
	for fromKey, inner := range snap {
		from, err := decodeChar(fromKey)
		if err != nil {
			return err
		}
		if len(inner) == 0 {
			return &SnapshotError{Reason: fmt.Sprintf("character %q has no successors", fromKey)}
		}
		successors := make(map[rune]uint64, len(inner))
		var total uint64
		for toKey, freq := range inner {
			to, err := decodeChar(toKey)
			if err != nil {
				return err
			}
			if freq == 0 {
				return &SnapshotError{Reason: fmt.Sprintf("transition %q -> %q has a zero count", fromKey, toKey)}
			}
			if freq > math.MaxUint64-total {
				return &SnapshotError{Reason: fmt.Sprintf("counts after %q overflow", fromKey)}
			}
			total += freq
			successors[to] = freq
		}
		values[from] = successors
	}
	c.values = values
	return nil
}

func decodeChar(key string) (rune, error) {
	r, size := utf8.DecodeRuneInString(key)
	if size == 0 || size != len(key) || (r == utf8.RuneError && size == 1) {
		return 0, &SnapshotError{Reason: fmt.Sprintf("key %q is not a single character", key)}
	}
	return r, nil
}
