package champion

import (
	"errors"
	"maps"
	"testing"
)

func snapshotsEqual(a, b Snapshot) bool {
	return maps.EqualFunc(a, b, func(x, y map[string]uint64) bool { return maps.Equal(x, y) })
}

func TestSerializeRoundTrip(t *testing.T) {
	testCases := []struct {
		name      string
		nicknames []string
	}{
		{name: "Empty champion"},
		{name: "Single character", nicknames: []string{"A"}},
		{name: "Several nicknames", nicknames: []string{"foo", "bar", "baz", "quux"}},
		{name: "Repeated transitions", nicknames: []string{"abab", "abba", "baab"}},
		{name: "Unicode", nicknames: []string{"Bonne soirée", "日本語", "Ω≈ç√"}},
		{name: "Embedded terminator", nicknames: []string{"a\x00b", "\x00"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			original := newTestChampion(t, tc.nicknames...)
			data, err := original.Serialize()
			if err != nil {
				t.Fatalf("Serialize failed: %v", err)
			}

			restored := New(original.Id())
			if err = restored.Deserialize(data); err != nil {
				t.Fatalf("Deserialize failed: %v", err)
			}
			if !restored.Equal(original) {
				t.Errorf("expected restored table %v, got %v", original.values, restored.values)
			}
		})
	}
}

func TestSnapshotWireFormat(t *testing.T) {
	c := newTestChampion(t, "A")
	expected := Snapshot{"A": {"\x00": 1}}
	if got := c.Snapshot(); !snapshotsEqual(got, expected) {
		t.Errorf("expected snapshot %v, got %v", expected, got)
	}

	restored := New(10)
	if err := restored.Deserialize([]byte(`{"A":{"\u0000":1}}`)); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if !restored.Equal(c) {
		t.Errorf("expected %v, got %v", c.values, restored.values)
	}
}

func TestDeserializeReplaces(t *testing.T) {
	c := newTestChampion(t, "foo")
	other := newTestChampion(t, "bar")
	data, _ := other.Serialize()

	if err := c.Deserialize(data); err != nil {
		t.Fatalf("Deserialize failed: %v", err)
	}
	if c.Contains("foo") {
		t.Error("expected Deserialize to replace the table, but old transitions remain")
	}
	if !snapshotsEqual(c.Snapshot(), other.Snapshot()) {
		t.Errorf("expected %v, got %v", other.Snapshot(), c.Snapshot())
	}
	if c.Id() != 10 {
		t.Errorf("expected the id to be kept, got %d", c.Id())
	}
}

func TestDeserializeMalformed(t *testing.T) {
	testCases := []struct {
		name string
		data string
	}{
		{name: "Not JSON", data: `{lifjleiu;':;:';}`},
		{name: "Empty input", data: ``},
		{name: "Null", data: `null`},
		{name: "Array", data: `[]`},
		{name: "Multi character key", data: `{"ab":{"c":1}}`},
		{name: "Empty key", data: `{"a":{"":1}}`},
		{name: "Zero count", data: `{"a":{"b":0}}`},
		{name: "Negative count", data: `{"a":{"b":-1}}`},
		{name: "Fractional count", data: `{"a":{"b":1.5}}`},
		{name: "String count", data: `{"a":{"b":"1"}}`},
		{name: "No successors", data: `{"a":{}}`},
		{name: "Null successors", data: `{"a":null}`},
		{name: "Overflowing counts", data: `{"a":{"b":18446744073709551615,"c":1}}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestChampion(t, "foo")
			before := c.Snapshot()

			err := c.Deserialize([]byte(tc.data))
			if !errors.Is(err, ErrMalformedSnapshot) {
				t.Fatalf("expected ErrMalformedSnapshot, got %v", err)
			}
			var snapErr *SnapshotError
			if !errors.As(err, &snapErr) {
				t.Fatalf("expected a *SnapshotError, got %T", err)
			}
			if !snapshotsEqual(before, c.Snapshot()) {
				t.Error("expected the table to be unchanged after a failed Deserialize")
			}
		})
	}
}
