package champion

import (
	"strings"
)

// Gen generates a nickname of at most maxLen characters. It returns
// ErrNoData when the champion has never been fed, and an InvariantError if
// it walks into a character that has no recorded successor.
//
// The first character is picked uniformly among all characters that have
// successors, regardless of how often they were seen. Every following
// character is drawn from the current character's successors, weighted by
// their counts, until Terminator is drawn or maxLen is reached.
func (c *Champion) Gen(maxLen int) (string, error) {
	if len(c.values) == 0 {
		return "", ErrNoData
	}

	keys := sortedKeys(c.values)
	next := keys[c.intN(len(keys))]

	var builder strings.Builder
	for i := 0; i < maxLen; i++ {
		if next == Terminator {
			break
		}
		builder.WriteRune(next)

		successors, ok := c.values[next]
		if !ok || len(successors) == 0 {
			return "", &InvariantError{Char: next}
		}
		var err error
		if next, err = c.nextLetter(next, successors); err != nil {
			return "", err
		}
	}
	return builder.String(), nil
}

// nextLetter draws a successor of current with probability proportional to
// its count. Successors are walked in rune order so that a seeded source
// always maps the same draw to the same letter.
func (c *Champion) nextLetter(current rune, successors map[rune]uint64) (rune, error) {
	var total uint64
	for _, freq := range successors {
		total += freq
	}
	if total == 0 {
		return 0, &InvariantError{Char: current}
	}

	draw := c.uint64N(total) + 1
	var partial uint64
	for _, letter := range sortedKeys(successors) {
		partial += successors[letter]
		if partial >= draw {
			return letter, nil
		}
	}
	return 0, &InvariantError{Char: current}
}
