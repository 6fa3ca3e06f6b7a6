package champion

// Stats holds aggregated counts for a champion's transition table.
type Stats struct {
	Keys           int    `json:"keys"`            // Characters with at least one successor; the possible first letters.
	Edges          int    `json:"edges"`           // Unique from->to transitions.
	Endings        int    `json:"endings"`         // Characters that have ended a nickname.
	TotalFrequency uint64 `json:"total_frequency"` // Sum of all counts; the number of learned transitions.
}

// Stats returns a summary of the transition table.
func (c *Champion) Stats() Stats {
	var s Stats
	s.Keys = len(c.values)
	for _, successors := range c.values {
		s.Edges += len(successors)
		if _, ok := successors[Terminator]; ok {
			s.Endings++
		}
		for _, freq := range successors {
			s.TotalFrequency += freq
		}
	}
	return s
}
