package progress

import "maps"

// Counts maps class -> episode type -> episode count. Absent entries read as
// zero. encoding/json serializes map keys in sorted order, so the rendered
// form is deterministic.
type Counts map[string]map[string]int

// Get returns the count for a pair, or zero.
func (c Counts) Get(class, episodeType string) int {
	return c[class][episodeType]
}

// Set stores n for a pair, creating the class entry on demand.
func (c Counts) Set(class, episodeType string, n int) {
	byType, ok := c[class]
	if !ok {
		byType = make(map[string]int)
		c[class] = byType
	}
	byType[episodeType] = n
}

// Inc adds one to a pair and returns the new count.
func (c Counts) Inc(class, episodeType string) int {
	n := c.Get(class, episodeType) + 1
	c.Set(class, episodeType, n)
	return n
}

// ClassTotal sums every type of one class.
func (c Counts) ClassTotal(class string) int {
	total := 0
	for _, n := range c[class] {
		total += n
	}
	return total
}

// Total sums every pair.
func (c Counts) Total() int {
	total := 0
	for class := range c {
		total += c.ClassTotal(class)
	}
	return total
}

// Equal compares two count maps, treating missing and zero entries alike.
func (c Counts) Equal(other Counts) bool {
	return c.covers(other) && other.covers(c)
}

func (c Counts) covers(other Counts) bool {
	for class, byType := range c {
		for episodeType, n := range byType {
			if other.Get(class, episodeType) != n {
				return false
			}
		}
	}
	return true
}

// Clone returns a deep copy.
func (c Counts) Clone() Counts {
	out := make(Counts, len(c))
	for class, byType := range c {
		out[class] = maps.Clone(byType)
	}
	return out
}
