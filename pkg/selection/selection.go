// Package selection tracks the highlighted entry of a suggestion list and
// routes pointer and key events to it through one index keyed entry point.
package selection

// Navigator holds the highlighted index over a list of count entries.
// With no entries the index is 0 and nothing is selectable.
type Navigator struct {
	index int
	count int
}

// Reset starts over on a new list of count entries.
func (n *Navigator) Reset(count int) {
	if count < 0 {
		count = 0
	}
	n.count = count
	n.index = 0
}

// Move steps by dir (normally +1 or -1), wrapping at both ends.
func (n *Navigator) Move(dir int) int {
	if n.count == 0 {
		return 0
	}
	n.index = ((n.index+dir)%n.count + n.count) % n.count
	return n.index
}

// Set highlights i. Out of range indexes are ignored.
func (n *Navigator) Set(i int) bool {
	if i < 0 || i >= n.count {
		return false
	}
	n.index = i
	return true
}

func (n *Navigator) Index() int { return n.index }
func (n *Navigator) Count() int { return n.count }

// Selected reports the highlighted index, or false for an empty list.
func (n *Navigator) Selected() (int, bool) {
	if n.count == 0 {
		return 0, false
	}
	return n.index, true
}
