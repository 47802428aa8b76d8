package engine

import "strconv"

type errString string

func (e errString) Error() string { return string(e) }

func itoa(i int) string {
	return strconv.Itoa(i)
}

// abs returns the absolute value of an integer
func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// sign returns -1, 0 or 1
func sign(x int) int {
	switch {
	case x < 0:
		return -1
	case x > 0:
		return 1
	}
	return 0
}

// ManhattanDistance returns the L1 distance between two positions
func ManhattanDistance(a, b Position) int {
	return abs(a.Row-b.Row) + abs(a.Col-b.Col)
}
