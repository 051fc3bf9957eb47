package helpers

import (
	"golang.org/x/exp/constraints"
	"golang.org/x/exp/slices"
)

// IfElse returns valueIfTrue or valueIfFalse depending on isTrue.
func IfElse[V any](isTrue bool, valueIfTrue, valueIfFalse V) V {
	if isTrue {
		return valueIfTrue
	}
	return valueIfFalse
}

// Sorted returns a sorted copy of the slice, leaving the original untouched.
func Sorted[V constraints.Ordered](s []V) []V {
	ret := slices.Clone(s)
	slices.Sort(ret)
	return ret
}

// FirstN returns at most the first n elements of s, and whether any were left out.
func FirstN[V any](s []V, n int) ([]V, bool) {
	if len(s) <= n {
		return s, false
	}
	return s[:n], true
}
