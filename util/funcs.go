package util

import (
	"iter"
	"slices"

	"github.com/hashicorp/go-set/v3"
)

// SlicesEquivalent compares two slices element-wise by hash rather than by ==,
// so it works for deeply structured values that define their own equivalence.
func SlicesEquivalent[A set.Hash, B, BB set.Hasher[A]](fst []B, snd []BB) bool {
	return slices.EqualFunc(fst, snd, func(e1 B, e2 BB) bool {
		return e1.Hash() == e2.Hash()
	})
}

func ConcatIter[A any](iter ...iter.Seq[A]) iter.Seq[A] {
	return func(yield func(A) bool) {
		for _, thisIter := range iter {
			for v := range thisIter {
				if !yield(v) {
					return
				}
			}
		}
	}
}

func ConcatIter2[A, B any](iter ...iter.Seq2[A, B]) iter.Seq2[A, B] {
	return func(yield func(A, B) bool) {
		for _, thisIter := range iter {
			for v, w := range thisIter {
				if !yield(v, w) {
					return
				}
			}
		}
	}
}

// Reverse iterates slice from the last element to the first.
func Reverse[A any](slice []A) iter.Seq[A] {
	return func(yield func(A) bool) {
		for i := len(slice) - 1; i >= 0; i-- {
			if !yield(slice[i]) {
				return
			}
		}
	}
}
