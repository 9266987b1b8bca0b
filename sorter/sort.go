package sorter

import "cmp"

type span struct{ lo, hi int }

// Sort returns a sorted copy of s; s itself is left untouched.
//
// Each range is split around its middle element into values less than,
// equal to and greater than the pivot. The equal band is final; the two
// outer bands are sorted the same way. Ranges are processed from an explicit
// stack and the smaller band is always handled first, so pending work stays
// logarithmic in len(s) even on degenerate input.
func Sort[T cmp.Ordered](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	if len(out) <= 1 {
		return out
	}
	stack := []span{{0, len(out)}}
	for len(stack) > 0 {
		r := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for r.hi-r.lo > 1 {
			lt, gt := partition(out, r.lo, r.hi)
			left, right := span{r.lo, lt}, span{gt, r.hi}
			if left.hi-left.lo < right.hi-right.lo {
				stack = append(stack, right)
				r = left
			} else {
				stack = append(stack, left)
				r = right
			}
		}
	}
	return out
}

// partition rearranges s[lo:hi] so that s[lo:lt] < pivot, s[lt:gt] == pivot
// and s[gt:hi] > pivot, where pivot is the middle element of the range.
func partition[T cmp.Ordered](s []T, lo, hi int) (lt, gt int) {
	pivot := s[lo+(hi-lo)/2]
	lt, gt = lo, hi
	for i := lo; i < gt; {
		switch {
		case s[i] < pivot:
			s[lt], s[i] = s[i], s[lt]
			lt++
			i++
		case s[i] > pivot:
			gt--
			s[i], s[gt] = s[gt], s[i]
		default:
			i++
		}
	}
	return lt, gt
}

// IsSorted reports whether s is in non-decreasing order.
func IsSorted[T cmp.Ordered](s []T) bool {
	for i := 1; i < len(s); i++ {
		if s[i] < s[i-1] {
			return false
		}
	}
	return true
}
