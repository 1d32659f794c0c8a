// Package setops provides order-preserving set operations on slices.
package setops

// Not returns the elements of a that are not in b.
func Not[T comparable](a, b []T) []T {
	exclude := toSet(b)
	out := make([]T, 0, len(a))
	for _, v := range a {
		if _, ok := exclude[v]; !ok {
			out = append(out, v)
		}
	}
	return out
}

// Intersection returns the elements of a that are also in b.
func Intersection[T comparable](a, b []T) []T {
	include := toSet(b)
	out := make([]T, 0, len(a))
	for _, v := range a {
		if _, ok := include[v]; ok {
			out = append(out, v)
		}
	}
	return out
}

// Union returns a followed by the elements of b that are not in a.
func Union[T comparable](a, b []T) []T {
	out := make([]T, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, Not(b, a)...)
}

// Equal reports whether a and b hold the same elements in the same order.
// A nil slice equals an empty one.
func Equal[T comparable](a, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toSet[T comparable](s []T) map[T]struct{} {
	set := make(map[T]struct{}, len(s))
	for _, v := range s {
		set[v] = struct{}{}
	}
	return set
}
