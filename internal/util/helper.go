package util

// CloneSlice clones src into a new slice of cloneSize elements.
// The src length is used as the clone size if cloneSize is 0. A nil src with
// cloneSize 0 yields an empty, non-nil slice.
func CloneSlice[T any](src []T, cloneSize int) []T {
	if cloneSize == 0 {
		cloneSize = len(src)
	}
	clone := make([]T, cloneSize)
	copy(clone, src)

	return clone
}

// Fill returns a slice of n copies of v.
func Fill[T any](v T, n int) []T {
	out := make([]T, n)
	for i := range out {
		out[i] = v
	}

	return out
}
