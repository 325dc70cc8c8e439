// Package relational provides in-memory relational operators over slices of
// records: inner hash join, restriction, projection, duplicate elimination and
// per-key selection. Operators never modify their inputs and preserve input
// order wherever the result has one.
package relational

// HashJoin returns the inner equi-join of left and build. The build side is
// indexed by buildKey; the output follows left order and, for one left row,
// the order of its matching build rows. Rows whose key is the zero value of K
// never match, in the way a SQL NULL key never joins.
func HashJoin[L, R any, K comparable, O any](
	left []L,
	build []R,
	leftKey func(L) K,
	buildKey func(R) K,
	combine func(L, R) O,
) []O {
	var zero K
	index := make(map[K][]int, len(build))
	for i, r := range build {
		k := buildKey(r)
		if k == zero {
			continue
		}
		index[k] = append(index[k], i)
	}

	out := make([]O, 0, len(left))
	for _, l := range left {
		k := leftKey(l)
		if k == zero {
			continue
		}
		for _, i := range index[k] {
			out = append(out, combine(l, build[i]))
		}
	}
	return out
}

// Filter returns the rows for which keep reports true.
func Filter[T any](rows []T, keep func(T) bool) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// Project maps every row through f.
func Project[T, O any](rows []T, f func(T) O) []O {
	out := make([]O, len(rows))
	for i, r := range rows {
		out[i] = f(r)
	}
	return out
}

// Distinct removes exact duplicates, keeping the first occurrence. Applying
// it twice yields the same result as applying it once.
func Distinct[T comparable](rows []T) []T {
	seen := make(map[T]struct{}, len(rows))
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}

// FirstPerKey keeps one row per key: the least row under less, with ties going
// to the row that appears first. The result is the same as stable-sorting by
// less and taking the first row of each group. Groups are emitted in order of
// their key's first appearance in rows.
func FirstPerKey[T any, K comparable](rows []T, key func(T) K, less func(a, b T) bool) []T {
	pos := make(map[K]int)
	out := make([]T, 0)
	for _, r := range rows {
		k := key(r)
		i, ok := pos[k]
		if !ok {
			pos[k] = len(out)
			out = append(out, r)
			continue
		}
		if less(r, out[i]) {
			out[i] = r
		}
	}
	return out
}
