// Package selector provides reproducible pseudo-random selection. The same
// (seed, source, count) always yields the same sequence, across processes
// and restarts, which is what lets daily quizzes, tournament rounds, and
// demo rooms rebuild their question order after a reload.
package selector

import "strings"

// Seed joins stable identifier parts into a composite seed. Callers must
// compose distinct seeds for distinct logical contexts (date, round, room)
// so two rounds or days never share a shuffle.
func Seed(parts ...string) string {
	return strings.Join(parts, "::")
}

// Select returns count items from source in a shuffled order derived only
// from seed. If count exceeds the source length the whole source is
// returned, shuffled. Empty source or non-positive count yields an empty
// slice. The input slice is never mutated.
func Select[T any](seed string, source []T, count int) []T {
	if len(source) == 0 || count <= 0 {
		return []T{}
	}
	if count > len(source) {
		count = len(source)
	}

	indices := make([]int, len(source))
	for i := range indices {
		indices[i] = i
	}

	state := hashSeed(seed)
	// Partial Fisher-Yates: only the first count positions need settling.
	for i := 0; i < count; i++ {
		state = xorshift32(state)
		j := i + int(state%uint32(len(indices)-i))
		indices[i], indices[j] = indices[j], indices[i]
	}

	out := make([]T, count)
	for i := 0; i < count; i++ {
		out[i] = source[indices[i]]
	}
	return out
}

// Pick returns a single seed-determined element. It is used for scripted
// choices like bot answers where only one draw is needed.
func Pick[T any](seed string, source []T) (T, bool) {
	var zero T
	if len(source) == 0 {
		return zero, false
	}
	state := xorshift32(hashSeed(seed))
	return source[int(state%uint32(len(source)))], true
}

// hashSeed derives a non-zero 32-bit state from the seed string. The hash
// is order-sensitive so "a::b" and "b::a" diverge.
func hashSeed(seed string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(seed); i++ {
		h ^= uint32(seed[i])
		h *= 16777619
	}
	if h == 0 {
		// xorshift32 would be stuck at zero forever.
		h = 0x9e3779b9
	}
	return h
}

// xorshift32 advances the generator state. Written out rather than taken
// from math/rand so the sequence is stable across Go releases.
func xorshift32(s uint32) uint32 {
	s ^= s << 13
	s ^= s >> 17
	s ^= s << 5
	return s
}
