// Telesync - Real-time event synchronization for telehealth clients
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/telesync

package reconcile

// Cached lists are immutable snapshots. Every helper returns a new slice
// and leaves its input untouched, so readers holding the old value never
// see it change.

func indexOf[T any](list []T, id string, key func(*T) string) int {
	for i := range list {
		if key(&list[i]) == id {
			return i
		}
	}
	return -1
}

func prepend[T any](list []T, item T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, item)
	return append(out, list...)
}

func replaceAt[T any](list []T, i int, item T) []T {
	out := make([]T, len(list))
	copy(out, list)
	out[i] = item
	return out
}

func removeAt[T any](list []T, i int) []T {
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:i]...)
	return append(out, list[i+1:]...)
}

func mapAll[T any](list []T, fn func(T) T) []T {
	out := make([]T, len(list))
	for i := range list {
		out[i] = fn(list[i])
	}
	return out
}

func floorZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
