// Package storage manages the lifecycle of per-workspace backing stores.
// It guarantees at most one live store per workspace identity, shares that
// store across concurrent callers through reference-counted handles, and
// applies a bounded retry-and-recover policy when opening a store fails,
// falling back to a no-op store so that storage failures stay invisible
// to callers.
package storage
