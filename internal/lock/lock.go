//go:build !deadlock_test

// Package lock provides the mutexes used across ghmirror. Regular builds
// get the sync types; building with the deadlock_test tag swaps in
// go-deadlock so lock ordering problems surface in tests.
package lock

import "sync"

type Mutex = sync.Mutex

type RWMutex = sync.RWMutex
