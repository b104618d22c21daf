// Package pool provides per-operation, semaphore-limited worker pools.
// Each logical operation (hash, exif read/write, duplicate detection,
// exiftool process I/O, file I/O) gets its own pool so unrelated
// operations cannot starve each other. All five pools are created
// together when a Set is built (not on first use) and reused for the
// Set's lifetime, matching a GetPhotos/worker-style channel pattern,
// generalized from one hardcoded pool to five named ones.
package pool

import (
	"context"
	"runtime"
)

// Name identifies one of the five pools's table.
type Name string

const (
	Hash              Name = "hash"
	ExifReadWrite     Name = "native_exif_read_write"
	DuplicateDetect   Name = "duplicate_detection"
	NetworkLike       Name = "network_like"
	FileIO            Name = "file_io"
)

// Pool is a bounded semaphore. Acquire blocks until a slot is free or ctx
// is cancelled (honoring the cancellation design).
type Pool struct {
	slots chan struct{}
}

func newPool(limit int) *Pool {
	if limit < 1 {
		limit = 1
	}
	return &Pool{slots: make(chan struct{}, limit)}
}

// Acquire blocks until a slot is available or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.slots <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a previously acquired slot.
func (p *Pool) Release() {
	<-p.slots
}

// Limit reports the pool's configured concurrency ceiling.
func (p *Pool) Limit() int {
	return cap(p.slots)
}

// Multipliers configures per-pool core multipliers; zero fields fall back
// to the defaults (hash x4, exif x6, dedup x6, network x16,
// file_io x4).
type Multipliers struct {
	Hash            int
	ExifReadWrite   int
	DuplicateDetect int
	NetworkLike     int
	FileIO          int
}

// Set is the collection of named pools for one pipeline run, all created
// up front by NewSet and reused. Tests may construct a Set with overridden multipliers.
type Set struct {
	pools map[Name]*Pool
}

// NewSet builds all five pools against runtime.NumCPU(), applying any
// non-zero overrides in m.
func NewSet(m Multipliers) *Set {
	cores := runtime.NumCPU()
	if cores < 1 {
		cores = 1
	}
	def := func(v, fallback int) int {
		if v <= 0 {
			return fallback
		}
		return v
	}
	s := &Set{pools: make(map[Name]*Pool, 5)}
	s.pools[Hash] = newPool(cores * def(m.Hash, 4))
	s.pools[ExifReadWrite] = newPool(cores * def(m.ExifReadWrite, 6))
	s.pools[DuplicateDetect] = newPool(cores * def(m.DuplicateDetect, 6))
	s.pools[NetworkLike] = newPool(cores * def(m.NetworkLike, 16))
	s.pools[FileIO] = newPool(cores * def(m.FileIO, 4))
	return s
}

// Get returns the named pool, or a freshly minted single-slot pool if the
// name is unrecognized (defensive default, never starves the caller).
func (s *Set) Get(n Name) *Pool {
	if p, ok := s.pools[n]; ok {
		return p
	}
	return newPool(1)
}
