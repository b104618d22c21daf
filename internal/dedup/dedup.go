// Package dedup implements the two-phase content-hash grouping (bucket
// by size, then hash within each bucket), primary/secondary/duplicate
// ranking, and in-folder duplicate reclassification. Grounded on a
// hash-based identity check (HashFile plus a hash-keyed photos table)
// and an isFilenameBetter-style ranking heuristic, generalized into a
// deterministic ranking rule.
package dedup

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"gphotoreorg/internal/domain"
	"gphotoreorg/internal/filename"
	"gphotoreorg/internal/hashing"
	"gphotoreorg/internal/pool"
)

// Stats are the counters the orchestrator folds into its final report.
type Stats struct {
	DuplicatesRemoved    int
	ExtrasSkipped        int
	EntitiesMerged       int
	PrimaryReassignments int
	HashFailures         int
}

// Merge groups files by content into MediaEntities.
func Merge(ctx context.Context, files []*domain.FileEntity, hasher *hashing.Service, pools *pool.Set, skipExtras bool) ([]*domain.MediaEntity, Stats, error) {
	var stats Stats

	universe := files
	if skipExtras {
		kept := universe[:0:0]
		for _, f := range files {
			if filename.HasExtrasSuffix(f.Basename()) {
				stats.ExtrasSkipped++
				continue
			}
			kept = append(kept, f)
		}
		universe = kept
	}

	// Phase 1: bucket by size.
	buckets := make(map[int64][]*domain.FileEntity)
	for _, f := range universe {
		buckets[f.Size] = append(buckets[f.Size], f)
	}

	var entities []*domain.MediaEntity
	for size, bucket := range buckets {
		if len(bucket) == 1 {
			entities = append(entities, domain.NewMediaEntity(bucket[0]))
			continue
		}

		// Phase 2: hash within the bucket, bounded by the hash pool.
		digestGroups, quarantined, err := hashBucket(ctx, bucket, hasher, pools)
		if err != nil {
			return nil, stats, fmt.Errorf("hashing size bucket %d: %w", size, err)
		}
		stats.HashFailures += len(quarantined)
		for _, f := range quarantined {
			entities = append(entities, domain.NewMediaEntity(f))
		}

		for digest, group := range digestGroups {
			entity := buildEntity(group, digest)
			if len(group) > 1 {
				stats.EntitiesMerged++
			}
			stats.DuplicatesRemoved += len(entity.DuplicatesFiles)
			entities = append(entities, entity)
		}
	}

	return entities, stats, nil
}

func hashBucket(ctx context.Context, bucket []*domain.FileEntity, hasher *hashing.Service, pools *pool.Set) (map[string][]*domain.FileEntity, []*domain.FileEntity, error) {
	type result struct {
		file   *domain.FileEntity
		digest string
		err    error
	}

	results := make(chan result, len(bucket))
	p := pools.Get(pool.DuplicateDetect)

	for _, f := range bucket {
		f := f
		if err := p.Acquire(ctx); err != nil {
			return nil, nil, err
		}
		go func() {
			defer p.Release()
			_, digest, err := hasher.Hash(f.SourcePath)
			results <- result{file: f, digest: string(digest), err: err}
		}()
	}

	groups := make(map[string][]*domain.FileEntity)
	var quarantined []*domain.FileEntity
	for range bucket {
		r := <-results
		if r.err != nil {
			quarantined = append(quarantined, r.file)
			continue
		}
		groups[r.digest] = append(groups[r.digest], r.file)
	}
	return groups, quarantined, nil
}

// buildEntity applies the ranking rule to pick the
// primary, then reclassifies same-parent-directory non-primaries as
// duplicates.
func buildEntity(group []*domain.FileEntity, digest string) *domain.MediaEntity {
	for _, f := range group {
		f.SourceDir = filepath.Dir(f.SourcePath)
	}
	rankAll(group)

	primary := group[0]
	rest := group[1:]

	entity := domain.NewMediaEntity(primary)
	entity.ContentDigest = digest
	entity.Size = primary.Size

	byDir := make(map[string][]*domain.FileEntity)
	byDir[primary.SourceDir] = append(byDir[primary.SourceDir], primary)

	for _, f := range rest {
		if len(byDir[f.SourceDir]) > 0 {
			// same directory as an already-placed (better-ranked) file:
			// reclassify as duplicate.
			f.IsDuplicateCopy = true
			entity.DuplicatesFiles = append(entity.DuplicatesFiles, f)
		} else {
			entity.SecondaryFiles = append(entity.SecondaryFiles, f)
		}
		byDir[f.SourceDir] = append(byDir[f.SourceDir], f)
	}

	return entity
}

// rankAll computes FileEntity.Ranking for every file in group using the
// tiebreak rule: (canonical-weight, len(basename), len(path)), smaller
// wins, then stable lexicographic path order.
func rankAll(group []*domain.FileEntity) {
	for _, f := range group {
		weight := 1
		if f.FromYearFolder {
			weight = 0
		}
		f.Ranking = weight
	}
	// The numeric Ranking field only carries the canonical-weight tier;
	// the full comparator (basename/path length, lexicographic) is
	// applied directly in the sort below so ties within a weight tier
	// still resolve deterministically.
	sort.SliceStable(group, func(i, j int) bool {
		a, b := group[i], group[j]
		if a.Ranking != b.Ranking {
			return a.Ranking < b.Ranking
		}
		if len(a.Basename()) != len(b.Basename()) {
			return len(a.Basename()) < len(b.Basename())
		}
		if len(a.SourcePath) != len(b.SourcePath) {
			return len(a.SourcePath) < len(b.SourcePath)
		}
		return a.SourcePath < b.SourcePath
	})
}
