package generator

import (
	"context"
	"math/rand"

	"golang.org/x/sync/errgroup"
)

// DefaultChunkSize is the number of rows drawn from one random source
const DefaultChunkSize = 1 << 16

type stageID uint64

const (
	customerStage stageID = iota + 1
	merchantStage
	transactionStage
	loanStage
)

// streams within a stage that need their own random source
const nameStream = 0x100

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// chunkSeed derives the seed of one chunk so output does not depend on
// which worker fills it or in what order
func chunkSeed(seed int64, stage stageID, chunk int) int64 {
	h := splitmix64(uint64(seed))
	h = splitmix64(h ^ uint64(stage))
	h = splitmix64(h ^ uint64(chunk))
	return int64(h)
}

type fillFunc func(r *rand.Rand, chunk, lo, hi int) error

// forEachChunk splits [0, n) into chunks and fills them on up to Workers
// goroutines. The context is checked before every chunk.
func (dg *DataGenerator) forEachChunk(ctx context.Context, stage stageID, n int, fill fillFunc) error {
	size := dg.chunkSize()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(dg.workers())

	for chunk, lo := 0, 0; lo < n; chunk, lo = chunk+1, lo+size {
		if gctx.Err() != nil {
			break
		}
		hi := min(lo+size, n)
		seed := chunkSeed(dg.Seed, stage, chunk)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fill(rand.New(rand.NewSource(seed)), chunk, lo, hi)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
