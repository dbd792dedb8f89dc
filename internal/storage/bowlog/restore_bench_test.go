package bowlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"testing"
)

// benchImage builds a checkpointed device image with the given number of
// overwritten blocks and returns it with a matching engine.
func benchImage(b *testing.B, writes, capacity int) ([]byte, *Engine) {
	b.Helper()

	dataBlocks := writes + 1
	blocks := dataBlocks + writes*2 + 16
	rng := rand.New(rand.NewSource(int64(writes)))
	sim := newBowSim(b, rng, blocks, dataBlocks, capacity)
	for i := 1; i <= writes; i++ {
		data := make([]byte, BlockSize)
		rng.Read(data)
		sim.write(uint64(i*sectorsPerBlock), data)
	}

	e, err := NewEngine(WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	if err != nil {
		b.Fatalf("NewEngine: %v", err)
	}
	return sim.dev.snapshot(), e
}

func BenchmarkRestore(b *testing.B) {
	for _, writes := range []int{16, 256, 1024} {
		b.Run(fmt.Sprintf("writes=%d", writes), func(b *testing.B) {
			image, e := benchImage(b, writes, MaxEntries)
			dev := newMemDevice(len(image))
			ctx := context.Background()

			b.SetBytes(int64(writes * BlockSize))
			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				b.StopTimer()
				copy(dev.data, image)
				dev.writes = dev.writes[:0]
				b.StartTimer()

				report, err := e.Restore(ctx, dev)
				if err != nil {
					b.Fatalf("Restore: %v", err)
				}
				if report.Outcome != OutcomeRestored {
					b.Fatalf("unexpected outcome %v", report.Outcome)
				}
			}
		})
	}
}

func BenchmarkInspect(b *testing.B) {
	for _, capacity := range []int{4, 32, MaxEntries} {
		b.Run(fmt.Sprintf("capacity=%d", capacity), func(b *testing.B) {
			image, e := benchImage(b, 512, capacity)
			dev := newMemDevice(len(image))
			copy(dev.data, image)
			ctx := context.Background()

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				chain, err := e.Inspect(ctx, dev)
				if err != nil {
					b.Fatalf("Inspect: %v", err)
				}
				if !chain.Valid {
					b.Fatalf("invalid chain: %s", chain.Problem)
				}
			}
		})
	}
}

func BenchmarkEntryChecksum(b *testing.B) {
	for _, size := range []int{BlockSize, 16 * BlockSize} {
		b.Run(fmt.Sprintf("size=%d", size), func(b *testing.B) {
			data := make([]byte, size)
			rand.New(rand.NewSource(1)).Read(data)

			b.SetBytes(int64(size))
			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				_ = EntryChecksum(uint64(i), BlockSize, SectorSize, data)
			}
		})
	}
}
