package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/AlekLefebvre/pngme/internal/types"
)

func BenchmarkEngineProcessChunk(b *testing.B) {
	cfg := Config{Threads: 4}
	payload := containerBytes(b, [2]string{"ruSt", strings.Repeat("x", 256)})

	chunkSizes := []int{16, 64, 256}
	for _, size := range chunkSizes {
		b.Run(fmt.Sprintf("chunk_%d", size), func(b *testing.B) {
			chunk := make([]pendingScan, size)
			for i := range chunk {
				path := fmt.Sprintf("file-%d.png", i)
				chunk[i] = pendingScan{
					path:     path,
					data:     payload,
					cacheKey: path,
					cacheVal: fastHash(payload),
				}
			}

			var emitted int
			emit := func(fs []types.Finding) {
				emitted += len(fs)
			}

			b.ReportAllocs()
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				updated := map[string]string{}
				res := Result{}
				processChunk(cfg, chunk, emit, updated, &res)
			}
			b.SetBytes(int64(len(payload) * len(chunk)))
			_ = emitted
		})
	}
}

func BenchmarkInspectContainer(b *testing.B) {
	cfg := Config{}
	small := containerBytes(b, [2]string{"ruSt", "short message"})
	var entries [][2]string
	for i := 0; i < 64; i++ {
		entries = append(entries, [2]string{"ruSt", strings.Repeat("payload ", 32)})
	}
	large := containerBytes(b, entries...)

	b.Run("single_chunk", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			inspectContainer("a.png", small, cfg)
		}
		b.SetBytes(int64(len(small)))
	})
	b.Run("many_chunks", func(b *testing.B) {
		b.ReportAllocs()
		for i := 0; i < b.N; i++ {
			inspectContainer("a.png", large, cfg)
		}
		b.SetBytes(int64(len(large)))
	})
}
