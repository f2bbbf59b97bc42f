package indexer

import (
	"context"
	"fmt"
	"testing"

	"github.com/dshills/pinup/internal/storage"
	"github.com/dshills/pinup/pkg/types"
)

func seedBenchSnippets(b *testing.B, store *storage.SQLiteStorage, n int) {
	b.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		snippet := &types.Snippet{
			Title: fmt.Sprintf("snippet %d", i),
			Body:  fmt.Sprintf("func handler%d() { retry(%d) }", i, i%7),
		}
		if err := store.CreateSnippet(ctx, snippet); err != nil {
			b.Fatal(err)
		}
	}
}

// Rebuild time per snippet should stay flat as the library grows
func BenchmarkReindexAll(b *testing.B) {
	for _, n := range []int{1000, 2000, 4000} {
		b.Run(fmt.Sprintf("snippets=%d", n), func(b *testing.B) {
			store, err := storage.NewSQLiteStorage(":memory:")
			if err != nil {
				b.Fatal(err)
			}
			defer store.Close()
			seedBenchSnippets(b, store, n)

			idx := New(store, nil)
			ctx := context.Background()

			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				if _, err := idx.ReindexAll(ctx); err != nil {
					b.Fatal(err)
				}
			}
			b.ReportMetric(float64(b.Elapsed().Nanoseconds())/float64(b.N*n), "ns/snippet")
		})
	}
}

func BenchmarkReindexSnippet(b *testing.B) {
	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		b.Fatal(err)
	}
	defer store.Close()
	seedBenchSnippets(b, store, 2000)

	idx := New(store, nil)
	ctx := context.Background()
	if _, err := idx.ReindexAll(ctx); err != nil {
		b.Fatal(err)
	}
	doc, err := store.ListIndexDocuments(ctx, "", 1)
	if err != nil || len(doc) == 0 {
		b.Fatalf("no snippet to reindex: %v", err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := idx.ReindexSnippet(ctx, doc[0].SnippetID); err != nil {
			b.Fatal(err)
		}
	}
}
