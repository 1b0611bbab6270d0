package rag

import (
	"strings"
	"testing"
)

func TestChunkerSplit(t *testing.T) {
	chunker := NewChunker(100, 20)

	t.Run("short text stays whole", func(t *testing.T) {
		chunks, err := chunker.Split("a single short paragraph")
		if err != nil {
			t.Fatal(err)
		}
		if len(chunks) != 1 || chunks[0] != "a single short paragraph" {
			t.Errorf("chunks %v", chunks)
		}
	})

	t.Run("long text is split", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < 30; i++ {
			b.WriteString("each week adds a little more volume to the program. ")
		}
		chunks, err := chunker.Split(b.String())
		if err != nil {
			t.Fatal(err)
		}
		if len(chunks) < 2 {
			t.Fatalf("expected multiple chunks, got %d", len(chunks))
		}
		for i, chunk := range chunks {
			if len(chunk) > 100 {
				t.Errorf("chunk %d is %d chars, limit 100", i, len(chunk))
			}
		}
	})

	t.Run("whitespace-only input yields nothing", func(t *testing.T) {
		chunks, err := chunker.Split("   \n\n   ")
		if err != nil {
			t.Fatal(err)
		}
		if len(chunks) != 0 {
			t.Errorf("chunks %v", chunks)
		}
	})
}

func TestChunkerDefaults(t *testing.T) {
	// Out-of-range settings fall back to the defaults rather than erroring.
	chunker := NewChunker(0, -1)
	if _, err := chunker.Split("hello"); err != nil {
		t.Fatal(err)
	}
	chunker = NewChunker(10, 50)
	if _, err := chunker.Split("hello"); err != nil {
		t.Fatal(err)
	}
}
