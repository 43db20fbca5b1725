package embed

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestUnconfiguredReturnsZeroVectors(t *testing.T) {
	s := New("", "text-embedding-3-small", 8, nil, discard())
	if s.Configured() {
		t.Fatal("service with no key should be unconfigured")
	}
	vecs, err := s.EmbedTexts(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 2 {
		t.Fatalf("vectors = %d, want 2", len(vecs))
	}
	for i, v := range vecs {
		if len(v) != 8 {
			t.Fatalf("vector %d has %d dims, want 8", i, len(v))
		}
		for _, x := range v {
			if x != 0 {
				t.Fatalf("vector %d not zero", i)
			}
		}
	}
}

func TestEmbedTextDelegates(t *testing.T) {
	s := New("", "text-embedding-3-small", 4, nil, discard())
	v, err := s.EmbedText(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 4 {
		t.Errorf("dims = %d, want 4", len(v))
	}
}

func TestEmbedTextsEmpty(t *testing.T) {
	s := New("", "m", 4, nil, discard())
	vecs, err := s.EmbedTexts(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("empty batch: vecs=%v err=%v", vecs, err)
	}
}
