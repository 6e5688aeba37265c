package ollama

import (
	"context"
	"errors"
	"testing"

	"github.com/kailas-cloud/vidsearch/internal/domain"
)

type fakeQueryEmbedder struct {
	vec []float32
	err error
	got string
}

func (f *fakeQueryEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.got = text
	return f.vec, f.err
}

func TestEmbed_Success(t *testing.T) {
	fake := &fakeQueryEmbedder{vec: []float32{0.1, 0.2, 0.3}}
	e := newEmbedder(fake, &Config{Model: "all-minilm", Dimensions: 3})

	res, err := e.Embed(context.Background(), "virus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.got != "virus" {
		t.Errorf("inner received %q", fake.got)
	}
	if len(res.Embedding) != 3 || res.TotalTokens != 0 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestEmbed_Errors(t *testing.T) {
	tests := []struct {
		name string
		fake *fakeQueryEmbedder
		text string
	}{
		{"empty text", &fakeQueryEmbedder{vec: []float32{1}}, ""},
		{"inner error", &fakeQueryEmbedder{err: errors.New("connection refused")}, "q"},
		{"empty vector", &fakeQueryEmbedder{vec: []float32{}}, "q"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEmbedder(tc.fake, &Config{Model: "all-minilm", Dimensions: 3})
			_, err := e.Embed(context.Background(), tc.text)
			if !errors.Is(err, domain.ErrEmbedding) {
				t.Fatalf("expected ErrEmbedding, got %v", err)
			}
		})
	}
}

func TestEmbed_KeepsProviderErrorChain(t *testing.T) {
	e := newEmbedder(&fakeQueryEmbedder{err: context.Canceled}, &Config{Model: "all-minilm"})

	_, err := e.Embed(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Errorf("expected ErrEmbedding, got %v", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestEmbed_WrongDimension(t *testing.T) {
	e := newEmbedder(&fakeQueryEmbedder{vec: []float32{1, 2, 3}}, &Config{Model: "all-minilm", Dimensions: 2})

	_, err := e.Embed(context.Background(), "q")
	var dimErr *domain.DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError, got %v", err)
	}
	if dimErr.Want != 2 || dimErr.Got != 3 {
		t.Errorf("want=%d got=%d", dimErr.Want, dimErr.Got)
	}
	if errors.Is(err, domain.ErrEmbedding) {
		t.Errorf("wrong vector size must not be reported as ErrEmbedding: %v", err)
	}
}

func TestNewEmbedder(t *testing.T) {
	e, err := NewEmbedder(&Config{ServerURL: "http://localhost:11434", Model: "all-minilm"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.model != "all-minilm" {
		t.Errorf("model = %q", e.model)
	}
}
