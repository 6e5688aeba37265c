package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/domain"
)

// --- Mocks ---

type mockEmbedder struct {
	vec    []float32
	tokens int
	err    error
	calls  int
	got    string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) (domain.EmbeddingResult, error) {
	m.calls++
	m.got = text
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: m.vec, TotalTokens: m.tokens}, nil
}

func newTestService(t *testing.T, emb Embedder) *Service {
	t.Helper()
	cat := mustCatalog(t,
		item("A", "v1", 0, 0),
		item("B", "v2", 10, 10),
		item("C", "v3", 1, 1),
	)
	return New(newManhattanRanker(t), cat, emb, mustParams(t, 5, 5), zap.NewNop())
}

func TestSearch_ComposesEmbedderAndRanker(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0, 0}}
	svc := newTestService(t, emb)

	results, err := svc.Search(context.Background(), "virus")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.got != "virus" {
		t.Errorf("embedder received %q", emb.got)
	}
	// A=0, C=4, B=40
	want := []string{"v1", "v3"}
	if got := ids(results); !equalIDs(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSearch_Idempotent(t *testing.T) {
	svc := newTestService(t, &mockEmbedder{vec: []float32{0.5, 0.5}})

	first, err := svc.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := svc.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !equalIDs(ids(first), ids(second)) {
		t.Errorf("results differ: %v vs %v", ids(first), ids(second))
	}
}

func TestSearchWithParams_Overrides(t *testing.T) {
	svc := newTestService(t, &mockEmbedder{vec: []float32{0, 0}})

	results, err := svc.SearchWithParams(context.Background(), "q", mustParams(t, 100, 1))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := ids(results); !equalIDs(got, []string{"v1"}) {
		t.Errorf("got %v, want [v1]", got)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0, 0}}
	svc := newTestService(t, emb)

	_, err := svc.Search(context.Background(), "")
	if !errors.Is(err, domain.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
	if emb.calls != 0 {
		t.Error("embedder must not be called for an invalid query")
	}
}

func TestSearch_LongQueryReachesEmbedder(t *testing.T) {
	emb := &mockEmbedder{vec: []float32{0, 0}}
	svc := newTestService(t, emb)

	query := strings.Repeat("a", 5000)
	if _, err := svc.Search(context.Background(), query); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if emb.calls != 1 || emb.got != query {
		t.Errorf("embedder calls=%d, received %d bytes", emb.calls, len(emb.got))
	}
}

func TestSearch_EmbedderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"provider error already classified", fmt.Errorf("provider: %w", domain.ErrEmbedding)},
		{"plain error", errors.New("connection refused")},
		{"domain error", domain.ErrEmbedding},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, &mockEmbedder{err: tc.err})

			results, err := svc.Search(context.Background(), "q")
			if results != nil {
				t.Errorf("expected nil results, got %v", results)
			}
			if !errors.Is(err, domain.ErrEmbedding) {
				t.Fatalf("expected ErrEmbedding, got %v", err)
			}
		})
	}
}

func TestSearch_EmptyVector(t *testing.T) {
	svc := newTestService(t, &mockEmbedder{vec: nil})

	_, err := svc.Search(context.Background(), "q")
	if !errors.Is(err, domain.ErrEmbedding) {
		t.Fatalf("expected ErrEmbedding, got %v", err)
	}
}

func TestSearch_DimensionMismatch(t *testing.T) {
	svc := newTestService(t, &mockEmbedder{vec: []float32{0, 0, 0}})

	_, err := svc.Search(context.Background(), "q")
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearch_EmbedderDimensionMismatch(t *testing.T) {
	svc := newTestService(t, &mockEmbedder{err: domain.NewDimensionMismatch("query", 2, 3)})

	_, err := svc.Search(context.Background(), "q")
	if !errors.Is(err, domain.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if errors.Is(err, domain.ErrEmbedding) {
		t.Errorf("dimension mismatch must not be reported as ErrEmbedding: %v", err)
	}
}

func TestSearch_NoMatchIsSuccess(t *testing.T) {
	svc := newTestService(t, &mockEmbedder{vec: []float32{100, 100}})

	results, err := svc.Search(context.Background(), "q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result, got %v", ids(results))
	}
}

func TestSearch_RecordsUsage(t *testing.T) {
	svc := newTestService(t, &mockEmbedder{vec: []float32{0, 0}, tokens: 7})

	ctx, usage := domain.NewContextWithUsage(context.Background())
	if _, err := svc.Search(ctx, "q"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !usage.Used || usage.TotalTokens != 7 {
		t.Errorf("usage = %+v, want 7 tokens", usage)
	}
}

type staticEmbedder struct{ vec []float32 }

func (s staticEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	return domain.EmbeddingResult{Embedding: s.vec}, nil
}

func TestSearch_Concurrent(t *testing.T) {
	svc := newTestService(t, staticEmbedder{vec: []float32{0, 0}})

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results, err := svc.Search(context.Background(), "q")
			if err != nil {
				errs <- err
				return
			}
			if !equalIDs(ids(results), []string{"v1", "v3"}) {
				errs <- fmt.Errorf("unexpected results: %v", ids(results))
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}
