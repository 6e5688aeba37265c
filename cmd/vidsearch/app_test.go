package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vidsearch/internal/config"
	"github.com/kailas-cloud/vidsearch/internal/domain"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/request"
	"github.com/kailas-cloud/vidsearch/internal/domain/search/result"
	healthuc "github.com/kailas-cloud/vidsearch/internal/usecase/health"
)

type catalogRow struct {
	Title   string  `parquet:"title"`
	VideoID string  `parquet:"video_id"`
	T0      float32 `parquet:"title_embedding_0"`
	T1      float32 `parquet:"title_embedding_1"`
	S0      float32 `parquet:"transcript_embedding_0"`
	S1      float32 `parquet:"transcript_embedding_1"`
}

// newEmbeddingServer serves an OpenAI-compatible /embeddings endpoint that always returns vec.
func newEmbeddingServer(t *testing.T, vec []float32, calls *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			http.NotFound(w, r)
			return
		}
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "all-MiniLM-L6-v2",
			"data": []map[string]any{
				{"object": "embedding", "index": 0, "embedding": vec},
			},
			"usage": map[string]int{"prompt_tokens": 3, "total_tokens": 3},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T, embeddingURL, cacheDriver string) config.Config {
	t.Helper()
	dir := t.TempDir()

	catalogPath := filepath.Join(dir, "videos.parquet")
	// Combined Manhattan distances to the zero query: a=4, b=40 (not below the default threshold), c=2.
	rows := []catalogRow{
		{Title: "Near", VideoID: "a", T0: 1, T1: 1, S0: 1, S1: 1},
		{Title: "On the boundary", VideoID: "b", T0: 10, T1: 10, S0: 10, S1: 10},
		{Title: "Nearest", VideoID: "c", T0: 0.5, T1: 0.5, S0: 0.5, S1: 0.5},
	}
	if err := parquet.WriteFile(catalogPath, rows); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	cfg, err := config.Parse([]byte(fmt.Sprintf(`
catalog:
  path: %s
embedding:
  provider: openai
  base_url: %s
  model: all-MiniLM-L6-v2
  dimensions: 2
cache:
  driver: %s
  badger:
    path: %s
`, catalogPath, embeddingURL, cacheDriver, filepath.Join(dir, "cache"))))
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	return cfg
}

func TestNewApp_SearchEndToEnd(t *testing.T) {
	var calls atomic.Int32
	srv := newEmbeddingServer(t, []float32{0, 0}, &calls)
	cfg := testConfig(t, srv.URL, config.CacheNone)

	a, err := newApp(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	results, err := a.search.Search(context.Background(), "how do goroutines work")
	if err != nil {
		t.Fatalf("search: %v", err)
	}

	got := make([]string, len(results))
	for i, r := range results {
		got[i] = r.VideoID()
	}
	if strings.Join(got, ",") != "c,a" {
		t.Errorf("got %v, want [c a]", got)
	}
	if a.catalog.Len() != 3 || a.catalog.Dimension() != 2 {
		t.Errorf("catalog len=%d dim=%d", a.catalog.Len(), a.catalog.Dimension())
	}
}

func TestNewApp_BadgerCacheServesRepeatQueries(t *testing.T) {
	var calls atomic.Int32
	srv := newEmbeddingServer(t, []float32{0, 0}, &calls)
	cfg := testConfig(t, srv.URL, config.CacheBadger)

	a, err := newApp(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	for range 3 {
		if _, err := a.search.Search(context.Background(), "same query"); err != nil {
			t.Fatalf("search: %v", err)
		}
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("expected 1 provider call, got %d", got)
	}

	report := a.health.Check(context.Background())
	if report.Checks[healthuc.ComponentCache] != healthuc.CheckOK {
		t.Errorf("expected cache check ok, got %v", report.Checks)
	}
}

func TestNewApp_EmbedderDimensionMismatch(t *testing.T) {
	var calls atomic.Int32
	srv := newEmbeddingServer(t, []float32{0, 0, 0}, &calls)
	cfg := testConfig(t, srv.URL, config.CacheNone)

	a, err := newApp(context.Background(), cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	defer a.Close()

	_, err = a.search.Search(context.Background(), "query")
	var dimErr *domain.DimensionMismatchError
	if !errors.As(err, &dimErr) {
		t.Fatalf("expected DimensionMismatchError for wrong vector size, got %v", err)
	}
	if dimErr.Want != 2 || dimErr.Got != 3 {
		t.Errorf("want=%d got=%d", dimErr.Want, dimErr.Got)
	}
	if errors.Is(err, domain.ErrEmbedding) {
		t.Errorf("wrong vector size must not be reported as ErrEmbedding: %v", err)
	}
}

func TestNewApp_MissingCatalog(t *testing.T) {
	cfg := testConfig(t, "http://127.0.0.1:1", config.CacheNone)
	cfg.Catalog.Path = filepath.Join(t.TempDir(), "missing.parquet")

	_, err := newApp(context.Background(), cfg, zap.NewNop())
	if !errors.Is(err, domain.ErrCatalogLoad) {
		t.Errorf("expected ErrCatalogLoad, got %v", err)
	}
}

func TestPrintResults(t *testing.T) {
	results := []result.Result{result.New("Intro", "v1"), result.New("Channels", "v2")}

	var buf bytes.Buffer
	if err := printResults(&buf, results, false); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "1. Intro (v1)\n2. Channels (v2)\n" {
		t.Errorf("unexpected text output: %q", buf.String())
	}

	buf.Reset()
	if err := printResults(&buf, results, true); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != `[{"title":"Intro","video_id":"v1"},{"title":"Channels","video_id":"v2"}]` {
		t.Errorf("unexpected JSON output: %s", buf.String())
	}
}

func TestPrintResults_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := printResults(&buf, nil, true); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected empty JSON array, got %q", buf.String())
	}

	buf.Reset()
	_ = printResults(&buf, nil, false)
	if !strings.Contains(buf.String(), "No matching videos") {
		t.Errorf("unexpected text output: %q", buf.String())
	}
}

func TestResolveParams(t *testing.T) {
	defaults, err := request.NewParams(40, 5)
	if err != nil {
		t.Fatal(err)
	}

	newCmd := func() (*cobra.Command, *searchFlags) {
		f := &searchFlags{}
		cmd := &cobra.Command{Use: "test"}
		addSearchFlags(cmd, f)
		return cmd, f
	}

	cmd, f := newCmd()
	p, err := resolveParams(cmd, defaults, f)
	if err != nil || p.Threshold() != 40 || p.TopK() != 5 {
		t.Errorf("expected defaults, got %v/%d err=%v", p.Threshold(), p.TopK(), err)
	}

	cmd, f = newCmd()
	_ = cmd.Flags().Parse([]string{"--threshold", "12.5", "--top-k", "0"})
	p, err = resolveParams(cmd, defaults, f)
	if err != nil || p.Threshold() != 12.5 || p.TopK() != 0 {
		t.Errorf("expected overrides, got %v/%d err=%v", p.Threshold(), p.TopK(), err)
	}

	cmd, f = newCmd()
	_ = cmd.Flags().Parse([]string{"--threshold", "-1"})
	if _, err := resolveParams(cmd, defaults, f); !errors.Is(err, domain.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestAnswerLines(t *testing.T) {
	in := strings.NewReader("first query\n\n   \nbad\nsecond query\n")
	var out bytes.Buffer
	var seen []string

	err := answerLines(context.Background(), in, &out, func(_ context.Context, q string) error {
		seen = append(seen, q)
		if q == "bad" {
			return domain.ErrEmbedding
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Join(seen, "|") != "first query|bad|second query" {
		t.Errorf("unexpected queries: %v", seen)
	}
	if !strings.Contains(out.String(), "error: embedding failed") {
		t.Errorf("expected error line in output: %q", out.String())
	}
}

func TestAnswerLines_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A pipe with no writes keeps the scanner blocked.
	pr, pw := io.Pipe()
	defer pw.Close()

	if err := answerLines(ctx, pr, &bytes.Buffer{}, func(context.Context, string) error { return nil }); err != nil {
		t.Fatalf("expected nil on cancellation, got %v", err)
	}
}
