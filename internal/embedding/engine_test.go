package embedding

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Jasperb3/TransitReader/internal/config"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0, 0}
	sim, err := CosineSimilarity(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sim-1) > 1e-9 {
		t.Fatalf("identical vectors: sim=%f, want 1", sim)
	}

	c := []float32{0, 1, 0}
	sim, err = CosineSimilarity(a, c)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(sim) > 1e-9 {
		t.Fatalf("orthogonal vectors: sim=%f, want 0", sim)
	}
}

func TestCosineSimilarity_Errors(t *testing.T) {
	if _, err := CosineSimilarity([]float32{1}, []float32{1, 2}); err == nil {
		t.Fatal("dimension mismatch must error")
	}
	if _, err := CosineSimilarity([]float32{0, 0}, []float32{1, 1}); err == nil {
		t.Fatal("zero vector must error")
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	_, err := New(config.EmbeddingConfig{Provider: "pinecone"})
	if err == nil {
		t.Fatal("unknown provider must error")
	}
}

func TestNewGenAIEngine_RequiresKey(t *testing.T) {
	if _, err := NewGenAIEngine("", ""); err == nil {
		t.Fatal("missing API key must error")
	}
}

func ollamaTestEngine(t *testing.T, handler http.HandlerFunc) *OllamaEngine {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	e, err := NewOllamaEngine(config.EmbeddingConfig{OllamaEndpoint: srv.URL})
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOllamaEngine_Embed(t *testing.T) {
	e := ollamaTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.Model != "embeddinggemma" {
			t.Errorf("model=%q", req.Model)
		}
		if len(req.Input) != 1 || req.Input[0] != "hello" {
			t.Errorf("input=%v", req.Input)
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{0.1, 0.2}}})
	})

	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 2 || vec[0] != 0.1 {
		t.Fatalf("vec=%v", vec)
	}
}

func TestOllamaEngine_EmbedBatchSingleRequest(t *testing.T) {
	calls := 0
	e := ollamaTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		vecs := make([][]float32, len(req.Input))
		for i := range vecs {
			vecs[i] = []float32{float32(i)}
		}
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: vecs})
	})

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 || vecs[2][0] != 2 {
		t.Fatalf("vecs=%v", vecs)
	}
	if calls != 1 {
		t.Fatalf("calls=%d, want 1 batch request", calls)
	}
}

func TestOllamaEngine_ErrorStatus(t *testing.T) {
	e := ollamaTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})
	if _, err := e.EmbedBatch(context.Background(), []string{"a"}); err == nil {
		t.Fatal("server error must surface")
	}
}

func TestOllamaEngine_VectorCountMismatch(t *testing.T) {
	e := ollamaTestEngine(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1}}})
	})
	if _, err := e.EmbedBatch(context.Background(), []string{"a", "b"}); err == nil {
		t.Fatal("short response must error")
	}
}
