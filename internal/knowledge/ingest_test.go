package knowledge

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Jasperb3/TransitReader/internal/config"
)

// fakeEngine embeds text deterministically so search results are stable.
type fakeEngine struct {
	calls int
	fail  bool
}

func (f *fakeEngine) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.fail {
		return nil, errors.New("embedding unavailable")
	}
	vec := make([]float32, 4)
	for i, r := range text {
		vec[i%4] += float32(r)
	}
	return vec, nil
}

func (f *fakeEngine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		vec, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = vec
	}
	return out, nil
}

func (f *fakeEngine) Dimensions() int { return 4 }
func (f *fakeEngine) Name() string    { return "fake" }

func writeDoc(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func testIngestor(t *testing.T, engine *fakeEngine) (*Ingestor, *Store) {
	t.Helper()
	store := openTestStore(t)
	cfg := config.KnowledgeConfig{ChunkSize: 1500, ChunkOverlap: 250, SearchLimit: 5, ScoreThreshold: 0.2}
	return NewIngestor(store, engine, cfg, 0, nil), store
}

func TestProcessNewDocuments(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "saturn.md", "Saturn transits test the structures we have built.")
	writeDoc(t, dir, "jupiter.md", "Jupiter transits expand whatever they touch.")
	writeDoc(t, dir, "notes.txt", "not markdown, should be ignored")

	ing, store := testIngestor(t, &fakeEngine{})
	ctx := context.Background()

	n, err := ing.ProcessNewDocuments(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sources, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"jupiter.md", "saturn.md"}, sources)
}

func TestProcessNewDocumentsSkipsIndexed(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "saturn.md", "Saturn transits test structures.")

	ing, _ := testIngestor(t, &fakeEngine{})
	ctx := context.Background()

	n, err := ing.ProcessNewDocuments(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// A second pass finds nothing new.
	n, err = ing.ProcessNewDocuments(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestProcessNewDocumentsSkipsEmpty(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "empty.md", "   \n\n  ")

	ing, store := testIngestor(t, &fakeEngine{})
	ctx := context.Background()

	n, err := ing.ProcessNewDocuments(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	sources, err := store.Sources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources)
}

func TestProcessNewDocumentsContinuesAfterFailure(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "doc.md", "Mercury rules communication.")

	ing, store := testIngestor(t, &fakeEngine{fail: true})
	ctx := context.Background()

	n, err := ing.ProcessNewDocuments(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	exists, err := store.HasSource(ctx, "doc.md")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestIngestorSearch(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "saturn.md", "Saturn transits test the structures we have built.")

	ing, _ := testIngestor(t, &fakeEngine{})
	ctx := context.Background()

	_, err := ing.ProcessNewDocuments(ctx, dir)
	require.NoError(t, err)

	results, err := ing.Search(ctx, "Saturn transits test the structures we have built.", 3)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, "saturn.md", results[0].Source)
	assert.InDelta(t, 1.0, results[0].Score, 1e-5)
}
