package knowledge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/Jasperb3/TransitReader/internal/config"
	"github.com/Jasperb3/TransitReader/internal/embedding"
)

// Ingestor feeds markdown documents through chunking and embedding into the
// store. Documents already indexed (by filename) are skipped.
type Ingestor struct {
	store  *Store
	engine embedding.Engine
	cfg    config.KnowledgeConfig
	rpm    int
	logger *zap.Logger
}

// NewIngestor wires an ingestor. rpm throttles embedding calls against the
// hosted API quota; zero disables throttling.
func NewIngestor(store *Store, engine embedding.Engine, cfg config.KnowledgeConfig, rpm int, logger *zap.Logger) *Ingestor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingestor{store: store, engine: engine, cfg: cfg, rpm: rpm, logger: logger}
}

// ProcessNewDocuments scans dir for markdown files not yet in the index and
// ingests them. Returns the number of newly indexed documents. A document
// that fails to embed is logged and skipped; the scan continues.
func (in *Ingestor) ProcessNewDocuments(ctx context.Context, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return 0, fmt.Errorf("scan docs dir: %w", err)
	}

	indexed := 0
	for _, path := range paths {
		source := filepath.Base(path)

		exists, err := in.store.HasSource(ctx, source)
		if err != nil {
			return indexed, err
		}
		if exists {
			in.logger.Debug("document already indexed", zap.String("source", source))
			continue
		}

		stored, err := in.ingestFile(ctx, path)
		if err != nil {
			if ctx.Err() != nil {
				return indexed, ctx.Err()
			}
			in.logger.Warn("failed to ingest document",
				zap.String("source", source), zap.Error(err))
			continue
		}
		if stored {
			indexed++
		}
	}
	return indexed, nil
}

func (in *Ingestor) ingestFile(ctx context.Context, path string) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read document: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		in.logger.Debug("skipping empty document", zap.String("path", path))
		return false, nil
	}

	chunks := Chunk(string(data), in.cfg.ChunkSize, in.cfg.ChunkOverlap)
	if len(chunks) == 0 {
		return false, nil
	}

	vectors, err := in.embedThrottled(ctx, chunks)
	if err != nil {
		return false, fmt.Errorf("embed %d chunks: %w", len(chunks), err)
	}

	source := filepath.Base(path)
	if err := in.store.AddChunks(ctx, source, chunks, vectors); err != nil {
		return false, err
	}
	in.logger.Info("indexed document",
		zap.String("source", source), zap.Int("chunks", len(chunks)))
	return true, nil
}

// embedThrottled embeds chunk-by-chunk with a fixed inter-request delay when
// a requests-per-minute budget is configured, batch otherwise.
func (in *Ingestor) embedThrottled(ctx context.Context, chunks []string) ([][]float32, error) {
	if in.rpm <= 0 {
		return in.engine.EmbedBatch(ctx, chunks)
	}

	delay := time.Minute / time.Duration(in.rpm)
	vectors := make([][]float32, len(chunks))
	for i, chunk := range chunks {
		vec, err := in.engine.Embed(ctx, chunk)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec

		if i == len(chunks)-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return vectors, nil
}

// Search embeds the query and returns the top scored snippets.
func (in *Ingestor) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	vec, err := in.engine.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return in.store.Search(ctx, vec, limit, in.cfg.ScoreThreshold)
}

// Watch ingests new or changed markdown files as they land in dir, until
// ctx is cancelled. Rewritten files are reindexed from scratch.
func (in *Ingestor) Watch(ctx context.Context, dir string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	in.logger.Info("watching docs directory", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Ext(event.Name) != ".md" {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			source := filepath.Base(event.Name)
			if err := in.store.DeleteSource(ctx, source); err != nil {
				in.logger.Warn("failed to drop stale chunks", zap.String("source", source), zap.Error(err))
				continue
			}
			if _, err := in.ingestFile(ctx, event.Name); err != nil {
				in.logger.Warn("failed to ingest changed document",
					zap.String("source", source), zap.Error(err))
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			in.logger.Warn("watcher error", zap.Error(err))
		}
	}
}
