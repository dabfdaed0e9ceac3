// Package vectorindex persists chunk embeddings in a chromem-go database
// exported to a single gob file.
package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"kbqa/internal/ai"
	"kbqa/internal/model"
)

// ErrIndexLoad is returned when the persisted index is missing or unreadable.
var ErrIndexLoad = errors.New("index load error")

const (
	DefaultTopK    = 3
	collectionName = "kbqa"
	stagingDir     = ".staging"

	metaSource = "source"
	metaPage   = "page"
	metaIndex  = "chunk_index"
	metaModel  = "embedding_model"
)

type Options struct {
	Dir      string
	Compress bool
	// EncryptionKey enables AES-GCM on the exported file. Must be 32 bytes.
	EncryptionKey string
}

// Store is the durable index directory. Ingest holds the write lock for the
// whole load-add-save cycle; Search holds the read lock while loading.
type Store struct {
	opts     Options
	embedder ai.Embedder
	logger   *zap.Logger
	mu       sync.RWMutex
}

func NewStore(opts Options, embedder ai.Embedder, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{opts: opts, embedder: embedder, logger: logger}
}

func (s *Store) Dir() string { return s.opts.Dir }

// FileName is the base name of the persisted index inside Dir.
func (s *Store) FileName() string {
	name := "index.gob"
	if s.opts.Compress {
		name += ".gz"
	}
	return name
}

// Exists reports whether the index directory holds at least one visible entry.
func (s *Store) Exists() (bool, error) {
	entries, err := os.ReadDir(s.opts.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read index dir failed: %w", err)
	}
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), ".") {
			return true, nil
		}
	}
	return false, nil
}

// Create embeds chunks into a fresh in-memory index. Nothing is written
// until Save.
func (s *Store) Create(ctx context.Context, chunks []model.Chunk) (*Index, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("cannot create index from zero chunks")
	}
	db := chromem.NewDB()
	collection, err := db.GetOrCreateCollection(collectionName, map[string]string{metaModel: s.embedder.Model()}, s.embedFunc())
	if err != nil {
		return nil, fmt.Errorf("create collection failed: %w", err)
	}
	idx := s.wrap(db, collection)
	if err := idx.Add(ctx, chunks); err != nil {
		return nil, err
	}
	return idx, nil
}

// Load reads the persisted index from disk.
func (s *Store) Load() (*Index, error) {
	path := filepath.Join(s.opts.Dir, s.FileName())
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIndexLoad, err)
	}
	db := chromem.NewDB()
	if err := db.ImportFromFile(path, s.opts.EncryptionKey); err != nil {
		return nil, fmt.Errorf("%w: import %s: %w", ErrIndexLoad, s.FileName(), err)
	}
	collection := db.GetCollection(collectionName, s.embedFunc())
	if collection == nil {
		return nil, fmt.Errorf("%w: collection %q missing from %s", ErrIndexLoad, collectionName, s.FileName())
	}
	return s.wrap(db, collection), nil
}

// Ingest appends chunks to the persisted index, creating it on first use,
// and returns the resulting entry count.
func (s *Store) Ingest(ctx context.Context, chunks []model.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, fmt.Errorf("no chunks to ingest")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.Exists()
	if err != nil {
		return 0, err
	}

	var idx *Index
	if exists {
		if idx, err = s.Load(); err != nil {
			return 0, err
		}
		if err := idx.Add(ctx, chunks); err != nil {
			return 0, err
		}
	} else {
		if idx, err = s.Create(ctx, chunks); err != nil {
			return 0, err
		}
	}
	if err := idx.Save(); err != nil {
		return 0, err
	}

	s.logger.Info("index updated",
		zap.Int("added", len(chunks)),
		zap.Int("entries", idx.Count()),
		zap.Bool("created", !exists),
	)
	return idx.Count(), nil
}

// Search reloads the index and returns the k nearest chunks.
func (s *Store) Search(ctx context.Context, query string, k int) ([]model.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	idx, err := s.Load()
	if err != nil {
		return nil, err
	}
	return idx.Search(ctx, query, k)
}

func (s *Store) embedFunc() chromem.EmbeddingFunc {
	return func(ctx context.Context, text string) ([]float32, error) {
		return s.embedder.Embed(ctx, text)
	}
}

func (s *Store) wrap(db *chromem.DB, collection *chromem.Collection) *Index {
	return &Index{
		db:         db,
		collection: collection,
		embedder:   s.embedder,
		dir:        s.opts.Dir,
		fileName:   s.FileName(),
		compress:   s.opts.Compress,
		key:        s.opts.EncryptionKey,
		logger:     s.logger,
	}
}

// Index is one loaded copy of the vector index. It is not safe for
// concurrent mutation; Store serialises access.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedder   ai.Embedder
	dir        string
	fileName   string
	compress   bool
	key        string
	logger     *zap.Logger
}

func (i *Index) Count() int { return i.collection.Count() }

// Add embeds chunks in one EmbedMany call and appends them.
func (i *Index) Add(ctx context.Context, chunks []model.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for n, c := range chunks {
		texts[n] = c.Content
	}
	vectors, err := i.embedder.EmbedMany(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed chunks failed: %w", err)
	}
	if len(vectors) != len(chunks) {
		return fmt.Errorf("%w: got %d vectors for %d chunks", ai.ErrEmbeddingService, len(vectors), len(chunks))
	}

	docs := make([]chromem.Document, len(chunks))
	for n, c := range chunks {
		docs[n] = chromem.Document{
			ID:      c.ID,
			Content: c.Content,
			Metadata: map[string]string{
				metaSource: c.Source,
				metaPage:   strconv.Itoa(c.Page),
				metaIndex:  strconv.Itoa(c.Index),
				metaModel:  i.embedder.Model(),
			},
			Embedding: vectors[n],
		}
	}
	// Vectors are precomputed, so one worker is enough.
	if err := i.collection.AddDocuments(ctx, docs, 1); err != nil {
		return fmt.Errorf("add documents failed: %w", err)
	}
	return nil
}

// Save writes the index to a staging file and renames it into place.
func (i *Index) Save() error {
	staging := filepath.Join(i.dir, stagingDir)
	if err := os.MkdirAll(staging, 0o755); err != nil {
		return fmt.Errorf("create staging dir failed: %w", err)
	}
	tmp := filepath.Join(staging, i.fileName)
	if err := i.db.ExportToFile(tmp, i.compress, i.key); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("export index failed: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(i.dir, i.fileName)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace index file failed: %w", err)
	}
	return nil
}

// Search returns up to k results ordered by descending similarity. k <= 0
// means DefaultTopK, and k is capped at Count.
func (i *Index) Search(ctx context.Context, query string, k int) ([]model.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("search query is empty")
	}
	if k <= 0 {
		k = DefaultTopK
	}
	count := i.Count()
	if count == 0 {
		return []model.SearchResult{}, nil
	}
	if k > count {
		k = count
	}

	results, err := i.collection.Query(ctx, query, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query index failed: %w", err)
	}

	out := make([]model.SearchResult, len(results))
	warned := false
	for n, r := range results {
		if m := r.Metadata[metaModel]; m != i.embedder.Model() && !warned {
			i.logger.Warn("index entries were embedded with a different model",
				zap.String("stored", m),
				zap.String("current", i.embedder.Model()),
			)
			warned = true
		}
		page, _ := strconv.Atoi(r.Metadata[metaPage])
		index, _ := strconv.Atoi(r.Metadata[metaIndex])
		out[n] = model.SearchResult{
			Chunk: model.Chunk{
				ID:      r.ID,
				Source:  r.Metadata[metaSource],
				Page:    page,
				Index:   index,
				Content: r.Content,
			},
			Score: r.Similarity,
		}
	}
	return out, nil
}
