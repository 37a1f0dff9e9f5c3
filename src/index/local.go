package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// LocalIndex is the default, file-backed, brute-force-cosine VectorIndex
// (§4.9): the artifact cmd/indexer writes and the only backend that needs
// no external service. It is read-only after Load and safe for concurrent
// readers via an atomic snapshot swap, the same immutable-snapshot idiom
// the Pattern Registry uses (§5 "Vector Index: read-only after load,
// thread-safe lookups").
type LocalIndex struct {
	mu     sync.RWMutex
	chunks []Chunk
}

// NewLocalIndex returns an empty index; call Load or LoadFile before Search.
func NewLocalIndex() *LocalIndex {
	return &LocalIndex{}
}

// persistedFile is the on-disk shape of §6.5's "vector index file... and
// chunk metadata file", collapsed into one JSON document for the local
// backend. A version field is not required here (unlike pattern JSON,
// §6.9): this file is produced and consumed exclusively by this repo's own
// indexer and core, not authored by hand.
type persistedFile struct {
	Chunks []persistedChunk `json:"chunks"`
}

type persistedChunk struct {
	ChunkID    string    `json:"chunk_id"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding"`
	DocClass   string    `json:"doc_class"`
	LabID      string    `json:"lab_id,omitempty"`
	SourceFile string    `json:"source_file"`
	Offset     int       `json:"offset"`
}

// LoadFile reads the index produced by cmd/indexer at path.
func (l *LocalIndex) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("local index: read %s: %w", path, err)
	}
	var pf persistedFile
	if err := json.Unmarshal(data, &pf); err != nil {
		return fmt.Errorf("local index: decode %s: %w", path, err)
	}
	chunks := make([]Chunk, len(pf.Chunks))
	for i, c := range pf.Chunks {
		chunks[i] = Chunk{
			ChunkID: c.ChunkID, Content: c.Content, Embedding: c.Embedding,
			DocClass: DocClass(c.DocClass), LabID: c.LabID,
			SourceFile: c.SourceFile, Offset: c.Offset,
		}
	}
	l.mu.Lock()
	l.chunks = chunks
	l.mu.Unlock()
	return nil
}

// Load replaces the index contents directly (used by cmd/indexer before it
// writes, and by tests).
func (l *LocalIndex) Load(chunks []Chunk) {
	l.mu.Lock()
	l.chunks = append([]Chunk(nil), chunks...)
	l.mu.Unlock()
}

// Save writes the current in-memory chunk set to path in the format LoadFile
// reads back, used by cmd/indexer.
func (l *LocalIndex) Save(path string) error {
	l.mu.RLock()
	pf := persistedFile{Chunks: make([]persistedChunk, len(l.chunks))}
	for i, c := range l.chunks {
		pf.Chunks[i] = persistedChunk{
			ChunkID: c.ChunkID, Content: c.Content, Embedding: c.Embedding,
			DocClass: string(c.DocClass), LabID: c.LabID,
			SourceFile: c.SourceFile, Offset: c.Offset,
		}
	}
	l.mu.RUnlock()
	data, err := json.MarshalIndent(pf, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func (l *LocalIndex) Search(ctx context.Context, queryEmbedding []float32, k int) ([]Candidate, error) {
	l.mu.RLock()
	chunks := l.chunks
	l.mu.RUnlock()

	candidates := make([]Candidate, 0, len(chunks))
	for _, c := range chunks {
		candidates = append(candidates, Candidate{Chunk: c, Score: cosine(queryEmbedding, c.Embedding)})
	}
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
	if k > 0 && len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func (l *LocalIndex) Count(ctx context.Context) (int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.chunks), nil
}
