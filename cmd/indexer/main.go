// Command indexer is the §6.8 offline builder: walks paths.labs_dir,
// chunks each lab document with overlap, classifies each chunk's doc_class,
// embeds every chunk, and writes the LocalIndex artifact the Retriever
// reads at startup. Grounded on original_source/orchestrator/rag_indexer.py's
// load -> chunk -> embed -> index -> save pipeline, rebuilt on this repo's
// own Embedder/VectorIndex seams instead of LangChain/FAISS.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/netlab-tutor/tutor-core/src/concurrent"
	"github.com/netlab-tutor/tutor-core/src/embed"
	"github.com/netlab-tutor/tutor-core/src/index"
)

const (
	chunkSize    = 512
	chunkOverlap = 50
)

func main() {
	labsDir := flag.String("labs-dir", "labs", "paths.labs_dir: root of lab markdown content")
	outPath := flag.String("out", "data/labs_index.json", "output path for the LocalIndex artifact")
	embeddingsEndpoint := flag.String("embeddings-endpoint", os.Getenv("TUTOR_EMBEDDINGS_ENDPOINT_URL"), "embeddings.endpoint_url")
	embeddingsModel := flag.String("embeddings-model", "text-embedding-3-large", "embeddings.model_name")
	embeddingsDim := flag.Int("embeddings-dim", 1024, "embeddings.dim")
	flag.Parse()

	ctx := context.Background()
	embedder := embed.NewFromEndpoint(ctx, *embeddingsEndpoint, *embeddingsModel, os.Getenv("TUTOR_LLM_API_KEY"), *embeddingsDim)

	docs, err := loadLabDocuments(*labsDir)
	if err != nil {
		fail(err)
	}
	if len(docs) == 0 {
		fail(fmt.Errorf("no markdown files found under %s", *labsDir))
	}
	fmt.Printf("loaded %d lab documents\n", len(docs))

	var chunks []index.Chunk
	for _, doc := range docs {
		pieces := splitWithOverlap(doc.content, chunkSize, chunkOverlap)
		for i, piece := range pieces {
			chunks = append(chunks, index.Chunk{
				ChunkID:    fmt.Sprintf("%s:%d", doc.labID, i),
				Content:    piece.text,
				DocClass:   classify(doc, piece.text),
				LabID:      doc.labID,
				SourceFile: doc.path,
				Offset:     piece.offset,
			})
		}
	}
	fmt.Printf("created %d chunks from %d documents\n", len(chunks), len(docs))

	var embedded int32
	vectors, err := concurrent.ParallelMap(ctx, chunks, func(c index.Chunk) ([]float32, error) {
		vec, err := embedder.Embed(ctx, c.Content)
		if err != nil {
			return nil, fmt.Errorf("embedding chunk %s: %w", c.ChunkID, err)
		}
		n := atomic.AddInt32(&embedded, 1)
		if n%25 == 0 || int(n) == len(chunks) {
			fmt.Printf("  embedded %d/%d\n", n, len(chunks))
		}
		return vec, nil
	}, 8)
	if err != nil {
		fail(err)
	}
	for i, vec := range vectors {
		chunks[i].Embedding = vec
	}

	idx := index.NewLocalIndex()
	idx.Load(chunks)
	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		fail(err)
	}
	if err := idx.Save(*outPath); err != nil {
		fail(err)
	}
	fmt.Println("wrote index to", *outPath)
}

type labDocument struct {
	labID   string
	path    string
	title   string
	content string
}

func loadLabDocuments(labsDir string) ([]labDocument, error) {
	var docs []labDocument
	err := filepath.WalkDir(labsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(strings.ToLower(d.Name()), ".md") {
			return nil
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		content := string(data)
		labID := strings.TrimSuffix(d.Name(), filepath.Ext(d.Name()))
		title := labID
		for _, line := range strings.Split(content, "\n") {
			if strings.HasPrefix(line, "# ") {
				title = strings.TrimSpace(strings.TrimPrefix(line, "#"))
				break
			}
		}
		fmt.Println("loading:", d.Name())
		docs = append(docs, labDocument{labID: labID, path: path, title: title, content: content})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

type chunkPiece struct {
	text   string
	offset int
}

// splitWithOverlap is a recursive-character-splitter analogue (separators
// tried widest-to-narrowest: blank lines, single newlines, spaces) without
// the langchain dependency: prefer splitting on
// a structural boundary near the size limit, fall back to a hard cut.
func splitWithOverlap(text string, size, overlap int) []chunkPiece {
	if len(text) <= size {
		return []chunkPiece{{text: text, offset: 0}}
	}
	var pieces []chunkPiece
	start := 0
	for start < len(text) {
		end := start + size
		if end >= len(text) {
			end = len(text)
		} else {
			end = bestBoundary(text, start, end)
		}
		piece := strings.TrimSpace(text[start:end])
		if piece != "" {
			pieces = append(pieces, chunkPiece{text: piece, offset: start})
		}
		if end >= len(text) {
			break
		}
		start = end - overlap
		if start < 0 || start <= pieces[len(pieces)-1].offset {
			start = end
		}
	}
	return pieces
}

func bestBoundary(text string, start, end int) int {
	window := text[start:end]
	for _, sep := range []string{"\n\n", "\n", " "} {
		if idx := strings.LastIndex(window, sep); idx > len(window)/2 {
			return start + idx + len(sep)
		}
	}
	return end
}

// classify assigns a §3 doc_class heuristically from the source filename and
// chunk content, a supplemented feature the original indexer left to the
// caller: error_patterns documentation tends to mention IOS error verbs,
// lab-specific content is whatever came from a lab's own markdown file
// outside generic command reference sections.
func classify(doc labDocument, chunk string) index.DocClass {
	lower := strings.ToLower(chunk)
	switch {
	case strings.Contains(strings.ToLower(doc.path), "error") || strings.Contains(lower, "% invalid input") || strings.Contains(lower, "% incomplete command"):
		return index.DocClassErrorPatterns
	case strings.Contains(strings.ToLower(doc.path), "command") || strings.Contains(strings.ToLower(doc.path), "reference"):
		return index.DocClassCommandReference
	default:
		return index.DocClassLabSpecific
	}
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "error:", err)
	os.Exit(1)
}
