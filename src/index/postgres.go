package index

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresIndex is a VectorIndex backed by Postgres + pgvector, grounded on
// pkg/memory/store/postgres_store.go's connect/vector-cast pattern (no src/
// equivalent exists in the teacher's retrieved tree) and retargeted from
// long-term memory records onto immutable document chunks.
type PostgresIndex struct {
	DB *pgxpool.Pool
}

func NewPostgresIndex(ctx context.Context, connStr string) (*PostgresIndex, error) {
	db, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("postgres index: connect: %w", err)
	}
	return &PostgresIndex{DB: db}, nil
}

const postgresIndexSchema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS doc_chunks (
    chunk_id TEXT PRIMARY KEY,
    content TEXT NOT NULL,
    doc_class TEXT NOT NULL,
    lab_id TEXT DEFAULT '',
    source_file TEXT NOT NULL,
    offset_pos INTEGER DEFAULT 0,
    embedding vector(1024)
);

CREATE INDEX IF NOT EXISTS doc_chunks_embedding_idx ON doc_chunks USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
`

// CreateSchema provisions the pgvector extension and doc_chunks table.
func (pi *PostgresIndex) CreateSchema(ctx context.Context) error {
	_, err := pi.DB.Exec(ctx, postgresIndexSchema)
	return err
}

// Upsert writes or replaces a chunk. cmd/indexer does not call it; it writes
// only the LocalIndex file.
func (pi *PostgresIndex) Upsert(ctx context.Context, c Chunk) error {
	_, err := pi.DB.Exec(ctx, `
		INSERT INTO doc_chunks (chunk_id, content, doc_class, lab_id, source_file, offset_pos, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7::vector)
		ON CONFLICT (chunk_id) DO UPDATE SET
			content = EXCLUDED.content, doc_class = EXCLUDED.doc_class,
			lab_id = EXCLUDED.lab_id, source_file = EXCLUDED.source_file,
			offset_pos = EXCLUDED.offset_pos, embedding = EXCLUDED.embedding
	`, c.ChunkID, c.Content, string(c.DocClass), c.LabID, c.SourceFile, c.Offset, vectorLiteral(c.Embedding))
	return err
}

func (pi *PostgresIndex) Search(ctx context.Context, queryEmbedding []float32, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := pi.DB.Query(ctx, `
		SELECT chunk_id, content, doc_class, lab_id, source_file, offset_pos,
		       (embedding <=> $1::vector) AS distance
		FROM doc_chunks
		ORDER BY embedding <=> $1::vector
		LIMIT $2
	`, vectorLiteral(queryEmbedding), k)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var candidates []Candidate
	for rows.Next() {
		var c Chunk
		var docClass string
		var distance float64
		if err := rows.Scan(&c.ChunkID, &c.Content, &docClass, &c.LabID, &c.SourceFile, &c.Offset, &distance); err != nil {
			return nil, err
		}
		c.DocClass = DocClass(docClass)
		candidates = append(candidates, Candidate{Chunk: c, Score: float32(1 - distance)})
	}
	return candidates, rows.Err()
}

func (pi *PostgresIndex) Count(ctx context.Context) (int, error) {
	var n int
	err := pi.DB.QueryRow(ctx, `SELECT COUNT(*) FROM doc_chunks`).Scan(&n)
	return n, err
}

func (pi *PostgresIndex) Close() { pi.DB.Close() }

func vectorLiteral(v []float32) string {
	b, _ := json.Marshal(v)
	return fmt.Sprintf("[%s]", strings.Trim(string(b), "[]"))
}

