package index

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Neo4jIndex is a VectorIndex backed by Neo4j, storing each chunk as a
// (:Chunk) node and similarity-ranking client-side over the fetched set.
// Grounded on the teacher's neo4j_store.go/neo4j_driver_adapter.go use of
// the official driver's session/query idiom, but talking to the real
// neo4j.DriverWithContext directly rather than through the teacher's
// test-seam interfaces, since this package has no equivalent test-double
// requirement yet.
//
// Graph storage is also the natural backend for lab_context.topology
// (devices and links), so this is the one VectorIndex implementation that
// additionally satisfies TopologyProvider (§4.9).
type Neo4jIndex struct {
	driver   neo4j.DriverWithContext
	database string
}

func NewNeo4jIndex(uri, username, password, database string) (*Neo4jIndex, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("neo4j index: %w", err)
	}
	return &Neo4jIndex{driver: driver, database: database}, nil
}

func (ni *Neo4jIndex) Close(ctx context.Context) error { return ni.driver.Close(ctx) }

// Upsert writes a chunk node. cmd/indexer does not call it; it writes only
// the LocalIndex file.
func (ni *Neo4jIndex) Upsert(ctx context.Context, c Chunk) error {
	session := ni.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: ni.database, AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		return tx.Run(ctx, `
			MERGE (c:Chunk {chunk_id: $chunk_id})
			SET c.content = $content, c.doc_class = $doc_class, c.lab_id = $lab_id,
			    c.source_file = $source_file, c.offset = $offset, c.embedding = $embedding
		`, map[string]any{
			"chunk_id": c.ChunkID, "content": c.Content, "doc_class": string(c.DocClass),
			"lab_id": c.LabID, "source_file": c.SourceFile, "offset": c.Offset,
			"embedding": f32to64(c.Embedding),
		})
	})
	return err
}

func (ni *Neo4jIndex) Search(ctx context.Context, queryEmbedding []float32, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	session := ni.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: ni.database, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (c:Chunk) RETURN c.chunk_id, c.content, c.doc_class, c.lab_id, c.source_file, c.offset, c.embedding`, nil)
		if err != nil {
			return nil, err
		}
		var candidates []Candidate
		for res.Next(ctx) {
			rec := res.Record()
			embedding := f64to32(recSlice(rec, "c.embedding"))
			candidates = append(candidates, Candidate{
				Chunk: Chunk{
					ChunkID:    recString(rec, "c.chunk_id"),
					Content:    recString(rec, "c.content"),
					DocClass:   DocClass(recString(rec, "c.doc_class")),
					LabID:      recString(rec, "c.lab_id"),
					SourceFile: recString(rec, "c.source_file"),
					Offset:     int(recInt(rec, "c.offset")),
					Embedding:  embedding,
				},
				Score: cosine(queryEmbedding, embedding),
			})
		}
		return candidates, res.Err()
	})
	if err != nil {
		return nil, err
	}
	candidates := result.([]Candidate)
	topK(candidates, k)
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func (ni *Neo4jIndex) Count(ctx context.Context) (int, error) {
	session := ni.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: ni.database, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (c:Chunk) RETURN count(c) AS n`, nil)
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return 0, err
		}
		return int(recInt(rec, "n")), nil
	})
	if err != nil {
		return 0, err
	}
	return result.(int), nil
}

// Topology implements TopologyProvider: devices and links for a lab are
// modeled as (:Device)-[:LINKED_TO]-(:Device) nodes scoped by lab_id. This
// package only reads them; cmd/indexer does not write Device nodes.
func (ni *Neo4jIndex) Topology(ctx context.Context, labID string) ([]TopologyDevice, []TopologyLink, error) {
	session := ni.driver.NewSession(ctx, neo4j.SessionConfig{DatabaseName: ni.database, AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	devResult, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `MATCH (d:Device {lab_id: $lab_id}) RETURN d.name, d.kind`, map[string]any{"lab_id": labID})
		if err != nil {
			return nil, err
		}
		var devices []TopologyDevice
		for res.Next(ctx) {
			rec := res.Record()
			devices = append(devices, TopologyDevice{Name: recString(rec, "d.name"), Kind: recString(rec, "d.kind")})
		}
		return devices, res.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	linkResult, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, `
			MATCH (a:Device {lab_id: $lab_id})-[:LINKED_TO]->(b:Device {lab_id: $lab_id})
			RETURN a.name, b.name
		`, map[string]any{"lab_id": labID})
		if err != nil {
			return nil, err
		}
		var links []TopologyLink
		for res.Next(ctx) {
			rec := res.Record()
			links = append(links, TopologyLink{A: recString(rec, "a.name"), B: recString(rec, "b.name")})
		}
		return links, res.Err()
	})
	if err != nil {
		return nil, nil, err
	}

	return devResult.([]TopologyDevice), linkResult.([]TopologyLink), nil
}

func recString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func recInt(rec *neo4j.Record, key string) int64 {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0
	}
	n, _ := v.(int64)
	return n
}

func recSlice(rec *neo4j.Record, key string) []any {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return nil
	}
	s, _ := v.([]any)
	return s
}

func f32to64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}

func f64to32(v []any) []float32 {
	out := make([]float32, 0, len(v))
	for _, x := range v {
		if f, ok := x.(float64); ok {
			out = append(out, float32(f))
		}
	}
	return out
}
