// Package index implements the §4.9 Vector Index backends: the storage
// seam between the Retriever and a persisted, immutable-at-runtime document
// index. It is adapted from the teacher's src/memory/store VectorStore
// hierarchy, retargeted from conversational memory records onto retrieval
// chunks (§3 "Retrieved Document chunk").
package index

import (
	"context"
	"math"
	"sort"
)

// DocClass mirrors runtime.DocClass without importing the root package, so
// this package stays a leaf dependency of runtime rather than the reverse.
type DocClass string

const (
	DocClassErrorPatterns    DocClass = "error_patterns"
	DocClassCommandReference DocClass = "command_reference"
	DocClassLabSpecific      DocClass = "lab_specific"
)

// Chunk is the persisted, immutable-at-runtime artifact of §3 "Retrieved
// Document chunk": built once by the offline indexer (§6.8), read many
// times by the Retriever.
type Chunk struct {
	ChunkID    string
	Content    string
	Embedding  []float32
	DocClass   DocClass
	LabID      string
	SourceFile string
	Offset     int
}

// Candidate is a Chunk plus the similarity score computed against a query
// embedding.
type Candidate struct {
	Chunk Chunk
	Score float32
}

// VectorIndex is the seam §4.9 names: Search over the persisted index,
// Count for diagnostics/tests. Implementations are read-only after load and
// must be safe for concurrent readers (§5 "Vector Index: read-only after
// load, thread-safe lookups").
type VectorIndex interface {
	Search(ctx context.Context, queryEmbedding []float32, k int) ([]Candidate, error)
	Count(ctx context.Context) (int, error)
}

// TopologyProvider is implemented by index backends that can also answer
// lab_context.topology lookups (§4.9: "A Neo4j-backed index additionally
// exposes a lab topology lookup").
type TopologyProvider interface {
	Topology(ctx context.Context, labID string) (Devices []TopologyDevice, Links []TopologyLink, err error)
}

type TopologyDevice struct {
	Name string
	Kind string
}

type TopologyLink struct {
	A, B string
}

func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// topK sorts candidates by score descending in place, used by backends that
// rank client-side after fetching a batch from the underlying store.
func topK(candidates []Candidate, k int) {
	sort.SliceStable(candidates, func(i, j int) bool { return candidates[i].Score > candidates[j].Score })
}
