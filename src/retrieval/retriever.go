// Package retrieval implements the §4.3 Retriever: query rewriting over the
// CLI window, vector search against a persisted index, and doc-class
// bucket-fill prioritization for the troubleshooting path. Grounded on the
// teacher's src/memory retrieval flow (embed query -> vector search -> rank)
// but with the teacher's recency/importance/MMR scoring dropped in favor of
// §4.3's fixed doc-class quota rule, which has no analogue in the teacher.
package retrieval

import (
	"context"
	"fmt"

	core "github.com/netlab-tutor/tutor-core"
	"github.com/netlab-tutor/tutor-core/src/embed"
	"github.com/netlab-tutor/tutor-core/src/index"
	"github.com/netlab-tutor/tutor-core/src/patterns"
)

// Retriever is the concrete runtime.Retriever implementation.
type Retriever struct {
	Index            index.VectorIndex
	Embedder         embed.Embedder
	Vocabulary       *patterns.Vocabulary
	KTeaching        int
	KTroubleshooting int
}

func New(idx index.VectorIndex, embedder embed.Embedder, vocabulary *patterns.Vocabulary, kTeaching, kTroubleshooting int) *Retriever {
	if kTeaching <= 0 {
		kTeaching = 3
	}
	if kTroubleshooting <= 0 {
		kTroubleshooting = 12
	}
	return &Retriever{Index: idx, Embedder: embedder, Vocabulary: vocabulary, KTeaching: kTeaching, KTroubleshooting: kTroubleshooting}
}

// Search satisfies runtime.Retriever. Failure semantics per §4.3: any error
// from the embedder or index is reported as Unavailable rather than
// propagated, so the feedback node can still answer from prompt context.
func (r *Retriever) Search(ctx context.Context, q core.RetrievalQuery) (core.RetrievalResult, error) {
	vocab := map[string]struct{}{}
	if r.Vocabulary != nil {
		vocab = r.Vocabulary.AllWords()
	}
	query := rewriteQuery(q, vocab)
	k := r.KTroubleshooting
	if q.Mode == core.IntentTeaching || q.Mode == core.IntentAmbiguous {
		k = r.KTeaching
	}

	queryEmbedding, err := r.Embedder.Embed(ctx, query)
	if err != nil {
		return core.RetrievalResult{Query: query, Unavailable: true}, nil
	}
	candidates, err := r.Index.Search(ctx, queryEmbedding, k)
	if err != nil {
		return core.RetrievalResult{Query: query, Unavailable: true}, nil
	}

	var ranked []index.Candidate
	if q.Mode == core.IntentTeaching || q.Mode == core.IntentAmbiguous {
		ranked = candidates
	} else {
		ranked = prioritize(candidates, hasCaretAndErrorFragment(lastN(q.CLIHistory, 5)))
	}

	return core.RetrievalResult{Query: query, Docs: toDocs(ranked)}, nil
}

func toDocs(candidates []index.Candidate) []core.RetrievedDoc {
	docs := make([]core.RetrievedDoc, len(candidates))
	for i, c := range candidates {
		docs[i] = core.RetrievedDoc{
			Content:  c.Chunk.Content,
			Score:    c.Score,
			DocClass: core.DocClass(c.Chunk.DocClass),
			Metadata: map[string]any{
				"chunk_id":    c.Chunk.ChunkID,
				"lab_id":      c.Chunk.LabID,
				"source_file": c.Chunk.SourceFile,
				"offset":      c.Chunk.Offset,
			},
		}
	}
	return docs
}

// ResolveTopology looks up lab_context.topology via a TopologyProvider-
// capable backend (currently only src/index/neo4j.go). Neither the turn path
// nor cmd/tutor calls it.
func ResolveTopology(ctx context.Context, idx index.VectorIndex, labID string) (*core.Topology, error) {
	tp, ok := idx.(index.TopologyProvider)
	if !ok {
		return nil, nil
	}
	devices, links, err := tp.Topology(ctx, labID)
	if err != nil {
		return nil, fmt.Errorf("retrieval: topology lookup: %w", err)
	}
	if len(devices) == 0 && len(links) == 0 {
		return nil, nil
	}
	topo := &core.Topology{
		Devices: make([]core.TopologyDevice, len(devices)),
		Links:   make([]core.TopologyLink, len(links)),
	}
	for i, d := range devices {
		topo.Devices[i] = core.TopologyDevice{Name: d.Name, Kind: d.Kind}
	}
	for i, l := range links {
		topo.Links[i] = core.TopologyLink{A: l.A, B: l.B}
	}
	return topo, nil
}
