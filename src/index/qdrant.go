package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// QdrantIndex is a VectorIndex backed by a Qdrant collection, adapted from
// the teacher's QdrantStore (src/memory/store/qdrant_store.go): same
// envelope/status parsing and point shape, retargeted from memory records
// onto retrieval chunks and stripped of the memory-specific graph/importance
// payload fields this domain does not have.
type QdrantIndex struct {
	baseURL    string
	apiKey     string
	collection string
	client     *http.Client
}

func NewQdrantIndex(baseURL, collection, apiKey string) *QdrantIndex {
	if baseURL == "" {
		baseURL = "http://localhost:6333"
	}
	return &QdrantIndex{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		collection: collection,
		client:     &http.Client{Timeout: 15 * time.Second},
	}
}

type qdrantStatus struct {
	State string
	Error string
}

func (s *qdrantStatus) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		s.State = strings.ToLower(v)
		return nil
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	s.Error = obj.Error
	if obj.Error != "" {
		s.State = "error"
	}
	return nil
}

type qdrantEnvelope[T any] struct {
	Status qdrantStatus `json:"status"`
	Result T            `json:"result"`
}

type qdrantPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
	Vector  []float32       `json:"vector"`
}

type qdrantCount struct {
	Count int `json:"count"`
}

func (qi *QdrantIndex) Search(ctx context.Context, queryEmbedding []float32, k int) ([]Candidate, error) {
	if k <= 0 {
		return nil, nil
	}
	reqBody := map[string]any{
		"vector":       queryEmbedding,
		"limit":        k,
		"with_payload": true,
	}
	var resp qdrantEnvelope[[]qdrantPoint]
	if err := qi.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/search", url.PathEscape(qi.collection)), reqBody, &resp); err != nil {
		return nil, err
	}
	candidates := make([]Candidate, 0, len(resp.Result))
	for _, p := range resp.Result {
		candidates = append(candidates, Candidate{
			Chunk: chunkFromPayload(p.Payload),
			Score: float32(p.Score),
		})
	}
	return candidates, nil
}

func (qi *QdrantIndex) Count(ctx context.Context) (int, error) {
	var resp qdrantEnvelope[qdrantCount]
	if err := qi.do(ctx, http.MethodPost, fmt.Sprintf("/collections/%s/points/count", url.PathEscape(qi.collection)), map[string]any{"exact": true}, &resp); err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func chunkFromPayload(payload map[string]any) Chunk {
	str := func(k string) string { s, _ := payload[k].(string); return s }
	offset := 0
	if v, ok := payload["offset"].(float64); ok {
		offset = int(v)
	}
	return Chunk{
		ChunkID:    str("chunk_id"),
		Content:    str("content"),
		DocClass:   DocClass(str("doc_class")),
		LabID:      str("lab_id"),
		SourceFile: str("source_file"),
		Offset:     offset,
	}
}

func (qi *QdrantIndex) do(ctx context.Context, method, path string, body any, out any) error {
	u := qi.baseURL + path
	var buf io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		buf = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if qi.apiKey != "" {
		req.Header.Set("api-key", qi.apiKey)
	}
	resp, err := qi.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("qdrant %s %s -> http %d: %s", method, u, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out != nil && len(payload) > 0 {
		if err := json.Unmarshal(payload, out); err != nil {
			return err
		}
	}
	return nil
}
