package runtime

import "context"

// RetrievalQuery is what the graph hands the Retriever collaborator.
type RetrievalQuery struct {
	Mode       Intent
	Question   string
	CLIHistory []CLIEntry
	LabID      string
}

// RetrievalResult is what the Retriever hands back.
type RetrievalResult struct {
	Query       string
	Docs        []RetrievedDoc
	Unavailable bool
}

// Retriever is the seam to the semantic-search subsystem (src/retrieval).
// Accepting this as an interface here, implemented there, keeps the core
// graph free of any vector-index/embedding import.
type Retriever interface {
	Search(ctx context.Context, q RetrievalQuery) (RetrievalResult, error)
}

// Detector is the seam to the deterministic CLI error-detection engine
// (src/detector). It must be a pure function of its inputs and whatever
// registry snapshot it closed over at construction time.
type Detector interface {
	Detect(command, output string) *DetectionResult
}
