package llm

import "context"

// ChatRequest is one structured-output chat call. Schema, when set, is
// forwarded to the model and enforced locally by the caller.
type ChatRequest struct {
	System string
	User   string
	Schema map[string]any
}

// ChatClient is the model backend the classifier and extractor depend on.
// Implementations return the assistant message content verbatim.
type ChatClient interface {
	ChatJSON(ctx context.Context, req ChatRequest) ([]byte, error)
}

// Embedder turns text into vectors for the semantic store.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}
