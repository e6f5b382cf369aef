package providers

import "context"

// LLMMessage is a single message sent to the chat model.
type LLMMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatOptions tune a single chat completion request.
// Zero values fall back to provider defaults; Temperature is a pointer so
// an explicit 0 stays distinguishable from unset.
type ChatOptions struct {
	Model        string
	Temperature  *float64
	MaxTokens    int
	SystemPrompt string
}

// Temp is a convenience for building a ChatOptions temperature.
func Temp(v float64) *float64 { return &v }

// JSONOptions extend ChatOptions for strict-JSON completions.
type JSONOptions struct {
	ChatOptions
	// SchemaDescription is appended to the JSON instruction so the model
	// knows the expected shape, e.g. `{ "score": number }`.
	SchemaDescription string
}

// LLMProvider defines chat completion operations against a language model.
type LLMProvider interface {
	// Chat returns the model's text completion for the given messages.
	Chat(ctx context.Context, messages []LLMMessage, opts ChatOptions) (string, error)

	// ChatJSON constrains the model to strict JSON output and decodes the
	// response into out. A parse failure is reported as a data error whose
	// message includes the offending raw text.
	ChatJSON(ctx context.Context, messages []LLMMessage, opts JSONOptions, out any) error
}

// EmbeddingProvider generates vector embeddings for text.
type EmbeddingProvider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
