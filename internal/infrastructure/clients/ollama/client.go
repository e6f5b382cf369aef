package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/moviegrounds/backend/internal/domain/providers"
	"github.com/moviegrounds/backend/pkg/config"
	apperrors "github.com/moviegrounds/backend/pkg/errors"
)

const (
	defaultBaseURL     = "http://localhost:11434"
	defaultTemperature = 0.2
	defaultMaxTokens   = 512

	jsonGuard = "You are a strict JSON generator. Respond with ONLY valid JSON, no prose. Do not include code fences."
)

// Client implements the LLM chat and embedding providers against a local
// Ollama instance.
type Client struct {
	baseURL    string
	chatModel  string
	embedModel string

	// Chat calls get a fixed upper bound; embedding batches run longer.
	httpClient      *http.Client
	embedHTTPClient *http.Client
}

// NewClient creates a new Ollama client.
func NewClient(cfg *config.OllamaConfig) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("ollama config is required")
	}

	baseURL := cfg.URL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	chatModel := cfg.ChatModel
	if chatModel == "" {
		return nil, errors.New("ollama chat model is required")
	}
	embedModel := cfg.EmbedModel
	if embedModel == "" {
		embedModel = chatModel
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		embedHTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}, nil
}

type chatRequest struct {
	Model       string                `json:"model"`
	Messages    []providers.LLMMessage `json:"messages"`
	Temperature float64               `json:"temperature"`
	NumPredict  int                   `json:"num_predict"`
	Stream      bool                  `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
}

// Chat returns the model's completion for the given messages.
func (c *Client) Chat(ctx context.Context, messages []providers.LLMMessage, opts providers.ChatOptions) (string, error) {
	model := opts.Model
	if model == "" {
		model = c.chatModel
	}
	temperature := defaultTemperature
	if opts.Temperature != nil {
		temperature = *opts.Temperature
	}
	maxTokens := opts.MaxTokens
	if maxTokens == 0 {
		maxTokens = defaultMaxTokens
	}

	merged := messages
	if opts.SystemPrompt != "" {
		merged = append([]providers.LLMMessage{{Role: "system", Content: opts.SystemPrompt}}, messages...)
	}

	body, err := json.Marshal(chatRequest{
		Model:       model,
		Messages:    merged,
		Temperature: temperature,
		NumPredict:  maxTokens,
		Stream:      false,
	})
	if err != nil {
		return "", apperrors.NewInternalError("failed to marshal chat request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", apperrors.NewInternalError("failed to create chat request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		recordLLMMetric(ctx, model, "chat", 0, time.Since(start), err)
		return "", apperrors.NewExternalError("llm request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("ollama returned status %d", resp.StatusCode)
		recordLLMMetric(ctx, model, "chat", resp.StatusCode, time.Since(start), err)
		return "", apperrors.NewExternalError("llm request failed", err)
	}

	var envelope chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordLLMMetric(ctx, model, "chat", resp.StatusCode, time.Since(start), err)
		return "", apperrors.NewExternalError("failed to decode llm response", err)
	}

	recordLLMMetric(ctx, model, "chat", resp.StatusCode, time.Since(start), nil)
	return strings.TrimSpace(envelope.Message.Content), nil
}

// ChatJSON constrains the model to strict JSON output and decodes it into out.
func (c *Client) ChatJSON(ctx context.Context, messages []providers.LLMMessage, opts providers.JSONOptions, out any) error {
	guard := jsonGuard
	if opts.SchemaDescription != "" {
		guard += " Expected JSON shape: " + opts.SchemaDescription
	}

	chatOpts := opts.ChatOptions
	if chatOpts.SystemPrompt != "" {
		chatOpts.SystemPrompt = guard + "\n" + chatOpts.SystemPrompt
	} else {
		chatOpts.SystemPrompt = guard
	}

	content, err := c.Chat(ctx, messages, chatOpts)
	if err != nil {
		return err
	}

	cleaned := stripCodeFences(content)
	if err := json.Unmarshal([]byte(cleaned), out); err != nil {
		return apperrors.NewDataError(fmt.Sprintf("failed to parse llm json response: %q", content), err)
	}
	return nil
}

// stripCodeFences removes Markdown code fences some models wrap JSON in.
func stripCodeFences(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimSuffix(cleaned, "```")
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
	}
	return strings.TrimSpace(cleaned)
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed generates an embedding for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{
		Model:  c.embedModel,
		Prompt: text,
	})
	if err != nil {
		return nil, apperrors.NewInternalError("failed to marshal embedding request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewInternalError("failed to create embedding request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.embedHTTPClient.Do(req)
	if err != nil {
		recordLLMMetric(ctx, c.embedModel, "embed", 0, time.Since(start), err)
		return nil, apperrors.NewExternalError("embedding request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("ollama returned status %d", resp.StatusCode)
		recordLLMMetric(ctx, c.embedModel, "embed", resp.StatusCode, time.Since(start), err)
		return nil, apperrors.NewExternalError("embedding request failed", err)
	}

	var envelope embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		recordLLMMetric(ctx, c.embedModel, "embed", resp.StatusCode, time.Since(start), err)
		return nil, apperrors.NewExternalError("failed to decode embedding response", err)
	}

	recordLLMMetric(ctx, c.embedModel, "embed", resp.StatusCode, time.Since(start), nil)
	return envelope.Embedding, nil
}

// EmbedBatch generates embeddings for multiple texts, in input order.
// Calls run sequentially to bound load on the local model.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := c.Embed(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("embedding text %d: %w", i, err)
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}
