package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/akarpov/specqa/internal/core/domain"
	"github.com/akarpov/specqa/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(baseURL, genModel, embedModel string, executor *resilience.Executor) *Client {
	if executor == nil {
		executor = resilience.NewExecutor(resilience.DefaultConfig())
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		executor:   executor,
	}
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

// Transformer produces the alternative query formulations for one
// question. A malformed model response is an error; the caller decides
// whether to fall back to the raw question.
type Transformer struct {
	client *Client
}

func NewTransformer(client *Client) *Transformer {
	return &Transformer{client: client}
}

func (t *Transformer) Transform(ctx context.Context, question string, history []domain.ChatLog) (domain.QueryBundle, error) {
	respText, err := t.client.generateJSON(ctx, buildTransformPrompt(question, history))
	if err != nil {
		return domain.QueryBundle{}, err
	}

	var bundle domain.QueryBundle
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &bundle); err != nil {
		return domain.QueryBundle{}, fmt.Errorf("parse query bundle json: %w", err)
	}
	if bundle.IsEmpty() {
		return domain.QueryBundle{}, fmt.Errorf("query bundle has no usable formulations")
	}
	return bundle, nil
}

type Generator struct {
	client *Client
}

func NewGenerator(client *Client) *Generator {
	return &Generator{client: client}
}

func (g *Generator) GenerateAnswer(ctx context.Context, question string, contextText domain.AssembledContext, history []domain.ChatLog) (string, error) {
	return g.client.generateText(ctx, buildAnswerPrompt(question, contextText, history))
}

// Verifier grades a generated answer against the context it was grounded
// on and returns a short verdict.
type Verifier struct {
	client *Client
}

func NewVerifier(client *Client) *Verifier {
	return &Verifier{client: client}
}

func (v *Verifier) Verify(ctx context.Context, contextText domain.AssembledContext, answer string) (string, error) {
	return v.client.generateText(ctx, buildVerificationPrompt(contextText, answer))
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generateText(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
	}
	return c.generate(ctx, reqBody)
}

func (c *Client) generate(ctx context.Context, reqBody map[string]any) (string, error) {
	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
