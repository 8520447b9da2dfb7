package ai

import "context"

// EmbeddingProvider binds a client to one embedding endpoint configuration.
type EmbeddingProvider struct {
	client *OpenAICompatibleClient
	cfg    EmbeddingConfig
}

func NewEmbeddingProvider(client *OpenAICompatibleClient, cfg EmbeddingConfig) *EmbeddingProvider {
	return &EmbeddingProvider{client: client, cfg: cfg}
}

func (p *EmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.client.Embed(ctx, p.cfg, text)
}

func (p *EmbeddingProvider) EmbedEach(ctx context.Context, texts []string) ([][]float32, error) {
	return p.client.EmbedEach(ctx, p.cfg, texts)
}

// GenerationProvider binds a client to one chat endpoint configuration and
// frames persona plus prompt as a system/user message pair.
type GenerationProvider struct {
	client *OpenAICompatibleClient
	cfg    ChatConfig
}

func NewGenerationProvider(client *OpenAICompatibleClient, cfg ChatConfig) *GenerationProvider {
	return &GenerationProvider{client: client, cfg: cfg}
}

func (p *GenerationProvider) Generate(ctx context.Context, persona, prompt string) (string, error) {
	messages := []ChatMessage{
		{Role: "system", Content: persona},
		{Role: "user", Content: prompt},
	}
	return p.client.Complete(ctx, p.cfg, messages)
}
