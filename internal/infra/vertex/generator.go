package vertex

import (
	"context"
	"fmt"
	"strings"

	"learnlink-server/internal/domain"

	"cloud.google.com/go/vertexai/genai"
)

// Generator implements domain.TextGenerator with Gemini on Vertex AI
type Generator struct {
	client    *genai.Client
	modelName string
	logger    domain.Logger
}

// NewGenerator creates a Vertex AI client using application default credentials
func NewGenerator(ctx context.Context, projectID, location, modelName string, logger domain.Logger) (*Generator, error) {
	client, err := genai.NewClient(ctx, projectID, location)
	if err != nil {
		return nil, fmt.Errorf("failed to create vertex ai client: %w", err)
	}
	return &Generator{client: client, modelName: modelName, logger: logger}, nil
}

// Complete sends a single-turn prompt
func (g *Generator) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	configure(model, req)

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return "", fmt.Errorf("vertex generate: %w", err)
	}
	if resp.UsageMetadata != nil {
		g.logger.Debug("Completion finished",
			"model", g.modelName,
			"promptTokens", resp.UsageMetadata.PromptTokenCount,
			"completionTokens", resp.UsageMetadata.CandidatesTokenCount,
		)
	}
	return responseText(resp)
}

func configure(model *genai.GenerativeModel, req domain.CompletionRequest) {
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
}

// responseText joins the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("vertex returned no candidates")
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return strings.TrimSpace(sb.String()), nil
}

// Close releases the client
func (g *Generator) Close() error {
	return g.client.Close()
}
