package decompose

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rahul/tasksmith/internal/observability"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiOracle generates step text through the Gemini API.
type GeminiOracle struct {
	client *genai.Client
	model  string
	Config *genai.GenerateContentConfig
	Logger *observability.Logger
}

func NewGeminiOracle(ctx context.Context, apiKey, model string, logger *observability.Logger) (*GeminiOracle, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if model == "" {
		model = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiOracle{
		client: client,
		model:  model,
		Config: &genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
		Logger: logger,
	}, nil
}

func (o *GeminiOracle) Generate(ctx context.Context, request string) (string, error) {
	resp, err := o.client.Models.GenerateContent(ctx, o.model, genai.Text(request), o.Config)
	if err != nil {
		return "", &OracleError{Provider: "gemini", Status: apiStatus(err), Err: err}
	}

	if resp.UsageMetadata != nil {
		o.Logger.LogCost(TaskIDFrom(ctx),
			int(resp.UsageMetadata.PromptTokenCount),
			int(resp.UsageMetadata.CandidatesTokenCount),
			o.model)
	}

	text := resp.Text()
	o.Logger.LogLLM(TaskIDFrom(ctx), "gemini", request, text)
	if strings.TrimSpace(text) == "" {
		return "", &OracleError{Provider: "gemini", Err: ErrNoContent}
	}
	return text, nil
}

func apiStatus(err error) int {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) {
		return apiErrPtr.Code
	}
	return 0
}
