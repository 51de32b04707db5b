package decompose

import (
	"context"
	"strings"

	"github.com/rahul/tasksmith/internal/observability"
	"github.com/tmc/langchaingo/llms"
)

const proposeStepsTool = "propose_steps"

// LLMOracle generates step text through any langchaingo model.
// When UseTools is set the model is offered a propose_steps function and the
// function arguments, if it calls it, are returned as the raw text.
type LLMOracle struct {
	Model    llms.Model
	Provider string
	ModelID  string
	UseTools bool
	Logger   *observability.Logger
}

func NewLLMOracle(model llms.Model, provider, modelID string, logger *observability.Logger) *LLMOracle {
	return &LLMOracle{
		Model:    model,
		Provider: provider,
		ModelID:  modelID,
		UseTools: true,
		Logger:   logger,
	}
}

func (o *LLMOracle) Generate(ctx context.Context, request string) (string, error) {
	messages := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(request)},
		},
	}

	var opts []llms.CallOption
	if o.UseTools {
		opts = append(opts, llms.WithTools(stepTools))
	}

	resp, err := o.Model.GenerateContent(ctx, messages, opts...)
	if err != nil {
		return "", &OracleError{Provider: o.Provider, Err: err}
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", &OracleError{Provider: o.Provider, Err: ErrNoContent}
	}

	choice := resp.Choices[0]
	o.logUsage(ctx, choice)

	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall != nil && tc.FunctionCall.Name == proposeStepsTool {
			o.Logger.LogLLM(TaskIDFrom(ctx), o.Provider, request, tc.FunctionCall.Arguments)
			return tc.FunctionCall.Arguments, nil
		}
	}

	o.Logger.LogLLM(TaskIDFrom(ctx), o.Provider, request, choice.Content)
	if strings.TrimSpace(choice.Content) == "" {
		return "", &OracleError{Provider: o.Provider, Err: ErrNoContent}
	}
	return choice.Content, nil
}

func (o *LLMOracle) logUsage(ctx context.Context, choice *llms.ContentChoice) {
	prompt, okP := choice.GenerationInfo["PromptTokens"].(int)
	completion, okC := choice.GenerationInfo["CompletionTokens"].(int)
	if okP || okC {
		o.Logger.LogCost(TaskIDFrom(ctx), prompt, completion, o.ModelID)
	}
}

var stepTools = []llms.Tool{
	{
		Type: "function",
		Function: &llms.FunctionDefinition{
			Name:        proposeStepsTool,
			Description: "Submit the ordered list of steps for the task.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"steps": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"title": map[string]any{
									"type": "string",
								},
								"deadline": map[string]any{
									"type": "string",
								},
								"mandatory": map[string]any{
									"type": "boolean",
								},
								"completion_criteria": map[string]any{
									"type": "string",
								},
								"dependencies": map[string]any{
									"type":  "array",
									"items": map[string]any{"type": "integer"},
								},
							},
							"required": []string{"title", "deadline"},
						},
					},
				},
				"required": []string{"steps"},
			},
		},
	},
}
