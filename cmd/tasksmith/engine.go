package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/rahul/tasksmith/internal/decompose"
	"github.com/rahul/tasksmith/internal/governance"
	"github.com/rahul/tasksmith/internal/observability"
	"github.com/rahul/tasksmith/pkg/config"
	"github.com/tmc/langchaingo/llms/openai"
)

var errNoProvider = errors.New("no enabled provider found in config")

// engine is the wired decomposition stack shared by serve and decompose.
type engine struct {
	Decomposer *decompose.Decomposer
	Improver   *decompose.Improver
	Fallback   *decompose.FallbackProvider
}

func buildEngine(ctx context.Context, cfg *config.Config, logger *observability.Logger, metrics *observability.Metrics) (*engine, error) {
	oracle, err := buildOracle(ctx, cfg, logger)
	if errors.Is(err, errNoProvider) {
		log.Printf("Warning: %v; every task will use the standard plan", err)
		oracle = decompose.OracleFunc(func(ctx context.Context, request string) (string, error) {
			return "", &decompose.OracleError{Provider: "none", Err: errNoProvider}
		})
	} else if err != nil {
		return nil, err
	}

	dc := cfg.Decomposition
	d := decompose.NewDecomposer(decompose.Config{
		MaxAttempts:      dc.MaxAttempts,
		MinSteps:         dc.MinSteps,
		MaxSteps:         dc.MaxSteps,
		DefaultMandatory: dc.Mandatory(),
		AllowListFormat:  dc.AllowListFormat,
	}, oracle, logger)
	d.Metrics = metrics

	prompts, err := decompose.LoadPromptBuilder(dc.PromptsDir, dc.MinSteps, dc.MaxSteps)
	if err != nil {
		return nil, err
	}
	d.Prompts = prompts

	if dc.FallbackCatalog != "" {
		fp, err := decompose.LoadFallbackProvider(dc.FallbackCatalog)
		if err != nil {
			return nil, err
		}
		d.Fallback = fp
	}

	if len(dc.DenyTitles) > 0 {
		policy := governance.NewEchoPolicyEngine()
		for _, pattern := range dc.DenyTitles {
			if err := policy.DenyPattern(pattern); err != nil {
				return nil, err
			}
		}
		d.Parser.Policy = policy
	}

	return &engine{
		Decomposer: d,
		Improver:   &decompose.Improver{Prompts: prompts, Oracle: oracle},
		Fallback:   d.Fallback,
	}, nil
}

// buildOracle uses the default enabled provider.
func buildOracle(ctx context.Context, cfg *config.Config, logger *observability.Logger) (decompose.Oracle, error) {
	pName, pCfg := cfg.GetDefaultProvider()
	if pName == "" {
		return nil, errNoProvider
	}

	switch pName {
	case "openai", "openrouter":
		opts := []openai.Option{
			openai.WithToken(pCfg.APIKey),
			openai.WithModel(pCfg.Model),
		}
		if pCfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(pCfg.BaseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s client: %w", pName, err)
		}
		return decompose.NewLLMOracle(llm, pName, pCfg.Model, logger), nil
	case "gemini":
		return decompose.NewGeminiOracle(ctx, pCfg.APIKey, pCfg.Model, logger)
	}
	return nil, fmt.Errorf("provider %s is not supported", pName)
}
