package decompose

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/rahul/tasksmith/internal/governance"
	"github.com/rahul/tasksmith/internal/observability"
	"github.com/rahul/tasksmith/internal/plan"
)

// Source records where a decomposition's steps came from.
type Source string

const (
	SourceGenerated Source = "generated"
	SourceFallback  Source = "fallback"
)

// Result is the terminal state of a decomposition. Steps is never empty.
type Result struct {
	Steps    []plan.Step `json:"steps"`
	Source   Source      `json:"source"`
	Attempts int         `json:"attempts"`
}

// Config controls the retry bound and the defaults handed to the normalizer.
type Config struct {
	MaxAttempts      int
	MinSteps         int
	MaxSteps         int
	DefaultMandatory bool
	AllowListFormat  bool
}

// DefaultConfig mirrors the values used when no configuration is supplied.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:      2,
		MinSteps:         5,
		MaxSteps:         7,
		DefaultMandatory: true,
	}
}

// Decomposer drives prompt, oracle, parser, and normalizer with bounded retry,
// degrading to the fallback catalog.
type Decomposer struct {
	Prompts     *PromptBuilder
	Oracle      Oracle
	Parser      *Parser
	Normalizer  *Normalizer
	Fallback    *FallbackProvider
	MaxAttempts int
	Logger      *observability.Logger
	Metrics     *observability.Metrics
}

func NewDecomposer(cfg Config, oracle Oracle, logger *observability.Logger) *Decomposer {
	parser := NewParser(governance.NewEchoPolicyEngine())
	parser.AllowListFormat = cfg.AllowListFormat

	return &Decomposer{
		Prompts: NewPromptBuilder(cfg.MinSteps, cfg.MaxSteps),
		Oracle:  oracle,
		Parser:  parser,
		Normalizer: NewNormalizer(NormalizerConfig{
			DefaultMandatory: cfg.DefaultMandatory,
			MaxSteps:         cfg.MaxSteps,
		}),
		Fallback:    NewFallbackProvider(),
		MaxAttempts: cfg.MaxAttempts,
		Logger:      logger,
	}
}

type phase int

const (
	phaseAttempting phase = iota
	phaseSuccess
	phaseFallback
)

// state is Attempting(n), Success(steps), or Fallback(steps).
type state struct {
	phase   phase
	attempt int
	steps   []plan.Step
}

// Decompose always returns a non-empty step list. Oracle failures, malformed
// and empty responses are retried up to MaxAttempts and then resolved with the
// category's fallback sequence.
func (d *Decomposer) Decompose(ctx context.Context, tc plan.TaskContext) Result {
	taskID := TaskIDFrom(ctx)
	if taskID == "" {
		taskID = tc.Title
		ctx = WithTaskID(ctx, taskID)
	}

	st := state{phase: phaseAttempting, attempt: 1}
	for {
		switch st.phase {
		case phaseAttempting:
			st = d.advance(ctx, tc, st)
		case phaseSuccess:
			d.Metrics.ObserveDecomposition(string(SourceGenerated))
			d.Logger.LogDecomposition(taskID, string(SourceGenerated), st.attempt, len(st.steps))
			return Result{Steps: st.steps, Source: SourceGenerated, Attempts: st.attempt}
		case phaseFallback:
			d.Metrics.ObserveDecomposition(string(SourceFallback))
			d.Logger.LogFallback(taskID, string(tc.Category), len(st.steps))
			d.Logger.LogDecomposition(taskID, string(SourceFallback), st.attempt, len(st.steps))
			return Result{Steps: st.steps, Source: SourceFallback, Attempts: st.attempt}
		}
	}
}

func (d *Decomposer) advance(ctx context.Context, tc plan.TaskContext, st state) state {
	if steps, ok := d.attempt(ctx, tc, st.attempt); ok {
		return state{phase: phaseSuccess, attempt: st.attempt, steps: steps}
	}
	if st.attempt < d.maxAttempts() {
		return state{phase: phaseAttempting, attempt: st.attempt + 1}
	}
	return state{phase: phaseFallback, attempt: st.attempt, steps: d.Fallback.FallbackFor(tc.Category)}
}

func (d *Decomposer) maxAttempts() int {
	if d.MaxAttempts < 1 {
		return 1
	}
	return d.MaxAttempts
}

func (d *Decomposer) attempt(ctx context.Context, tc plan.TaskContext, n int) ([]plan.Step, bool) {
	taskID := TaskIDFrom(ctx)
	d.Logger.LogAttempt(taskID, n, d.maxAttempts())

	request := d.Prompts.Build(tc)
	started := time.Now()
	raw, err := d.Oracle.Generate(ctx, request)
	d.Metrics.ObserveOracleLatency(time.Since(started))
	if err != nil {
		var oe *OracleError
		if !errors.As(err, &oe) {
			err = &OracleError{Provider: "unknown", Err: err}
		}
		log.Printf("[Decompose] attempt %d for %q failed: %v", n, taskID, err)
		d.Logger.LogOracleError(taskID, n, err)
		d.Metrics.ObserveAttempt(observability.OutcomeOracleError)
		return nil, false
	}

	res := d.Parser.Parse(raw)
	d.Logger.LogParse(taskID, n, res.Outcome.String(), len(res.Records), res.Dropped)
	switch res.Outcome {
	case Malformed:
		d.Metrics.ObserveAttempt(observability.OutcomeMalformed)
		return nil, false
	case Empty:
		d.Metrics.ObserveAttempt(observability.OutcomeEmpty)
		return nil, false
	}

	steps := d.Normalizer.Normalize(res.Records, tc.Category)
	if len(steps) == 0 {
		d.Metrics.ObserveAttempt(observability.OutcomeEmpty)
		return nil, false
	}
	d.Metrics.ObserveAttempt(observability.OutcomeSuccess)
	return steps, true
}
