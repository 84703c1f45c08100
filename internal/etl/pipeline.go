package etl

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/nba-analytics/internal/pkg/logger"
)

// Status is the pipeline run state. Running transitions exactly once to
// Completed or Failed; terminal states are final.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Step names appended to RunResult.StepsCompleted as each stage succeeds.
const (
	StepExtract   = "extract"
	StepTransform = "transform"
	StepValidate  = "validate"
	StepLoad      = "load"
)

// RunResult is the pipeline's sole external return value. The orchestrator
// owns it exclusively for the duration of a run; once the status leaves
// Running it is never mutated again.
type RunResult struct {
	RunID              string          `json:"run_id"`
	Season             string          `json:"season"`
	StartedAt          time.Time       `json:"started_at"`
	FinishedAt         time.Time       `json:"finished_at"`
	Status             Status          `json:"status"`
	StepsCompleted     []string        `json:"steps_completed"`
	RecordsExtracted   int             `json:"records_extracted"`
	RecordsTransformed int             `json:"records_transformed"`
	QualityReports     []QualityReport `json:"quality_reports,omitempty"`
	Load               *LoadResult     `json:"load,omitempty"`
	Errors             []string        `json:"errors,omitempty"`
}

// Duration returns the run's wall-clock duration.
func (r *RunResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Pipeline sequences extract, transform, validate, and load for one season.
// There is no whole-pipeline retry: retries exist only inside the provider
// fetcher.
type Pipeline struct {
	extractor   *Extractor
	transformer *Transformer
	gate        *QualityGate
	loader      *Loader
	now         func() time.Time
}

// NewPipeline assembles the orchestrator from its stages.
func NewPipeline(extractor *Extractor, transformer *Transformer, gate *QualityGate, loader *Loader) *Pipeline {
	return &Pipeline{
		extractor:   extractor,
		transformer: transformer,
		gate:        gate,
		loader:      loader,
		now:         time.Now,
	}
}

// Run executes the pipeline for one season. Any stage failure is captured in
// the result rather than propagated: callers inspect Status and Errors. The
// result always reflects the furthest step reached.
func (p *Pipeline) Run(ctx context.Context, season string, incremental bool) *RunResult {
	result := &RunResult{
		RunID:     uuid.NewString(),
		Season:    season,
		StartedAt: p.now(),
		Status:    StatusRunning,
	}
	logger.Info("pipeline starting", "run_id", result.RunID, "season", season, "incremental", incremental)

	raw, err := p.extractor.Extract(ctx, season, incremental)
	if err != nil {
		return p.fail(result, StepExtract, err)
	}
	result.StepsCompleted = append(result.StepsCompleted, StepExtract)
	result.RecordsExtracted = raw.TotalRows()

	transformed := p.transformer.Transform(raw)
	result.StepsCompleted = append(result.StepsCompleted, StepTransform)
	result.RecordsTransformed = transformed.TotalRows()

	reports, err := p.gate.Validate(transformed)
	result.QualityReports = reports
	if err != nil {
		return p.fail(result, StepValidate, err)
	}
	result.StepsCompleted = append(result.StepsCompleted, StepValidate)

	loadResult, err := p.loader.Load(ctx, transformed)
	if err != nil {
		return p.fail(result, StepLoad, err)
	}
	result.StepsCompleted = append(result.StepsCompleted, StepLoad)
	result.Load = loadResult
	// Sink/archive warnings surface in the run report without failing it.
	result.Errors = append(result.Errors, loadResult.Warnings...)

	result.Status = StatusCompleted
	result.FinishedAt = p.now()
	logger.Info("pipeline completed",
		"run_id", result.RunID,
		"season", season,
		"duration", result.Duration().String(),
		"records_extracted", result.RecordsExtracted,
		"records_transformed", result.RecordsTransformed)
	return result
}

func (p *Pipeline) fail(result *RunResult, step string, err error) *RunResult {
	result.Status = StatusFailed
	result.FinishedAt = p.now()
	result.Errors = append(result.Errors, step+": "+err.Error())
	logger.Error("pipeline failed",
		"run_id", result.RunID,
		"season", result.Season,
		"step", step,
		"error", err.Error())
	return result
}
