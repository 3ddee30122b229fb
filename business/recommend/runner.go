package recommend

import (
	"context"
	"fmt"
	"time"

	"marketReco/pkg/config"
	"marketReco/pkg/logger"
)

const (
	StageIngestion    = "ingestion"
	StageFeatures     = "features"
	StageStrategy     = "strategy"
	StageRanking      = "ranking"
	StagePersistence  = "persistence"
	StageNotification = "notification"
)

const (
	TriggerManual     = "manual"
	TriggerCronDaily  = "cron_daily"
	TriggerCronWeekly = "cron_weekly"
)

// RunOptions narrows a run without changing the scoring parameterization.
type RunOptions struct {
	Trigger   string
	UserIDs   []uint
	StartDate *time.Time
	EndDate   *time.Time
}

// RunContext is the single mutable object threaded through the stages. Each
// stage reads its dependency's output by stage name and appends its own.
type RunContext struct {
	RunID   string
	Config  config.RecoConfig
	Options RunOptions
	Result  *RunResult

	outputs map[string]any
}

func newRunContext(runID string, cfg config.RecoConfig, opts RunOptions) *RunContext {
	return &RunContext{
		RunID:   runID,
		Config:  cfg,
		Options: opts,
		Result: &RunResult{
			RunID:    runID,
			Trigger:  opts.Trigger,
			Strategy: cfg.Strategy,
			Errors:   []string{},
		},
		outputs: make(map[string]any),
	}
}

func (rc *RunContext) SetOutput(stage string, out any) {
	rc.outputs[stage] = out
}

func (rc *RunContext) Output(stage string) (any, bool) {
	out, ok := rc.outputs[stage]
	return out, ok
}

func (rc *RunContext) addError(format string, args ...any) {
	rc.Result.Errors = append(rc.Result.Errors, fmt.Sprintf(format, args...))
}

// Stage is one step of the pipeline. Run returns how many units it
// processed; an error from any stage before notification aborts the run.
type Stage interface {
	Name() string
	Run(ctx context.Context, rc *RunContext) (processed int, err error)
}

type Runner struct {
	stages []Stage
}

func NewRunner(
	ingestion *IngestionStage,
	features *FeatureStage,
	strategy *StrategyStage,
	ranking *RankingStage,
	persistence *PersistenceStage,
	notification *NotificationStage,
) *Runner {
	return &Runner{
		stages: []Stage{
			ingestion,
			features,
			strategy,
			ranking,
			persistence,
			notification,
		},
	}
}

// Execute runs all stages in order. Any stage through persistence failing is
// fatal; a notification failure is demoted to a pipeline warning.
func (r *Runner) Execute(ctx context.Context, runID string, cfg config.RecoConfig, opts RunOptions) *RunResult {
	rc := newRunContext(runID, cfg, opts)
	rc.Result.StartedAt = time.Now()
	rc.Result.Success = true

	ctx = context.WithValue(ctx, RunIDKey, runID)

	logger.Info("pipeline run started",
		"run_id", runID,
		"trigger", opts.Trigger,
		"strategy", cfg.Strategy,
		"top_k", cfg.TopK,
		"recency_days", cfg.RecencyDays,
	)

	for _, stage := range r.stages {
		begin := time.Now()
		processed, err := stage.Run(ctx, rc)
		elapsed := time.Since(begin)

		stats := StageStats{
			Name:       stage.Name(),
			Success:    err == nil,
			DurationMs: elapsed.Milliseconds(),
			Processed:  processed,
		}
		if err != nil {
			stats.Error = err.Error()
		}
		rc.Result.Stages = append(rc.Result.Stages, stats)

		StageDurationSeconds.WithLabelValues(stage.Name()).Observe(elapsed.Seconds())

		if err == nil {
			logger.Debug("pipeline stage finished",
				"run_id", runID,
				"stage", stage.Name(),
				"processed", processed,
				"duration_ms", elapsed.Milliseconds(),
			)
			continue
		}

		if stage.Name() == StageNotification {
			// Recommendations are already persisted at this point, a failed
			// dispatch must not fail the run.
			rc.addError("notification stage degraded: %v", err)
			logger.Warn("notification stage failed",
				"run_id", runID,
				"error", err,
			)
			continue
		}

		rc.addError("stage %s failed: %v", stage.Name(), err)
		rc.Result.Success = false
		logger.Error("pipeline run aborted",
			"run_id", runID,
			"stage", stage.Name(),
			"error", err,
		)
		break
	}

	r.tallyUsers(rc)

	rc.Result.FinishedAt = time.Now()

	status := "success"
	if !rc.Result.Success {
		status = "failure"
	}
	PipelineRunsTotal.WithLabelValues(opts.Trigger, status).Inc()

	logger.Info("pipeline run finished",
		"run_id", runID,
		"success", rc.Result.Success,
		"users_succeeded", rc.Result.UsersSucceeded,
		"users_failed", rc.Result.UsersFailed,
		"duration_ms", rc.Result.FinishedAt.Sub(rc.Result.StartedAt).Milliseconds(),
	)

	return rc.Result
}

func (r *Runner) tallyUsers(rc *RunContext) {
	out, ok := rc.Output(StagePersistence)
	if !ok {
		return
	}
	results, ok := out.([]PersistResult)
	if !ok {
		return
	}

	for _, pr := range results {
		if pr.Err == "" {
			rc.Result.UsersSucceeded++
		} else {
			rc.Result.UsersFailed++
		}
	}
}
