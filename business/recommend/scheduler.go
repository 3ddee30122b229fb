package recommend

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"marketReco/pkg/config"
	"marketReco/pkg/logger"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
)

// ErrRunInProgress is returned when a trigger arrives while a run holds the
// scheduler. Callers map it to 409.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

const (
	SchedulerStateIdle    = "idle"
	SchedulerStateRunning = "running"
)

// Scope of a manual trigger.
const (
	ScopeAll     = "all"
	ScopeSingle  = "single"
	ScopeSegment = "segment"
)

// ManualRunParams carries the per-request overrides of a manual trigger.
// Nil pointer fields fall back to the loaded configuration; supplied values
// go through RecoConfig.Validate before the run starts.
type ManualRunParams struct {
	Scope       string
	UserIDs     []uint
	Strategy    *string
	TopK        *int
	RecencyDays *int
	StartDate   *time.Time
	EndDate     *time.Time
}

// SchedulerStatus is the externally visible state snapshot.
type SchedulerStatus struct {
	State        string     `json:"state"`
	CurrentRunID string     `json:"current_run_id,omitempty"`
	CurrentSince *time.Time `json:"current_since,omitempty"`
	LastResult   *RunResult `json:"last_result,omitempty"`
}

// Scheduler serializes pipeline runs behind a two-state machine: Idle and
// Running(runID). Manual triggers and both cron entries funnel through the
// same acquire path, so at most one run executes at a time process-wide.
type Scheduler struct {
	runner *Runner
	cfg    config.RecoConfig
	cron   *cron.Cron

	mu         sync.Mutex
	state      string
	runID      string
	since      time.Time
	lastResult *RunResult
}

func NewScheduler(runner *Runner, cfg config.RecoConfig) *Scheduler {
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		state:  SchedulerStateIdle,
	}
}

// acquire moves Idle -> Running(runID), or reports the run that holds it.
func (s *Scheduler) acquire(runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SchedulerStateRunning {
		return fmt.Errorf("%w (run %s)", ErrRunInProgress, s.runID)
	}

	s.state = SchedulerStateRunning
	s.runID = runID
	s.since = time.Now()
	return nil
}

func (s *Scheduler) release(result *RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = SchedulerStateIdle
	s.runID = ""
	s.since = time.Time{}
	s.lastResult = result
}

func (s *Scheduler) Status() SchedulerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := SchedulerStatus{
		State:      s.state,
		LastResult: s.lastResult,
	}
	if s.state == SchedulerStateRunning {
		status.CurrentRunID = s.runID
		since := s.since
		status.CurrentSince = &since
	}
	return status
}

// RunManual executes one pipeline run synchronously with the caller's
// overrides applied. Rejected with ErrRunInProgress under contention and
// with a validation error before anything executes if the merged
// parameterization is invalid.
func (s *Scheduler) RunManual(ctx context.Context, params ManualRunParams) (*RunResult, error) {
	cfg := s.cfg
	if params.Strategy != nil {
		cfg.Strategy = *params.Strategy
	}
	if params.TopK != nil {
		cfg.TopK = *params.TopK
	}
	if params.RecencyDays != nil {
		cfg.RecencyDays = *params.RecencyDays
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := RunOptions{
		Trigger:   TriggerManual,
		StartDate: params.StartDate,
		EndDate:   params.EndDate,
	}

	switch params.Scope {
	case ScopeSingle, ScopeSegment:
		if len(params.UserIDs) == 0 {
			return nil, fmt.Errorf("scope %q requires user ids", params.Scope)
		}
		opts.UserIDs = params.UserIDs
	case ScopeAll, "":
	default:
		return nil, fmt.Errorf("unknown scope %q", params.Scope)
	}

	return s.run(ctx, cfg, opts)
}

func (s *Scheduler) run(ctx context.Context, cfg config.RecoConfig, opts RunOptions) (*RunResult, error) {
	runID := uuid.NewString()

	if err := s.acquire(runID); err != nil {
		logger.Warn("pipeline trigger rejected",
			"trigger", opts.Trigger,
			"error", err,
		)
		return nil, err
	}

	result := s.runner.Execute(ctx, runID, cfg, opts)
	s.release(result)

	return result, nil
}

// StartCron registers the daily and weekly entries and starts the cron
// loop. The daily entry runs a cheaper refresh, the weekly one the full
// parameterization.
func (s *Scheduler) StartCron() error {
	c := cron.New()

	if _, err := c.AddFunc(s.cfg.CronDaily, func() {
		s.cronRun(TriggerCronDaily, s.dailyConfig())
	}); err != nil {
		return fmt.Errorf("register daily schedule %q: %w", s.cfg.CronDaily, err)
	}

	if _, err := c.AddFunc(s.cfg.CronWeekly, func() {
		s.cronRun(TriggerCronWeekly, s.cfg)
	}); err != nil {
		return fmt.Errorf("register weekly schedule %q: %w", s.cfg.CronWeekly, err)
	}

	c.Start()
	s.cron = c

	logger.Info("pipeline schedules registered",
		"daily", s.cfg.CronDaily,
		"weekly", s.cfg.CronWeekly,
	)
	return nil
}

// StopCron stops the cron loop and waits for a running entry to finish.
func (s *Scheduler) StopCron(ctx context.Context) error {
	if s.cron == nil {
		return nil
	}

	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dailyConfig trims the full parameterization for the nightly refresh:
// half the list size over a 30-day window.
func (s *Scheduler) dailyConfig() config.RecoConfig {
	cfg := s.cfg
	cfg.TopK = (cfg.TopK + 1) / 2
	if cfg.RecencyDays > 30 {
		cfg.RecencyDays = 30
	}
	return cfg
}

func (s *Scheduler) cronRun(trigger string, cfg config.RecoConfig) {
	_, err := s.run(context.Background(), cfg, RunOptions{Trigger: trigger})
	if err != nil && !errors.Is(err, ErrRunInProgress) {
		logger.Error("scheduled run failed to start", "trigger", trigger, "error", err)
	}
}
