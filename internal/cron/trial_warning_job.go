package cron

import (
	"context"
	"fmt"

	"github.com/lavify/lavify-backend/pkg/logger"
)

type trialWarner interface {
	CheckTrialWarnings(ctx context.Context) error
}

// TrialWarningJobParams configures the trial warning sweep.
type TrialWarningJobParams struct {
	Logger        *logger.Logger
	Subscriptions trialWarner
}

// NewTrialWarningJob constructs the job that emails subscribers whose
// trial is about to end.
func NewTrialWarningJob(params TrialWarningJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription service required")
	}
	return &trialWarningJob{
		logg: params.Logger,
		subs: params.Subscriptions,
	}, nil
}

type trialWarningJob struct {
	logg *logger.Logger
	subs trialWarner
}

func (j *trialWarningJob) Name() string { return "trial-warning" }

func (j *trialWarningJob) Run(ctx context.Context) error {
	return j.subs.CheckTrialWarnings(ctx)
}
