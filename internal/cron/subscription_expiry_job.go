package cron

import (
	"context"
	"fmt"

	"github.com/lavify/lavify-backend/pkg/logger"
)

type expirySweeper interface {
	CheckExpired(ctx context.Context) error
}

// SubscriptionExpiryJobParams configures the expiry sweep.
type SubscriptionExpiryJobParams struct {
	Logger        *logger.Logger
	Subscriptions expirySweeper
}

// NewSubscriptionExpiryJob constructs the job that expires ended trials
// and flags overdue subscriptions.
func NewSubscriptionExpiryJob(params SubscriptionExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscription service required")
	}
	return &subscriptionExpiryJob{
		logg: params.Logger,
		subs: params.Subscriptions,
	}, nil
}

type subscriptionExpiryJob struct {
	logg *logger.Logger
	subs expirySweeper
}

func (j *subscriptionExpiryJob) Name() string { return "subscription-expiry" }

func (j *subscriptionExpiryJob) Run(ctx context.Context) error {
	return j.subs.CheckExpired(ctx)
}
