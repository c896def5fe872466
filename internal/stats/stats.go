// Package stats folds bot and activity state into dashboard metrics.
package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/xaenox/botfleet/internal/models"
	"github.com/xaenox/botfleet/internal/storage"
	"go.uber.org/zap"
)

const (
	DefaultCostPerInteraction = 0.25
	DefaultReportingWindow    = 24 * time.Hour
)

type Aggregator struct {
	store              storage.Storage
	costPerInteraction float64
	reportingWindow    time.Duration
	logger             *zap.Logger
}

func NewAggregator(store storage.Storage, costPerInteraction float64, reportingWindow time.Duration, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		store:              store,
		costPerInteraction: costPerInteraction,
		reportingWindow:    reportingWindow,
		logger:             logger,
	}
}

// Dashboard computes a snapshot from the state stored at call time.
func (a *Aggregator) Dashboard(ctx context.Context, now time.Time) (models.DashboardStats, error) {
	bots, err := a.store.AllBots(ctx)
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("error loading bots: %w", err)
	}

	out := Fold(bots, a.costPerInteraction, a.logger)

	out.ActionsInWindow, err = a.store.CountActivitiesSince(ctx, now.Add(-a.reportingWindow))
	if err != nil {
		return models.DashboardStats{}, fmt.Errorf("error counting activities: %w", err)
	}
	return out, nil
}

// Fold derives the bot-based dashboard metrics. It does not touch ActionsInWindow.
func Fold(bots []*models.Bot, costPerInteraction float64, logger *zap.Logger) models.DashboardStats {
	var (
		out         models.DashboardStats
		weighted    float64
		totalWeight int
		activeSpan  time.Duration
	)

	for _, bot := range bots {
		out.TotalBots++
		out.TotalInteractions += bot.Stats.Interactions()

		if rate, weight, ok := bot.Stats.SuccessMetric(); ok && weight > 0 {
			weighted += rate * float64(weight)
			totalWeight += weight
		}

		if !bot.IsActive {
			continue
		}
		out.ActiveBots++
		d, err := bot.Config.Schedule.Duration()
		if err != nil {
			logger.Warn("Skipping bot with unreadable schedule",
				zap.String("bot_id", bot.ID),
				zap.Error(err))
			continue
		}
		activeSpan += d
	}

	if totalWeight > 0 {
		out.SuccessRate = round1(100 * weighted / float64(totalWeight))
	}
	out.ActiveHours = round1(activeSpan.Hours())
	out.CostSavings = CostSavings(out.TotalInteractions, costPerInteraction)
	return out
}

// CostSavings prices the interactions bots performed instead of a person.
func CostSavings(totalInteractions int, costPerInteraction float64) float64 {
	return math.Round(float64(totalInteractions)*costPerInteraction*100) / 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
