// Package registry owns the bot lifecycle: creation under plan quotas, activation
// toggles, configuration replacement and retirement.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/botfleet/internal/admission"
	"github.com/xaenox/botfleet/internal/botconfig"
	"github.com/xaenox/botfleet/internal/lockmap"
	"github.com/xaenox/botfleet/internal/models"
	"github.com/xaenox/botfleet/internal/storage"
	"go.uber.org/zap"
)

// Scheduler runs the recurring work of active bots.
type Scheduler interface {
	// Lock serializes all work on one bot and returns the unlock func.
	Lock(botID string) func()
	Enroll(bot *models.Bot)
	Cancel(botID string)
}

type Owner struct {
	ID   string
	Plan admission.Plan
}

type CreateRequest struct {
	Type        models.BotType
	Name        string
	Description string
	Config      botconfig.Raw
}

type Registry struct {
	store      storage.Storage
	scheduler  Scheduler
	policy     admission.Policy
	ownerLocks *lockmap.Map
	logger     *zap.Logger
	now        func() time.Time
}

func New(store storage.Storage, scheduler Scheduler, policy admission.Policy, logger *zap.Logger) *Registry {
	return &Registry{
		store:      store,
		scheduler:  scheduler,
		policy:     policy,
		ownerLocks: lockmap.New(),
		logger:     logger,
		now:        time.Now,
	}
}

func DefaultName(t models.BotType) string {
	words := strings.Split(string(t), "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ") + " Bot"
}

func DefaultDescription(t models.BotType) string {
	switch t {
	case models.ContentCreatorBot:
		return "Automatically creates and posts engaging content"
	case models.EngagementBot:
		return "Likes and comments on relevant posts"
	case models.FollowerBot:
		return "Follows accounts based on targeting criteria"
	case models.AnalyticsBot:
		return "Monitors and analyzes social media metrics"
	}
	return "Custom bot configuration"
}

// CreateBot admits, validates, stores and schedules a new bot for owner.
// Quota denial leaves storage untouched.
func (r *Registry) CreateBot(ctx context.Context, owner Owner, req CreateRequest) (*models.Bot, error) {
	unlock := r.ownerLocks.Lock(owner.ID)
	defer unlock()

	count, err := r.store.CountBots(ctx, owner.ID)
	if err != nil {
		return nil, fmt.Errorf("error counting bots: %w", err)
	}
	if err := r.policy.Check(owner.Plan, count); err != nil {
		quotaRejections.WithLabelValues(string(owner.Plan)).Inc()
		r.logger.Info("Bot creation denied by plan limit",
			zap.String("owner_id", owner.ID),
			zap.String("plan", string(owner.Plan)),
			zap.Int("bot_count", count))
		return nil, err
	}

	cfg, err := botconfig.Normalize(req.Type, req.Config)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = DefaultName(req.Type)
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		description = DefaultDescription(req.Type)
	}

	bot, err := models.NewBot(uuid.New().String(), owner.ID, req.Type, name, description, cfg, r.now())
	if err != nil {
		return nil, err
	}

	unlockBot := r.scheduler.Lock(bot.ID)
	defer unlockBot()

	if err := r.store.CreateBot(ctx, bot); err != nil {
		return nil, fmt.Errorf("error saving bot: %w", err)
	}
	r.scheduler.Enroll(bot)
	if err := r.emit(ctx, bot, models.ActivityCreate, fmt.Sprintf("%s was deployed", bot.Name)); err != nil {
		r.scheduler.Cancel(bot.ID)
		if derr := r.store.DeleteBot(ctx, bot.ID); derr != nil {
			r.logger.Error("Failed to roll back bot creation",
				zap.Error(derr),
				zap.String("bot_id", bot.ID))
			return nil, errors.Join(err, derr)
		}
		return nil, err
	}

	botsCreated.WithLabelValues(string(bot.Type)).Inc()
	r.logger.Info("Bot created",
		zap.String("bot_id", bot.ID),
		zap.String("owner_id", owner.ID),
		zap.String("bot_type", string(bot.Type)))
	return bot, nil
}

// SetActive flips the bot's active flag. Setting the current value is a no-op.
func (r *Registry) SetActive(ctx context.Context, id string, active bool) (*models.Bot, error) {
	unlock := r.scheduler.Lock(id)
	defer unlock()

	bot, err := r.store.GetBot(ctx, id)
	if err != nil {
		return nil, err
	}
	if bot.IsActive == active {
		return bot, nil
	}

	if err := r.applyActive(ctx, bot, active); err != nil {
		return nil, err
	}

	activity, verb := models.ActivityPause, "paused"
	if active {
		activity, verb = models.ActivityResume, "resumed"
	}
	if err := r.emit(ctx, bot, activity, fmt.Sprintf("%s was %s", bot.Name, verb)); err != nil {
		if rerr := r.applyActive(ctx, bot, !active); rerr != nil {
			r.logger.Error("Failed to roll back activation change",
				zap.Error(rerr),
				zap.String("bot_id", bot.ID))
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}

	r.logger.Info("Bot activation changed",
		zap.String("bot_id", bot.ID),
		zap.Bool("active", active))
	return bot, nil
}

// UpdateConfig replaces the bot's configuration. Active bots are rescheduled.
func (r *Registry) UpdateConfig(ctx context.Context, id string, raw botconfig.Raw) (*models.Bot, error) {
	unlock := r.scheduler.Lock(id)
	defer unlock()

	bot, err := r.store.GetBot(ctx, id)
	if err != nil {
		return nil, err
	}
	cfg, err := botconfig.Normalize(bot.Type, raw)
	if err != nil {
		return nil, err
	}

	previous := bot.Config
	if err := r.applyConfig(ctx, bot, cfg); err != nil {
		return nil, err
	}
	if err := r.emit(ctx, bot, models.ActivityConfig,
		fmt.Sprintf("%s configuration updated (%s activity)", bot.Name, models.BucketFor(cfg.ActivityLevel))); err != nil {
		if rerr := r.applyConfig(ctx, bot, previous); rerr != nil {
			r.logger.Error("Failed to roll back configuration change",
				zap.Error(rerr),
				zap.String("bot_id", bot.ID))
			return nil, errors.Join(err, rerr)
		}
		return nil, err
	}
	return bot, nil
}

// RetireBot ends the bot's lifecycle. Retired bots disappear from listings and quotas.
func (r *Registry) RetireBot(ctx context.Context, id string) error {
	unlock := r.scheduler.Lock(id)
	defer unlock()

	bot, err := r.store.GetBot(ctx, id)
	if err != nil {
		return err
	}

	// Retired bots cannot be updated, so the activity goes first.
	if err := r.emit(ctx, bot, models.ActivityRetire, fmt.Sprintf("%s was retired", bot.Name)); err != nil {
		return err
	}

	now := r.now()
	bot.IsActive = false
	bot.RetiredAt = &now
	if err := r.store.UpdateBot(ctx, bot); err != nil {
		return fmt.Errorf("error saving bot: %w", err)
	}
	r.scheduler.Cancel(bot.ID)

	r.logger.Info("Bot retired", zap.String("bot_id", bot.ID))
	return nil
}

// applyActive saves the flag and matches the schedule to it. Callers hold the bot's lock.
func (r *Registry) applyActive(ctx context.Context, bot *models.Bot, active bool) error {
	bot.IsActive = active
	if err := r.store.UpdateBot(ctx, bot); err != nil {
		bot.IsActive = !active
		return fmt.Errorf("error saving bot: %w", err)
	}
	if active {
		r.scheduler.Enroll(bot)
	} else {
		r.scheduler.Cancel(bot.ID)
	}
	return nil
}

func (r *Registry) applyConfig(ctx context.Context, bot *models.Bot, cfg models.Config) error {
	previous := bot.Config
	bot.Config = cfg
	if err := r.store.UpdateBot(ctx, bot); err != nil {
		bot.Config = previous
		return fmt.Errorf("error saving bot: %w", err)
	}
	if bot.IsActive {
		r.scheduler.Enroll(bot)
	}
	return nil
}

func (r *Registry) GetBot(ctx context.Context, id string) (*models.Bot, error) {
	return r.store.GetBot(ctx, id)
}

func (r *Registry) ListBots(ctx context.Context, ownerID string) ([]*models.Bot, error) {
	return r.store.ListBots(ctx, ownerID)
}

// Resume enrolls every stored active bot, e.g. after a restart.
func (r *Registry) Resume(ctx context.Context) (int, error) {
	bots, err := r.store.AllBots(ctx)
	if err != nil {
		return 0, fmt.Errorf("error loading bots: %w", err)
	}

	n := 0
	for _, bot := range bots {
		if !bot.IsActive {
			continue
		}
		unlock := r.scheduler.Lock(bot.ID)
		r.scheduler.Enroll(bot)
		unlock()
		n++
	}
	return n, nil
}

func (r *Registry) emit(ctx context.Context, bot *models.Bot, t models.ActivityType, desc string) error {
	err := r.store.AddActivity(ctx, &models.Activity{
		ID:          uuid.New().String(),
		Type:        t,
		Description: desc,
		BotID:       bot.ID,
		CreatedAt:   r.now(),
	})
	if err != nil {
		return fmt.Errorf("error recording activity: %w", err)
	}
	return nil
}
