// Package simulator runs the recurring per-bot jobs that turn a bot's configuration into
// posts, likes, comments and follows.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/xaenox/botfleet/internal/classifier"
	"github.com/xaenox/botfleet/internal/countstore"
	"github.com/xaenox/botfleet/internal/lockmap"
	"github.com/xaenox/botfleet/internal/models"
	"github.com/xaenox/botfleet/internal/storage"
	"go.uber.org/zap"
)

type Options struct {
	TickInterval time.Duration
	// MaxActionsPerHour is the rate of a bot at activity level 10.
	MaxActionsPerHour int
	// HourlyCap bounds the actions per hour of bots that respect platform limits.
	HourlyCap                int
	Seed                     int64
	FollowSuccessProbability float64
	CommentProbability       float64
	CandidatePosts           int
	TickTimeout              time.Duration
}

func DefaultOptions() Options {
	return Options{
		TickInterval:             time.Minute,
		MaxActionsPerHour:        60,
		HourlyCap:                30,
		Seed:                     1,
		FollowSuccessProbability: 0.7,
		CommentProbability:       0.35,
		CandidatePosts:           20,
		TickTimeout:              10 * time.Second,
	}
}

type Simulator struct {
	store      storage.Storage
	counts     countstore.CountStore
	classifier classifier.Classifier
	opts       Options
	logger     *zap.Logger
	locks      *lockmap.Map
	cron       *cron.Cron
	every      cron.ConstantDelaySchedule
	now        func() time.Time

	mu   sync.Mutex
	runs map[string]*botRun
}

// botRun is the runtime state of an enrolled bot. It is reset on every enrollment.
type botRun struct {
	entry     cron.EntryID
	scheduled bool
	credit    int64
	rng       *rand.Rand
	faker     *gofakeit.Faker
}

func New(store storage.Storage, counts countstore.CountStore, opts Options, logger *zap.Logger) *Simulator {
	cl := cronLogger{logger: logger.Sugar()}
	return &Simulator{
		store:      store,
		counts:     counts,
		classifier: classifier.NewSimpleClassifier(0),
		opts:       opts,
		logger:     logger,
		locks:      lockmap.New(),
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		every: cron.Every(opts.TickInterval),
		now:   time.Now,
		runs:  make(map[string]*botRun),
	}
}

func (s *Simulator) Start() {
	s.cron.Start()
	s.logger.Info("Simulator started", zap.Duration("tick_period", s.TickPeriod()))
}

// TickPeriod is the delay between two ticks of a bot. cron runs whole seconds only, so this
// can differ from the configured TickInterval.
func (s *Simulator) TickPeriod() time.Duration {
	return s.every.Delay
}

// Stop halts scheduling and waits for running ticks to finish.
func (s *Simulator) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Simulator stopped")
}

// Lock serializes work on a single bot. Registry transitions and ticks both hold it.
func (s *Simulator) Lock(botID string) func() {
	return s.locks.Lock(botID)
}

func (s *Simulator) seedFor(botID string) int64 {
	h := fnv.New64a()
	h.Write([]byte(botID))
	return s.opts.Seed ^ int64(h.Sum64())
}

func (s *Simulator) newRun(botID string) *botRun {
	seed := s.seedFor(botID)
	return &botRun{
		rng:   rand.New(rand.NewSource(seed)),
		faker: gofakeit.New(seed),
	}
}

// Enroll schedules recurring ticks for bot, replacing any earlier schedule.
// Callers hold the bot's lock.
func (s *Simulator) Enroll(bot *models.Bot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(bot.ID)

	run := s.newRun(bot.ID)
	id := bot.ID
	run.entry = s.cron.Schedule(s.every, cron.FuncJob(func() { s.runTick(id) }))
	run.scheduled = true
	s.runs[bot.ID] = run
	enrolledBots.Set(float64(s.scheduledLocked()))

	s.logger.Debug("Bot enrolled",
		zap.String("bot_id", bot.ID),
		zap.String("bot_type", string(bot.Type)))
}

// Cancel drops the bot's pending ticks. Callers hold the bot's lock.
func (s *Simulator) Cancel(botID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(botID)
	enrolledBots.Set(float64(s.scheduledLocked()))
	s.logger.Debug("Bot schedule canceled", zap.String("bot_id", botID))
}

func (s *Simulator) removeLocked(botID string) {
	if run, ok := s.runs[botID]; ok {
		if run.scheduled {
			s.cron.Remove(run.entry)
		}
		delete(s.runs, botID)
	}
}

func (s *Simulator) scheduledLocked() int {
	n := 0
	for _, run := range s.runs {
		if run.scheduled {
			n++
		}
	}
	return n
}

// Enrolled reports whether botID has pending scheduled ticks.
func (s *Simulator) Enrolled(botID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[botID]
	return ok && run.scheduled
}

func (s *Simulator) runFor(botID string) *botRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	run, ok := s.runs[botID]
	if !ok {
		run = s.newRun(botID)
		s.runs[botID] = run
	}
	return run
}

func (s *Simulator) runTick(botID string) {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.TickTimeout)
	defer cancel()

	if _, err := s.Step(ctx, botID, s.now()); err != nil {
		tickErrors.Inc()
		s.logger.Error("Bot tick failed",
			zap.Error(err),
			zap.String("bot_id", botID))
	}
}

// Step runs one tick for botID at the simulated time now and returns the number of
// actions performed.
func (s *Simulator) Step(ctx context.Context, botID string, now time.Time) (int, error) {
	unlock := s.Lock(botID)
	defer unlock()

	bot, err := s.store.GetBot(ctx, botID)
	if errors.Is(err, models.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("error loading bot: %w", err)
	}
	if !bot.IsActive {
		return 0, nil
	}

	inWindow, err := bot.Config.Schedule.Contains(now)
	if err != nil {
		return 0, fmt.Errorf("bad schedule for bot %s: %w", bot.ID, err)
	}
	if !inWindow {
		return 0, nil
	}

	run := s.runFor(bot.ID)
	attempts := s.earn(run, bot.Config.ActivityLevel)

	done := 0
	var actErr error
	for i := 0; i < attempts; i++ {
		count, err := s.counts.GetCount(ctx, bot.ID, now)
		if err != nil {
			actErr = fmt.Errorf("error reading hourly count: %w", err)
			break
		}
		if bot.Config.RespectLimits && count >= s.opts.HourlyCap {
			actionsDropped.WithLabelValues(string(bot.Type)).Inc()
			continue
		}

		acted, err := s.act(ctx, bot, run, now)
		if err != nil {
			actErr = err
			break
		}
		if !acted {
			continue
		}
		if err := s.counts.Increment(ctx, bot.ID, now); err != nil {
			actErr = fmt.Errorf("error incrementing hourly count: %w", err)
			break
		}
		done++
	}

	if cs, ok := bot.Stats.(*models.ContentStats); ok {
		likes, comments, err := s.store.BotPostTotals(ctx, bot.ID)
		if err != nil {
			return done, errors.Join(actErr, fmt.Errorf("error summing engagement: %w", err))
		}
		cs.Recompute(likes, comments)
	}

	if attempts > 0 || bot.Type == models.ContentCreatorBot {
		if err := s.store.UpdateBot(ctx, bot); err != nil {
			return done, errors.Join(actErr, fmt.Errorf("error saving bot stats: %w", err))
		}
	}
	return done, actErr
}

// earn adds one tick of credit for level and spends it on whole actions.
func (s *Simulator) earn(run *botRun, level int) int {
	tickMillis := s.TickPeriod().Milliseconds()
	run.credit += int64(scaledLevel(level)*s.opts.MaxActionsPerHour) * tickMillis
	cost := int64(models.MaxActivityLevel) * time.Hour.Milliseconds()
	n := run.credit / cost
	run.credit %= cost
	return int(n)
}

func (s *Simulator) emit(ctx context.Context, bot *models.Bot, t models.ActivityType, desc string, now time.Time) error {
	err := s.store.AddActivity(ctx, &models.Activity{
		ID:          uuid.New().String(),
		Type:        t,
		Description: desc,
		BotID:       bot.ID,
		CreatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("error recording activity: %w", err)
	}
	actionsTotal.WithLabelValues(string(bot.Type), string(t)).Inc()
	return nil
}
