package simulator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/botfleet/internal/classifier"
	"github.com/xaenox/botfleet/internal/models"
)

func scaledLevel(level int) int {
	return max(models.MinActivityLevel, min(level, models.MaxActivityLevel))
}

// RatePerHour maps an activity level linearly onto actions per hour, reaching
// maxPerHour at the highest level.
func RatePerHour(level, maxPerHour int) float64 {
	return float64(scaledLevel(level)*maxPerHour) / float64(models.MaxActivityLevel)
}

// act performs one action for bot and reports whether it produced a visible action.
func (s *Simulator) act(ctx context.Context, bot *models.Bot, run *botRun, now time.Time) (bool, error) {
	switch stats := bot.Stats.(type) {
	case *models.ContentStats:
		return s.publish(ctx, bot, stats, run, now)
	case *models.EngagementStats:
		return s.engage(ctx, bot, stats, run, now)
	case *models.FollowerStats:
		return s.follow(ctx, bot, stats, run, now)
	case *models.AnalyticsStats:
		return s.analyze(ctx, bot, stats, now)
	}
	return false, fmt.Errorf("bot %s has no stats for type %q", bot.ID, bot.Type)
}

func hashtag(keyword string) string {
	return "#" + strings.ReplaceAll(strings.TrimSpace(keyword), " ", "")
}

func (s *Simulator) publish(ctx context.Context, bot *models.Bot, stats *models.ContentStats, run *botRun, now time.Time) (bool, error) {
	keyword := bot.Config.Keywords[run.rng.Intn(len(bot.Config.Keywords))]
	post := &models.Post{
		ID:        uuid.New().String(),
		Author:    bot.Name,
		BotID:     bot.ID,
		Content:   fmt.Sprintf("%s %s", run.faker.Sentence(12), hashtag(keyword)),
		IsFromBot: true,
		CreatedAt: now,
	}
	if err := s.store.CreatePost(ctx, post); err != nil {
		return false, fmt.Errorf("error creating post: %w", err)
	}
	stats.PostsCount++

	return true, s.emit(ctx, bot, models.ActivityPost,
		fmt.Sprintf("%s published a new post about %s", bot.Name, hashtag(keyword)), now)
}

// pickPost chooses among the most recent posts not written by bot. Posts matching more of
// the bot's keywords win; ties are broken with the bot's seeded generator.
func (s *Simulator) pickPost(ctx context.Context, bot *models.Bot, run *botRun) (*models.Post, error) {
	posts, err := s.store.RecentPosts(ctx, 2*s.opts.CandidatePosts)
	if err != nil {
		return nil, fmt.Errorf("error loading posts: %w", err)
	}

	var best []*models.Post
	bestScore, considered := -1, 0
	for _, p := range posts {
		if p.BotID == bot.ID {
			continue
		}
		if considered == s.opts.CandidatePosts {
			break
		}
		considered++

		score := classifier.Score(s.classifier, p.Content, bot.Config.Keywords)
		switch {
		case score > bestScore:
			bestScore = score
			best = []*models.Post{p}
		case score == bestScore:
			best = append(best, p)
		}
	}
	if len(best) == 0 {
		return nil, nil
	}
	return best[run.rng.Intn(len(best))], nil
}

func (s *Simulator) engage(ctx context.Context, bot *models.Bot, stats *models.EngagementStats, run *botRun, now time.Time) (bool, error) {
	post, err := s.pickPost(ctx, bot, run)
	if err != nil || post == nil {
		return false, err
	}

	if run.rng.Float64() < s.opts.CommentProbability {
		comment := &models.Comment{
			ID:        uuid.New().String(),
			PostID:    post.ID,
			Author:    bot.Name,
			BotID:     bot.ID,
			Content:   run.faker.Sentence(8),
			CreatedAt: now,
		}
		if err := s.store.AddComment(ctx, comment); err != nil {
			return false, fmt.Errorf("error adding comment: %w", err)
		}
		stats.CommentsCount++
		return true, s.emit(ctx, bot, models.ActivityComment,
			fmt.Sprintf("%s commented on a post by %s", bot.Name, post.Author), now)
	}

	if err := s.store.LikePost(ctx, post.ID); err != nil {
		return false, fmt.Errorf("error liking post: %w", err)
	}
	stats.LikesCount++
	return true, s.emit(ctx, bot, models.ActivityLike,
		fmt.Sprintf("%s liked a post by %s", bot.Name, post.Author), now)
}

func (s *Simulator) follow(ctx context.Context, bot *models.Bot, stats *models.FollowerStats, run *botRun, now time.Time) (bool, error) {
	success := run.rng.Float64() < s.opts.FollowSuccessProbability
	stats.Record(success)
	if !success {
		return false, nil
	}
	return true, s.emit(ctx, bot, models.ActivityFollow,
		fmt.Sprintf("%s followed @%s", bot.Name, strings.ToLower(run.faker.Username())), now)
}

// analyze folds the other live bots' stats into the analytics bot's own metrics.
func (s *Simulator) analyze(ctx context.Context, bot *models.Bot, stats *models.AnalyticsStats, now time.Time) (bool, error) {
	bots, err := s.store.AllBots(ctx)
	if err != nil {
		return false, fmt.Errorf("error loading bots: %w", err)
	}

	tracked, interactions := 0, 0
	for _, b := range bots {
		if b.ID == bot.ID {
			continue
		}
		tracked++
		interactions += b.Stats.Interactions()
	}
	stats.BotsTracked = tracked
	stats.InteractionsObserved = interactions
	stats.ReportsGenerated++

	return true, s.emit(ctx, bot, models.ActivityAnalyze,
		fmt.Sprintf("%s analyzed %d interactions across %d bots", bot.Name, interactions, tracked), now)
}
