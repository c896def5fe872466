package simulator

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/xaenox/botfleet/internal/classifier"
	"github.com/xaenox/botfleet/internal/models"
	"go.uber.org/zap"
)

// SeedPosts writes n posts from fake personas so engagement bots have something to act on.
// Posts are spaced one minute apart, ending at now.
func (s *Simulator) SeedPosts(ctx context.Context, n int, now time.Time) error {
	if n <= 0 {
		return nil
	}

	faker := gofakeit.New(s.opts.Seed)
	var topics []string
	for topic := range classifier.DefaultCategories {
		topics = append(topics, topic)
	}
	sort.Strings(topics)

	for i := 0; i < n; i++ {
		topic := topics[faker.Number(0, len(topics)-1)]
		post := &models.Post{
			ID:        uuid.New().String(),
			Author:    faker.Name(),
			Content:   fmt.Sprintf("%s #%s", faker.Sentence(10), topic),
			Likes:     faker.Number(0, 40),
			Comments:  faker.Number(0, 10),
			Shares:    faker.Number(0, 5),
			CreatedAt: now.Add(time.Duration(i-n+1) * time.Minute),
		}
		if err := s.store.CreatePost(ctx, post); err != nil {
			return fmt.Errorf("error seeding post: %w", err)
		}
	}

	err := s.store.AddActivity(ctx, &models.Activity{
		ID:          uuid.New().String(),
		Type:        models.ActivityPost,
		Description: fmt.Sprintf("Feed seeded with %d persona posts", n),
		CreatedAt:   now,
	})
	if err != nil {
		return fmt.Errorf("error recording seed activity: %w", err)
	}

	s.logger.Info("Seeded persona posts", zap.Int("count", n))
	return nil
}
