package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xaenox/botfleet/internal/models"
)

type MemoryStorage struct {
	mu         sync.RWMutex
	bots       map[string]*models.Bot
	botOrder   []string
	activities []*models.Activity
	posts      map[string]*models.Post
	postOrder  []string
	comments   map[string][]*models.Comment
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		bots:     make(map[string]*models.Bot),
		posts:    make(map[string]*models.Post),
		comments: make(map[string][]*models.Comment),
	}
}

var _ Storage = (*MemoryStorage)(nil)

// Bot methods
func (s *MemoryStorage) CreateBot(ctx context.Context, bot *models.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bots[bot.ID]; exists {
		return fmt.Errorf("bot %s already exists", bot.ID)
	}
	s.bots[bot.ID] = bot.Clone()
	s.botOrder = append(s.botOrder, bot.ID)
	return nil
}

func (s *MemoryStorage) GetBot(ctx context.Context, id string) (*models.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if bot, exists := s.bots[id]; exists && !bot.Retired() {
		return bot.Clone(), nil
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStorage) UpdateBot(ctx context.Context, bot *models.Bot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.bots[bot.ID]
	if !exists || existing.Retired() {
		return models.ErrNotFound
	}
	s.bots[bot.ID] = bot.Clone()
	return nil
}

func (s *MemoryStorage) DeleteBot(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bots[id]; !exists {
		return models.ErrNotFound
	}
	delete(s.bots, id)
	for i, bid := range s.botOrder {
		if bid == id {
			s.botOrder = append(s.botOrder[:i], s.botOrder[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStorage) ListBots(ctx context.Context, ownerID string) ([]*models.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Bot{}
	for _, id := range s.botOrder {
		if bot := s.bots[id]; bot.OwnerID == ownerID && !bot.Retired() {
			out = append(out, bot.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStorage) AllBots(ctx context.Context) ([]*models.Bot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Bot, 0, len(s.botOrder))
	for _, id := range s.botOrder {
		if bot := s.bots[id]; !bot.Retired() {
			out = append(out, bot.Clone())
		}
	}
	return out, nil
}

func (s *MemoryStorage) CountBots(ctx context.Context, ownerID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, bot := range s.bots {
		if bot.OwnerID == ownerID && !bot.Retired() {
			n++
		}
	}
	return n, nil
}

// Feed methods
func (s *MemoryStorage) AddActivity(ctx context.Context, activity *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := *activity
	s.activities = append(s.activities, &a)
	return nil
}

func (s *MemoryStorage) RecentActivities(ctx context.Context, limit int) ([]*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Activity{}
	for i := len(s.activities) - 1; i >= 0 && len(out) < limit; i-- {
		a := *s.activities[i]
		out = append(out, &a)
	}
	return out, nil
}

func (s *MemoryStorage) CountActivitiesSince(ctx context.Context, since time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, a := range s.activities {
		if !a.CreatedAt.Before(since) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStorage) CreatePost(ctx context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.posts[post.ID]; exists {
		return fmt.Errorf("post %s already exists", post.ID)
	}
	p := *post
	s.posts[post.ID] = &p
	s.postOrder = append(s.postOrder, post.ID)
	return nil
}

func (s *MemoryStorage) GetPost(ctx context.Context, id string) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if post, exists := s.posts[id]; exists {
		p := *post
		return &p, nil
	}
	return nil, models.ErrNotFound
}

func (s *MemoryStorage) RecentPosts(ctx context.Context, limit int) ([]*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Post{}
	for i := len(s.postOrder) - 1; i >= 0 && len(out) < limit; i-- {
		p := *s.posts[s.postOrder[i]]
		out = append(out, &p)
	}
	return out, nil
}

func (s *MemoryStorage) BotPostTotals(ctx context.Context, botID string) (int, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	likes, comments := 0, 0
	for _, p := range s.posts {
		if p.BotID == botID {
			likes += p.Likes
			comments += p.Comments
		}
	}
	return likes, comments, nil
}

func (s *MemoryStorage) LikePost(ctx context.Context, postID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[postID]
	if !exists {
		return models.ErrNotFound
	}
	post.Likes++
	return nil
}

func (s *MemoryStorage) AddComment(ctx context.Context, comment *models.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, exists := s.posts[comment.PostID]
	if !exists {
		return models.ErrNotFound
	}
	c := *comment
	s.comments[comment.PostID] = append(s.comments[comment.PostID], &c)
	post.Comments++
	return nil
}

func (s *MemoryStorage) CommentsByPost(ctx context.Context, postID string) ([]*models.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, exists := s.posts[postID]; !exists {
		return nil, models.ErrNotFound
	}
	out := make([]*models.Comment, 0, len(s.comments[postID]))
	for _, c := range s.comments[postID] {
		cc := *c
		out = append(out, &cc)
	}
	return out, nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}
