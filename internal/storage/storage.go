package storage

import (
	"context"
	"time"

	"github.com/xaenox/botfleet/internal/models"
)

type Storage interface {
	BotStorage
	FeedStorage
	Close() error
}

// BotStorage persists bots. Lookups of unknown or retired bots return models.ErrNotFound
// unless noted otherwise. Returned bots are copies.
type BotStorage interface {
	CreateBot(ctx context.Context, bot *models.Bot) error
	GetBot(ctx context.Context, id string) (*models.Bot, error)
	UpdateBot(ctx context.Context, bot *models.Bot) error
	// DeleteBot removes a bot outright, retired or not. It is used to undo a failed creation.
	DeleteBot(ctx context.Context, id string) error
	// ListBots returns the owner's live bots in creation order.
	ListBots(ctx context.Context, ownerID string) ([]*models.Bot, error)
	// AllBots returns every live bot in creation order.
	AllBots(ctx context.Context) ([]*models.Bot, error)
	CountBots(ctx context.Context, ownerID string) (int, error)
}

// FeedStorage persists the activity log, posts and comments.
type FeedStorage interface {
	AddActivity(ctx context.Context, activity *models.Activity) error
	// RecentActivities returns up to limit activities, newest first.
	RecentActivities(ctx context.Context, limit int) ([]*models.Activity, error)
	CountActivitiesSince(ctx context.Context, since time.Time) (int, error)

	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, id string) (*models.Post, error)
	// RecentPosts returns up to limit posts, newest first.
	RecentPosts(ctx context.Context, limit int) ([]*models.Post, error)
	// BotPostTotals sums likes and comments over the posts authored by botID.
	BotPostTotals(ctx context.Context, botID string) (likes, comments int, err error)
	LikePost(ctx context.Context, postID string) error

	// AddComment stores the comment and bumps the post's comment counter.
	AddComment(ctx context.Context, comment *models.Comment) error
	// CommentsByPost returns the post's comments oldest first.
	CommentsByPost(ctx context.Context, postID string) ([]*models.Comment, error)
}

type DatabaseConfig struct {
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	UseInMemory bool
}
