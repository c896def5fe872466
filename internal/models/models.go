package models

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("not found")

// BotType selects a bot's behavior and the shape of its stats
type BotType string

const (
	ContentCreatorBot BotType = "content_creator"
	EngagementBot     BotType = "engagement"
	FollowerBot       BotType = "follower"
	AnalyticsBot      BotType = "analytics"
)

var BotTypes = []BotType{ContentCreatorBot, EngagementBot, FollowerBot, AnalyticsBot}

func (t BotType) Valid() bool {
	switch t {
	case ContentCreatorBot, EngagementBot, FollowerBot, AnalyticsBot:
		return true
	}
	return false
}

// Bot represents a configured automation unit
type Bot struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Name        string     `json:"name"`
	Type        BotType    `json:"type"`
	Description string     `json:"description"`
	IsActive    bool       `json:"isActive"`
	Config      Config     `json:"config"`
	Stats       Stats      `json:"stats"`
	CreatedAt   time.Time  `json:"createdAt"`
	RetiredAt   *time.Time `json:"retiredAt,omitempty"`
}

// NewBot builds a bot with zeroed stats for its type.
func NewBot(id, ownerID string, t BotType, name, description string, cfg Config, createdAt time.Time) (*Bot, error) {
	stats, err := NewStats(t)
	if err != nil {
		return nil, err
	}
	return &Bot{
		ID:          id,
		OwnerID:     ownerID,
		Name:        name,
		Type:        t,
		Description: description,
		IsActive:    true,
		Config:      cfg,
		Stats:       stats,
		CreatedAt:   createdAt,
	}, nil
}

func (b *Bot) Retired() bool {
	return b.RetiredAt != nil
}

// Clone returns a deep copy safe to hand out of storage.
func (b *Bot) Clone() *Bot {
	c := *b
	c.Config = b.Config.Clone()
	if b.Stats != nil {
		c.Stats = b.Stats.Clone()
	}
	if b.RetiredAt != nil {
		t := *b.RetiredAt
		c.RetiredAt = &t
	}
	return &c
}

type ActivityType string

const (
	ActivityCreate  ActivityType = "create"
	ActivityPost    ActivityType = "post"
	ActivityLike    ActivityType = "like"
	ActivityComment ActivityType = "comment"
	ActivityFollow  ActivityType = "follow"
	ActivityAnalyze ActivityType = "analyze"
	ActivityPause   ActivityType = "pause"
	ActivityResume  ActivityType = "resume"
	ActivityConfig  ActivityType = "config"
	ActivityRetire  ActivityType = "retire"
)

// Activity is an immutable feed record. BotID is empty for system events.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Description string       `json:"description"`
	BotID       string       `json:"botId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type Post struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	BotID     string    `json:"botId,omitempty"`
	Content   string    `json:"content"`
	Likes     int       `json:"likes"`
	Comments  int       `json:"comments"`
	Shares    int       `json:"shares"`
	IsFromBot bool      `json:"isFromBot"`
	CreatedAt time.Time `json:"createdAt"`
}

type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Author    string    `json:"author"`
	BotID     string    `json:"botId,omitempty"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// DashboardStats is derived on demand and never persisted
type DashboardStats struct {
	TotalInteractions int     `json:"totalInteractions"`
	SuccessRate       float64 `json:"successRate"`
	ActiveHours       float64 `json:"activeHours"`
	CostSavings       float64 `json:"costSavings"`
	TotalBots         int     `json:"totalBots"`
	ActiveBots        int     `json:"activeBots"`
	ActionsInWindow   int     `json:"actionsInWindow"`
}
